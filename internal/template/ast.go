package template

// node is an element of the compiled template tree.
type node interface {
	render(s *scope, b *builder)
}

type textNode struct {
	text string
}

// varNode substitutes a resolved path; raw skips escaping.
type varNode struct {
	path string
	raw  bool
}

type blockKind int

const (
	blockIf blockKind = iota
	blockUnless
	blockEach
)

func (k blockKind) String() string {
	switch k {
	case blockIf:
		return "if"
	case blockUnless:
		return "unless"
	case blockEach:
		return "each"
	}
	return "unknown"
}

type blockNode struct {
	kind blockKind
	path string
	body []node
}

func blockKindOf(keyword string) blockKind {
	switch keyword {
	case "unless":
		return blockUnless
	case "each":
		return blockEach
	}
	return blockIf
}
