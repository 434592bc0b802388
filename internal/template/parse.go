package template

// parser builds the node tree from the token stream with an explicit stack
// of open blocks.
type parser struct {
	src    string
	tokens []token
	pos    int
}

func parse(src string) ([]node, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, tokens: tokens}
	nodes, closing, err := p.parseList()
	if err != nil {
		return nil, err
	}
	if closing != nil {
		return nil, newError(src, closing.offset, "unexpected {{/"+closing.keyword+"}}")
	}
	return nodes, nil
}

// parseList consumes nodes until the input ends or a closing tag is found,
// which is returned to the caller unconsumed.
func (p *parser) parseList() ([]node, *token, error) {
	var nodes []node
	for p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		switch tok.kind {
		case tokenText:
			p.pos++
			nodes = append(nodes, &textNode{text: tok.text})
		case tokenVar:
			p.pos++
			nodes = append(nodes, &varNode{path: tok.arg})
		case tokenRaw:
			p.pos++
			nodes = append(nodes, &varNode{path: tok.arg, raw: true})
		case tokenOpen:
			p.pos++
			block, err := p.parseBlock(tok)
			if err != nil {
				return nil, nil, err
			}
			nodes = append(nodes, block)
		case tokenClose:
			return nodes, &p.tokens[p.pos], nil
		}
	}
	return nodes, nil, nil
}

func (p *parser) parseBlock(open token) (node, error) {
	body, closing, err := p.parseList()
	if err != nil {
		return nil, err
	}
	if closing == nil {
		return nil, newError(p.src, open.offset, "unclosed {{#"+open.keyword+"}}")
	}
	if closing.keyword != open.keyword {
		return nil, newError(p.src, closing.offset,
			"{{/"+closing.keyword+"}} does not close {{#"+open.keyword+"}}")
	}
	p.pos++
	return &blockNode{kind: blockKindOf(open.keyword), path: open.arg, body: body}, nil
}
