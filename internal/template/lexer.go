package template

import "strings"

const (
	leftDelim  = "{{"
	rightDelim = "}}"
)

type tokenKind int

const (
	tokenText tokenKind = iota
	tokenVar
	tokenRaw
	tokenOpen
	tokenClose
)

// token is one lexical unit. For tags, arg holds the path (or block
// argument) and keyword the block keyword.
type token struct {
	kind    tokenKind
	text    string
	keyword string
	arg     string
	offset  int
}

// lex splits src into text runs and tags.
func lex(src string) ([]token, error) {
	var tokens []token
	pos := 0
	for pos < len(src) {
		start := strings.Index(src[pos:], leftDelim)
		if start < 0 {
			tokens = append(tokens, token{kind: tokenText, text: src[pos:], offset: pos})
			break
		}
		start += pos
		if start > pos {
			tokens = append(tokens, token{kind: tokenText, text: src[pos:start], offset: pos})
		}
		end := strings.Index(src[start+len(leftDelim):], rightDelim)
		if end < 0 {
			return nil, newError(src, start, "unterminated tag")
		}
		end += start + len(leftDelim)
		tok, err := lexTag(src, start, strings.TrimSpace(src[start+len(leftDelim):end]))
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		pos = end + len(rightDelim)
	}
	return tokens, nil
}

func lexTag(src string, offset int, body string) (token, error) {
	if body == "" {
		return token{}, newError(src, offset, "empty tag")
	}
	switch body[0] {
	case '#':
		fields := strings.Fields(body[1:])
		if len(fields) == 0 {
			return token{}, newError(src, offset, "block tag without keyword")
		}
		keyword := fields[0]
		if !isBlockKeyword(keyword) {
			return token{}, newError(src, offset, "unknown block "+quote(keyword))
		}
		if len(fields) != 2 {
			return token{}, newError(src, offset, quote(keyword)+" needs exactly one argument")
		}
		return token{kind: tokenOpen, keyword: keyword, arg: fields[1], offset: offset}, nil
	case '/':
		keyword := strings.TrimSpace(body[1:])
		if !isBlockKeyword(keyword) {
			return token{}, newError(src, offset, "unknown closing tag "+quote(keyword))
		}
		return token{kind: tokenClose, keyword: keyword, offset: offset}, nil
	case '@':
		path := strings.TrimSpace(body[1:])
		if path == "index" {
			return token{kind: tokenVar, arg: "@index", offset: offset}, nil
		}
		if err := checkPath(src, offset, path); err != nil {
			return token{}, err
		}
		return token{kind: tokenRaw, arg: path, offset: offset}, nil
	}
	if err := checkPath(src, offset, body); err != nil {
		return token{}, err
	}
	return token{kind: tokenVar, arg: body, offset: offset}, nil
}

func checkPath(src string, offset int, path string) error {
	if path == "" {
		return newError(src, offset, "empty path")
	}
	if strings.ContainsAny(path, " \t\r\n{}") {
		return newError(src, offset, "invalid path "+quote(path))
	}
	if strings.HasPrefix(path, ".") || strings.HasSuffix(path, ".") || strings.Contains(path, "..") {
		return newError(src, offset, "invalid path "+quote(path))
	}
	return nil
}

func isBlockKeyword(s string) bool {
	switch s {
	case "if", "unless", "each":
		return true
	}
	return false
}

func quote(s string) string { return `"` + s + `"` }
