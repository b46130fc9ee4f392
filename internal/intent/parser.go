package intent

import (
	"strconv"
	"strings"
)

// ParseCall reads a single function-call expression of the form
//
//	name.path(param=literal, ...)
//
// and returns the call name (last path segment) with its keyword arguments.
// Literals are ints, floats, quoted strings, booleans, None (mapped to nil),
// or bracketed lists of those. A keyword value that is none of these is kept
// as its raw source text. Positional arguments, multiple statements, or
// anything else that does not fit the grammar returns ok=false; callers map
// that to the out-of-scope intent.
func ParseCall(input string) (name string, args map[string]any, ok bool) {
	p := &callParser{src: input}
	p.skipSpace()

	path, ok := p.namePath()
	if !ok {
		return "", nil, false
	}
	if !p.consume('(') {
		return "", nil, false
	}

	args = map[string]any{}
	p.skipSpace()
	if !p.consume(')') {
		for {
			key, ok := p.ident()
			if !ok {
				return "", nil, false
			}
			if !p.consume('=') {
				// Bare value: a positional argument, not supported.
				return "", nil, false
			}
			val, ok := p.value()
			if !ok {
				return "", nil, false
			}
			args[key] = val

			if p.consume(',') {
				continue
			}
			if p.consume(')') {
				break
			}
			return "", nil, false
		}
	}

	p.skipSpace()
	if p.pos != len(p.src) {
		// Trailing text means more than one statement or stray output.
		return "", nil, false
	}

	segments := strings.Split(path, ".")
	return segments[len(segments)-1], args, true
}

type callParser struct {
	src string
	pos int
}

func (p *callParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

// consume skips whitespace and eats ch if it is next.
func (p *callParser) consume(ch byte) bool {
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == ch {
		p.pos++
		return true
	}
	return false
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (p *callParser) ident() (string, bool) {
	p.skipSpace()
	start := p.pos
	if p.pos >= len(p.src) || !isIdentStart(p.src[p.pos]) {
		return "", false
	}
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos], true
}

// namePath reads identifier(.identifier)* so replies like
// agent.user_intent_confirm(...) still resolve.
func (p *callParser) namePath() (string, bool) {
	first, ok := p.ident()
	if !ok {
		return "", false
	}
	path := first
	for {
		save := p.pos
		if !p.consume('.') {
			return path, true
		}
		seg, ok := p.ident()
		if !ok {
			p.pos = save
			return "", false
		}
		path += "." + seg
	}
}

// value reads one keyword-argument value. Unrecognized expressions fall back
// to their raw source text, consumed up to the next top-level ',' or ')'.
func (p *callParser) value() (any, bool) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, false
	}

	switch c := p.src[p.pos]; {
	case c == '\'' || c == '"':
		return p.quotedString()
	case c == '[':
		if v, ok := p.list(); ok {
			return v, true
		}
		return p.rawText()
	case c == '-' || c == '+' || (c >= '0' && c <= '9'):
		if v, ok := p.number(); ok {
			return v, true
		}
		return p.rawText()
	default:
		if word, ok := p.keywordLiteral(); ok {
			return word, true
		}
		return p.rawText()
	}
}

func (p *callParser) quotedString() (any, bool) {
	quote := p.src[p.pos]
	p.pos++
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case '\\':
			if p.pos+1 >= len(p.src) {
				return nil, false
			}
			next := p.src[p.pos+1]
			switch next {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(next)
			}
			p.pos += 2
		case quote:
			p.pos++
			return b.String(), true
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return nil, false
}

func (p *callParser) number() (any, bool) {
	start := p.pos
	if p.src[p.pos] == '-' || p.src[p.pos] == '+' {
		p.pos++
	}
	digits := 0
	isFloat := false
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c >= '0' && c <= '9':
			digits++
			p.pos++
		case c == '.' && !isFloat:
			isFloat = true
			p.pos++
		default:
			goto done
		}
	}
done:
	if digits == 0 {
		p.pos = start
		return nil, false
	}
	text := p.src[start:p.pos]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			p.pos = start
			return nil, false
		}
		return f, true
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		p.pos = start
		return nil, false
	}
	return n, true
}

// keywordLiteral handles the word-like literals models emit: booleans in
// either Python or JSON casing, and the None family meaning "not specified".
func (p *callParser) keywordLiteral() (any, bool) {
	save := p.pos
	word, ok := p.ident()
	if !ok {
		return nil, false
	}
	// Only a standalone word counts; foo.bar or foo(...) is not a literal.
	if p.pos < len(p.src) && (p.src[p.pos] == '.' || p.src[p.pos] == '(') {
		p.pos = save
		return nil, false
	}
	switch word {
	case "True", "true":
		return true, true
	case "False", "false":
		return false, true
	case "None", "null", "nil":
		return nil, true
	}
	p.pos = save
	return nil, false
}

func (p *callParser) list() ([]any, bool) {
	save := p.pos
	p.pos++ // consume '['
	items := []any{}
	p.skipSpace()
	if p.consume(']') {
		return items, true
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			p.pos = save
			return nil, false
		}
		var item any
		var ok bool
		switch c := p.src[p.pos]; {
		case c == '\'' || c == '"':
			item, ok = p.quotedString()
		case c == '-' || c == '+' || (c >= '0' && c <= '9'):
			item, ok = p.number()
		default:
			item, ok = p.keywordLiteral()
		}
		if !ok {
			p.pos = save
			return nil, false
		}
		items = append(items, item)

		if p.consume(',') {
			continue
		}
		if p.consume(']') {
			return items, true
		}
		p.pos = save
		return nil, false
	}
}

// rawText captures an unparseable value verbatim, balancing brackets so nested
// calls like b(x, y) are consumed whole.
func (p *callParser) rawText() (any, bool) {
	start := p.pos
	depth := 0
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case '(', '[':
			depth++
		case ')', ']':
			if depth == 0 {
				goto done
			}
			depth--
		case ',':
			if depth == 0 {
				goto done
			}
		case '\'', '"':
			if _, ok := p.quotedString(); !ok {
				return nil, false
			}
			continue
		}
		p.pos++
	}
done:
	text := strings.TrimSpace(p.src[start:p.pos])
	if text == "" {
		return nil, false
	}
	return text, true
}
