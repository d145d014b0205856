package llm

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// ParsePartial parses a JSON document that may be cut off anywhere. Strings
// cut mid-way are returned up to the last complete character, and objects
// and arrays hold the members seen so far. complete is false when the input
// ended early.
func ParsePartial(s string) (v any, complete bool) {
	p := &partialParser{s: s}
	p.ws()
	if p.eof() {
		return nil, false
	}
	return p.value()
}

// PartialString returns the current value of a top-level string field in a
// possibly truncated JSON object.
func PartialString(raw, field string) (string, bool) {
	v, _ := ParsePartial(raw)
	obj, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	s, ok := obj[field].(string)
	return s, ok
}

type partialParser struct {
	s string
	i int
}

func (p *partialParser) eof() bool { return p.i >= len(p.s) }

func (p *partialParser) ws() {
	for p.i < len(p.s) {
		switch p.s[p.i] {
		case ' ', '\t', '\n', '\r':
			p.i++
		default:
			return
		}
	}
}

func (p *partialParser) value() (any, bool) {
	switch c := p.s[p.i]; {
	case c == '{':
		return p.object()
	case c == '[':
		return p.array()
	case c == '"':
		return p.str()
	case c == 't':
		return p.literal("true", true)
	case c == 'f':
		return p.literal("false", false)
	case c == 'n':
		return p.literal("null", nil)
	default:
		return p.number()
	}
}

func (p *partialParser) object() (any, bool) {
	obj := map[string]any{}
	p.i++ // {
	for {
		p.ws()
		if p.eof() {
			return obj, false
		}
		if p.s[p.i] == '}' {
			p.i++
			return obj, true
		}
		if p.s[p.i] == ',' {
			p.i++
			continue
		}
		if p.s[p.i] != '"' {
			return obj, false
		}
		k, ok := p.str()
		if !ok {
			return obj, false
		}
		p.ws()
		if p.eof() || p.s[p.i] != ':' {
			return obj, false
		}
		p.i++
		p.ws()
		if p.eof() {
			return obj, false
		}
		v, ok := p.value()
		if v != nil || ok {
			obj[k.(string)] = v
		}
		if !ok {
			return obj, false
		}
	}
}

func (p *partialParser) array() (any, bool) {
	arr := []any{}
	p.i++ // [
	for {
		p.ws()
		if p.eof() {
			return arr, false
		}
		switch p.s[p.i] {
		case ']':
			p.i++
			return arr, true
		case ',':
			p.i++
			continue
		}
		v, ok := p.value()
		if v != nil || ok {
			arr = append(arr, v)
		}
		if !ok {
			return arr, false
		}
	}
}

func (p *partialParser) str() (any, bool) {
	var b strings.Builder
	p.i++ // opening quote
	for p.i < len(p.s) {
		c := p.s[p.i]
		switch {
		case c == '"':
			p.i++
			return b.String(), true
		case c == '\\':
			r, n := p.escape()
			if n == 0 {
				p.i = len(p.s)
				return b.String(), false
			}
			b.WriteRune(r)
			p.i += n
		default:
			r, size := utf8.DecodeRuneInString(p.s[p.i:])
			if r == utf8.RuneError && size <= 1 && !utf8.FullRuneInString(p.s[p.i:]) {
				p.i = len(p.s)
				return b.String(), false
			}
			b.WriteString(p.s[p.i : p.i+size])
			p.i += size
		}
	}
	return b.String(), false
}

// escape decodes the escape sequence at p.i. n is 0 when it is truncated.
func (p *partialParser) escape() (r rune, n int) {
	rest := p.s[p.i:]
	if len(rest) < 2 {
		return 0, 0
	}
	switch rest[1] {
	case '"':
		return '"', 2
	case '\\':
		return '\\', 2
	case '/':
		return '/', 2
	case 'b':
		return '\b', 2
	case 'f':
		return '\f', 2
	case 'n':
		return '\n', 2
	case 'r':
		return '\r', 2
	case 't':
		return '\t', 2
	case 'u':
		r1, ok := hex4(rest[2:])
		if !ok {
			return 0, 0
		}
		if !utf16.IsSurrogate(r1) {
			return r1, 6
		}
		if len(rest) < 12 {
			return 0, 0
		}
		if rest[6] == '\\' && rest[7] == 'u' {
			if r2, ok := hex4(rest[8:]); ok {
				return utf16.DecodeRune(r1, r2), 12
			}
		}
		return utf8.RuneError, 6
	}
	return rune(rest[1]), 2
}

func hex4(s string) (rune, bool) {
	if len(s) < 4 {
		return 0, false
	}
	v, err := strconv.ParseUint(s[:4], 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}

func (p *partialParser) literal(word string, v any) (any, bool) {
	rest := p.s[p.i:]
	if strings.HasPrefix(rest, word) {
		p.i += len(word)
		return v, true
	}
	p.i = len(p.s)
	return nil, false
}

func (p *partialParser) number() (any, bool) {
	start := p.i
	for p.i < len(p.s) && strings.IndexByte("+-0123456789.eE", p.s[p.i]) >= 0 {
		p.i++
	}
	f, err := strconv.ParseFloat(p.s[start:p.i], 64)
	if err != nil {
		p.i = len(p.s)
		return nil, false
	}
	// a number running into EOF may still grow
	return f, !p.eof()
}
