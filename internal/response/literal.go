package response

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// MaxInputBytes bounds the text handed to the parser.
	MaxInputBytes = 1 << 20
	// MaxDepth bounds container nesting.
	MaxDepth = 64
)

// ValueKind identifies the type of a parsed literal.
type ValueKind int

const (
	KindNone ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindTuple
	KindList
	KindSet
	KindDict
)

var kindNames = [...]string{"None", "bool", "int", "float", "str", "bytes", "tuple", "list", "set", "dict"}

func (k ValueKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is a parsed literal. Dict items alternate key, value.
type Value struct {
	Kind  ValueKind
	Bool  bool
	Int   *big.Int
	Float float64
	Str   string
	Items []Value
}

// IsScalar reports whether v is not a container.
func (v Value) IsScalar() bool {
	return v.Kind <= KindBytes
}

// SyntaxError describes where parsing stopped.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("literal syntax error at offset %d: %s", e.Offset, e.Msg)
}

// ParseLiteral parses a Python literal expression: numbers, strings, bytes,
// True/False/None, tuples, lists, sets and dicts. Nothing is evaluated.
func ParseLiteral(src string) (Value, error) {
	if len(src) > MaxInputBytes {
		return Value{}, &SyntaxError{Offset: MaxInputBytes, Msg: "input too large"}
	}
	if !utf8.ValidString(src) {
		return Value{}, &SyntaxError{Msg: "invalid UTF-8"}
	}
	p := &parser{src: src}
	v, err := p.parseTop()
	if err != nil {
		return Value{}, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return Value{}, p.errorf("unexpected %q", p.src[p.pos])
	}
	return v, nil
}

type parser struct {
	src   string
	pos   int
	depth int
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch c := p.src[p.pos]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			p.pos++
		case c == '\\' && strings.HasPrefix(p.src[p.pos:], "\\\n"):
			p.pos += 2
		case c == '#':
			for p.pos < len(p.src) && p.src[p.pos] != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *parser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

// parseTop accepts a bare tuple such as "1, 2".
func (p *parser) parseTop() (Value, error) {
	first, err := p.parseValue()
	if err != nil {
		return Value{}, err
	}
	if p.peek() != ',' {
		return first, nil
	}
	items := []Value{first}
	for p.peek() == ',' {
		p.pos++
		if p.peek() == 0 {
			break
		}
		v, err := p.parseValue()
		if err != nil {
			return Value{}, err
		}
		items = append(items, v)
	}
	return Value{Kind: KindTuple, Items: items}, nil
}

func (p *parser) parseValue() (Value, error) {
	c := p.peek()
	switch {
	case c == 0:
		return Value{}, p.errorf("unexpected end of input")
	case c == '[':
		return p.parseSeq(KindList, ']')
	case c == '(':
		return p.parseParen()
	case c == '{':
		return p.parseBrace()
	case c == '\'' || c == '"':
		return p.parseStrings("")
	case c == '+' || c == '-':
		return p.parseSigned()
	case isDigit(c) || c == '.':
		return p.parseNumber()
	case isIdentStart(c):
		return p.parseName()
	}
	return Value{}, p.errorf("unexpected %q", c)
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > MaxDepth {
		return p.errorf("nesting deeper than %d", MaxDepth)
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

// parseSeq reads comma separated values up to close; trailing comma allowed.
func (p *parser) parseSeq(kind ValueKind, close byte) (Value, error) {
	if err := p.enter(); err != nil {
		return Value{}, err
	}
	defer p.leave()
	p.pos++

	items := []Value{}
	for {
		if p.peek() == close {
			p.pos++
			return Value{Kind: kind, Items: items}, nil
		}
		v, err := p.parseValue()
		if err != nil {
			return Value{}, err
		}
		items = append(items, v)
		switch p.peek() {
		case ',':
			p.pos++
		case close:
		default:
			return Value{}, p.errorf("expected ',' or %q", close)
		}
	}
}

// parseParen handles (), (x), (x,) and (x, y).
func (p *parser) parseParen() (Value, error) {
	if err := p.enter(); err != nil {
		return Value{}, err
	}
	defer p.leave()
	p.pos++

	if p.peek() == ')' {
		p.pos++
		return Value{Kind: KindTuple, Items: []Value{}}, nil
	}
	first, err := p.parseValue()
	if err != nil {
		return Value{}, err
	}
	switch p.peek() {
	case ')':
		p.pos++
		return first, nil
	case ',':
	default:
		return Value{}, p.errorf("expected ',' or ')'")
	}

	items := []Value{first}
	for p.peek() == ',' {
		p.pos++
		if p.peek() == ')' {
			break
		}
		v, err := p.parseValue()
		if err != nil {
			return Value{}, err
		}
		items = append(items, v)
	}
	if p.peek() != ')' {
		return Value{}, p.errorf("expected ')'")
	}
	p.pos++
	return Value{Kind: KindTuple, Items: items}, nil
}

// parseBrace handles sets and dicts; {} is an empty dict.
func (p *parser) parseBrace() (Value, error) {
	if err := p.enter(); err != nil {
		return Value{}, err
	}
	defer p.leave()
	p.pos++

	if p.peek() == '}' {
		p.pos++
		return Value{Kind: KindDict, Items: []Value{}}, nil
	}
	first, err := p.parseValue()
	if err != nil {
		return Value{}, err
	}
	kind := KindSet
	items := []Value{first}
	if p.peek() == ':' {
		kind = KindDict
		p.pos++
		v, err := p.parseValue()
		if err != nil {
			return Value{}, err
		}
		items = append(items, v)
	}

	for {
		switch p.peek() {
		case '}':
			p.pos++
			return Value{Kind: kind, Items: items}, nil
		case ',':
			p.pos++
		default:
			return Value{}, p.errorf("expected ',' or '}'")
		}
		if p.peek() == '}' {
			continue
		}
		k, err := p.parseValue()
		if err != nil {
			return Value{}, err
		}
		items = append(items, k)
		if kind == KindDict {
			if p.peek() != ':' {
				return Value{}, p.errorf("expected ':'")
			}
			p.pos++
			v, err := p.parseValue()
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
	}
}

func (p *parser) parseSigned() (Value, error) {
	neg := false
	for {
		c := p.peek()
		if c != '+' && c != '-' {
			break
		}
		if c == '-' {
			neg = !neg
		}
		p.pos++
	}
	c := p.peek()
	if !isDigit(c) && c != '.' {
		return Value{}, p.errorf("sign must precede a number")
	}
	v, err := p.parseNumber()
	if err != nil || !neg {
		return v, err
	}
	if v.Kind == KindInt {
		v.Int.Neg(v.Int)
	} else {
		v.Float = -v.Float
	}
	return v, nil
}

var (
	reDecInt = regexp.MustCompile(`^(?:0(?:_?0)*|[1-9](?:_?[0-9])*)$`)
	reHexInt = regexp.MustCompile(`^0[xX](?:_?[0-9a-fA-F])+$`)
	reOctInt = regexp.MustCompile(`^0[oO](?:_?[0-7])+$`)
	reBinInt = regexp.MustCompile(`^0[bB](?:_?[01])+$`)
	reFloat  = regexp.MustCompile(`^(?:(?:[0-9](?:_?[0-9])*)?\.[0-9](?:_?[0-9])*|[0-9](?:_?[0-9])*\.?)(?:[eE][+-]?[0-9](?:_?[0-9])*)?$`)
)

func (p *parser) parseNumber() (Value, error) {
	start := p.pos
	hex := strings.HasPrefix(strings.ToLower(p.src[p.pos:]), "0x")
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if isIdentChar(c) || c == '.' {
			p.pos++
			continue
		}
		if (c == '+' || c == '-') && !hex && p.pos > start && (p.src[p.pos-1] == 'e' || p.src[p.pos-1] == 'E') {
			p.pos++
			continue
		}
		break
	}
	tok := p.src[start:p.pos]
	clean := strings.ReplaceAll(tok, "_", "")

	var (
		n    = new(big.Int)
		ok   bool
		base int
	)
	switch {
	case reDecInt.MatchString(tok):
		base = 10
	case reHexInt.MatchString(tok):
		base, clean = 16, clean[2:]
	case reOctInt.MatchString(tok):
		base, clean = 8, clean[2:]
	case reBinInt.MatchString(tok):
		base, clean = 2, clean[2:]
	case reFloat.MatchString(tok) && strings.ContainsAny(tok, ".eE"):
		f, err := strconv.ParseFloat(clean, 64)
		if err != nil && !isRangeErr(err) {
			return Value{}, &SyntaxError{Offset: start, Msg: "bad float " + tok}
		}
		return Value{Kind: KindFloat, Float: f}, nil
	default:
		return Value{}, &SyntaxError{Offset: start, Msg: "bad number " + strconv.Quote(tok)}
	}
	if _, ok = n.SetString(clean, base); !ok {
		return Value{}, &SyntaxError{Offset: start, Msg: "bad integer " + tok}
	}
	return Value{Kind: KindInt, Int: n}, nil
}

func isRangeErr(err error) bool {
	ne, ok := err.(*strconv.NumError)
	return ok && ne.Err == strconv.ErrRange
}

func (p *parser) parseName() (Value, error) {
	start := p.pos
	for p.pos < len(p.src) && isIdentChar(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[start:p.pos]
	if p.pos < len(p.src) && (p.src[p.pos] == '\'' || p.src[p.pos] == '"') {
		switch strings.ToLower(name) {
		case "r", "u", "b", "br", "rb":
			p.pos = start
			return p.parseStrings(strings.ToLower(name))
		}
		return Value{}, &SyntaxError{Offset: start, Msg: "unsupported string prefix " + name}
	}
	switch name {
	case "None":
		return Value{Kind: KindNone}, nil
	case "True":
		return Value{Kind: KindBool, Bool: true}, nil
	case "False":
		return Value{Kind: KindBool, Bool: false}, nil
	}
	return Value{}, &SyntaxError{Offset: start, Msg: "name " + strconv.Quote(name) + " is not a literal"}
}

// parseStrings reads one string literal plus any adjacent ones.
func (p *parser) parseStrings(prefix string) (Value, error) {
	var (
		b     strings.Builder
		kind  ValueKind = -1
		first = true
	)
	for {
		if !first {
			prefix = p.stringPrefix()
			if prefix == "?" {
				break
			}
		}
		p.pos += len(prefix)
		isBytes := strings.Contains(prefix, "b")
		k := KindString
		if isBytes {
			k = KindBytes
		}
		if kind != -1 && kind != k {
			return Value{}, p.errorf("cannot mix bytes and nonbytes literals")
		}
		kind = k
		s, err := p.parseQuoted(strings.Contains(prefix, "r"), isBytes)
		if err != nil {
			return Value{}, err
		}
		b.WriteString(s)
		first = false
	}
	return Value{Kind: kind, Str: b.String()}, nil
}

// stringPrefix reports the prefix of an adjacent string literal, or "?" if
// the next token is not a string.
func (p *parser) stringPrefix() string {
	c := p.peek()
	if c == '\'' || c == '"' {
		return ""
	}
	end := p.pos
	for end < len(p.src) && end-p.pos < 2 && isIdentChar(p.src[end]) {
		end++
	}
	if end >= len(p.src) || (p.src[end] != '\'' && p.src[end] != '"') {
		return "?"
	}
	switch pre := strings.ToLower(p.src[p.pos:end]); pre {
	case "r", "u", "b", "br", "rb":
		return p.src[p.pos:end]
	}
	return "?"
}

func (p *parser) parseQuoted(raw, isBytes bool) (string, error) {
	q := p.src[p.pos]
	triple := strings.HasPrefix(p.src[p.pos:], strings.Repeat(string(q), 3))
	if triple {
		p.pos += 3
	} else {
		p.pos++
	}

	var b strings.Builder
	for {
		if p.pos >= len(p.src) {
			return "", p.errorf("unterminated string")
		}
		c := p.src[p.pos]
		switch {
		case c == q && (!triple || strings.HasPrefix(p.src[p.pos:], strings.Repeat(string(q), 3))):
			if triple {
				p.pos += 3
			} else {
				p.pos++
			}
			return b.String(), nil
		case c == '\n' && !triple:
			return "", p.errorf("newline in string")
		case c == '\\':
			if p.pos+1 >= len(p.src) {
				return "", p.errorf("unterminated string")
			}
			if raw {
				b.WriteString(p.src[p.pos : p.pos+2])
				p.pos += 2
				continue
			}
			if err := p.escape(&b, isBytes); err != nil {
				return "", err
			}
		default:
			if isBytes && c >= utf8.RuneSelf {
				return "", p.errorf("bytes can only contain ASCII literal characters")
			}
			b.WriteByte(c)
			p.pos++
		}
	}
}

func (p *parser) escape(b *strings.Builder, isBytes bool) error {
	c := p.src[p.pos+1]
	p.pos += 2
	switch c {
	case '\n':
	case '\\', '\'', '"':
		b.WriteByte(c)
	case 'a':
		b.WriteByte('\a')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'n':
		b.WriteByte('\n')
	case 'r':
		b.WriteByte('\r')
	case 't':
		b.WriteByte('\t')
	case 'v':
		b.WriteByte('\v')
	case '0', '1', '2', '3', '4', '5', '6', '7':
		start := p.pos - 1
		end := start + 1
		for end < len(p.src) && end-start < 3 && p.src[end] >= '0' && p.src[end] <= '7' {
			end++
		}
		n, _ := strconv.ParseUint(p.src[start:end], 8, 32)
		p.pos = end
		writeCode(b, rune(n), isBytes)
	case 'x':
		return p.hexEscape(b, 2, isBytes)
	case 'u', 'U':
		if isBytes {
			b.WriteByte('\\')
			b.WriteByte(c)
			return nil
		}
		width := 4
		if c == 'U' {
			width = 8
		}
		return p.hexEscape(b, width, false)
	case 'N':
		return p.errorf(`\N{...} escapes are not supported`)
	default:
		b.WriteByte('\\')
		b.WriteByte(c)
	}
	return nil
}

func (p *parser) hexEscape(b *strings.Builder, width int, isBytes bool) error {
	if p.pos+width > len(p.src) {
		return p.errorf("truncated escape")
	}
	n, err := strconv.ParseUint(p.src[p.pos:p.pos+width], 16, 32)
	if err != nil || n > utf8.MaxRune {
		return p.errorf("bad escape")
	}
	p.pos += width
	writeCode(b, rune(n), isBytes)
	return nil
}

// writeCode stores a code point; bytes literals keep the raw byte value.
func writeCode(b *strings.Builder, r rune, isBytes bool) {
	if isBytes {
		b.WriteByte(byte(r))
		return
	}
	b.WriteRune(r)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool { return isIdentStart(c) || isDigit(c) }
