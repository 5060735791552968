package crop

import (
	"bytes"
	"fmt"
	"strconv"
)

// Operand is one content-stream operand: Number, Name, String, Array, Dict or
// Keyword (true/false/null).
type Operand interface{}

type (
	Number  float64
	Name    string
	String  []byte
	Array   []Operand
	Dict    map[Name]Operand
	Keyword string
)

// Operation is a single content stream instruction.
type Operation struct {
	Operator string
	Operands []Operand
}

// ParseContent splits a decoded content stream into operations.
func ParseContent(data []byte) ([]Operation, error) {
	lx := &lexer{data: data}
	var ops []Operation
	var operands []Operand

	for {
		lx.skipSpace()
		if lx.eof() {
			break
		}

		obj, err := lx.readObject()
		if err != nil {
			return nil, err
		}

		op, ok := obj.(operator)
		if !ok {
			operands = append(operands, obj)
			continue
		}

		if op == "BI" {
			if err := lx.skipInlineImage(); err != nil {
				return nil, err
			}
		}

		ops = append(ops, Operation{Operator: string(op), Operands: operands})
		operands = nil
	}

	return ops, nil
}

// operator is a bare keyword that is not true/false/null.
type operator string

// maxNesting bounds array and dictionary nesting in a content stream.
const maxNesting = 256

type lexer struct {
	data  []byte
	pos   int
	depth int
}

func (l *lexer) enter() error {
	l.depth++
	if l.depth > maxNesting {
		return fmt.Errorf("objects nested deeper than %d at offset %d", maxNesting, l.pos)
	}
	return nil
}

func (l *lexer) eof() bool { return l.pos >= len(l.data) }

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) skipSpace() {
	for !l.eof() {
		c := l.data[l.pos]
		if isSpace(c) {
			l.pos++
			continue
		}
		if c == '%' {
			for !l.eof() && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

func (l *lexer) readObject() (Operand, error) {
	l.skipSpace()
	if l.eof() {
		return nil, fmt.Errorf("unexpected end of content at offset %d", l.pos)
	}

	c := l.data[l.pos]
	switch {
	case c == '/':
		l.pos++
		return Name(l.readRegular()), nil
	case c == '(':
		l.pos++
		return l.readLiteralString()
	case c == '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			l.pos += 2
			return l.readDict()
		}
		l.pos++
		return l.readHexString()
	case c == '[':
		l.pos++
		return l.readArray()
	case c == ']' || c == '>' || c == ')' || c == '{' || c == '}':
		return nil, fmt.Errorf("unexpected %q at offset %d", c, l.pos)
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		tok := l.readRegular()
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			// Malformed numbers such as "--5" or "4.-2" show up in the
			// wild; treat them as zero rather than failing the page.
			return Number(0), nil
		}
		return Number(f), nil
	default:
		tok := l.readRegular()
		if tok == "" {
			l.pos++
			return nil, fmt.Errorf("unexpected byte %q at offset %d", c, l.pos-1)
		}
		switch tok {
		case "true", "false", "null":
			return Keyword(tok), nil
		}
		return operator(tok), nil
	}
}

func (l *lexer) readRegular() string {
	start := l.pos
	for !l.eof() {
		c := l.data[l.pos]
		if isSpace(c) || isDelimiter(c) {
			break
		}
		l.pos++
	}
	return string(l.data[start:l.pos])
}

func (l *lexer) readLiteralString() (Operand, error) {
	var buf bytes.Buffer
	depth := 1
	for !l.eof() {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '\\':
			if l.eof() {
				return String(buf.Bytes()), nil
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '\r':
				if !l.eof() && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && !l.eof() && l.data[l.pos] >= '0' && l.data[l.pos] <= '7'; i++ {
						v = v*8 + int(l.data[l.pos]-'0')
						l.pos++
					}
					buf.WriteByte(byte(v))
				} else {
					buf.WriteByte(e)
				}
			}
		case '(':
			depth++
			buf.WriteByte(c)
		case ')':
			depth--
			if depth == 0 {
				return String(buf.Bytes()), nil
			}
			buf.WriteByte(c)
		default:
			buf.WriteByte(c)
		}
	}
	return nil, fmt.Errorf("unterminated string")
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func (l *lexer) readHexString() (Operand, error) {
	var out []byte
	var hi byte
	half := false
	for !l.eof() {
		c := l.data[l.pos]
		l.pos++
		if c == '>' {
			if half {
				out = append(out, hi<<4)
			}
			return String(out), nil
		}
		v, ok := unhex(c)
		if !ok {
			continue
		}
		if half {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	return nil, fmt.Errorf("unterminated hex string")
}

func (l *lexer) readArray() (Operand, error) {
	if err := l.enter(); err != nil {
		return nil, err
	}
	defer func() { l.depth-- }()

	var arr Array
	for {
		l.skipSpace()
		if l.eof() {
			return nil, fmt.Errorf("unterminated array")
		}
		if l.data[l.pos] == ']' {
			l.pos++
			return arr, nil
		}
		obj, err := l.readObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

func (l *lexer) readDict() (Operand, error) {
	if err := l.enter(); err != nil {
		return nil, err
	}
	defer func() { l.depth-- }()

	d := Dict{}
	for {
		l.skipSpace()
		if l.eof() {
			return nil, fmt.Errorf("unterminated dictionary")
		}
		if l.data[l.pos] == '>' {
			if l.pos+1 < len(l.data) && l.data[l.pos+1] == '>' {
				l.pos += 2
				return d, nil
			}
			return nil, fmt.Errorf("unexpected '>' in dictionary at offset %d", l.pos)
		}
		key, err := l.readObject()
		if err != nil {
			return nil, err
		}
		name, ok := key.(Name)
		if !ok {
			return nil, fmt.Errorf("dictionary key is %T, not a name", key)
		}
		val, err := l.readObject()
		if err != nil {
			return nil, err
		}
		d[name] = val
	}
}

// skipInlineImage advances past "<dict> ID <binary> EI" following a BI
// operator. The image dictionary is not needed for bounds.
func (l *lexer) skipInlineImage() error {
	for {
		l.skipSpace()
		if l.eof() {
			return fmt.Errorf("unterminated inline image")
		}
		obj, err := l.readObject()
		if err != nil {
			return err
		}
		if op, ok := obj.(operator); ok && op == "ID" {
			break
		}
	}
	if !l.eof() && isSpace(l.data[l.pos]) {
		l.pos++
	}
	for i := l.pos; i+1 < len(l.data); i++ {
		if l.data[i] != 'E' || l.data[i+1] != 'I' {
			continue
		}
		if i > 0 && !isSpace(l.data[i-1]) {
			continue
		}
		if i+2 < len(l.data) && !isSpace(l.data[i+2]) {
			continue
		}
		l.pos = i + 2
		return nil
	}
	return fmt.Errorf("inline image without EI")
}
