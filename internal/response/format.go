package response

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// formatFloat renders f the way Python's repr does: shortest round-trip
// digits, always a '.0' for integral values, exponent form outside [1e-4, 1e16).
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	if f == 0 {
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	es := strconv.FormatFloat(f, 'e', -1, 64)
	exp, _ := strconv.Atoi(es[strings.IndexByte(es, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return es
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// reprString quotes s like Python's str.__repr__.
func reprString(s string) string {
	q := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		q = '"'
	}
	var b strings.Builder
	b.WriteByte(q)
	for _, r := range s {
		switch {
		case r == rune(q) || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case !unicode.IsPrint(r) && r != ' ':
			switch {
			case r < 0x100:
				fmt.Fprintf(&b, `\x%02x`, r)
			case r < 0x10000:
				fmt.Fprintf(&b, `\u%04x`, r)
			default:
				fmt.Fprintf(&b, `\U%08x`, r)
			}
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(q)
	return b.String()
}

// reprBytes quotes raw bytes like Python's bytes.__repr__.
func reprBytes(s string) string {
	q := byte('\'')
	if strings.IndexByte(s, '\'') >= 0 && strings.IndexByte(s, '"') < 0 {
		q = '"'
	}
	var b strings.Builder
	b.WriteString("b")
	b.WriteByte(q)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == q || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20 || c >= 0x7f:
			fmt.Fprintf(&b, `\x%02x`, c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(q)
	return b.String()
}

// String renders v back in literal syntax.
func (v Value) String() string {
	switch v.Kind {
	case KindNone:
		return "None"
	case KindBool:
		if v.Bool {
			return "True"
		}
		return "False"
	case KindInt:
		return v.Int.String()
	case KindFloat:
		return formatFloat(v.Float)
	case KindString:
		return reprString(v.Str)
	case KindBytes:
		return reprBytes(v.Str)
	case KindTuple:
		if len(v.Items) == 1 {
			return "(" + v.Items[0].String() + ",)"
		}
		return "(" + joinValues(v.Items, ", ") + ")"
	case KindList:
		return "[" + joinValues(v.Items, ", ") + "]"
	case KindSet:
		if len(v.Items) == 0 {
			return "set()"
		}
		return "{" + joinValues(v.Items, ", ") + "}"
	case KindDict:
		parts := make([]string, 0, len(v.Items)/2)
		for i := 0; i+1 < len(v.Items); i += 2 {
			parts = append(parts, v.Items[i].String()+": "+v.Items[i+1].String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "?"
}

func joinValues(items []Value, sep string) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.String()
	}
	return strings.Join(parts, sep)
}

// Text is the cell text for a scalar in an object (mixed) column.
func (v Value) Text() string {
	switch v.Kind {
	case KindNone:
		return ""
	case KindString:
		return v.Str
	}
	return v.String()
}

// FormatLiteral renders database rows as a list of tuples in literal syntax,
// e.g. [(1, 'Ana', 20.5), (2, None, 19.0)]. Values are the types returned by
// database/sql scans.
func FormatLiteral(rows [][]any) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j, col := range row {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(formatAny(col))
		}
		if len(row) == 1 {
			b.WriteByte(',')
		}
		b.WriteByte(')')
	}
	b.WriteByte(']')
	return b.String()
}

func formatAny(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case bool:
		if x {
			return "True"
		}
		return "False"
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return formatFloat(float64(x))
	case float64:
		return formatFloat(x)
	case string:
		return reprString(x)
	case []byte:
		if utf8.Valid(x) {
			return reprString(string(x))
		}
		return reprBytes(string(x))
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return reprString(x.Format("2006-01-02"))
		}
		return reprString(x.Format("2006-01-02 15:04:05"))
	case fmt.Stringer:
		return reprString(x.String())
	}
	return reprString(fmt.Sprint(v))
}
