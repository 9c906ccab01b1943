// Package keypath encodes the position of a value inside a JSON tree as a
// reversible string key.
//
// Object descent is written "->key" and array descent "[i]". The "->" of
// the first step is omitted, so a nested array reads "items[0]" and a
// nested object "nav->home". The root itself has the empty path.
//
// Keys are escaped with a backslash where they would otherwise be
// ambiguous: "\" becomes "\\", "[" becomes "\[" and "->" becomes "\->".
// A first step whose key is empty keeps its leading "->" so it cannot be
// confused with the root. With these rules Join is injective and Split is
// its exact inverse.
package keypath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Path is an encoded step sequence.
type Path string

// Root is the path of the document root.
const Root Path = ""

// StepKind distinguishes object and array descent.
type StepKind int

const (
	// KeyStep descends into an object member.
	KeyStep StepKind = iota
	// IndexStep descends into an array element.
	IndexStep
)

// Step is one level of descent.
type Step struct {
	Kind  StepKind
	Key   string
	Index int
}

// Key returns an object descent step.
func Key(k string) Step { return Step{Kind: KeyStep, Key: k} }

// Index returns an array descent step.
func Index(i int) Step { return Step{Kind: IndexStep, Index: i} }

func (s Step) String() string {
	if s.Kind == IndexStep {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Key
}

const descent = "->"

// ErrMalformed is returned by Split for strings Join cannot produce.
var ErrMalformed = errors.New("malformed key path")

// Join encodes steps into a Path.
func Join(steps ...Step) Path {
	var b strings.Builder
	for i, s := range steps {
		writeStep(&b, s, i == 0)
	}
	return Path(b.String())
}

// Append returns p extended by one step.
func Append(p Path, s Step) Path {
	var b strings.Builder
	b.WriteString(string(p))
	writeStep(&b, s, p == Root)
	return Path(b.String())
}

func writeStep(b *strings.Builder, s Step, first bool) {
	if s.Kind == IndexStep {
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(s.Index))
		b.WriteByte(']')
		return
	}
	if !first || s.Key == "" {
		b.WriteString(descent)
	}
	b.WriteString(escapeKey(s.Key))
}

func escapeKey(k string) string {
	if !strings.ContainsAny(k, `\[`) && !strings.Contains(k, descent) {
		return k
	}
	var b strings.Builder
	for i := 0; i < len(k); i++ {
		switch {
		case k[i] == '\\':
			b.WriteString(`\\`)
		case k[i] == '[':
			b.WriteString(`\[`)
		case k[i] == '-' && i+1 < len(k) && k[i+1] == '>':
			b.WriteString(`\->`)
			i++
		default:
			b.WriteByte(k[i])
		}
	}
	return b.String()
}

// Split decodes p back into its steps.
func Split(p Path) ([]Step, error) {
	s := string(p)
	var steps []Step
	i := 0

	for i < len(s) {
		switch {
		case s[i] == '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("%w %q: unterminated index at offset %d", ErrMalformed, s, i)
			}
			n, err := strconv.Atoi(s[i+1 : i+end])
			if err != nil || n < 0 || strconv.Itoa(n) != s[i+1:i+end] {
				return nil, fmt.Errorf("%w %q: bad index %q", ErrMalformed, s, s[i+1:i+end])
			}
			steps = append(steps, Index(n))
			i += end + 1

		case strings.HasPrefix(s[i:], descent):
			key, next, err := readKey(s, i+len(descent))
			if err != nil {
				return nil, err
			}
			steps = append(steps, Key(key))
			i = next

		default:
			// Only the first step may omit the descent marker.
			if len(steps) > 0 {
				return nil, fmt.Errorf("%w %q: expected \"->\" or \"[\" at offset %d", ErrMalformed, s, i)
			}
			key, next, err := readKey(s, i)
			if err != nil {
				return nil, err
			}
			if key == "" {
				return nil, fmt.Errorf("%w %q: empty leading key", ErrMalformed, s)
			}
			steps = append(steps, Key(key))
			i = next
		}
	}

	return steps, nil
}

// readKey reads an escaped key starting at offset i and returns the
// unescaped key and the offset just past it.
func readKey(s string, i int) (string, int, error) {
	var b strings.Builder
	for i < len(s) {
		switch {
		case s[i] == '\\':
			rest := s[i+1:]
			switch {
			case strings.HasPrefix(rest, `\`):
				b.WriteByte('\\')
				i += 2
			case strings.HasPrefix(rest, "["):
				b.WriteByte('[')
				i += 2
			case strings.HasPrefix(rest, descent):
				b.WriteString(descent)
				i += 1 + len(descent)
			default:
				return "", 0, fmt.Errorf("%w %q: dangling escape at offset %d", ErrMalformed, s, i)
			}
		case s[i] == '[' || strings.HasPrefix(s[i:], descent):
			return b.String(), i, nil
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String(), i, nil
}
