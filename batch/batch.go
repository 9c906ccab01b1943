// Package batch packs pending translation units into size-bounded payloads
// and splits the provider's answer back into one segment per unit.
//
// A batch travels as a single string: every source followed by the
// delimiter. The provider is expected to keep the delimiters in place, so
// splitting the translated text on the delimiter gives the translations in
// the order the sources were sent.
package batch

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/minios-linux/jsonlate/keypath"
)

// DefaultDelimiter separates sources inside a payload.
const DefaultDelimiter = "::"

// DefaultLimit is the default payload size bound in bytes.
const DefaultLimit = 1500

// fallbackDelimiters are tried in order when the preferred delimiter occurs
// inside a source string.
var fallbackDelimiters = []string{"::", "||", "##", "~~", "%%", "§§", "¦¦"}

// ErrDelimiterCollision is returned when every candidate delimiter occurs
// in at least one source string.
var ErrDelimiterCollision = errors.New("no delimiter is absent from all source strings")

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Unit is one source string waiting for translation, with the path of the
// leaf it was first seen at.
type Unit struct {
	Path   keypath.Path
	Source string
}

// Batch is an ordered group of units sent in one provider call.
type Batch struct {
	Units []Unit
	// Size is the payload length in bytes.
	Size int
}

// Len returns the number of units.
func (b Batch) Len() int { return len(b.Units) }

// Sources returns the source strings in order.
func (b Batch) Sources() []string {
	out := make([]string, len(b.Units))
	for i, u := range b.Units {
		out[i] = u.Source
	}
	return out
}

// ---------------------------------------------------------------------------
// Packing
// ---------------------------------------------------------------------------

// Make groups units greedily in arrival order. A batch is closed when the
// next unit would push its payload past limit. A unit larger than limit on
// its own becomes a singleton batch. A limit <= 0 puts everything in one
// batch.
func Make(units []Unit, limit int, delim string) []Batch {
	if len(units) == 0 {
		return nil
	}

	var batches []Batch
	var cur Batch
	for _, u := range units {
		add := len(u.Source) + len(delim)
		if limit > 0 && cur.Len() > 0 && cur.Size+add > limit {
			batches = append(batches, cur)
			cur = Batch{}
		}
		cur.Units = append(cur.Units, u)
		cur.Size += add
	}
	if cur.Len() > 0 {
		batches = append(batches, cur)
	}
	return batches
}

// Encode builds the payload of b: each source followed by delim.
func Encode(b Batch, delim string) string {
	var sb strings.Builder
	sb.Grow(b.Size)
	for _, u := range b.Units {
		sb.WriteString(u.Source)
		sb.WriteString(delim)
	}
	return sb.String()
}

// ---------------------------------------------------------------------------
// Splitting
// ---------------------------------------------------------------------------

// MismatchPolicy decides what happens when the provider returns a different
// number of segments than units were sent.
type MismatchPolicy string

const (
	// MismatchTruncate pairs units and segments up to the shorter length.
	MismatchTruncate MismatchPolicy = "truncate"
	// MismatchStrict rejects the batch.
	MismatchStrict MismatchPolicy = "strict"
)

// ParseMismatchPolicy parses a policy name. The empty string selects
// MismatchTruncate.
func ParseMismatchPolicy(s string) (MismatchPolicy, error) {
	switch MismatchPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", MismatchTruncate:
		return MismatchTruncate, nil
	case MismatchStrict:
		return MismatchStrict, nil
	default:
		return "", fmt.Errorf("unknown mismatch policy %q (want %q or %q)", s, MismatchTruncate, MismatchStrict)
	}
}

// MismatchError reports a segment count that differs from the unit count.
type MismatchError struct {
	Want   int
	Got    int
	Policy MismatchPolicy
}

func (e *MismatchError) Error() string {
	if e.Policy == MismatchStrict {
		return fmt.Sprintf("expected %d segments, got %d", e.Want, e.Got)
	}
	return fmt.Sprintf("expected %d segments, got %d; kept the first %d", e.Want, e.Got, min(e.Want, e.Got))
}

// Lossy reports whether the segments were still returned, truncated.
func (e *MismatchError) Lossy() bool { return e.Policy != MismatchStrict }

// Decode splits a translated payload into segments. The trailing delimiter
// (and any whitespace after it) does not produce an empty last segment.
//
// When the segment count differs from n, MismatchStrict returns nil and a
// *MismatchError. MismatchTruncate returns the first min(n, got) segments
// together with a *MismatchError whose Lossy method reports true.
func Decode(text string, n int, delim string, policy MismatchPolicy) ([]string, error) {
	if delim == "" {
		return nil, errors.New("empty delimiter")
	}

	body := strings.TrimRightFunc(text, unicode.IsSpace)
	body = strings.TrimSuffix(body, delim)

	var segments []string
	if body != "" || n == 1 {
		segments = strings.Split(body, delim)
	}

	if len(segments) == n {
		return segments, nil
	}

	mm := &MismatchError{Want: n, Got: len(segments), Policy: policy}
	if policy == MismatchStrict {
		return nil, mm
	}
	if len(segments) > n {
		segments = segments[:n]
	}
	return segments, mm
}

// RestoreSpacing trims whitespace a provider added around a segment when
// the corresponding source had none at that end. Sources and segments are
// paired by index; extra segments are returned as-is.
func RestoreSpacing(sources, segments []string) []string {
	out := make([]string, len(segments))
	for i, seg := range segments {
		if i >= len(sources) {
			out[i] = seg
			continue
		}
		src := sources[i]
		if !startsWithSpace(src) {
			seg = strings.TrimLeftFunc(seg, unicode.IsSpace)
		}
		if !endsWithSpace(src) {
			seg = strings.TrimRightFunc(seg, unicode.IsSpace)
		}
		out[i] = seg
	}
	return out
}

func startsWithSpace(s string) bool {
	return s != "" && strings.TrimLeftFunc(s, unicode.IsSpace) != s
}

func endsWithSpace(s string) bool {
	return s != "" && strings.TrimRightFunc(s, unicode.IsSpace) != s
}

// ---------------------------------------------------------------------------
// Delimiter selection
// ---------------------------------------------------------------------------

// ChooseDelimiter returns preferred when it splits sources back exactly,
// otherwise the first built-in fallback that does. A delimiter is rejected
// for a source that contains it, ends with a prefix of it or starts with a
// suffix of it, since the split would then cut at the wrong offset.
func ChooseDelimiter(preferred string, sources []string) (string, error) {
	if preferred == "" {
		preferred = DefaultDelimiter
	}

	candidates := append([]string{preferred}, fallbackDelimiters...)
	for _, d := range candidates {
		if !collides(d, sources) && roundTrips(d, sources) {
			return d, nil
		}
	}
	return "", ErrDelimiterCollision
}

func collides(delim string, sources []string) bool {
	for _, s := range sources {
		if strings.Contains(s, delim) {
			return true
		}
		for k := 1; k < len(delim); k++ {
			if strings.HasSuffix(s, delim[:k]) || strings.HasPrefix(s, delim[k:]) {
				return true
			}
		}
	}
	return false
}

// roundTrips reports whether sources survive Encode then Decode under delim.
func roundTrips(delim string, sources []string) bool {
	if len(sources) == 0 {
		return true
	}
	b := Batch{Units: make([]Unit, len(sources))}
	for i, s := range sources {
		b.Units[i] = Unit{Source: s}
	}
	segments, err := Decode(Encode(b, delim), len(sources), delim, MismatchStrict)
	if err != nil {
		return false
	}
	for i, seg := range segments {
		if seg != sources[i] {
			return false
		}
	}
	return true
}
