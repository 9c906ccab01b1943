// Package jsonvalue implements an order-preserving JSON document model.
//
// A Value is a tagged variant over the six JSON kinds. Objects keep their
// members in document order and numbers keep their literal text, so a
// document that is parsed and marshaled again without modification comes
// back with the same keys, the same order and the same number spelling.
//
// Duplicate object keys collapse onto the first occurrence; the last value
// wins, matching encoding/json.
package jsonvalue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Kind is the variant tag of a Value.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Object
	Array
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Object:
		return "object"
	case Array:
		return "array"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Member is a single key/value pair of an Object.
type Member struct {
	Key   string
	Value Value
}

// Value is a JSON value. The zero Value is null.
type Value struct {
	kind    Kind
	b       bool
	s       string // string content, or the literal text of a number
	members []Member
	items   []Value
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// NewNull returns a null value.
func NewNull() Value { return Value{kind: Null} }

// NewBool returns a boolean value.
func NewBool(b bool) Value { return Value{kind: Bool, b: b} }

// NewNumber returns a number value holding the literal n.
func NewNumber(n json.Number) Value { return Value{kind: Number, s: string(n)} }

// NewString returns a string value.
func NewString(s string) Value { return Value{kind: String, s: s} }

// NewObject returns an object with the given members in order.
// Later duplicates of a key replace the earlier value in place.
func NewObject(members ...Member) Value {
	v := Value{kind: Object, members: make([]Member, 0, len(members))}
	for _, m := range members {
		v.members = setMember(v.members, m.Key, m.Value)
	}
	return v
}

// NewArray returns an array holding items in order.
func NewArray(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: Array, items: cp}
}

func setMember(members []Member, key string, val Value) []Member {
	for i := range members {
		if members[i].Key == key {
			members[i].Value = val
			return members
		}
	}
	return append(members, Member{Key: key, Value: val})
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsComposite reports whether v is an Object or an Array.
func (v Value) IsComposite() bool { return v.kind == Object || v.kind == Array }

// Bool returns the boolean content (false for non-bool values).
func (v Value) Bool() bool { return v.b }

// Str returns the string content (empty for non-string values).
func (v Value) Str() string {
	if v.kind != String {
		return ""
	}
	return v.s
}

// Number returns the literal text of a number value.
func (v Value) Number() json.Number {
	if v.kind != Number {
		return ""
	}
	return json.Number(v.s)
}

// Members returns the object members in order. The slice must not be modified.
func (v Value) Members() []Member { return v.members }

// Items returns the array elements in order. The slice must not be modified.
func (v Value) Items() []Value { return v.items }

// Len returns the number of members or items of a composite value.
func (v Value) Len() int {
	switch v.kind {
	case Object:
		return len(v.members)
	case Array:
		return len(v.items)
	default:
		return 0
	}
}

// Get returns the member value for key.
func (v Value) Get(key string) (Value, bool) {
	for _, m := range v.members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Index returns the i-th array element.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != Array || i < 0 || i >= len(v.items) {
		return Value{}, false
	}
	return v.items[i], true
}

// Equal reports whether a and b are identical, including member order and
// number spelling.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Null:
		return true
	case Bool:
		return a.b == b.b
	case Number, String:
		return a.s == b.s
	case Object:
		if len(a.members) != len(b.members) {
			return false
		}
		for i := range a.members {
			if a.members[i].Key != b.members[i].Key || !Equal(a.members[i].Value, b.members[i].Value) {
				return false
			}
		}
		return true
	case Array:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// Parse decodes a single JSON document. Any JSON value is accepted as root.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := parseValue(dec)
	if err != nil {
		return Value{}, fmt.Errorf("parsing JSON: %w", err)
	}

	// Only whitespace may follow the root value.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return Value{}, fmt.Errorf("parsing JSON: %w", err)
	}
	return v, nil
}

func parseValue(dec *json.Decoder) (Value, error) {
	t, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Value{}, io.ErrUnexpectedEOF
		}
		return Value{}, err
	}

	switch tok := t.(type) {
	case json.Delim:
		switch tok {
		case '{':
			return parseObject(dec)
		case '[':
			return parseArray(dec)
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %q", tok)
		}
	case string:
		return NewString(tok), nil
	case json.Number:
		return NewNumber(tok), nil
	case bool:
		return NewBool(tok), nil
	case nil:
		return NewNull(), nil
	default:
		return Value{}, fmt.Errorf("unexpected token %T", t)
	}
}

func parseObject(dec *json.Decoder) (Value, error) {
	v := Value{kind: Object, members: []Member{}}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		key, ok := kt.(string)
		if !ok {
			return Value{}, fmt.Errorf("expected string key, got %T", kt)
		}
		val, err := parseValue(dec)
		if err != nil {
			return Value{}, err
		}
		v.members = setMember(v.members, key, val)
	}
	// Closing brace.
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return v, nil
}

func parseArray(dec *json.Decoder) (Value, error) {
	v := Value{kind: Array, items: []Value{}}
	for dec.More() {
		item, err := parseValue(dec)
		if err != nil {
			return Value{}, err
		}
		v.items = append(v.items, item)
	}
	// Closing bracket.
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return v, nil
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// Marshal encodes v as compact JSON. HTML characters are not escaped.
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalIndent is like Marshal but applies json.Indent formatting.
func MarshalIndent(v Value, prefix, indent string) ([]byte, error) {
	compact, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, prefix, indent); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) { return Marshal(v) }

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func encode(buf *bytes.Buffer, v Value) error {
	switch v.kind {
	case Null:
		buf.WriteString("null")
	case Bool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Number:
		if v.s == "" {
			return errors.New("empty number literal")
		}
		buf.WriteString(v.s)
	case String:
		return encodeString(buf, v.s)
	case Object:
		buf.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, m.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := encode(buf, m.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case Array:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("unknown kind %v", v.kind)
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode appends a newline.
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}
