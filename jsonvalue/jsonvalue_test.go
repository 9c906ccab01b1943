package jsonvalue

import (
	"encoding/json"
	"testing"
)

func TestParse_PreservesOrderAndNumbers(t *testing.T) {
	in := `{"z":1,"a":{"y":2.50,"b":[1e3,true,null,"x"]},"m":"<b>"}`
	v, err := Parse([]byte(in))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if v.Kind() != Object {
		t.Fatalf("root kind = %v, want object", v.Kind())
	}
	keys := []string{}
	for _, m := range v.Members() {
		keys = append(keys, m.Key)
	}
	if len(keys) != 3 || keys[0] != "z" || keys[1] != "a" || keys[2] != "m" {
		t.Fatalf("member order = %v, want [z a m]", keys)
	}

	out, err := Marshal(v)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(out) != in {
		t.Fatalf("round trip:\n got %s\nwant %s", out, in)
	}
}

func TestParse_ScalarRoots(t *testing.T) {
	tests := []struct {
		in   string
		kind Kind
	}{
		{`"hello"`, String},
		{`42`, Number},
		{` true `, Bool},
		{`null`, Null},
		{`[]`, Array},
		{`{}`, Object},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			v, err := Parse([]byte(tc.in))
			if err != nil {
				t.Fatalf("Parse(%s) error: %v", tc.in, err)
			}
			if v.Kind() != tc.kind {
				t.Fatalf("Parse(%s) kind = %v, want %v", tc.in, v.Kind(), tc.kind)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{``, `{`, `{"a":}`, `[1,2`, `{"a":1} {"b":2}`, `{1:2}`} {
		if _, err := Parse([]byte(in)); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", in)
		}
	}
}

func TestParse_DuplicateKeyLastWins(t *testing.T) {
	v, err := Parse([]byte(`{"a":"first","b":1,"a":"second"}`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if v.Len() != 2 {
		t.Fatalf("Len = %d, want 2", v.Len())
	}
	got, ok := v.Get("a")
	if !ok || got.Str() != "second" {
		t.Fatalf("Get(a) = %q, want %q", got.Str(), "second")
	}
	if v.Members()[0].Key != "a" {
		t.Fatalf("first member = %q, want a", v.Members()[0].Key)
	}
}

func TestMarshalIndent(t *testing.T) {
	v := NewObject(Member{Key: "a", Value: NewArray(NewNumber(json.Number("1")), NewString("x"))})
	out, err := MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("MarshalIndent error: %v", err)
	}
	want := "{\n  \"a\": [\n    1,\n    \"x\"\n  ]\n}"
	if string(out) != want {
		t.Fatalf("MarshalIndent =\n%s\nwant\n%s", out, want)
	}
}

func TestEqual(t *testing.T) {
	a := NewObject(Member{Key: "a", Value: NewString("x")}, Member{Key: "b", Value: NewNull()})
	b := NewObject(Member{Key: "a", Value: NewString("x")}, Member{Key: "b", Value: NewNull()})
	c := NewObject(Member{Key: "b", Value: NewNull()}, Member{Key: "a", Value: NewString("x")})

	if !Equal(a, b) {
		t.Error("Equal(a, b) = false, want true")
	}
	if Equal(a, c) {
		t.Error("Equal(a, c) = true, want false (member order differs)")
	}
	if Equal(NewNumber("1.0"), NewNumber("1")) {
		t.Error("numbers with different spelling compare equal")
	}
}

func TestValue_JSONInterfaces(t *testing.T) {
	var wrapper struct {
		Doc Value `json:"doc"`
	}
	if err := json.Unmarshal([]byte(`{"doc":{"k":[1,"v"]}}`), &wrapper); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if wrapper.Doc.Kind() != Object {
		t.Fatalf("doc kind = %v", wrapper.Doc.Kind())
	}
	out, err := json.Marshal(wrapper)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(out) != `{"doc":{"k":[1,"v"]}}` {
		t.Fatalf("Marshal = %s", out)
	}
}
