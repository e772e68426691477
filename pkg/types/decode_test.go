package types

import (
	"encoding/json"
	"testing"
)

func TestDecodeScalarKinds(t *testing.T) {
	cases := []struct {
		json string
		want Type
	}{
		{`{"kind":"bool"}`, Bool{}},
		{`{"kind":"str"}`, Str{}},
		{`{"kind":"unit"}`, Unit{}},
		{`{"kind":"int","width":2}`, Int{Width: I32}},
		{`{"kind":"generic","name":"T"}`, Generic{Name: "T"}},
	}
	for _, c := range cases {
		got, err := Decode([]byte(c.json))
		if err != nil {
			t.Fatalf("Decode(%s): %v", c.json, err)
		}
		if !Equal(got, c.want) {
			t.Errorf("Decode(%s) = %#v, want %#v", c.json, got, c.want)
		}
	}
}

func TestDecodeNullReturnsNilType(t *testing.T) {
	got, err := Decode([]byte("null"))
	if err != nil {
		t.Fatalf("Decode(null): %v", err)
	}
	if got != nil {
		t.Errorf("expected a nil Type for a null type field, got %#v", got)
	}
}

func TestDecodeStructResolvesNestedFieldTypes(t *testing.T) {
	got, err := Decode([]byte(`{
		"kind": "struct",
		"name": "Point",
		"fields": [
			{"name": "x", "type": {"kind": "int", "width": 2}},
			{"name": "y", "type": {"kind": "int", "width": 2}}
		]
	}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	st, ok := got.(Struct)
	if !ok {
		t.Fatalf("expected a Struct, got %T", got)
	}
	if st.Name != "Point" || len(st.Fields) != 2 {
		t.Fatalf("unexpected struct: %+v", st)
	}
	if _, ok := st.Fields[0].Type.(Int); !ok {
		t.Errorf("expected field x to decode as Int, got %T", st.Fields[0].Type)
	}
	if !st.NeedsGC() {
		t.Error("expected a struct type to need GC")
	}
}

func TestDecodeFuncResolvesParamsAndRet(t *testing.T) {
	got, err := Decode([]byte(`{
		"kind": "func",
		"params": [{"kind": "int", "width": 2}, {"kind": "bool"}],
		"ret": {"kind": "unit"},
		"variadic": true
	}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	fn, ok := got.(Func)
	if !ok {
		t.Fatalf("expected a Func, got %T", got)
	}
	if len(fn.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(fn.Params))
	}
	if _, ok := fn.Params[0].(Int); !ok {
		t.Errorf("expected param 0 to decode as Int, got %T", fn.Params[0])
	}
	if _, ok := fn.Params[1].(Bool); !ok {
		t.Errorf("expected param 1 to decode as Bool, got %T", fn.Params[1])
	}
	if _, ok := fn.Ret.(Unit); !ok {
		t.Errorf("expected ret to decode as Unit, got %T", fn.Ret)
	}
	if !fn.Variadic {
		t.Error("expected variadic to decode true")
	}
	if fn.NeedsGC() {
		t.Error("function values never need GC")
	}
}

func TestDecodeUnknownKindErrors(t *testing.T) {
	if _, err := Decode([]byte(`{"kind":"nonsense"}`)); err == nil {
		t.Fatal("expected an error for an unrecognized type kind")
	}
}

func TestDecodeUnknownIntWidthIsAcceptedAsRawNumber(t *testing.T) {
	// decode.go decodes IntWidth as a plain JSON number (the enum's
	// underlying int), not a named string, so any numeric value round
	// trips even past the last named width; out-of-range validation is
	// not this package's job.
	got, err := Decode([]byte(`{"kind":"int","width":99}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	i, ok := got.(Int)
	if !ok {
		t.Fatalf("expected an Int, got %T", got)
	}
	if i.Width.String() != "?" {
		t.Errorf("expected String() to fall back to \"?\" for an unnamed width, got %q", i.Width.String())
	}
}

func TestFieldUnmarshalJSONStandalone(t *testing.T) {
	var f Field
	if err := json.Unmarshal([]byte(`{"name":"n","type":{"kind":"int","width":3}}`), &f); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if f.Name != "n" {
		t.Errorf("Name = %q, want n", f.Name)
	}
	if i, ok := f.Type.(Int); !ok || i.Width != I64 {
		t.Errorf("Type = %#v, want Int{I64}", f.Type)
	}
}
