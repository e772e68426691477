package types

import (
	"encoding/json"
	"fmt"
)

// Decode parses one wire-format Type envelope (a "kind" discriminator
// plus whichever variant-specific fields apply) into its concrete Type.
// JSON has no sum types, so this is the single dispatch point every
// interface-typed Type field in pkg/tast routes through.
func Decode(data []byte) (Type, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var tag struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}
	switch tag.Kind {
	case "int":
		var aux struct {
			Width IntWidth `json:"width"`
		}
		if err := json.Unmarshal(data, &aux); err != nil {
			return nil, err
		}
		return Int{Width: aux.Width}, nil
	case "bool":
		return Bool{}, nil
	case "str":
		return Str{}, nil
	case "unit":
		return Unit{}, nil
	case "struct":
		var s Struct
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return s, nil
	case "func":
		var f Func
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return f, nil
	case "generic":
		var aux struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &aux); err != nil {
			return nil, err
		}
		return Generic{Name: aux.Name}, nil
	default:
		return nil, fmt.Errorf("types: unknown type kind %q", tag.Kind)
	}
}

// typeSlot gives the bare Type interface field inside Field/Func an
// address to hang UnmarshalJSON on, the same proxy idiom pkg/tast's
// decode.go uses for Expr/Stmt.
type typeSlot struct{ Type }

func (s *typeSlot) UnmarshalJSON(data []byte) error {
	t, err := Decode(data)
	if err != nil {
		return err
	}
	s.Type = t
	return nil
}

// UnmarshalJSON on Field decodes its nested Type via Decode.
func (f *Field) UnmarshalJSON(data []byte) error {
	var aux struct {
		Name string   `json:"name"`
		Type typeSlot `json:"type"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	f.Name = aux.Name
	f.Type = aux.Type.Type
	return nil
}

// UnmarshalJSON on Struct decodes its Fields slice, each of which
// carries its own nested Type.
func (s *Struct) UnmarshalJSON(data []byte) error {
	var aux struct {
		Name   string  `json:"name"`
		Fields []Field `json:"fields"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Name = aux.Name
	s.Fields = aux.Fields
	return nil
}

// UnmarshalJSON on Func decodes its Params slice and Ret, both
// interface-typed.
func (f *Func) UnmarshalJSON(data []byte) error {
	var aux struct {
		Params   []typeSlot `json:"params"`
		Ret      typeSlot   `json:"ret"`
		Variadic bool       `json:"variadic"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	params := make([]Type, len(aux.Params))
	for i, p := range aux.Params {
		params[i] = p.Type
	}
	f.Params = params
	f.Ret = aux.Ret.Type
	f.Variadic = aux.Variadic
	return nil
}
