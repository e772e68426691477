// Package layout implements the Layout Engine (spec.md §4.1): deterministic,
// target-pointer-width-specific struct layout with a reference-count
// header, field alignment, and total-size padding.
//
// Grounded on original_source/ant_cranelift_compiler-master's
// compile_struct_layout/get_type_size/get_type_align, which this package
// ports arithmetic-for-arithmetic.
package layout

import (
	"github.com/arclang/arcc/pkg/compileerr"
	"github.com/arclang/arcc/pkg/types"
)

// RefCountField is the name of the implicit leading header every struct
// layout carries.
const RefCountField = "__ref_count__"

// StructLayout is the compile-time-computed in-memory representation of
// an aggregate type: ordered fields (with the ref-count header always
// first), parallel byte offsets, total size, and alignment.
type StructLayout struct {
	Name    string
	Fields  []types.Field
	Offsets []uint32
	Size    uint32
	Align   uint32
}

// FieldIndex returns the index of name within the layout's field list, or
// -1 if absent.
func (l *StructLayout) FieldIndex(name string) int {
	for i, f := range l.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// StructLookup resolves a named struct type to its previously computed
// layout; satisfied by pkg/symtab.Table in the lowering engine, kept as
// an interface here so the Layout Engine has no dependency on the symbol
// table package.
type StructLookup interface {
	LookupStructLayout(name string) (*StructLayout, bool)
}

// LayoutOf computes the layout of a struct given its declared fields, in
// source order, following spec.md §4.1's four-step algorithm:
//
//  1. Prepend __ref_count__ (pointer-width unsigned) if not already first.
//  2. For each field in order, query natural alignment/size.
//  3. Round the running offset up to the field's alignment, record it,
//     advance by the field's size, and track the maximum alignment seen.
//  4. Pad the final size up to the maximum alignment.
func LayoutOf(lookup StructLookup, pointerWidth int, name string, fields []types.Field) (*StructLayout, error) {
	newFields := make([]types.Field, 0, len(fields)+1)
	if len(fields) == 0 || fields[0].Name != RefCountField {
		newFields = append(newFields, types.Field{Name: RefCountField, Type: types.Int{Width: types.USize}})
	}
	newFields = append(newFields, fields...)

	offsets := make([]uint32, 0, len(newFields))
	var currentOffset uint32
	var maxAlign uint32 = 1

	for _, f := range newFields {
		align, err := typeAlign(lookup, pointerWidth, f.Type)
		if err != nil {
			return nil, err
		}
		size, err := typeSize(lookup, pointerWidth, f.Type)
		if err != nil {
			return nil, err
		}

		if currentOffset%align != 0 {
			currentOffset += align - (currentOffset % align)
		}
		offsets = append(offsets, currentOffset)
		currentOffset += size
		if align > maxAlign {
			maxAlign = align
		}
	}

	size := currentOffset
	if size%maxAlign != 0 {
		size += maxAlign - (size % maxAlign)
	}

	return &StructLayout{
		Name:    name,
		Fields:  newFields,
		Offsets: offsets,
		Size:    size,
		Align:   maxAlign,
	}, nil
}

func typeSize(lookup StructLookup, pointerWidth int, t types.Type) (uint32, error) {
	switch tt := t.(type) {
	case types.Int:
		return uint32(tt.Width.ByteSize(pointerWidth)), nil
	case types.Bool:
		return 1, nil
	case types.Str:
		return uint32(pointerWidth), nil
	case types.Func:
		return uint32(pointerWidth), nil
	case types.Unit:
		return uint32(pointerWidth), nil
	case types.Struct:
		// A struct-typed field holds a pointer to a heap-allocated
		// instance, never the instance itself.
		if _, ok := lookup.LookupStructLayout(tt.Name); !ok {
			return 0, compileerr.New(compileerr.UnresolvedName, "undefined struct: %s", tt.Name)
		}
		return uint32(pointerWidth), nil
	default:
		return 0, compileerr.New(compileerr.TypeMismatch, "cannot compute size of type %s", t)
	}
}

func typeAlign(lookup StructLookup, pointerWidth int, t types.Type) (uint32, error) {
	switch tt := t.(type) {
	case types.Int:
		return uint32(tt.Width.ByteSize(pointerWidth)), nil
	case types.Bool:
		return 1, nil
	case types.Str:
		return uint32(pointerWidth), nil
	case types.Func:
		return uint32(pointerWidth), nil
	case types.Unit:
		return uint32(pointerWidth), nil
	case types.Struct:
		l, ok := lookup.LookupStructLayout(tt.Name)
		if !ok {
			return 0, compileerr.New(compileerr.UnresolvedName, "undefined struct: %s", tt.Name)
		}
		return l.Align, nil
	default:
		return 0, compileerr.New(compileerr.TypeMismatch, "cannot compute alignment of type %s", t)
	}
}
