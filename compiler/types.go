package compiler

// ---------------------------------------------------------------------------
// Types: primitive, array and class descriptors
// ---------------------------------------------------------------------------

// TypeKind classifies a Type.
type TypeKind int

const (
	KindNone TypeKind = iota
	KindInt
	KindChar
	KindArray
	KindClass
)

func (k TypeKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInt:
		return "int"
	case KindChar:
		return "char"
	case KindArray:
		return "array"
	case KindClass:
		return "class"
	}
	return "unknown"
}

// Type describes the type of a value.
//
// Array types compare structurally on their element type; class types compare
// by identity, so every class declaration creates a distinct *Type.
type Type struct {
	Kind   TypeKind
	Name   string    // class name; empty for primitives and arrays
	Elem   *Type     // element type of arrays
	Fields []*Symbol // class fields in declaration order
}

var (
	// NoType stands for "no type": void method results, unresolved names and
	// the element type of the generic array parameter of len. Its element type
	// is itself.
	NoType = &Type{Kind: KindNone}

	// IntType is the builtin int.
	IntType = &Type{Kind: KindInt}

	// CharType is the builtin char.
	CharType = &Type{Kind: KindChar}

	// NullType is the type of the null constant: a class without fields that
	// is assignable to every reference type.
	NullType = &Type{Kind: KindClass, Name: "null"}
)

func init() {
	NoType.Elem = NoType
}

// NewArrayType returns the array type with the given element type.
func NewArrayType(elem *Type) *Type {
	return &Type{Kind: KindArray, Elem: elem}
}

// NewClassType returns a fresh class type.
func NewClassType(name string) *Type {
	return &Type{Kind: KindClass, Name: name}
}

// IsRefType reports whether values of t are references (arrays and classes).
func (t *Type) IsRefType() bool {
	return t.Kind == KindClass || t.Kind == KindArray
}

// Equals reports type equality: structural for arrays, identity otherwise.
func (t *Type) Equals(other *Type) bool {
	if t.Kind == KindArray {
		return other.Kind == KindArray && t.Elem.Equals(other.Elem)
	}
	return t == other
}

// CompatibleWith reports whether values of t and other may be compared.
func (t *Type) CompatibleWith(other *Type) bool {
	return t.Equals(other) ||
		t == NullType && other.IsRefType() ||
		other == NullType && t.IsRefType()
}

// AssignableTo reports whether a value of t may be stored in a location of type dest.
// Any array is assignable to an array whose element type is NoType.
func (t *Type) AssignableTo(dest *Type) bool {
	if dest == nil {
		return false
	}
	return t.Equals(dest) ||
		t == NullType && dest.IsRefType() ||
		t.Kind == KindArray && dest.Kind == KindArray && dest.Elem == NoType
}

// FindField returns the field with the given name, or nil.
func (t *Type) FindField(name string) *Symbol {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (t *Type) String() string {
	switch t.Kind {
	case KindNone:
		return "void"
	case KindInt:
		return "int"
	case KindChar:
		return "char"
	case KindArray:
		if t.Elem == NoType {
			return "array"
		}
		return t.Elem.String() + "[]"
	case KindClass:
		if t.Name == "" {
			return "class"
		}
		return t.Name
	}
	return "?"
}
