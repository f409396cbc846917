package efd

// FieldType is the scalar type of one topic field, as reported by
// SHOW FIELD KEYS.
type FieldType int

const (
	// FieldString is a string-valued field.
	FieldString FieldType = iota

	// FieldFloat64 is a 64-bit floating point field.
	FieldFloat64

	// FieldInt64 is a 64-bit integer field.
	FieldInt64

	// FieldOpaque is any field type the client does not recognize.
	FieldOpaque
)

// String renders the type the way the schema endpoint reports it.
func (t FieldType) String() string {
	switch t {
	case FieldString:
		return "string"
	case FieldFloat64:
		return "float"
	case FieldInt64:
		return "integer"
	default:
		return "opaque"
	}
}

// FieldDescriptor is a (name, scalar type) pair from schema introspection.
type FieldDescriptor struct {
	Name string
	Type FieldType
}

// fieldTypeOf maps the database's type string to a FieldType.
func fieldTypeOf(s string) FieldType {
	switch s {
	case "float":
		return FieldFloat64
	case "integer":
		return FieldInt64
	case "string":
		return FieldString
	default:
		return FieldOpaque
	}
}
