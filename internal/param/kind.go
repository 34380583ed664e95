package param

// Kind identifies the shape of a parameter value.
type Kind int

const (
	KindBool Kind = iota + 1
	KindInt
	KindReal
	KindString
	KindVec2
	KindVec3
	KindIntVector
	KindRealVector
	KindStringVector
	KindRecordVector
	KindRecordMap
)

var kindNames = map[Kind]string{
	KindBool:         "bool",
	KindInt:          "int",
	KindReal:         "double",
	KindString:       "string",
	KindVec2:         "2-vector",
	KindVec3:         "3-vector",
	KindIntVector:    "vector<int>",
	KindRealVector:   "vector<double>",
	KindStringVector: "vector<string>",
	KindRecordVector: "vector",
	KindRecordMap:    "map",
}

// String returns the type name reported by reflection.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// IsContainer reports whether values of this kind hold records.
func (k Kind) IsContainer() bool {
	return k == KindRecordVector || k == KindRecordMap
}

// IsClearable reports whether the kind has a variable number of elements.
// Fixed tuples are not clearable.
func (k Kind) IsClearable() bool {
	switch k {
	case KindIntVector, KindRealVector, KindStringVector, KindRecordVector, KindRecordMap:
		return true
	}
	return false
}
