package runtime

import (
	"fmt"
	"strings"

	"vybe/interpreter-go/pkg/ast"
)

// Kind identifies the runtime value category.
type Kind int

const (
	KindNothing Kind = iota
	KindInteger
	KindLong
	KindSingle
	KindDouble
	KindByte
	KindChar
	KindBoolean
	KindString
	KindDate
	KindArray
	KindObject
	KindCollection
	KindQueue
	KindStack
	KindHashSet
	KindDictionary
	KindLambda
)

func (k Kind) String() string {
	switch k {
	case KindNothing:
		return "Nothing"
	case KindInteger:
		return "Integer"
	case KindLong:
		return "Long"
	case KindSingle:
		return "Single"
	case KindDouble:
		return "Double"
	case KindByte:
		return "Byte"
	case KindChar:
		return "Char"
	case KindBoolean:
		return "Boolean"
	case KindString:
		return "String"
	case KindDate:
		return "Date"
	case KindArray:
		return "Array"
	case KindObject:
		return "Object"
	case KindCollection:
		return "Collection"
	case KindQueue:
		return "Queue"
	case KindStack:
		return "Stack"
	case KindHashSet:
		return "HashSet"
	case KindDictionary:
		return "Dictionary"
	case KindLambda:
		return "Lambda"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Value is the shared behaviour for all runtime values.
type Value interface {
	Kind() Kind
}

//-----------------------------------------------------------------------------
// Scalars
//-----------------------------------------------------------------------------

type NothingValue struct{}

func (NothingValue) Kind() Kind { return KindNothing }

// Nothing is the shared Nothing value.
var Nothing Value = NothingValue{}

type IntegerValue struct {
	Val int32
}

func (v IntegerValue) Kind() Kind { return KindInteger }

type LongValue struct {
	Val int64
}

func (v LongValue) Kind() Kind { return KindLong }

type SingleValue struct {
	Val float32
}

func (v SingleValue) Kind() Kind { return KindSingle }

type DoubleValue struct {
	Val float64
}

func (v DoubleValue) Kind() Kind { return KindDouble }

type ByteValue struct {
	Val uint8
}

func (v ByteValue) Kind() Kind { return KindByte }

type CharValue struct {
	Val rune
}

func (v CharValue) Kind() Kind { return KindChar }

type BoolValue struct {
	Val bool
}

func (v BoolValue) Kind() Kind { return KindBoolean }

type StringValue struct {
	Val string
}

func (v StringValue) Kind() Kind { return KindString }

// DateValue is an OLE Automation date: whole days since 1899-12-30 plus the
// time of day as a fraction.
type DateValue struct {
	Val float64
}

func (v DateValue) Kind() Kind { return KindDate }

//-----------------------------------------------------------------------------
// Arrays and objects
//-----------------------------------------------------------------------------

// ArrayValue is a zero-based array. Arrays are copied on assignment; element
// stores through an index mutate in place.
type ArrayValue struct {
	Elements []Value
}

func (v *ArrayValue) Kind() Kind { return KindArray }

func NewArray(elements []Value) *ArrayValue {
	if elements == nil {
		elements = []Value{}
	}
	return &ArrayValue{Elements: elements}
}

// ObjectValue is a class or structure instance. Field names are lowercased.
// Class instances are shared by every variable holding them; structure
// instances (IsStruct) are copied on assignment. Native carries host data for
// builtin classes such as StringBuilder or a database connection.
type ObjectValue struct {
	ClassName string
	Fields    map[string]Value
	IsStruct  bool
	Native    interface{}
}

func (v *ObjectValue) Kind() Kind { return KindObject }

func NewObject(className string) *ObjectValue {
	return &ObjectValue{ClassName: className, Fields: make(map[string]Value)}
}

// Get returns a field, or nil when it is absent.
func (v *ObjectValue) Get(name string) Value {
	return v.Fields[strings.ToLower(name)]
}

func (v *ObjectValue) Set(name string, value Value) {
	v.Fields[strings.ToLower(name)] = value
}

func (v *ObjectValue) Has(name string) bool {
	_, ok := v.Fields[strings.ToLower(name)]
	return ok
}

//-----------------------------------------------------------------------------
// Lambdas and delegates
//-----------------------------------------------------------------------------

// LambdaValue is a callable: either a lambda expression with the bindings it
// captured, or a delegate to a named procedure created by AddressOf.
type LambdaValue struct {
	Parameters []*ast.Parameter
	IsFunction bool
	Body       ast.Expression
	Statements []ast.Statement
	Captured   map[string]Value

	// Procedure names the target of an AddressOf delegate; Receiver is the
	// instance for method delegates.
	Procedure string
	Receiver  *ObjectValue
}

func (v *LambdaValue) Kind() Kind { return KindLambda }

//-----------------------------------------------------------------------------
// Helpers
//-----------------------------------------------------------------------------

// CopyValue implements assignment semantics: arrays and structures are
// copied, every other reference value is shared.
func CopyValue(v Value) Value {
	switch val := v.(type) {
	case *ArrayValue:
		out := make([]Value, len(val.Elements))
		for idx, el := range val.Elements {
			out[idx] = CopyValue(el)
		}
		return &ArrayValue{Elements: out}
	case *ObjectValue:
		if !val.IsStruct {
			return val
		}
		clone := &ObjectValue{ClassName: val.ClassName, Fields: make(map[string]Value, len(val.Fields)), IsStruct: true, Native: val.Native}
		for name, field := range val.Fields {
			clone.Fields[name] = CopyValue(field)
		}
		return clone
	default:
		return v
	}
}

func IsNothing(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(NothingValue)
	return ok
}

func IsNumeric(v Value) bool {
	switch v.Kind() {
	case KindInteger, KindLong, KindSingle, KindDouble, KindByte:
		return true
	}
	return false
}

// IsReference reports whether v is a shared handle compared by identity.
func IsReference(v Value) bool {
	switch v.Kind() {
	case KindObject, KindCollection, KindQueue, KindStack, KindHashSet, KindDictionary, KindLambda, KindArray:
		return true
	}
	return false
}

// TypeName returns the VB TypeName of a value.
func TypeName(v Value) string {
	switch val := v.(type) {
	case *ObjectValue:
		return val.ClassName
	case *ListValue:
		return val.TypeName
	case *ArrayValue:
		return "Variant()"
	case *LambdaValue:
		return "Lambda"
	case nil:
		return "Nothing"
	}
	return v.Kind().String()
}

// VarType returns the legacy VarType code of a value.
func VarType(v Value) int32 {
	switch v.Kind() {
	case KindNothing:
		return 1
	case KindInteger:
		return 2
	case KindLong:
		return 3
	case KindSingle:
		return 4
	case KindDouble:
		return 5
	case KindDate:
		return 7
	case KindString:
		return 8
	case KindBoolean:
		return 11
	case KindByte:
		return 17
	case KindChar:
		return 18
	case KindArray:
		return 8192
	default:
		return 9
	}
}
