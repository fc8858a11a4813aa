package runtime

import (
	"fmt"
	"strings"
)

// ErrorKind classifies runtime errors.
type ErrorKind int

const (
	ErrCustom ErrorKind = iota
	ErrUndefinedVariable
	ErrUndefinedFunction
	ErrTypeMismatch
	ErrException
	ErrDivisionByZero
	ErrIndexOutOfRange
	ErrConstantAssignment
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUndefinedVariable:
		return "UndefinedVariable"
	case ErrUndefinedFunction:
		return "UndefinedFunction"
	case ErrTypeMismatch:
		return "TypeMismatch"
	case ErrException:
		return "Exception"
	case ErrDivisionByZero:
		return "DivisionByZero"
	case ErrIndexOutOfRange:
		return "IndexOutOfRange"
	case ErrConstantAssignment:
		return "ConstantAssignment"
	default:
		return "Custom"
	}
}

// Error is the single runtime error type. Exceptions thrown from code carry
// the thrown type name so Catch clauses can match on it.
type Error struct {
	Kind          ErrorKind
	Name          string
	Expected      string
	Got           string
	Message       string
	ExceptionType string
	Number        int32
	// Payload is the thrown exception object, when one exists.
	Payload *ObjectValue
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrUndefinedVariable:
		return fmt.Sprintf("Undefined variable '%s'", e.Name)
	case ErrUndefinedFunction:
		return fmt.Sprintf("Undefined function '%s'", e.Name)
	case ErrTypeMismatch:
		return fmt.Sprintf("Type mismatch: expected %s, got %s", e.Expected, e.Got)
	case ErrConstantAssignment:
		return fmt.Sprintf("Cannot assign to constant '%s'", e.Name)
	case ErrException:
		if e.Message == "" {
			return e.ExceptionType
		}
		return fmt.Sprintf("%s: %s", e.ExceptionType, e.Message)
	default:
		return e.Message
	}
}

// TypeName returns the .NET exception class this error presents as inside
// Catch clauses.
func (e *Error) TypeName() string {
	switch e.Kind {
	case ErrException:
		return e.ExceptionType
	case ErrDivisionByZero:
		return "DivideByZeroException"
	case ErrIndexOutOfRange:
		return "IndexOutOfRangeException"
	case ErrTypeMismatch:
		return "InvalidCastException"
	case ErrUndefinedVariable, ErrUndefinedFunction:
		return "MissingMemberException"
	default:
		return "Exception"
	}
}

// Description is the message exposed through ex.Message and Err.Description.
func (e *Error) Description() string {
	if e.Kind == ErrException || e.Kind == ErrCustom {
		return e.Message
	}
	return e.Error()
}

// ErrNumber returns the legacy Err.Number code.
func (e *Error) ErrNumber() int32 {
	if e.Number != 0 {
		return e.Number
	}
	switch e.Kind {
	case ErrDivisionByZero:
		return 11
	case ErrIndexOutOfRange:
		return 9
	case ErrTypeMismatch:
		return 13
	case ErrUndefinedVariable, ErrUndefinedFunction:
		return 438
	default:
		return 5
	}
}

// Matches reports whether a Catch clause for typeName handles this error.
// Exception and System.Exception catch everything.
func (e *Error) Matches(typeName string) bool {
	want := strings.ToLower(strings.TrimPrefix(typeName, "System."))
	if want == "" || want == "exception" {
		return true
	}
	return strings.ToLower(strings.TrimPrefix(e.TypeName(), "System.")) == want
}

func UndefinedVariable(name string) *Error {
	return &Error{Kind: ErrUndefinedVariable, Name: name}
}

func UndefinedFunction(name string) *Error {
	return &Error{Kind: ErrUndefinedFunction, Name: name}
}

func TypeMismatch(expected, got string) *Error {
	return &Error{Kind: ErrTypeMismatch, Expected: expected, Got: got}
}

func Errorf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrCustom, Message: fmt.Sprintf(format, args...)}
}

func Exception(typeName, message string) *Error {
	return &Error{Kind: ErrException, ExceptionType: typeName, Message: message}
}

func DivisionByZero() *Error {
	return &Error{Kind: ErrDivisionByZero, Message: "Attempted to divide by zero."}
}

func IndexOutOfRange(index int, length int) *Error {
	return &Error{Kind: ErrIndexOutOfRange, Message: fmt.Sprintf("Index %d was outside the bounds of the array (length %d).", index, length)}
}

// AsError converts any error into a *Error, wrapping foreign errors as
// Custom.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if rerr, ok := err.(*Error); ok {
		return rerr
	}
	return &Error{Kind: ErrCustom, Message: err.Error()}
}
