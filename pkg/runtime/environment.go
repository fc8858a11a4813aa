package runtime

import (
	"sort"
	"strings"
)

// Environment is a stack of case-insensitive scopes. Scope 0 holds globals
// and is never popped. Procedure calls open a frame, which hides the caller's
// local scopes from the callee while keeping globals visible.
type Environment struct {
	scopes    []map[string]Value
	constants map[string]struct{}
	frames    [][]map[string]Value
}

// NewEnvironment returns an environment holding only the global scope.
func NewEnvironment() *Environment {
	return &Environment{
		scopes:    []map[string]Value{make(map[string]Value)},
		constants: make(map[string]struct{}),
	}
}

// PushScope opens a block scope.
func (e *Environment) PushScope() {
	e.scopes = append(e.scopes, make(map[string]Value))
}

// PopScope closes the innermost block scope. The global scope survives.
func (e *Environment) PopScope() {
	if len(e.scopes) > 1 {
		e.scopes = e.scopes[:len(e.scopes)-1]
	}
}

// EnterFrame stashes the caller's local scopes and opens a fresh one.
func (e *Environment) EnterFrame() {
	saved := make([]map[string]Value, len(e.scopes)-1)
	copy(saved, e.scopes[1:])
	e.frames = append(e.frames, saved)
	e.scopes = append(e.scopes[:1:1], make(map[string]Value))
}

// LeaveFrame restores the scopes stashed by the matching EnterFrame.
func (e *Environment) LeaveFrame() {
	if len(e.frames) == 0 {
		e.scopes = e.scopes[:1]
		return
	}
	saved := e.frames[len(e.frames)-1]
	e.frames = e.frames[:len(e.frames)-1]
	e.scopes = append(e.scopes[:1:1], saved...)
}

// Depth is the number of scopes currently visible, globals included.
func (e *Environment) Depth() int {
	return len(e.scopes)
}

// Define inserts or shadows a binding in the innermost scope.
func (e *Environment) Define(name string, value Value) {
	e.scopes[len(e.scopes)-1][strings.ToLower(name)] = value
}

// DefineGlobal inserts a binding in the global scope.
func (e *Environment) DefineGlobal(name string, value Value) {
	e.scopes[0][strings.ToLower(name)] = value
}

// DefineConst defines a binding that can never be reassigned.
func (e *Environment) DefineConst(name string, value Value) {
	key := strings.ToLower(name)
	e.constants[key] = struct{}{}
	e.scopes[len(e.scopes)-1][key] = value
}

// IsConst reports whether name was declared with DefineConst.
func (e *Environment) IsConst(name string) bool {
	_, ok := e.constants[strings.ToLower(name)]
	return ok
}

// Set updates the innermost binding of name, defining it in the current
// scope when no binding exists.
func (e *Environment) Set(name string, value Value) error {
	key := strings.ToLower(name)
	if _, ok := e.constants[key]; ok {
		return &Error{Kind: ErrConstantAssignment, Name: name}
	}
	for idx := len(e.scopes) - 1; idx >= 0; idx-- {
		if _, ok := e.scopes[idx][key]; ok {
			e.scopes[idx][key] = value
			return nil
		}
	}
	e.scopes[len(e.scopes)-1][key] = value
	return nil
}

// Get retrieves a binding, searching innermost to outermost.
func (e *Environment) Get(name string) (Value, error) {
	key := strings.ToLower(name)
	for idx := len(e.scopes) - 1; idx >= 0; idx-- {
		if v, ok := e.scopes[idx][key]; ok {
			return v, nil
		}
	}
	return nil, UndefinedVariable(name)
}

// Has reports whether name is bound in any visible scope.
func (e *Environment) Has(name string) bool {
	_, err := e.Get(name)
	return err == nil
}

// HasLocal reports whether name is bound outside the global scope.
func (e *Environment) HasLocal(name string) bool {
	key := strings.ToLower(name)
	for _, scope := range e.scopes[1:] {
		if _, ok := scope[key]; ok {
			return true
		}
	}
	return false
}

// HasInCurrentScope reports whether name is bound in the innermost scope.
func (e *Environment) HasInCurrentScope(name string) bool {
	_, ok := e.scopes[len(e.scopes)-1][strings.ToLower(name)]
	return ok
}

// GetGlobal reads the global scope only.
func (e *Environment) GetGlobal(name string) (Value, bool) {
	v, ok := e.scopes[0][strings.ToLower(name)]
	return v, ok
}

// Snapshot flattens the non-global scopes into one map, inner bindings
// winning. Lambdas capture this; globals stay live.
func (e *Environment) Snapshot() map[string]Value {
	out := make(map[string]Value)
	for _, scope := range e.scopes[1:] {
		for k, v := range scope {
			out[k] = v
		}
	}
	return out
}

// Keys returns the bindings visible in the innermost scope in sorted order.
func (e *Environment) Keys() []string {
	return sortedKeys(e.scopes[len(e.scopes)-1])
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
