package runtime

// SideEffect is an action the host performs on the interpreter's behalf.
// The interpreter only records them; hosts drain the queue after each call.
type SideEffect interface {
	sideEffect()
}

type MsgBox struct {
	Text string
}

type ConsoleOutput struct {
	Text string
}

type ConsoleClear struct{}

type PropertyChange struct {
	Object   string
	Property string
	Value    Value
}

type DataSourceChanged struct {
	ControlName string
	Columns     []string
	Rows        [][]string
}

type BindingPositionChanged struct {
	Source   string
	Position int
	Count    int
}

type FormClose struct {
	FormName string
}

type FormShowDialog struct {
	FormName string
}

type AddControl struct {
	FormName    string
	ControlName string
	ControlType string
	Left        int
	Top         int
	Width       int
	Height      int
}

type InputBox struct {
	Prompt  string
	Title   string
	Default string
	X       int
	Y       int
}

type RunApplication struct {
	FormName string
}

func (MsgBox) sideEffect()                 {}
func (ConsoleOutput) sideEffect()          {}
func (ConsoleClear) sideEffect()           {}
func (PropertyChange) sideEffect()         {}
func (DataSourceChanged) sideEffect()      {}
func (BindingPositionChanged) sideEffect() {}
func (FormClose) sideEffect()              {}
func (FormShowDialog) sideEffect()         {}
func (AddControl) sideEffect()             {}
func (InputBox) sideEffect()               {}
func (RunApplication) sideEffect()         {}

// SideEffectQueue is a FIFO of pending side effects.
type SideEffectQueue struct {
	items []SideEffect
}

func (q *SideEffectQueue) Push(effect SideEffect) {
	q.items = append(q.items, effect)
}

// Drain returns every queued effect in order and empties the queue.
func (q *SideEffectQueue) Drain() []SideEffect {
	out := q.items
	q.items = nil
	return out
}

func (q *SideEffectQueue) Len() int {
	return len(q.items)
}
