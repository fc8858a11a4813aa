package interpreter

import (
	"maps"
	"slices"
	"strings"

	"vybe/interpreter-go/pkg/ast"
	"vybe/interpreter-go/pkg/runtime"
)

// execBlock runs stmts in the current scope. Goto targets inside stmts and
// errors trapped by On Error are resolved here; every other signal is
// returned to the caller.
func (i *Interpreter) execBlock(stmts []ast.Statement) outcome {
	return i.execFrom(stmts, 0, false)
}

// execFrom runs stmts starting at pc. A handler run passes Resume outwards
// to the block that trapped the error.
func (i *Interpreter) execFrom(stmts []ast.Statement, pc int, handler bool) outcome {
	for pc < len(stmts) {
		out := i.execStatement(stmts[pc])
		if out.kind == outcomeRaised {
			out = i.trapError(out)
			if out.fromError {
				out = i.runErrorHandler(stmts, pc, out)
			}
		}
		switch out.kind {
		case outcomeNormal:
			pc++
		case outcomeGoto:
			target := findLabel(stmts, out.label)
			if target < 0 {
				return out
			}
			if out.fromError {
				i.frame().onError.resumeBlock = &stmts[0]
				i.frame().onError.resumePC = pc
			}
			pc = target
		case outcomeResume:
			f := i.frame()
			if handler || f.onError.resumeBlock != &stmts[0] {
				return out
			}
			f.onError.handling = false
			i.resetErr()
			pc = f.onError.resumePC
			if out.resume == ast.ResumeNext {
				pc++
			}
		default:
			return out
		}
	}
	return normal
}

// runErrorHandler executes the On Error GoTo target in place, with stmts[pc]
// as the resume point, so Resume Next continues inside the block that
// raised. A handler that runs off the end of the body ends the procedure.
func (i *Interpreter) runErrorHandler(stmts []ast.Statement, pc int, trap outcome) outcome {
	f := i.frame()
	target := findLabel(f.body, trap.label)
	if target < 0 {
		return trap
	}
	f.onError.resumeBlock = &stmts[0]
	f.onError.resumePC = pc
	out := i.execFrom(f.body, target, true)
	if out.kind == outcomeNormal {
		return outcome{kind: outcomeExitProcedure}
	}
	return out
}

// execScoped runs stmts in a fresh block scope.
func (i *Interpreter) execScoped(stmts []ast.Statement) outcome {
	i.Env.PushScope()
	out := i.execBlock(stmts)
	i.Env.PopScope()
	return out
}

// trapError applies the frame's On Error mode to a raised outcome.
func (i *Interpreter) trapError(out outcome) outcome {
	f := i.frame()
	if out.err == errEndProgram || f.onError.handling {
		return out
	}
	switch f.onError.mode {
	case ast.OnErrorResumeNext:
		i.recordErr(out.err)
		return normal
	case ast.OnErrorGotoLabel:
		i.recordErr(out.err)
		f.onError.handling = true
		return outcome{kind: outcomeGoto, label: f.onError.label, fromError: true}
	}
	return out
}

func findLabel(stmts []ast.Statement, label string) int {
	for idx, stmt := range stmts {
		if l, ok := stmt.(*ast.LabelStatement); ok && strings.EqualFold(l.Name, label) {
			return idx
		}
	}
	return -1
}

func (i *Interpreter) execStatement(node ast.Statement) outcome {
	switch n := node.(type) {
	case *ast.DimStatement:
		return i.execDim(n)
	case *ast.ConstStatement:
		val, err := i.evalConstant(n.Value, n.Type)
		if err != nil {
			return raised(err)
		}
		i.Env.DefineConst(n.Name, val)
		return normal
	case *ast.ReDimStatement:
		return i.execReDim(n)
	case *ast.EraseStatement:
		for _, target := range n.Targets {
			if err := i.assignTo(target, runtime.NewArray(nil)); err != nil {
				return raised(err)
			}
		}
		return normal
	case *ast.AssignmentStatement:
		if err := i.execAssignment(n); err != nil {
			return raised(err)
		}
		return normal
	case *ast.CallStatement:
		if _, err := i.evalCallStatement(n.Call); err != nil {
			return raised(err)
		}
		return normal
	case *ast.IfStatement:
		return i.execIf(n)
	case *ast.ForStatement:
		return i.execFor(n)
	case *ast.ForEachStatement:
		return i.execForEach(n)
	case *ast.WhileStatement:
		return i.execWhile(n)
	case *ast.DoLoopStatement:
		return i.execDoLoop(n)
	case *ast.SelectStatement:
		return i.execSelect(n)
	case *ast.WithStatement:
		return i.execWith(n)
	case *ast.UsingStatement:
		return i.execUsing(n)
	case *ast.TryStatement:
		return i.execTry(n)
	case *ast.ThrowStatement:
		return i.execThrow(n)
	case *ast.GotoStatement:
		return outcome{kind: outcomeGoto, label: n.Label}
	case *ast.LabelStatement:
		return normal
	case *ast.OnErrorStatement:
		i.execOnError(n)
		return normal
	case *ast.ResumeStatement:
		return i.execResume(n)
	case *ast.SyncLockStatement:
		if _, err := i.evalExpression(n.Lock); err != nil {
			return raised(err)
		}
		return i.execScoped(n.Body)
	case *ast.AddHandlerStatement:
		return i.execHandlerChange(n.Event, n.Handler, true)
	case *ast.RemoveHandlerStatement:
		return i.execHandlerChange(n.Event, n.Handler, false)
	case *ast.RaiseEventStatement:
		return i.execRaiseEvent(n)
	case *ast.ExitStatement:
		switch n.Kind {
		case ast.BlockSub, ast.BlockFunction, ast.BlockProperty:
			return outcome{kind: outcomeExitProcedure}
		}
		return outcome{kind: outcomeExit, block: n.Kind}
	case *ast.ContinueStatement:
		return outcome{kind: outcomeContinue, block: n.Kind}
	case *ast.ReturnStatement:
		if n.Value == nil {
			return outcome{kind: outcomeReturn}
		}
		val, err := i.evalExpression(n.Value)
		if err != nil {
			return raised(err)
		}
		return outcome{kind: outcomeReturn, value: val}
	case *ast.EndStatement:
		return raised(errEndProgram)
	case *ast.StopStatement:
		i.logger.Debug("stop statement ignored")
		return normal
	case *ast.OpenStatement:
		return i.execOpen(n)
	case *ast.CloseStatement:
		return i.execClose(n)
	case *ast.PrintStatement:
		return i.execPrint(n)
	case *ast.LineInputStatement:
		return i.execLineInput(n)
	case *ast.InputStatement:
		return i.execInput(n)
	default:
		return raised(runtime.Errorf("unsupported statement type: %s", node.NodeType()))
	}
}

func (i *Interpreter) execDim(n *ast.DimStatement) outcome {
	f := i.frame()
	for _, v := range n.Variables {
		if v.IsArray && v.Type != nil {
			i.arrayTypes[strings.ToLower(v.Name)] = v.Type
		}
		key := ""
		if n.IsStatic {
			key = i.staticKey(v.Name)
			if val, ok := i.statics[key]; ok {
				i.Env.Define(v.Name, val)
				f.statics = append(f.statics, v.Name)
				continue
			}
		}
		val, err := i.declaratorValue(v)
		if err != nil {
			return raised(err)
		}
		i.Env.Define(v.Name, val)
		if n.IsStatic {
			i.statics[key] = val
			f.statics = append(f.statics, v.Name)
		}
	}
	return normal
}

func (i *Interpreter) execIf(n *ast.IfStatement) outcome {
	ok, err := i.evalCondition(n.Condition)
	if err != nil {
		return raised(err)
	}
	if ok {
		return i.execScoped(n.Then)
	}
	for _, clause := range n.ElseIfs {
		ok, err := i.evalCondition(clause.Condition)
		if err != nil {
			return raised(err)
		}
		if ok {
			return i.execScoped(clause.Body)
		}
	}
	if n.Else != nil {
		return i.execScoped(n.Else)
	}
	return normal
}

func (i *Interpreter) evalCondition(expr ast.Expression) (bool, error) {
	val, err := i.evalExpression(expr)
	if err != nil {
		return false, err
	}
	return runtime.AsBool(val)
}

// loopControl decides what a loop does with its body's outcome: stop
// with the returned outcome, or keep iterating.
func loopControl(out outcome, kind ast.BlockKind) (outcome, bool) {
	switch out.kind {
	case outcomeNormal:
		return normal, false
	case outcomeExit:
		if out.block == kind {
			return normal, true
		}
	case outcomeContinue:
		if out.block == kind {
			return normal, false
		}
	}
	return out, true
}

func (i *Interpreter) execFor(n *ast.ForStatement) outcome {
	start, err := i.evalExpression(n.Start)
	if err != nil {
		return raised(err)
	}
	end, err := i.evalExpression(n.End)
	if err != nil {
		return raised(err)
	}
	var step runtime.Value = runtime.IntegerValue{Val: 1}
	if n.Step != nil {
		if step, err = i.evalExpression(n.Step); err != nil {
			return raised(err)
		}
	}
	if n.VarType != nil {
		if start, err = i.coerceToType(start, n.VarType); err != nil {
			return raised(err)
		}
	}
	integralLoop := isIntegralValue(start) && isIntegralValue(end) && isIntegralValue(step)
	endF, err := runtime.AsDouble(end)
	if err != nil {
		return raised(err)
	}
	stepF, err := runtime.AsDouble(step)
	if err != nil {
		return raised(err)
	}

	if n.VarType != nil {
		i.Env.PushScope()
		defer i.Env.PopScope()
		i.Env.Define(n.Variable, start)
	} else if err := i.assignVariable(n.Variable, start); err != nil {
		return raised(err)
	}

	for {
		cur, err := i.lookupIdentifier(n.Variable)
		if err != nil {
			return raised(err)
		}
		curF, err := runtime.AsDouble(cur)
		if err != nil {
			return raised(err)
		}
		if (stepF >= 0 && curF > endF) || (stepF < 0 && curF < endF) {
			return normal
		}
		out := i.execScoped(n.Body)
		if res, stop := loopControl(out, ast.BlockFor); stop {
			return res
		}
		cur, err = i.lookupIdentifier(n.Variable)
		if err != nil {
			return raised(err)
		}
		var next runtime.Value
		if integralLoop && isIntegralValue(cur) {
			c, _ := runtime.AsLong(cur)
			s, _ := runtime.AsLong(step)
			next = sameIntegralKind(cur, c+s)
		} else {
			c, err := runtime.AsDouble(cur)
			if err != nil {
				return raised(err)
			}
			next = runtime.DoubleValue{Val: c + stepF}
		}
		if err := i.assignVariable(n.Variable, next); err != nil {
			return raised(err)
		}
	}
}

func isIntegralValue(v runtime.Value) bool {
	switch v.(type) {
	case runtime.IntegerValue, runtime.LongValue, runtime.ByteValue:
		return true
	}
	return false
}

// sameIntegralKind stores n in the integral kind of like, widening to Long
// when it does not fit.
func sameIntegralKind(like runtime.Value, n int64) runtime.Value {
	switch like.(type) {
	case runtime.ByteValue:
		if n >= 0 && n <= 255 {
			return runtime.ByteValue{Val: uint8(n)}
		}
	case runtime.LongValue:
		return runtime.LongValue{Val: n}
	}
	return integral(n)
}

func (i *Interpreter) execForEach(n *ast.ForEachStatement) outcome {
	source, err := i.evalExpression(n.Collection)
	if err != nil {
		return raised(err)
	}
	items, err := i.iterate(source)
	if err != nil {
		return raised(err)
	}
	if n.VarType != nil {
		i.Env.PushScope()
		defer i.Env.PopScope()
		i.Env.Define(n.Variable, runtime.Nothing)
	}
	for _, item := range items {
		if n.VarType != nil {
			if item, err = i.coerceToType(item, n.VarType); err != nil {
				return raised(err)
			}
		}
		if err := i.assignVariable(n.Variable, runtime.CopyValue(item)); err != nil {
			return raised(err)
		}
		out := i.execScoped(n.Body)
		if res, stop := loopControl(out, ast.BlockFor); stop {
			return res
		}
	}
	return normal
}

func (i *Interpreter) execWhile(n *ast.WhileStatement) outcome {
	for {
		ok, err := i.evalCondition(n.Condition)
		if err != nil {
			return raised(err)
		}
		if !ok {
			return normal
		}
		out := i.execScoped(n.Body)
		if res, stop := loopControl(out, ast.BlockWhile); stop {
			return res
		}
	}
}

func (i *Interpreter) execDoLoop(n *ast.DoLoopStatement) outcome {
	check := func() (bool, error) {
		if n.Condition == nil {
			return true, nil
		}
		ok, err := i.evalCondition(n.Condition)
		if n.Until {
			ok = !ok
		}
		return ok, err
	}
	for {
		if !n.TestAtEnd {
			ok, err := check()
			if err != nil {
				return raised(err)
			}
			if !ok {
				return normal
			}
		}
		out := i.execScoped(n.Body)
		if res, stop := loopControl(out, ast.BlockDo); stop {
			return res
		}
		if n.TestAtEnd {
			ok, err := check()
			if err != nil {
				return raised(err)
			}
			if !ok {
				return normal
			}
		}
	}
}

func (i *Interpreter) execSelect(n *ast.SelectStatement) outcome {
	subject, err := i.evalExpression(n.Subject)
	if err != nil {
		return raised(err)
	}
	finish := func(out outcome) outcome {
		if out.kind == outcomeExit && out.block == ast.BlockSelect {
			return normal
		}
		return out
	}
	for _, clause := range n.Cases {
		for _, cond := range clause.Conditions {
			ok, err := i.caseMatches(subject, cond)
			if err != nil {
				return raised(err)
			}
			if ok {
				return finish(i.execScoped(clause.Body))
			}
		}
	}
	if n.HasElse {
		return finish(i.execScoped(n.Else))
	}
	return normal
}

func (i *Interpreter) caseMatches(subject runtime.Value, cond *ast.CaseCondition) (bool, error) {
	val, err := i.evalExpression(cond.Value)
	if err != nil {
		return false, err
	}
	switch cond.Kind {
	case ast.CaseRange:
		hi, err := i.evalExpression(cond.To)
		if err != nil {
			return false, err
		}
		lo, err := compareValues(ast.OpGreaterEqual, subject, val)
		if err != nil || !lo {
			return false, err
		}
		return compareValues(ast.OpLessEqual, subject, hi)
	case ast.CaseIs:
		return compareValues(cond.Operator, subject, val)
	default:
		return compareValues(ast.OpEqual, subject, val)
	}
}

func (i *Interpreter) execWith(n *ast.WithStatement) outcome {
	target, err := i.evalExpression(n.Object)
	if err != nil {
		return raised(err)
	}
	f := i.frame()
	f.with = append(f.with, target)
	out := i.execScoped(n.Body)
	f.with = f.with[:len(f.with)-1]
	return out
}

func (i *Interpreter) execUsing(n *ast.UsingStatement) outcome {
	resource, err := i.evalExpression(n.Resource)
	if err != nil {
		return raised(err)
	}
	i.Env.PushScope()
	if n.Variable != "" {
		i.Env.Define(n.Variable, resource)
	}
	out := i.execBlock(n.Body)
	i.Env.PopScope()
	if obj, ok := resource.(*runtime.ObjectValue); ok {
		if err := i.dispose(obj); err != nil && out.kind != outcomeRaised {
			return raised(err)
		}
	}
	return out
}

func (i *Interpreter) execTry(n *ast.TryStatement) outcome {
	out := i.execScoped(n.Body)
	if out.kind == outcomeRaised && out.err != errEndProgram {
		out = i.runCatch(n, out)
	}
	if out.kind == outcomeExit && out.block == ast.BlockTry {
		out = normal
	}
	if n.Finally != nil {
		fin := i.execScoped(n.Finally)
		if fin.kind != outcomeNormal {
			return fin
		}
	}
	return out
}

func (i *Interpreter) runCatch(n *ast.TryStatement, out outcome) outcome {
	ex := i.exceptionObject(out.err)
	for _, clause := range n.Catches {
		if clause.Type != nil && !i.catchMatches(out.err, clause.Type.Name) {
			continue
		}
		i.Env.PushScope()
		if clause.Variable != "" {
			i.Env.Define(clause.Variable, ex)
		}
		if clause.When != nil {
			ok, err := i.evalCondition(clause.When)
			if err != nil {
				i.Env.PopScope()
				return raised(err)
			}
			if !ok {
				i.Env.PopScope()
				continue
			}
		}
		f := i.frame()
		prev := f.caught
		f.caught = out.err
		res := i.execBlock(clause.Body)
		f.caught = prev
		i.Env.PopScope()
		return res
	}
	return out
}

func (i *Interpreter) execThrow(n *ast.ThrowStatement) outcome {
	if n.Value == nil {
		if caught := i.frame().caught; caught != nil {
			return raised(caught)
		}
		return raised(runtime.Exception("InvalidOperationException", "No exception is being handled"))
	}
	val, err := i.evalExpression(n.Value)
	if err != nil {
		return raised(err)
	}
	return raised(i.exceptionFromValue(val))
}

func (i *Interpreter) execOnError(n *ast.OnErrorStatement) {
	f := i.frame()
	i.resetErr()
	switch n.Mode {
	case ast.OnErrorGotoZero:
		f.onError = onErrorState{}
	default:
		f.onError.mode = n.Mode
		f.onError.label = n.Label
	}
}

func (i *Interpreter) execResume(n *ast.ResumeStatement) outcome {
	f := i.frame()
	if !f.onError.handling {
		return raised(runtime.Exception("InvalidOperationException", "Resume without error"))
	}
	if n.Kind == ast.ResumeLabel {
		f.onError.handling = false
		i.resetErr()
		return outcome{kind: outcomeGoto, label: n.Label}
	}
	return outcome{kind: outcomeResume, resume: n.Kind}
}

// execHandlerChange implements AddHandler and RemoveHandler.
func (i *Interpreter) execHandlerChange(event, handler ast.Expression, add bool) outcome {
	control, name, err := i.eventTarget(event)
	if err != nil {
		return raised(err)
	}
	val, err := i.evalExpression(handler)
	if err != nil {
		return raised(err)
	}
	delegate, ok := val.(*runtime.LambdaValue)
	if !ok {
		return raised(runtime.TypeMismatch("Delegate", runtime.TypeName(val)))
	}
	handlerName := i.handlerName(delegate)
	if add {
		i.logger.Debug("add handler", "control", control, "event", name, "handler", handlerName)
		i.Events.Register(control, name, handlerName)
	} else {
		i.Events.Remove(control, name, handlerName)
	}
	return normal
}

// eventTarget names the (control, event) pair for `obj.Event`.
func (i *Interpreter) eventTarget(expr ast.Expression) (string, string, error) {
	member, ok := expr.(*ast.MemberAccessExpression)
	if !ok {
		if id, ok := expr.(*ast.Identifier); ok {
			if self := i.frame().self; self != nil {
				return i.eventKey(self), id.Name, nil
			}
			return i.frame().module, id.Name, nil
		}
		return "", "", runtime.Errorf("AddHandler expects 'object.Event'")
	}
	switch obj := member.Object.(type) {
	case *ast.MeExpression, *ast.MyBaseExpression:
		if self := i.frame().self; self != nil {
			return i.eventKey(self), member.Member, nil
		}
		return i.frame().module, member.Member, nil
	case *ast.Identifier:
		val, err := i.lookupIdentifier(obj.Name)
		if err != nil {
			return obj.Name, member.Member, nil
		}
		if o, ok := val.(*runtime.ObjectValue); ok {
			return i.eventKey(o), member.Member, nil
		}
		return obj.Name, member.Member, nil
	}
	val, err := i.evalExpression(member.Object)
	if err != nil {
		return "", "", err
	}
	if o, ok := val.(*runtime.ObjectValue); ok {
		return i.eventKey(o), member.Member, nil
	}
	return runtime.AsString(val), member.Member, nil
}

// eventKey is the control name an object raises events under: its Name
// when set, otherwise its identity.
func (i *Interpreter) eventKey(obj *runtime.ObjectValue) string {
	if name, ok := obj.Get("Name").(runtime.StringValue); ok && name.Val != "" {
		return name.Val
	}
	if def, ok := i.defaultInstances[strings.ToLower(obj.ClassName)]; ok && def == obj {
		return obj.ClassName
	}
	return objectIdentity(obj)
}

func (i *Interpreter) execRaiseEvent(n *ast.RaiseEventStatement) outcome {
	args, err := i.evalArgValues(n.Arguments)
	if err != nil {
		return raised(err)
	}
	var keys []string
	if self := i.frame().self; self != nil {
		keys = append(keys, i.eventKey(self))
		keys = append(keys, i.withEventsNames(self)...)
	} else {
		keys = append(keys, i.frame().module)
	}
	for _, key := range keys {
		for _, handler := range i.Events.Handlers(key, n.Name) {
			if _, err := i.callHandler(handler, args); err != nil {
				return raised(err)
			}
		}
	}
	return normal
}

// withEventsNames lists the WithEvents variables currently holding obj, so
// `Handles field.Event` bindings fire for it.
func (i *Interpreter) withEventsNames(obj *runtime.ObjectValue) []string {
	var names []string
	for _, key := range slices.Sorted(maps.Keys(i.withEvents)) {
		name := i.withEvents[key]
		if val, ok := i.Env.GetGlobal(key); ok && val == runtime.Value(obj) {
			names = append(names, name)
			continue
		}
		for _, inst := range i.defaultInstances {
			if inst.Get(key) == runtime.Value(obj) {
				names = append(names, name)
				break
			}
		}
	}
	return names
}
