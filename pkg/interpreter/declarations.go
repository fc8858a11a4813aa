package interpreter

import (
	"fmt"
	"strings"

	"vybe/interpreter-go/pkg/ast"
	"vybe/interpreter-go/pkg/runtime"
)

// declareAll registers declarations in two passes: types and procedures
// first, then constants and variables in source order so initializers can
// use anything the module declares.
func (i *Interpreter) declareAll(decls []ast.Declaration, module string) error {
	var deferred []ast.Declaration
	var classes []*classInfo
	if err := i.registerTypes(decls, module, "", &deferred, &classes); err != nil {
		return err
	}
	for _, decl := range deferred {
		switch d := decl.(type) {
		case *ast.ConstantDeclaration:
			val, err := i.evalConstant(d.Value, d.Type)
			if err != nil {
				return err
			}
			i.Env.DefineConst(d.Name, val)
		case *ast.VariableDeclaration:
			i.noteWithEvents(d)
			i.registerModuleBlock(d.Module, nil)
			for _, v := range d.Variables {
				val, err := i.declaratorValue(v)
				if err != nil {
					return err
				}
				i.Env.DefineGlobal(v.Name, val)
			}
		}
	}
	for _, cls := range classes {
		if err := i.initShared(cls); err != nil {
			return err
		}
	}
	i.bindHandles(decls, module)
	return nil
}

func (i *Interpreter) registerTypes(decls []ast.Declaration, module, namespace string, deferred *[]ast.Declaration, classes *[]*classInfo) error {
	for _, decl := range decls {
		switch d := decl.(type) {
		case *ast.SubDeclaration:
			proc := &procedure{name: d.Name, module: module, params: d.Parameters, body: d.Body, shared: true, handles: d.Handles}
			i.registerProcedure(proc)
			i.registerModuleBlock(d.Module, proc)
		case *ast.FunctionDeclaration:
			proc := &procedure{name: d.Name, module: module, params: d.Parameters, body: d.Body, isFunction: true, shared: true, returnType: d.ReturnType, handles: d.Handles}
			i.registerProcedure(proc)
			i.registerModuleBlock(d.Module, proc)
		case *ast.PropertyDeclaration:
			i.registerModuleProperty(d, module)
		case *ast.ClassDeclaration:
			cls := i.registerClass(d.Name, module, namespace, d.Modifiers.Partial)
			if d.Inherits != "" {
				cls.parent = d.Inherits
			}
			cls.mustInherit = cls.mustInherit || d.Modifiers.MustInherit
			cls.implements = append(cls.implements, d.Implements...)
			if err := i.addClassMembers(cls, d.Fields, d.Members, module, namespace, deferred, classes); err != nil {
				return err
			}
			*classes = append(*classes, cls)
		case *ast.StructureDeclaration:
			cls := i.registerClass(d.Name, module, namespace, d.Modifiers.Partial)
			cls.isStruct = true
			cls.implements = append(cls.implements, d.Implements...)
			if err := i.addClassMembers(cls, d.Fields, d.Members, module, namespace, deferred, classes); err != nil {
				return err
			}
			*classes = append(*classes, cls)
		case *ast.EnumDeclaration:
			if err := i.registerEnum(d, namespace); err != nil {
				return err
			}
		case *ast.NamespaceDeclaration:
			full := d.Name
			if namespace != "" {
				full = namespace + "." + d.Name
			}
			for _, part := range namespacePrefixes(full) {
				i.namespaces[part] = true
			}
			if err := i.registerTypes(d.Declarations, module, full, deferred, classes); err != nil {
				return err
			}
		case *ast.InterfaceDeclaration:
			i.interfaces[strings.ToLower(d.Name)] = d
		case *ast.DelegateDeclaration:
			i.delegateTypes[strings.ToLower(d.Name)] = d
		case *ast.ImportsDeclaration:
			if d.Alias != "" {
				i.imports[strings.ToLower(d.Alias)] = d.Path
			}
		case *ast.EventDeclaration:
			// module-level events only need RaiseEvent, which looks up handlers by name
		case *ast.ConstantDeclaration, *ast.VariableDeclaration:
			*deferred = append(*deferred, decl)
		default:
			return runtime.Errorf("unsupported declaration %s", decl.NodeType())
		}
	}
	return nil
}

func namespacePrefixes(full string) []string {
	parts := strings.Split(strings.ToLower(full), ".")
	out := make([]string, 0, len(parts))
	for idx := range parts {
		out = append(out, strings.Join(parts[:idx+1], "."))
	}
	return out
}

func (i *Interpreter) registerProcedure(proc *procedure) {
	table := i.subs
	if proc.isFunction {
		table = i.functions
	}
	table[proc.key()] = proc
	short := strings.ToLower(proc.name)
	if _, ok := i.unqualified[short]; !ok {
		i.unqualified[short] = proc
	}
}

// registerModuleBlock makes a Module block's name resolve like a loaded
// module, and registers proc under it too, so Helpers.AddTo reaches a Sub
// declared in Module Helpers whichever file holds it.
func (i *Interpreter) registerModuleBlock(block string, proc *procedure) {
	if block == "" {
		return
	}
	if _, ok := i.modules[strings.ToLower(block)]; !ok {
		i.modules[strings.ToLower(block)] = block
	}
	if proc == nil || strings.EqualFold(block, proc.module) {
		return
	}
	table := i.subs
	if proc.isFunction {
		table = i.functions
	}
	table[strings.ToLower(block+"."+proc.name)] = proc
}

// registerModuleProperty exposes a module-level property as a getter
// function and a "set_" procedure.
func (i *Interpreter) registerModuleProperty(d *ast.PropertyDeclaration, module string) {
	if d.IsAuto {
		i.Env.DefineGlobal(d.Name, runtime.Nothing)
		return
	}
	if d.HasGetter {
		getter := &procedure{name: d.Name, module: module, params: d.Parameters, body: d.Getter, isFunction: true, shared: true, returnType: d.Type}
		i.registerProcedure(getter)
		i.registerModuleBlock(d.Module, getter)
	}
	if d.Setter != nil {
		params := append(append([]*ast.Parameter{}, d.Parameters...), d.Setter.Parameter)
		setter := &procedure{name: "set_" + d.Name, module: module, params: params, body: d.Setter.Body, shared: true}
		i.registerProcedure(setter)
		i.registerModuleBlock(d.Module, setter)
	}
}

// registerClass returns the class to add members to. Parts of a class
// merge when either part is Partial or the parts come from different
// modules (a form and its designer file); redeclaring a class in the same
// module replaces it.
func (i *Interpreter) registerClass(name, module, namespace string, partial bool) *classInfo {
	key := strings.ToLower(name)
	if existing, ok := i.classes[key]; ok && (partial || existing.partial || existing.module != module) {
		existing.partial = existing.partial || partial
		return existing
	}
	cls := newClassInfo(name, module)
	cls.partial = partial
	i.classes[key] = cls
	if namespace != "" {
		i.classes[strings.ToLower(namespace+"."+name)] = cls
	}
	return cls
}

func (i *Interpreter) noteWithEvents(d *ast.VariableDeclaration) {
	if !d.Modifiers.WithEvents {
		return
	}
	for _, v := range d.Variables {
		i.withEvents[strings.ToLower(v.Name)] = v.Name
	}
}

func (i *Interpreter) addClassMembers(cls *classInfo, fields []*ast.VariableDeclaration, members []ast.Declaration, module, namespace string, deferred *[]ast.Declaration, classes *[]*classInfo) error {
	cls.fields = append(cls.fields, fields...)
	for _, field := range fields {
		i.noteWithEvents(field)
	}
	for _, member := range members {
		switch m := member.(type) {
		case *ast.SubDeclaration:
			cls.addMethod(&procedure{name: m.Name, module: module, class: cls, params: m.Parameters, body: m.Body, shared: m.Modifiers.Shared, handles: m.Handles})
		case *ast.FunctionDeclaration:
			cls.addMethod(&procedure{name: m.Name, module: module, class: cls, params: m.Parameters, body: m.Body, isFunction: true, shared: m.Modifiers.Shared, returnType: m.ReturnType, handles: m.Handles})
		case *ast.PropertyDeclaration:
			cls.properties[strings.ToLower(m.Name)] = m
		case *ast.EventDeclaration:
			cls.events[strings.ToLower(m.Name)] = m
		case *ast.ConstantDeclaration:
			cls.consts = append(cls.consts, m)
		case *ast.ClassDeclaration, *ast.StructureDeclaration, *ast.EnumDeclaration, *ast.InterfaceDeclaration, *ast.DelegateDeclaration:
			if err := i.registerTypes([]ast.Declaration{member}, module, namespace, deferred, classes); err != nil {
				return err
			}
		case *ast.VariableDeclaration:
			cls.fields = append(cls.fields, m)
			i.noteWithEvents(m)
		case *ast.ImportsDeclaration:
		default:
			return runtime.Errorf("unsupported class member %s in '%s'", member.NodeType(), cls.name)
		}
	}
	return nil
}

// initShared evaluates Shared fields and class constants that are not yet
// set, so a later Partial part only adds its own.
func (i *Interpreter) initShared(cls *classInfo) error {
	i.pushFrame(&frame{class: cls, module: cls.module})
	defer i.popFrame()
	for _, c := range cls.consts {
		if cls.shared.Has(c.Name) {
			continue
		}
		val, err := i.evalConstant(c.Value, c.Type)
		if err != nil {
			return err
		}
		cls.shared.Set(c.Name, val)
	}
	for _, field := range cls.fields {
		if !field.Modifiers.Shared {
			continue
		}
		for _, v := range field.Variables {
			if cls.shared.Has(v.Name) {
				continue
			}
			val, err := i.declaratorValue(v)
			if err != nil {
				return err
			}
			cls.shared.Set(v.Name, val)
		}
	}
	for _, prop := range cls.properties {
		if prop.IsAuto && prop.Modifiers.Shared && !cls.shared.Has(prop.Name) {
			val, err := i.autoPropertyValue(prop)
			if err != nil {
				return err
			}
			cls.shared.Set(prop.Name, val)
		}
	}
	return nil
}

func (i *Interpreter) registerEnum(d *ast.EnumDeclaration, namespace string) error {
	info := &enumInfo{name: d.Name, members: make(map[string]runtime.Value)}
	var next int64
	for _, member := range d.Members {
		if member.Value != nil {
			val, err := i.evalExpression(member.Value)
			if err != nil {
				return err
			}
			if next, err = runtime.AsLong(val); err != nil {
				return err
			}
		}
		key := strings.ToLower(member.Name)
		info.members[key] = integral(next)
		info.order = append(info.order, member.Name)
		next++
	}
	i.enums[strings.ToLower(d.Name)] = info
	if namespace != "" {
		i.enums[strings.ToLower(namespace+"."+d.Name)] = info
	}
	return nil
}

// integral returns an Integer when n fits in 32 bits, otherwise a Long.
func integral(n int64) runtime.Value {
	if n >= -1<<31 && n <= 1<<31-1 {
		return runtime.IntegerValue{Val: int32(n)}
	}
	return runtime.LongValue{Val: n}
}

// bindHandles turns Handles clauses into event bindings. Me and MyBase
// refer to the enclosing form, which is registered under the module name.
func (i *Interpreter) bindHandles(decls []ast.Declaration, module string) {
	bind := func(owner string, name string, handles []*ast.HandlesClause) {
		for _, h := range handles {
			control := h.Control
			switch strings.ToLower(control) {
			case "me", "mybase", "myclass":
				control = owner
			}
			i.BindHandler(control, h.Event, name)
		}
	}
	// class methods are bound by their qualified name so two forms can
	// share a handler name
	var walk func([]ast.Declaration, string, bool)
	walk = func(decls []ast.Declaration, owner string, inClass bool) {
		qualify := func(name string) string {
			if inClass {
				return owner + "." + name
			}
			return name
		}
		for _, decl := range decls {
			switch d := decl.(type) {
			case *ast.SubDeclaration:
				bind(owner, qualify(d.Name), d.Handles)
			case *ast.FunctionDeclaration:
				bind(owner, qualify(d.Name), d.Handles)
			case *ast.ClassDeclaration:
				walk(d.Members, d.Name, true)
			case *ast.NamespaceDeclaration:
				walk(d.Declarations, owner, inClass)
			}
		}
	}
	walk(decls, module, false)
}

// lookupProcedure resolves a Sub or Function by bare or module-qualified
// name. Bare names prefer the current module.
func (i *Interpreter) lookupProcedure(name string) *procedure {
	key := strings.ToLower(name)
	if strings.Contains(key, ".") {
		if proc, ok := i.functions[key]; ok {
			return proc
		}
		if proc, ok := i.subs[key]; ok {
			return proc
		}
		// a namespace prefix in front of module.name
		parts := strings.Split(key, ".")
		if len(parts) > 2 {
			return i.lookupProcedure(strings.Join(parts[len(parts)-2:], "."))
		}
		return nil
	}
	if module := i.frame().module; module != "" {
		local := strings.ToLower(module) + "." + key
		if proc, ok := i.functions[local]; ok {
			return proc
		}
		if proc, ok := i.subs[local]; ok {
			return proc
		}
	}
	return i.unqualified[key]
}

// splitClassMember splits "Class.Member" when Class is a registered class.
func (i *Interpreter) splitClassMember(name string) (*classInfo, string) {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 {
		return nil, ""
	}
	cls := i.lookupClass(name[:idx])
	if cls == nil {
		return nil, ""
	}
	return cls, name[idx+1:]
}

func (i *Interpreter) callOnDefaultInstance(cls *classInfo, method string, args []runtime.Value) (runtime.Value, error) {
	if proc := i.findMethod(cls, method, len(args)); proc != nil && proc.shared {
		val, err := i.invokeValues(proc, args, nil)
		return val, hostError(runtime.AsError(err))
	}
	obj, err := i.defaultInstance(cls)
	if err != nil {
		return nil, err
	}
	val, err := i.callMethod(obj, method, args, nil)
	return val, hostError(runtime.AsError(err))
}

// callHandler runs one event handler. Handlers added with AddHandler for
// lambdas and instance methods are stored as delegates under a synthetic
// name.
func (i *Interpreter) callHandler(handler string, args []runtime.Value) (runtime.Value, error) {
	if delegate, ok := i.handlerDelegates[handler]; ok {
		val, err := i.invokeLambda(delegate, args)
		return val, hostError(runtime.AsError(err))
	}
	return i.CallEventHandler(handler, args)
}

// handlerName returns the event-table name for a delegate, registering it
// when it is not a plain procedure reference.
func (i *Interpreter) handlerName(delegate *runtime.LambdaValue) string {
	if delegate.Procedure != "" && delegate.Receiver == nil {
		return delegate.Procedure
	}
	var name string
	if delegate.Procedure != "" {
		name = fmt.Sprintf("%s@%p", delegate.Procedure, delegate.Receiver)
	} else {
		name = fmt.Sprintf("lambda@%p", delegate)
	}
	i.handlerDelegates[name] = delegate
	return name
}

func (i *Interpreter) registerBuiltinConstants() {
	str := func(s string) runtime.Value { return runtime.StringValue{Val: s} }
	num := func(n int32) runtime.Value { return runtime.IntegerValue{Val: n} }
	consts := map[string]runtime.Value{
		"vbCrLf":       str("\r\n"),
		"vbNewLine":    str("\r\n"),
		"vbCr":         str("\r"),
		"vbLf":         str("\n"),
		"vbTab":        str("\t"),
		"vbBack":       str("\b"),
		"vbNullString": str(""),
		"vbNullChar":   str("\x00"),

		"vbBinaryCompare": num(0),
		"vbTextCompare":   num(1),

		"vbOKOnly":           num(0),
		"vbOKCancel":         num(1),
		"vbAbortRetryIgnore": num(2),
		"vbYesNoCancel":      num(3),
		"vbYesNo":            num(4),
		"vbRetryCancel":      num(5),
		"vbCritical":         num(16),
		"vbQuestion":         num(32),
		"vbExclamation":      num(48),
		"vbInformation":      num(64),
		"vbOK":               num(1),
		"vbCancel":           num(2),
		"vbAbort":            num(3),
		"vbRetry":            num(4),
		"vbIgnore":           num(5),
		"vbYes":              num(6),
		"vbNo":               num(7),

		"vbUpperCase":  num(1),
		"vbLowerCase":  num(2),
		"vbProperCase": num(3),

		"vbUseSystemDayOfWeek": num(0),
		"vbSunday":             num(1),
		"vbMonday":             num(2),
		"vbTuesday":            num(3),
		"vbWednesday":          num(4),
		"vbThursday":           num(5),
		"vbFriday":             num(6),
		"vbSaturday":           num(7),

		"vbGeneralDate": num(0),
		"vbLongDate":    num(1),
		"vbShortDate":   num(2),
		"vbLongTime":    num(3),
		"vbShortTime":   num(4),

		"vbEmpty":   num(0),
		"vbNull":    num(1),
		"vbInteger": num(2),
		"vbLong":    num(3),
		"vbSingle":  num(4),
		"vbDouble":  num(5),
		"vbDate":    num(7),
		"vbString":  num(8),
		"vbObject":  num(9),
		"vbBoolean": num(11),
		"vbByte":    num(17),
		"vbArray":   num(8192),

		"vbObjectError": num(-2147221504),
	}
	for name, val := range consts {
		i.Env.DefineConst(name, val)
	}
}

func (i *Interpreter) initNamespaces() {
	for _, name := range []string{"System", "Console", "Math"} {
		i.Env.DefineGlobal(name, namespaceObject(strings.ToLower(name)))
	}
	my := i.myObject()
	my.Set("Resources", runtime.NewObject("My.Resources"))
	my.Set("Computer", namespaceObject("my.computer"))
	my.Set("Application", namespaceObject("application"))

	i.errObject = runtime.NewObject("ErrObject")
	i.resetErr()
	i.Env.DefineGlobal("Err", i.errObject)
}

func (i *Interpreter) resetErr() {
	i.errObject.Set("Number", runtime.IntegerValue{})
	i.errObject.Set("Description", runtime.StringValue{})
	i.errObject.Set("Source", runtime.StringValue{})
}

// recordErr mirrors a trapped error into the Err object.
func (i *Interpreter) recordErr(err *runtime.Error) {
	i.errObject.Set("Number", runtime.IntegerValue{Val: err.ErrNumber()})
	i.errObject.Set("Description", runtime.StringValue{Val: err.Description()})
	source := i.frame().module
	if proc := i.frame().proc; proc != nil {
		source = proc.name
	}
	i.errObject.Set("Source", runtime.StringValue{Val: source})
}
