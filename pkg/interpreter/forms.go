package interpreter

import (
	"strings"

	"vybe/interpreter-go/pkg/runtime"
)

// uiObject marks forms and controls. Their property assignments become
// PropertyChange side effects for the host's UI layer.
type uiObject struct {
	form bool
	// dataSource is the BindingSource a control is bound to, if any.
	dataSource *runtime.ObjectValue
}

type controlDefaults struct {
	width, height int32
}

var controlSizes = map[string]controlDefaults{
	"form":           {300, 300},
	"button":         {75, 23},
	"label":          {100, 23},
	"textbox":        {100, 20},
	"richtextbox":    {100, 96},
	"checkbox":       {104, 24},
	"radiobutton":    {104, 24},
	"combobox":       {121, 21},
	"listbox":        {120, 95},
	"panel":          {200, 100},
	"groupbox":       {200, 100},
	"picturebox":     {100, 50},
	"datagridview":   {240, 150},
	"progressbar":    {100, 23},
	"numericupdown":  {120, 20},
	"datetimepicker": {200, 20},
	"trackbar":       {104, 45},
}

// initControlFields gives a control the properties WinForms code reads
// before ever setting them.
func initControlFields(obj *runtime.ObjectValue, typeName string) {
	key := typeKey(typeName)
	size, ok := controlSizes[key]
	if !ok {
		size = controlDefaults{100, 23}
	}
	defaults := map[string]runtime.Value{
		"Name":      runtime.StringValue{},
		"Text":      runtime.StringValue{},
		"Left":      runtime.IntegerValue{},
		"Top":       runtime.IntegerValue{},
		"Width":     runtime.IntegerValue{Val: size.width},
		"Height":    runtime.IntegerValue{Val: size.height},
		"Visible":   runtime.BoolValue{Val: true},
		"Enabled":   runtime.BoolValue{Val: true},
		"TabIndex":  runtime.IntegerValue{},
		"Tag":       runtime.Nothing,
		"BackColor": colorValue("Control", 255, 240, 240, 240),
		"ForeColor": colorValue("ControlText", 255, 0, 0, 0),
	}
	switch key {
	case "checkbox", "radiobutton":
		defaults["Checked"] = runtime.BoolValue{}
		defaults["CheckState"] = runtime.IntegerValue{}
	case "textbox", "richtextbox":
		defaults["ReadOnly"] = runtime.BoolValue{}
		defaults["Multiline"] = runtime.BoolValue{Val: key == "richtextbox"}
		defaults["MaxLength"] = runtime.IntegerValue{Val: 32767}
		defaults["PasswordChar"] = runtime.CharValue{}
	case "listbox", "combobox", "checkedlistbox":
		defaults["Items"] = runtime.NewList("ObjectCollection")
		defaults["SelectedIndex"] = runtime.IntegerValue{Val: -1}
		defaults["SelectedItem"] = runtime.Nothing
		defaults["DataSource"] = runtime.Nothing
		defaults["DisplayMember"] = runtime.StringValue{}
		defaults["ValueMember"] = runtime.StringValue{}
	case "progressbar", "trackbar", "numericupdown":
		defaults["Value"] = runtime.IntegerValue{}
		defaults["Minimum"] = runtime.IntegerValue{}
		defaults["Maximum"] = runtime.IntegerValue{Val: 100}
	case "timer":
		defaults["Enabled"] = runtime.BoolValue{}
		defaults["Interval"] = runtime.IntegerValue{Val: 100}
	case "datagridview":
		defaults["DataSource"] = runtime.Nothing
		defaults["ReadOnly"] = runtime.BoolValue{}
	case "picturebox":
		defaults["Image"] = runtime.Nothing
		defaults["SizeMode"] = runtime.IntegerValue{}
	}
	for name, val := range defaults {
		if !obj.Has(name) {
			obj.Set(name, val)
		}
	}
}

// initFormFields sets up a Form instance: control defaults, its own name
// and caption, and an empty Controls collection.
func (i *Interpreter) initFormFields(obj *runtime.ObjectValue) {
	if _, ok := obj.Native.(*uiObject); !ok {
		obj.Native = &uiObject{form: true}
	}
	initControlFields(obj, "Form")
	if name, _ := obj.Get("Name").(runtime.StringValue); name.Val == "" {
		obj.Set("Name", runtime.StringValue{Val: obj.ClassName})
	}
	if text, _ := obj.Get("Text").(runtime.StringValue); text.Val == "" {
		obj.Set("Text", runtime.StringValue{Val: obj.ClassName})
	}
	obj.Set("Visible", runtime.BoolValue{})
	obj.Set("DialogResult", runtime.IntegerValue{})
	if !obj.Has("Controls") {
		obj.Set("Controls", newControlCollection(obj))
	}
}

// newControl builds an instance of a builtin control class.
func newControl(typeName string) *runtime.ObjectValue {
	obj := runtime.NewObject(typeName)
	obj.Native = &uiObject{}
	initControlFields(obj, typeName)
	switch typeKey(typeName) {
	case "panel", "groupbox", "usercontrol", "tabpage", "flowlayoutpanel", "tablelayoutpanel":
		obj.Set("Controls", newControlCollection(obj))
	}
	return obj
}

func isControlType(name string) bool {
	key := typeKey(name)
	if _, ok := controlSizes[key]; ok {
		return key != "form"
	}
	switch key {
	case "timer", "control", "usercontrol", "checkedlistbox", "tabcontrol", "tabpage", "menustrip",
		"statusstrip", "toolstrip", "linklabel", "maskedtextbox", "flowlayoutpanel", "tablelayoutpanel",
		"splitcontainer", "webbrowser", "treeview", "listview":
		return true
	}
	return false
}

func intField(obj *runtime.ObjectValue, name string) int {
	n, err := runtime.AsInteger(obj.Get(name))
	if err != nil {
		return 0
	}
	return int(n)
}

// controlCollection is the native side of Form.Controls and container
// Controls properties.
type controlCollection struct {
	owner    *runtime.ObjectValue
	controls []*runtime.ObjectValue
}

func newControlCollection(owner *runtime.ObjectValue) *runtime.ObjectValue {
	obj := runtime.NewObject("ControlCollection")
	obj.Native = &controlCollection{owner: owner}
	return obj
}

func (c *controlCollection) items() []runtime.Value {
	out := make([]runtime.Value, len(c.controls))
	for idx, ctrl := range c.controls {
		out[idx] = ctrl
	}
	return out
}

func (c *controlCollection) find(name string) (int, *runtime.ObjectValue) {
	for idx, ctrl := range c.controls {
		if strings.EqualFold(displayString(ctrl.Get("Name")), name) {
			return idx, ctrl
		}
	}
	return -1, nil
}

func (c *controlCollection) index(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if s, ok := args[0].(runtime.StringValue); ok {
		if _, ctrl := c.find(s.Val); ctrl != nil {
			return ctrl, nil
		}
		return runtime.Nothing, nil
	}
	idx, err := roundedInteger(args[0])
	if err != nil {
		return nil, err
	}
	if idx < 0 || int(idx) >= len(c.controls) {
		return nil, runtime.IndexOutOfRange(int(idx), len(c.controls))
	}
	return c.controls[idx], nil
}

func (c *controlCollection) setIndex(*Interpreter, []runtime.Value, runtime.Value) error {
	return runtime.Exception("NotSupportedException", "Collection is read-only.")
}

// add appends ctrl and asks the host to create it on the owning form.
func (c *controlCollection) add(i *Interpreter, v runtime.Value) error {
	ctrl, ok := v.(*runtime.ObjectValue)
	if !ok {
		return runtime.TypeMismatch("Control", runtime.TypeName(v))
	}
	if _, ok := ctrl.Native.(*uiObject); !ok {
		return runtime.TypeMismatch("Control", ctrl.ClassName)
	}
	c.controls = append(c.controls, ctrl)
	name := displayString(ctrl.Get("Name"))
	i.SideEffects.Push(runtime.AddControl{
		FormName:    formName(c.owner),
		ControlName: name,
		ControlType: ctrl.ClassName,
		Left:        intField(ctrl, "Left"),
		Top:         intField(ctrl, "Top"),
		Width:       intField(ctrl, "Width"),
		Height:      intField(ctrl, "Height"),
	})
	if name != "" && !c.owner.Has(name) {
		c.owner.Set(name, ctrl)
	}
	return nil
}

func (c *controlCollection) callMethod(i *Interpreter, _ *runtime.ObjectValue, name string, args []runtime.Value) (runtime.Value, bool, error) {
	switch strings.ToLower(name) {
	case "add":
		if err := arity("Controls.Add", args, 1, 1); err != nil {
			return nil, true, err
		}
		return runtime.Nothing, true, c.add(i, args[0])
	case "addrange":
		items, err := i.iterate(args[0])
		if err != nil {
			return nil, true, err
		}
		for _, item := range items {
			if err := c.add(i, item); err != nil {
				return nil, true, err
			}
		}
		return runtime.Nothing, true, nil
	case "remove":
		if err := arity("Controls.Remove", args, 1, 1); err != nil {
			return nil, true, err
		}
		for idx, ctrl := range c.controls {
			if runtime.Value(ctrl) == args[0] {
				c.controls = append(c.controls[:idx], c.controls[idx+1:]...)
				break
			}
		}
		return runtime.Nothing, true, nil
	case "removeat":
		idx, err := argInt(args, 0)
		if err != nil {
			return nil, true, err
		}
		if idx < 0 || idx >= len(c.controls) {
			return nil, true, runtime.IndexOutOfRange(idx, len(c.controls))
		}
		c.controls = append(c.controls[:idx], c.controls[idx+1:]...)
		return runtime.Nothing, true, nil
	case "clear":
		c.controls = nil
		return runtime.Nothing, true, nil
	case "count":
		return runtime.IntegerValue{Val: int32(len(c.controls))}, true, nil
	case "contains":
		for _, ctrl := range c.controls {
			if len(args) == 1 && runtime.Value(ctrl) == args[0] {
				return boolean(true), true, nil
			}
		}
		return boolean(false), true, nil
	case "containskey":
		_, ctrl := c.find(argString(args, 0))
		return boolean(ctrl != nil), true, nil
	case "indexof":
		for idx, ctrl := range c.controls {
			if len(args) == 1 && runtime.Value(ctrl) == args[0] {
				return runtime.IntegerValue{Val: int32(idx)}, true, nil
			}
		}
		return runtime.IntegerValue{Val: -1}, true, nil
	case "item":
		val, err := c.index(i, args)
		return val, true, err
	case "find":
		var out []runtime.Value
		for _, ctrl := range c.controls {
			if strings.EqualFold(displayString(ctrl.Get("Name")), argString(args, 0)) {
				out = append(out, ctrl)
			}
		}
		return runtime.NewArray(out), true, nil
	}
	return i.sequenceMethod(c.items(), name, args)
}

// declaresField reports whether obj's class declares name as a plain
// field, which is program state rather than a UI property.
func (i *Interpreter) declaresField(obj *runtime.ObjectValue, name string) bool {
	for cls, depth := i.lookupClass(obj.ClassName), 0; cls != nil && depth < maxClassDepth; cls, depth = i.parentOf(cls), depth+1 {
		for _, field := range cls.fields {
			for _, v := range field.Variables {
				if strings.EqualFold(v.Name, name) {
					return true
				}
			}
		}
	}
	return false
}

// notifyPropertyChange records a UI property assignment. Binding a
// control's DataSource also publishes the bound rows.
func (i *Interpreter) notifyPropertyChange(obj *runtime.ObjectValue, name string, v runtime.Value) {
	ui, ok := obj.Native.(*uiObject)
	if !ok || i.declaresField(obj, name) {
		return
	}
	owner := formName(obj)
	i.SideEffects.Push(runtime.PropertyChange{Object: owner, Property: name, Value: v})
	if strings.EqualFold(name, "DataSource") {
		ui.dataSource = nil
		source := v
		if bs, ok := bindingSourceOf(v); ok {
			ui.dataSource = v.(*runtime.ObjectValue)
			bs.bind(owner)
			source = bs.source
		}
		if cols, rows, ok := i.tabulate(source); ok {
			i.SideEffects.Push(runtime.DataSourceChanged{ControlName: owner, Columns: cols, Rows: rows})
		}
	}
}

// setVisible updates Visible and reports it like an assignment.
func (i *Interpreter) setVisible(obj *runtime.ObjectValue, visible bool) {
	obj.Set("Visible", runtime.BoolValue{Val: visible})
	i.SideEffects.Push(runtime.PropertyChange{Object: formName(obj), Property: "Visible", Value: runtime.BoolValue{Val: visible}})
}

// callUIMethod implements the Form and Control methods programs call on
// builtin UI objects and on classes inheriting from them.
func (i *Interpreter) callUIMethod(obj *runtime.ObjectValue, name string, args []runtime.Value) (runtime.Value, bool, error) {
	ui := obj.Native.(*uiObject)
	switch strings.ToLower(name) {
	case "show":
		i.setVisible(obj, true)
		return runtime.Nothing, true, nil
	case "hide":
		i.setVisible(obj, false)
		return runtime.Nothing, true, nil
	case "close":
		if !ui.form {
			return nil, false, nil
		}
		obj.Set("Visible", runtime.BoolValue{})
		i.SideEffects.Push(runtime.FormClose{FormName: formName(obj)})
		return runtime.Nothing, true, nil
	case "showdialog":
		if !ui.form {
			return nil, false, nil
		}
		i.SideEffects.Push(runtime.FormShowDialog{FormName: formName(obj)})
		return obj.Get("DialogResult"), true, nil
	case "move", "setbounds":
		for idx, prop := range []string{"Left", "Top", "Width", "Height"} {
			if idx < len(args) {
				obj.Set(prop, args[idx])
				i.notifyPropertyChange(obj, prop, args[idx])
			}
		}
		return runtime.Nothing, true, nil
	case "performclick":
		return runtime.Nothing, true, i.DispatchEvent(formName(obj), "Click", []runtime.Value{obj, eventArgs()})
	case "appendtext":
		text := displayString(obj.Get("Text")) + argString(args, 0)
		obj.Set("Text", str(text))
		i.notifyPropertyChange(obj, "Text", str(text))
		return runtime.Nothing, true, nil
	case "clear":
		obj.Set("Text", str(""))
		i.notifyPropertyChange(obj, "Text", str(""))
		return runtime.Nothing, true, nil
	case "start":
		obj.Set("Enabled", boolean(true))
		i.notifyPropertyChange(obj, "Enabled", boolean(true))
		return runtime.Nothing, true, nil
	case "stop":
		obj.Set("Enabled", boolean(false))
		i.notifyPropertyChange(obj, "Enabled", boolean(false))
		return runtime.Nothing, true, nil
	case "focus", "select":
		return boolean(true), true, nil
	case "activate", "bringtofront", "sendtoback", "refresh", "invalidate", "update",
		"suspendlayout", "resumelayout", "performlayout", "selectall", "center", "centertoscreen":
		return runtime.Nothing, true, nil
	case "tostring":
		return str(obj.ClassName + ", Text: " + displayString(obj.Get("Text"))), true, nil
	}
	return nil, false, nil
}

// eventArgs is the EventArgs value passed to handlers raised by the
// interpreter itself.
func eventArgs() *runtime.ObjectValue {
	return runtime.NewObject("EventArgs")
}
