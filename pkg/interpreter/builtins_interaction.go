package interpreter

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/xyproto/env/v2"

	"vybe/interpreter-go/pkg/runtime"
)

var startTime = time.Now()

func init() {
	table := map[string]builtinFunc{
		"console.write":     consoleWrite("Console.Write", ""),
		"console.writeline": consoleWrite("Console.WriteLine", "\n"),
		"console.readline":  builtinReadLine,
		"console.read":      builtinConsoleRead,
		"console.readkey":   builtinConsoleRead,
		"console.clear":     builtinConsoleClear,
		"console.beep":      constant(runtime.Nothing),
		"beep":              constant(runtime.Nothing),
		"debug.print":       debugWrite("Debug.Print"),
		"debug.write":       debugWrite("Debug.Write"),
		"debug.writeline":   debugWrite("Debug.WriteLine"),
		"debug.assert":      builtinDebugAssert,
		"trace.writeline":   debugWrite("Trace.WriteLine"),
		"msgbox":            builtinMsgBox,
		"messagebox.show":   builtinMsgBox,
		"inputbox":          builtinInputBox,
		"application.run":   builtinApplicationRun,
		"application.exit":  builtinExit,
		"environment.exit":  builtinExit,

		"application.doevents":                          constant(runtime.Nothing),
		"application.enablevisualstyles":                constant(runtime.Nothing),
		"application.setcompatibletextrenderingdefault": constant(runtime.Nothing),

		"application.startuppath":            builtinCurrentDirectory,
		"environment.currentdirectory":       builtinCurrentDirectory,
		"curdir":                             builtinCurrentDirectory,
		"environment.newline":                constant(str("\r\n")),
		"environment.tickcount":              builtinTickCount,
		"environment.machinename":            builtinMachineName,
		"environment.username":               builtinUserName,
		"environment.processorcount":         builtinProcessorCount,
		"environment.getenvironmentvariable": builtinEnviron,
		"environ":                            builtinEnviron,
		"environment.getcommandlineargs":     builtinCommandLineArgs,
		"command":                            builtinCommand,
		"thread.sleep":                       constant(runtime.Nothing),
		"task.delay":                         constant(runtime.Nothing),
		"color.fromargb":                     builtinFromArgb,
		"color.fromname":                     builtinColorFromName,
	}
	for name, val := range dialogConstants {
		table[name] = constant(runtime.IntegerValue{Val: val})
	}
	for name, rgb := range namedColors {
		table["color."+name] = constant(colorValue(colorNames[name], 255, rgb[0], rgb[1], rgb[2]))
	}
	registerBuiltins(table)
}

var dialogConstants = map[string]int32{
	"dialogresult.none":   0,
	"dialogresult.ok":     1,
	"dialogresult.cancel": 2,
	"dialogresult.abort":  3,
	"dialogresult.retry":  4,
	"dialogresult.ignore": 5,
	"dialogresult.yes":    6,
	"dialogresult.no":     7,

	"msgboxresult.ok":     1,
	"msgboxresult.cancel": 2,
	"msgboxresult.abort":  3,
	"msgboxresult.retry":  4,
	"msgboxresult.ignore": 5,
	"msgboxresult.yes":    6,
	"msgboxresult.no":     7,

	"messageboxbuttons.ok":               0,
	"messageboxbuttons.okcancel":         1,
	"messageboxbuttons.abortretryignore": 2,
	"messageboxbuttons.yesnocancel":      3,
	"messageboxbuttons.yesno":            4,
	"messageboxbuttons.retrycancel":      5,

	"messageboxicon.none":        0,
	"messageboxicon.error":       16,
	"messageboxicon.hand":        16,
	"messageboxicon.stop":        16,
	"messageboxicon.question":    32,
	"messageboxicon.exclamation": 48,
	"messageboxicon.warning":     48,
	"messageboxicon.information": 64,
	"messageboxicon.asterisk":    64,

	"msgboxstyle.okonly":           0,
	"msgboxstyle.okcancel":         1,
	"msgboxstyle.abortretryignore": 2,
	"msgboxstyle.yesnocancel":      3,
	"msgboxstyle.yesno":            4,
	"msgboxstyle.retrycancel":      5,
	"msgboxstyle.critical":         16,
	"msgboxstyle.question":         32,
	"msgboxstyle.exclamation":      48,
	"msgboxstyle.information":      64,

	"keys.enter":  13,
	"keys.escape": 27,
	"keys.space":  32,
	"keys.tab":    9,
	"keys.back":   8,
	"keys.delete": 46,
	"keys.up":     38,
	"keys.down":   40,
	"keys.left":   37,
	"keys.right":  39,
}

var namedColors = map[string][3]uint8{
	"black":       {0, 0, 0},
	"white":       {255, 255, 255},
	"red":         {255, 0, 0},
	"green":       {0, 128, 0},
	"blue":        {0, 0, 255},
	"yellow":      {255, 255, 0},
	"orange":      {255, 165, 0},
	"purple":      {128, 0, 128},
	"gray":        {128, 128, 128},
	"lightgray":   {211, 211, 211},
	"darkgray":    {169, 169, 169},
	"lightblue":   {173, 216, 230},
	"lightgreen":  {144, 238, 144},
	"darkblue":    {0, 0, 139},
	"darkgreen":   {0, 100, 0},
	"darkred":     {139, 0, 0},
	"pink":        {255, 192, 203},
	"brown":       {165, 42, 42},
	"cyan":        {0, 255, 255},
	"magenta":     {255, 0, 255},
	"navy":        {0, 0, 128},
	"silver":      {192, 192, 192},
	"gold":        {255, 215, 0},
	"transparent": {255, 255, 255},
	"control":     {240, 240, 240},
	"window":      {255, 255, 255},
	"windowtext":  {0, 0, 0},
	"controltext": {0, 0, 0},
}

var colorNames = func() map[string]string {
	out := make(map[string]string)
	for _, name := range []string{"Black", "White", "Red", "Green", "Blue", "Yellow", "Orange", "Purple", "Gray", "LightGray", "DarkGray", "LightBlue", "LightGreen", "DarkBlue", "DarkGreen", "DarkRed", "Pink", "Brown", "Cyan", "Magenta", "Navy", "Silver", "Gold", "Transparent", "Control", "Window", "WindowText", "ControlText"} {
		out[strings.ToLower(name)] = name
	}
	return out
}()

// colorValue is a System.Drawing.Color. Named colors keep their name.
func colorValue(name string, a, r, g, b uint8) *runtime.ObjectValue {
	obj := runtime.NewObject("Color")
	obj.IsStruct = true
	obj.Set("Name", str(name))
	obj.Set("A", runtime.ByteValue{Val: a})
	obj.Set("R", runtime.ByteValue{Val: r})
	obj.Set("G", runtime.ByteValue{Val: g})
	obj.Set("B", runtime.ByteValue{Val: b})
	obj.Set("IsNamedColor", boolean(name != ""))
	return obj
}

func builtinFromArgb(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Color.FromArgb", args, 3, 4); err != nil {
		return nil, err
	}
	parts := []uint8{255, 0, 0, 0}
	offset := 1
	if len(args) == 4 {
		offset = 0
	}
	for idx, arg := range args {
		n, err := roundedInteger(arg)
		if err != nil {
			return nil, err
		}
		if n < 0 || n > 255 {
			return nil, runtime.Exception("ArgumentException", "Value of '"+displayString(arg)+"' is not valid for 'red', 'green' or 'blue'.")
		}
		parts[idx+offset] = uint8(n)
	}
	return colorValue("", parts[0], parts[1], parts[2], parts[3]), nil
}

func builtinColorFromName(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Color.FromName", args, 1, 1); err != nil {
		return nil, err
	}
	key := strings.ToLower(argString(args, 0))
	rgb, ok := namedColors[key]
	if !ok {
		return colorValue(argString(args, 0), 0, 0, 0, 0), nil
	}
	return colorValue(colorNames[key], 255, rgb[0], rgb[1], rgb[2]), nil
}

// consoleText renders Console.Write arguments: a composite format when
// the first argument has placeholders, otherwise the single value.
func consoleText(args []runtime.Value) (string, error) {
	if len(args) == 0 {
		return "", nil
	}
	if len(args) > 1 {
		if format, ok := args[0].(runtime.StringValue); ok && strings.Contains(format.Val, "{") {
			return compositeFormat(format.Val, args[1:])
		}
		parts := make([]string, len(args))
		for idx, arg := range args {
			parts[idx] = displayString(arg)
		}
		return strings.Join(parts, ""), nil
	}
	if arr, ok := args[0].(*runtime.ArrayValue); ok {
		if chars, ok := charArrayString(arr); ok {
			return chars, nil
		}
	}
	return displayString(args[0]), nil
}

func consoleWrite(name, suffix string) builtinFunc {
	return func(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
		text, err := consoleText(args)
		if err != nil {
			return nil, err
		}
		i.SideEffects.Push(runtime.ConsoleOutput{Text: text + suffix})
		return runtime.Nothing, nil
	}
}

// readLine reads one line of host input without its terminator. ok is
// false at end of input.
func (i *Interpreter) readLine() (string, bool) {
	if i.input == nil {
		return "", false
	}
	line, err := i.input.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", false
	}
	return strings.TrimRight(line, "\r\n"), true
}

func builtinReadLine(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Console.ReadLine", args, 0, 0); err != nil {
		return nil, err
	}
	if i.input == nil {
		return str(""), nil
	}
	line, ok := i.readLine()
	if !ok {
		return runtime.Nothing, nil
	}
	return str(line), nil
}

func builtinConsoleRead(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if i.input == nil {
		return runtime.IntegerValue{Val: -1}, nil
	}
	r, _, err := i.input.ReadRune()
	if err != nil {
		return runtime.IntegerValue{Val: -1}, nil
	}
	return runtime.IntegerValue{Val: int32(r)}, nil
}

func builtinConsoleClear(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Console.Clear", args, 0, 0); err != nil {
		return nil, err
	}
	i.SideEffects.Push(runtime.ConsoleClear{})
	return runtime.Nothing, nil
}

// debugWrite routes Debug and Trace output to the interpreter's logger.
func debugWrite(name string) builtinFunc {
	return func(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
		text, err := consoleText(args)
		if err != nil {
			return nil, err
		}
		i.logger.Debug(strings.ToLower(name), "text", text)
		return runtime.Nothing, nil
	}
}

func builtinDebugAssert(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Debug.Assert", args, 1, 2); err != nil {
		return nil, err
	}
	ok, err := argBool(args, 0)
	if err != nil {
		return nil, err
	}
	if !ok {
		i.logger.Warn("assertion failed", "message", argString(args, 1))
	}
	return runtime.Nothing, nil
}

// builtinMsgBox records a message box and answers as if OK (or Yes) was
// pressed.
func builtinMsgBox(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("MsgBox", args, 1, 4); err != nil {
		return nil, err
	}
	i.SideEffects.Push(runtime.MsgBox{Text: argString(args, 0)})
	for _, arg := range args[1:] {
		if !runtime.IsNumeric(arg) {
			continue
		}
		// the first numeric argument carries the buttons
		if n, err := roundedInteger(arg); err == nil && (n&7 == 3 || n&7 == 4) {
			return runtime.IntegerValue{Val: 6}, nil
		}
		break
	}
	return runtime.IntegerValue{Val: 1}, nil
}

// builtinInputBox records the prompt and answers with the next input line,
// or the default when there is no input.
func builtinInputBox(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("InputBox", args, 1, 5); err != nil {
		return nil, err
	}
	x, err := optInt(args, 3, -1)
	if err != nil {
		return nil, err
	}
	y, err := optInt(args, 4, -1)
	if err != nil {
		return nil, err
	}
	box := runtime.InputBox{
		Prompt:  argString(args, 0),
		Title:   argString(args, 1),
		Default: argString(args, 2),
		X:       x,
		Y:       y,
	}
	i.SideEffects.Push(box)
	if line, ok := i.readLine(); ok {
		return str(line), nil
	}
	return str(box.Default), nil
}

// formName names the form an Application.Run or Show call refers to.
func formName(v runtime.Value) string {
	obj, ok := v.(*runtime.ObjectValue)
	if !ok {
		return displayString(v)
	}
	if path, ok := namespacePath(v); ok {
		return path
	}
	if name := displayString(obj.Get("Name")); name != "" {
		return name
	}
	return obj.ClassName
}

func builtinApplicationRun(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Application.Run", args, 0, 1); err != nil {
		return nil, err
	}
	name := ""
	if len(args) == 1 {
		if obj, ok := args[0].(*runtime.ObjectValue); ok {
			name = obj.ClassName
		} else {
			name = displayString(args[0])
		}
	}
	i.SideEffects.Push(runtime.RunApplication{FormName: name})
	return runtime.Nothing, nil
}

func builtinExit(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
	i.logger.Debug("program exit requested")
	return nil, errEndProgram
}

func builtinCurrentDirectory(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, runtime.Exception("IOException", err.Error())
	}
	return str(dir), nil
}

func builtinTickCount(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	return runtime.IntegerValue{Val: int32(time.Since(startTime).Milliseconds())}, nil
}

func builtinMachineName(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	host, err := os.Hostname()
	if err != nil {
		return str(""), nil
	}
	return str(host), nil
}

func builtinUserName(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	return str(env.Str("USER", env.Str("USERNAME"))), nil
}

func builtinProcessorCount(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	return runtime.IntegerValue{Val: 1}, nil
}

func builtinEnviron(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Environ", args, 1, 1); err != nil {
		return nil, err
	}
	name := argString(args, 0)
	if !env.Has(name) {
		if runtime.IsNumeric(args[0]) {
			return str(""), nil
		}
		return runtime.Nothing, nil
	}
	return str(env.Str(name)), nil
}

func builtinCommandLineArgs(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
	parts := append([]string{"vybe"}, i.args...)
	return stringsToArray(parts), nil
}

func builtinCommand(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
	return str(strings.Join(i.args, " ")), nil
}
