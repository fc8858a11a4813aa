package parser_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"vybe/interpreter-go/pkg/ast"
	"vybe/interpreter-go/pkg/parser"
)

func toJSON(t *testing.T, v interface{}) string {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

func assertNode(t *testing.T, want, got interface{}) {
	t.Helper()
	if diff := cmp.Diff(toJSON(t, want), toJSON(t, got)); diff != "" {
		t.Fatalf("node mismatch (-want +got):\n%s", diff)
	}
}

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	program, err := parser.ParseProgram(src)
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	return program
}

func TestParseEmptySub(t *testing.T) {
	program := mustParse(t, "Sub Foo()\nEnd Sub")
	if len(program.Declarations) != 1 {
		t.Fatalf("expected 1 declaration, got %d", len(program.Declarations))
	}
	sub, ok := program.Declarations[0].(*ast.SubDeclaration)
	if !ok {
		t.Fatalf("expected SubDeclaration, got %T", program.Declarations[0])
	}
	if sub.Name != "Foo" {
		t.Fatalf("expected sub named Foo, got %q", sub.Name)
	}
	if len(sub.Body) != 0 || len(program.Statements) != 0 {
		t.Fatalf("expected empty body and no statements, got %#v", program)
	}
}

func TestParseToleratesBlankLinesAndTrailingComments(t *testing.T) {
	src := "\ufeff\n\n   \n\t\nSub Foo()\n\n    \n  x = 1\n\n\nEnd Sub ' trailing comment\n\n\nFunction Bar() As Integer\n  Return 2\nEnd   Function ' done\n\n"
	program := mustParse(t, src)
	if len(program.Declarations) != 2 {
		t.Fatalf("expected 2 declarations, got %d", len(program.Declarations))
	}
	sub := program.Declarations[0].(*ast.SubDeclaration)
	if len(sub.Body) != 1 {
		t.Fatalf("expected one statement in Foo, got %d", len(sub.Body))
	}
	fn, ok := program.Declarations[1].(*ast.FunctionDeclaration)
	if !ok || fn.Name != "Bar" || fn.ReturnType.Name != "Integer" {
		t.Fatalf("unexpected function declaration %#v", program.Declarations[1])
	}
}

func TestParseEscapedIdentifier(t *testing.T) {
	program := mustParse(t, "Dim [Stop] = 1\n[Stop] = [Stop] + 1")
	want := []ast.Statement{
		ast.Dim("Stop", nil, ast.Int(1)),
		ast.Assign(ast.ID("Stop"), ast.Bin(ast.OpAdd, ast.ID("Stop"), ast.Int(1))),
	}
	assertNode(t, want, program.Statements)
}

func TestParseExpressionPrecedence(t *testing.T) {
	cases := []struct {
		src  string
		want ast.Expression
	}{
		{"1 + 2 * 3", ast.Bin(ast.OpAdd, ast.Int(1), ast.Bin(ast.OpMultiply, ast.Int(2), ast.Int(3)))},
		{"2 ^ 3 ^ 2", ast.Bin(ast.OpPower, ast.Int(2), ast.Bin(ast.OpPower, ast.Int(3), ast.Int(2)))},
		{"-2 ^ 2", ast.Neg(ast.Bin(ast.OpPower, ast.Int(2), ast.Int(2)))},
		{"a Or b And c", ast.Bin(ast.OpOr, ast.ID("a"), ast.Bin(ast.OpAnd, ast.ID("b"), ast.ID("c")))},
		{"Not a = b", ast.Not(ast.Bin(ast.OpEqual, ast.ID("a"), ast.ID("b")))},
		{"a & b + c", ast.Bin(ast.OpConcat, ast.ID("a"), ast.Bin(ast.OpAdd, ast.ID("b"), ast.ID("c")))},
		{"1 << 2 + 1", ast.Bin(ast.OpShiftLeft, ast.Int(1), ast.Bin(ast.OpAdd, ast.Int(2), ast.Int(1)))},
		{"x Mod 3 = 0", ast.Bin(ast.OpEqual, ast.Bin(ast.OpModulo, ast.ID("x"), ast.Int(3)), ast.Int(0))},
		{"a \\ b * c", ast.Bin(ast.OpMultiply, ast.Bin(ast.OpIntDivide, ast.ID("a"), ast.ID("b")), ast.ID("c"))},
		{"a OrElse b AndAlso Not c", ast.Bin(ast.OpOrElse, ast.ID("a"), ast.Bin(ast.OpAndAlso, ast.ID("b"), ast.Not(ast.ID("c"))))},
		{"s Like \"a*\"", ast.Bin(ast.OpLike, ast.ID("s"), ast.Str("a*"))},
		{"obj.Items(0).Name", ast.Member(ast.Call(ast.Member(ast.ID("obj"), "Items"), ast.Int(0)), "Name")},
		{"3000000000", ast.Long(3000000000)},
		{"5&", ast.Long(5)},
		{"1.5", ast.Dbl(1.5)},
	}
	for _, tc := range cases {
		got, err := parser.ParseExpression(tc.src)
		if err != nil {
			t.Fatalf("ParseExpression(%q): %v", tc.src, err)
		}
		assertNode(t, tc.want, got)
	}
}

func TestModuleFlatteningIgnoresImports(t *testing.T) {
	body := "Module Program\n  Dim counter As Integer = 1\n  Sub Main()\n    counter = counter + 1\n  End Sub\nEnd Module\n"
	plain := mustParse(t, body)
	imported := mustParse(t, "Imports System\nImports System.Text\n\n"+body)

	var withoutImports []ast.Declaration
	for _, decl := range imported.Declarations {
		if _, ok := decl.(*ast.ImportsDeclaration); ok {
			continue
		}
		withoutImports = append(withoutImports, decl)
	}
	if len(imported.Declarations)-len(withoutImports) != 2 {
		t.Fatalf("expected two Imports declarations, got %#v", imported.Declarations)
	}
	assertNode(t, plain.Declarations, withoutImports)
	if len(plain.Declarations) != 2 {
		t.Fatalf("expected flattened variable and sub, got %d declarations", len(plain.Declarations))
	}
	if sub, ok := plain.Declarations[1].(*ast.SubDeclaration); !ok || sub.Name != "Main" || sub.Module != "Program" {
		t.Fatalf("expected Sub Main of Module Program at top level, got %#v", plain.Declarations[1])
	}
}

func TestParseErrorCarriesPosition(t *testing.T) {
	program, err := parser.ParseProgram("Sub Main()\n  Dim x = )\nEnd Sub")
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if program != nil {
		t.Fatalf("expected no partial program, got %#v", program)
	}
	var perr *parser.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if perr.Line != 2 || perr.Column != 11 {
		t.Fatalf("expected error at 2:11, got %d:%d (%s)", perr.Line, perr.Column, perr.Message)
	}
}

func TestParseMissingEndSub(t *testing.T) {
	if _, err := parser.ParseProgram("Sub Foo()\n  x = 1\n"); err == nil {
		t.Fatalf("expected error for missing End Sub")
	}
}

func TestParseSingleLineIf(t *testing.T) {
	program := mustParse(t, "If x > 1 Then y = 1 Else y = 2")
	want := ast.NewIfStatement(
		ast.Bin(ast.OpGreater, ast.ID("x"), ast.Int(1)),
		[]ast.Statement{ast.Assign(ast.ID("y"), ast.Int(1))},
		nil,
		[]ast.Statement{ast.Assign(ast.ID("y"), ast.Int(2))},
	)
	assertNode(t, []ast.Statement{want}, program.Statements)
}

func TestParseBlockIfElseIf(t *testing.T) {
	src := "If a Then\n  x = 1\nElseIf b Then\n  x = 2\nElse If c Then\n  x = 3\nElse\n  x = 4\nEnd If"
	program := mustParse(t, src)
	stmt, ok := program.Statements[0].(*ast.IfStatement)
	if !ok {
		t.Fatalf("expected IfStatement, got %T", program.Statements[0])
	}
	if len(stmt.ElseIfs) != 2 || len(stmt.Else) != 1 {
		t.Fatalf("expected 2 ElseIf clauses and an Else, got %#v", stmt)
	}
}

func TestParseSelectCase(t *testing.T) {
	src := "Select Case n\n  Case 1 To 5\n    x = 1\n  Case Is > 10, 7\n    x = 2\n  Case Else\n    x = 3\nEnd Select"
	program := mustParse(t, src)
	stmt := program.Statements[0].(*ast.SelectStatement)
	if len(stmt.Cases) != 2 || !stmt.HasElse {
		t.Fatalf("unexpected select %#v", stmt)
	}
	want := []*ast.CaseCondition{
		ast.NewCaseCondition(ast.CaseIs, ast.Int(10), nil, ast.OpGreater),
		ast.NewCaseCondition(ast.CaseValue, ast.Int(7), nil, ""),
	}
	assertNode(t, ast.NewCaseCondition(ast.CaseRange, ast.Int(1), ast.Int(5), ""), stmt.Cases[0].Conditions[0])
	assertNode(t, want, stmt.Cases[1].Conditions)
}

func TestParseForLoopWithColons(t *testing.T) {
	program := mustParse(t, "For i As Integer = 1 To 3 : Dim msg = \"iter \" & i : Console.WriteLine(msg) : Next")
	loop, ok := program.Statements[0].(*ast.ForStatement)
	if !ok {
		t.Fatalf("expected ForStatement, got %T", program.Statements[0])
	}
	if loop.Variable != "i" || loop.VarType.Name != "Integer" || loop.Step != nil {
		t.Fatalf("unexpected loop header %#v", loop)
	}
	if len(loop.Body) != 2 {
		t.Fatalf("expected two body statements, got %d", len(loop.Body))
	}
	assertNode(t, ast.Dim("msg", nil, ast.Bin(ast.OpConcat, ast.Str("iter "), ast.ID("i"))), loop.Body[0])
}

func TestParseNextWithMultipleVariables(t *testing.T) {
	program := mustParse(t, "For i = 1 To 2\nFor j = 1 To 2\nx = x + 1\nNext j, i\ny = 1")
	if len(program.Statements) != 2 {
		t.Fatalf("expected loop and assignment, got %d statements", len(program.Statements))
	}
	outer := program.Statements[0].(*ast.ForStatement)
	if _, ok := outer.Body[0].(*ast.ForStatement); !ok || len(outer.Body) != 1 {
		t.Fatalf("expected nested loop, got %#v", outer.Body)
	}
}

func TestParseInterpolatedString(t *testing.T) {
	expr, err := parser.ParseExpression(`$"Hi {name}, {total:N2}!"`)
	if err != nil {
		t.Fatalf("ParseExpression: %v", err)
	}
	want := ast.NewInterpolatedString([]*ast.InterpolationPart{
		ast.NewInterpolationPart("Hi ", nil, ""),
		ast.NewInterpolationPart("", ast.ID("name"), ""),
		ast.NewInterpolationPart(", ", nil, ""),
		ast.NewInterpolationPart("", ast.ID("total"), "N2"),
		ast.NewInterpolationPart("!", nil, ""),
	})
	assertNode(t, want, expr)
}

func TestParseClassWithHandles(t *testing.T) {
	src := `Public Class Form1
    Private ClickCount As Integer

    Private Sub btn_Click(sender As Object, e As EventArgs) Handles btn.Click, Me.Load
        ClickCount += 1
    End Sub

    Public Property Title As String = "Main"
End Class`
	program := mustParse(t, src)
	class, ok := program.Declarations[0].(*ast.ClassDeclaration)
	if !ok {
		t.Fatalf("expected ClassDeclaration, got %T", program.Declarations[0])
	}
	if len(class.Fields) != 1 || class.Fields[0].Variables[0].Name != "ClickCount" {
		t.Fatalf("unexpected fields %#v", class.Fields)
	}
	sub := class.Members[0].(*ast.SubDeclaration)
	wantHandles := []*ast.HandlesClause{ast.NewHandlesClause("btn", "Click"), ast.NewHandlesClause("Me", "Load")}
	assertNode(t, wantHandles, sub.Handles)
	if len(sub.Parameters) != 2 || sub.Parameters[1].Type.Name != "EventArgs" {
		t.Fatalf("unexpected parameters %#v", sub.Parameters)
	}
	assertNode(t, []ast.Statement{ast.NewAssignmentStatement(ast.ID("ClickCount"), ast.OpAdd, ast.Int(1), false)}, sub.Body)
	prop := class.Members[1].(*ast.PropertyDeclaration)
	if !prop.IsAuto || prop.Type.Name != "String" {
		t.Fatalf("expected auto property, got %#v", prop)
	}
}

func TestParseParenlessCall(t *testing.T) {
	program := mustParse(t, "MsgBox \"hi\", 1\nCall Refresh\nDoWork (1), 2")
	want := []ast.Statement{
		ast.CallStmt(ast.ID("MsgBox"), ast.Str("hi"), ast.Int(1)),
		ast.NewCallStatement(ast.NewCallExpression(ast.ID("Refresh"), nil)),
		ast.CallStmt(ast.ID("DoWork"), ast.Int(1), ast.Int(2)),
	}
	assertNode(t, want, program.Statements)
}

func TestParseParameterModes(t *testing.T) {
	program := mustParse(t, "Sub S(ByRef a As Integer, Optional b As String = \"x\", ParamArray rest() As Object, c As Integer?)\nEnd Sub")
	params := program.Declarations[0].(*ast.SubDeclaration).Parameters
	if len(params) != 4 {
		t.Fatalf("expected 4 parameters, got %d", len(params))
	}
	if params[0].Mode != ast.PassByRef || params[1].Mode != ast.PassByVal {
		t.Fatalf("unexpected pass modes %q %q", params[0].Mode, params[1].Mode)
	}
	if !params[1].Optional || params[1].Default == nil {
		t.Fatalf("expected optional parameter with default, got %#v", params[1])
	}
	if !params[2].IsParamArr || !params[2].Type.IsArray {
		t.Fatalf("expected ParamArray, got %#v", params[2])
	}
	if !params[3].Nullable {
		t.Fatalf("expected nullable parameter, got %#v", params[3])
	}
}

func TestParseLambdasAndInitializers(t *testing.T) {
	program := mustParse(t, "Dim f = Function(x) x * 2\nDim p = New Person With {.Name = \"Ann\", .Age = 3}\nDim l = New List(Of Integer) From {1, 2}")
	double := program.Statements[0].(*ast.DimStatement).Variables[0].Initializer.(*ast.LambdaExpression)
	if !double.IsFunction || len(double.Parameters) != 1 || double.Body == nil {
		t.Fatalf("unexpected lambda %#v", double)
	}
	person := program.Statements[1].(*ast.DimStatement).Variables[0].Initializer.(*ast.NewExpression)
	if person.Type.Name != "Person" || len(person.Initializers) != 2 || person.Initializers[1].Name != "Age" {
		t.Fatalf("unexpected object initializer %#v", person)
	}
	list := program.Statements[2].(*ast.DimStatement).Variables[0].Initializer.(*ast.NewExpression)
	if list.Type.String() != "List(Of Integer)" || len(list.Items) != 2 || list.IsArray {
		t.Fatalf("unexpected collection initializer %#v", list)
	}
}

func TestParseTryCatchWhen(t *testing.T) {
	src := "Try\n  x = 1 / 0\nCatch ex As DivideByZeroException When x = 0\n  y = 1\nCatch\n  y = 2\nFinally\n  z = 1\nEnd Try"
	program := mustParse(t, src)
	stmt := program.Statements[0].(*ast.TryStatement)
	if len(stmt.Catches) != 2 || len(stmt.Finally) != 1 {
		t.Fatalf("unexpected try %#v", stmt)
	}
	first := stmt.Catches[0]
	if first.Variable != "ex" || first.Type.Name != "DivideByZeroException" || first.When == nil {
		t.Fatalf("unexpected catch clause %#v", first)
	}
}

func TestParseOnErrorAndLabels(t *testing.T) {
	program := mustParse(t, "Sub S()\n  On Error GoTo Handler\n  x = 1\n  Exit Sub\nHandler:\n  Resume Next\nEnd Sub")
	body := program.Declarations[0].(*ast.SubDeclaration).Body
	want := []ast.Statement{
		ast.NewOnErrorStatement(ast.OnErrorGotoLabel, "Handler"),
		ast.Assign(ast.ID("x"), ast.Int(1)),
		ast.NewExitStatement(ast.BlockSub),
		ast.NewLabelStatement("Handler"),
		ast.NewResumeStatement(ast.ResumeNext, ""),
	}
	assertNode(t, want, body)
}

func TestParseQueryExpression(t *testing.T) {
	expr, err := parser.ParseExpression("From n In nums Where n > 1 Order By n Descending Select n * 10")
	if err != nil {
		t.Fatalf("ParseExpression: %v", err)
	}
	query := expr.(*ast.QueryExpression)
	if query.Variable != "n" || len(query.Clauses) != 2 || query.Select == nil {
		t.Fatalf("unexpected query %#v", query)
	}
	if query.Clauses[1].Kind != ast.QueryOrderBy || !query.Clauses[1].Keys[0].Descending {
		t.Fatalf("expected descending order clause, got %#v", query.Clauses[1])
	}
}

func TestParseLegacyFileStatements(t *testing.T) {
	program := mustParse(t, "Open \"out.txt\" For Output As #1\nPrint #1, \"a\"; \"b\";\nClose #1")
	open := program.Statements[0].(*ast.OpenStatement)
	if open.Mode != ast.FileOutput {
		t.Fatalf("unexpected mode %q", open.Mode)
	}
	printStmt := program.Statements[1].(*ast.PrintStatement)
	if len(printStmt.Items) != 2 || !printStmt.NoNewline || printStmt.FileNumber == nil {
		t.Fatalf("unexpected print %#v", printStmt)
	}
	if _, ok := program.Statements[2].(*ast.CloseStatement); !ok {
		t.Fatalf("expected CloseStatement, got %T", program.Statements[2])
	}
}

func TestParseEnumAndConst(t *testing.T) {
	program := mustParse(t, "Enum Color\n  Red\n  Green = 5\n  Blue\nEnd Enum\nConst Max As Integer = 10, Min = 1")
	enum := program.Declarations[0].(*ast.EnumDeclaration)
	if len(enum.Members) != 3 || enum.Members[1].Value == nil {
		t.Fatalf("unexpected enum %#v", enum)
	}
	if len(program.Declarations) != 3 {
		t.Fatalf("expected enum and two constants, got %d", len(program.Declarations))
	}
}
