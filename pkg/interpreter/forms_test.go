package interpreter

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"vybe/interpreter-go/pkg/runtime"
)

const mainForm = `
Class MainForm
    Inherits Form

    Public Clicks As Integer

    Sub Button1_Click()
        Clicks = Clicks + 1
        Me.Text = "clicked " & Clicks
    End Sub
End Class
`

func TestHandlerAssignmentsBecomePropertyChanges(t *testing.T) {
	interp, _ := mustRun(t, mainForm)
	interp.BindHandler("Button1", "Click", "MainForm.Button1_Click")
	for n := 0; n < 2; n++ {
		if err := interp.DispatchEvent("Button1", "Click", nil); err != nil {
			t.Fatalf("dispatch: %v", err)
		}
	}
	var changes []runtime.PropertyChange
	for _, effect := range interp.SideEffects.Drain() {
		if change, ok := effect.(runtime.PropertyChange); ok {
			changes = append(changes, change)
		}
	}
	want := []runtime.PropertyChange{
		{Object: "MainForm", Property: "Text", Value: runtime.StringValue{Val: "clicked 1"}},
		{Object: "MainForm", Property: "Text", Value: runtime.StringValue{Val: "clicked 2"}},
	}
	if diff := cmp.Diff(want, changes); diff != "" {
		t.Fatalf("property changes mismatch (-want +got):\n%s", diff)
	}
}

func TestFormLifecycleEffects(t *testing.T) {
	src := mainForm + `
Dim f As New MainForm()
f.ShowDialog()
f.Close()
`
	interp, err := runProgram(t, src)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	var got []runtime.SideEffect
	for _, effect := range interp.SideEffects.Drain() {
		switch effect.(type) {
		case runtime.FormShowDialog, runtime.FormClose:
			got = append(got, effect)
		}
	}
	want := []runtime.SideEffect{
		runtime.FormShowDialog{FormName: "MainForm"},
		runtime.FormClose{FormName: "MainForm"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("effects mismatch (-want +got):\n%s", diff)
	}
}

func TestControlsAddPublishesControl(t *testing.T) {
	src := `
Dim f As New Form()
Dim b As New Button()
b.Name = "okButton"
b.Left = 10
b.Top = 20
f.Controls.Add(b)
Console.WriteLine(f.Controls.Count & " " & f.Controls("okButton").Width)
`
	interp, err := runProgram(t, src)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	effects := interp.SideEffects.Drain()
	if diff := cmp.Diff(lines("1 75"), consoleOutput(effects)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
	var added []runtime.AddControl
	for _, effect := range effects {
		if add, ok := effect.(runtime.AddControl); ok {
			added = append(added, add)
		}
	}
	want := []runtime.AddControl{{FormName: "Form", ControlName: "okButton", ControlType: "Button", Left: 10, Top: 20, Width: 75, Height: 23}}
	if diff := cmp.Diff(want, added); diff != "" {
		t.Fatalf("AddControl mismatch (-want +got):\n%s", diff)
	}
}

func TestDataSourceBindingPublishesRows(t *testing.T) {
	src := `
Dim grid As New DataGridView()
grid.Name = "grid"
Dim items As New List(Of String)
items.Add("x")
items.Add("y")
grid.DataSource = items
`
	interp, err := runProgram(t, src)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	var got []runtime.DataSourceChanged
	for _, effect := range interp.SideEffects.Drain() {
		if change, ok := effect.(runtime.DataSourceChanged); ok {
			got = append(got, change)
		}
	}
	want := []runtime.DataSourceChanged{{ControlName: "grid", Columns: []string{"Value"}, Rows: [][]string{{"x"}, {"y"}}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("DataSourceChanged mismatch (-want +got):\n%s", diff)
	}
}
