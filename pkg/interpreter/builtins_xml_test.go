package interpreter

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestXMLQueries(t *testing.T) {
	src := `
Dim doc = XDocument.Parse("<books><book id=""1""><title>Go</title><price>10.5</price></book><!-- sale --><book id=""2""><title>VB</title><price>20</price></book></books>")
For Each b In doc.Root.Elements("book")
    Console.WriteLine(b.Attribute("id").Value & ": " & b.Element("title").Value)
Next
Console.WriteLine(doc.Descendants("price").Count())
Dim pricey = From b In doc.Root.Elements("book") Where CDbl(b.Element("price").Value) > 15 Select b.Element("title").Value
Console.WriteLine(String.Join(",", pricey))
Console.WriteLine(doc.Root.Element("missing") Is Nothing)
Console.WriteLine(doc.Root.Value)
`
	_, out := mustRun(t, src)
	want := lines("1: Go", "2: VB", "2", "VB", "True", "Go10.5VB20")
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestXMLConstructionRendersIndented(t *testing.T) {
	src := `
Dim el As New XElement("person", New XAttribute("id", 7), New XElement("name", "Ann"), New XElement("age", 30), New XElement("tags"))
Console.WriteLine(el.ToString())
`
	_, out := mustRun(t, src)
	want := "<person id=\"7\">\r\n  <name>Ann</name>\r\n  <age>30</age>\r\n  <tags />\r\n</person>\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestXMLEditing(t *testing.T) {
	src := `
Dim el = XElement.Parse("<person id=""7""><name>Ann</name><age>30</age></person>")
el.SetAttributeValue("id", 8)
el.SetElementValue("city", "Oslo")
el.Element("age").Remove()
el.Element("name").Value = "B&o"
Console.WriteLine(el.Attribute("id").Value & " " & el.Element("name").Value & " " & el.Elements().Count())
Console.WriteLine(el.Element("name").ToString())
el.Add(New XElement("zip", "0150"))
Console.WriteLine(el.LastNode.Name)
`
	_, out := mustRun(t, src)
	want := lines("8 B&o 2", "<name>B&amp;o</name>", "zip")
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestXMLSaveAndLoad(t *testing.T) {
	path := filepath.ToSlash(filepath.Join(t.TempDir(), "doc.xml"))
	src := `
Dim doc As New XDocument(New XElement("config", New XElement("port", 8080)))
doc.Save("` + path + `")
Console.WriteLine(File.ReadAllText("` + path + `").StartsWith("<?xml"))
Dim loaded = XDocument.Load("` + path + `")
Console.WriteLine(CInt(loaded.Root.Element("port").Value) + 1)
`
	_, out := mustRun(t, src)
	if diff := cmp.Diff(lines("True", "8081"), out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestMalformedXMLRaisesXmlException(t *testing.T) {
	src := `
Try
    XDocument.Parse("<a><b></a>")
Catch ex As XmlException
    Console.WriteLine("bad xml")
End Try
`
	_, out := mustRun(t, src)
	if diff := cmp.Diff(lines("bad xml"), out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}
