package interpreter

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/ianaindex"

	"vybe/interpreter-go/pkg/runtime"
)

func init() {
	registerBuiltins(map[string]builtinFunc{
		"xdocument.parse": xmlParser("XDocument.Parse", true),
		"xdocument.load":  xmlLoader("XDocument.Load", true),
		"xelement.parse":  xmlParser("XElement.Parse", false),
		"xelement.load":   xmlLoader("XElement.Load", false),
	})
}

type xmlKind int

const (
	xmlDocument xmlKind = iota
	xmlElement
	xmlAttribute
	xmlText
	xmlComment
	xmlDeclaration
)

var xmlClassNames = map[xmlKind]string{
	xmlDocument:    "XDocument",
	xmlElement:     "XElement",
	xmlAttribute:   "XAttribute",
	xmlText:        "XText",
	xmlComment:     "XComment",
	xmlDeclaration: "XDeclaration",
}

// xmlNode is the native side of the System.Xml.Linq objects. Children
// hold elements, text and comments in document order; attributes are kept
// apart. A declaration stores version, encoding and standalone in attrs.
type xmlNode struct {
	kind     xmlKind
	name     string
	value    string
	attrs    []*xmlNode
	children []*xmlNode
	parent   *xmlNode
	decl     *xmlNode
	obj      *runtime.ObjectValue
}

// object returns the script-visible wrapper, creating it once so that
// reference equality holds across reads.
func (n *xmlNode) object() *runtime.ObjectValue {
	if n.obj == nil {
		n.obj = runtime.NewObject(xmlClassNames[n.kind])
		n.obj.Native = n
	}
	return n.obj
}

func xmlNodeOf(v runtime.Value) (*xmlNode, bool) {
	obj, ok := v.(*runtime.ObjectValue)
	if !ok {
		return nil, false
	}
	n, ok := obj.Native.(*xmlNode)
	return n, ok
}

// newXML backs New XElement, XAttribute, XDocument, XComment and
// XDeclaration.
func (i *Interpreter) newXML(key string, args []runtime.Value) (runtime.Value, error) {
	switch key {
	case "xelement":
		if err := arity("XElement", args, 1, -1); err != nil {
			return nil, err
		}
		if src, ok := xmlNodeOf(args[0]); ok && src.kind == xmlElement && len(args) == 1 {
			return src.clone().object(), nil
		}
		el := &xmlNode{kind: xmlElement, name: displayString(args[0])}
		if err := i.addXMLContent(el, args[1:], false); err != nil {
			return nil, err
		}
		return el.object(), nil
	case "xattribute":
		if err := arity("XAttribute", args, 2, 2); err != nil {
			return nil, err
		}
		return (&xmlNode{kind: xmlAttribute, name: displayString(args[0]), value: xmlValueText(args[1])}).object(), nil
	case "xdocument":
		doc := &xmlNode{kind: xmlDocument}
		if err := i.addXMLContent(doc, args, false); err != nil {
			return nil, err
		}
		return doc.object(), nil
	case "xcomment":
		if err := arity("XComment", args, 1, 1); err != nil {
			return nil, err
		}
		return (&xmlNode{kind: xmlComment, value: displayString(args[0])}).object(), nil
	case "xdeclaration":
		if err := arity("XDeclaration", args, 3, 3); err != nil {
			return nil, err
		}
		decl := &xmlNode{kind: xmlDeclaration}
		for idx, attr := range []string{"version", "encoding", "standalone"} {
			if !runtime.IsNothing(args[idx]) {
				decl.attrs = append(decl.attrs, &xmlNode{kind: xmlAttribute, name: attr, value: displayString(args[idx])})
			}
		}
		return decl.object(), nil
	}
	return nil, runtime.Exception("TypeLoadException", "Type '"+key+"' is not defined.")
}

// xmlValueText renders a value the way XAttribute and SetValue store it.
func xmlValueText(v runtime.Value) string {
	switch val := v.(type) {
	case runtime.BoolValue:
		if val.Val {
			return "true"
		}
		return "false"
	case runtime.DateValue:
		return runtime.OLEToTime(val.Val).Format("2006-01-02T15:04:05")
	}
	return displayString(v)
}

// addXMLContent appends constructor or Add arguments to parent. Nodes that
// already belong to a tree are copied; sequences are flattened.
func (i *Interpreter) addXMLContent(parent *xmlNode, content []runtime.Value, prepend bool) error {
	var added []*xmlNode
	for _, item := range content {
		if runtime.IsNothing(item) {
			continue
		}
		if n, ok := xmlNodeOf(item); ok {
			switch n.kind {
			case xmlAttribute:
				if parent.kind != xmlElement {
					return runtime.Exception("ArgumentException", "An attribute cannot be added to content.")
				}
				if n.parent != nil {
					n = n.clone()
				}
				parent.removeAttribute(n.name)
				n.parent = parent
				parent.attrs = append(parent.attrs, n)
				continue
			case xmlDeclaration:
				parent.decl = n
				continue
			case xmlDocument:
				if root := n.root(); root != nil {
					added = append(added, root.clone())
				}
				continue
			}
			if n.parent != nil {
				n = n.clone()
			}
			added = append(added, n)
			continue
		}
		switch item.(type) {
		case *runtime.ArrayValue, *runtime.ListValue:
			items, err := i.iterate(item)
			if err != nil {
				return err
			}
			if err := i.addXMLContent(parent, items, prepend); err != nil {
				return err
			}
			continue
		}
		if parent.kind == xmlDocument {
			return runtime.Exception("ArgumentException", "Non-whitespace characters cannot be added to content.")
		}
		added = append(added, &xmlNode{kind: xmlText, value: xmlValueText(item)})
	}
	for _, n := range added {
		n.parent = parent
	}
	if prepend {
		parent.children = append(added, parent.children...)
	} else {
		parent.children = append(parent.children, added...)
	}
	parent.mergeText()
	return nil
}

// mergeText joins adjacent text nodes, as XContainer does on Add.
func (n *xmlNode) mergeText() {
	out := n.children[:0]
	for _, c := range n.children {
		if c.kind == xmlText && len(out) > 0 && out[len(out)-1].kind == xmlText {
			out[len(out)-1].value += c.value
			continue
		}
		out = append(out, c)
	}
	n.children = out
}

func (n *xmlNode) clone() *xmlNode {
	cp := &xmlNode{kind: n.kind, name: n.name, value: n.value, decl: n.decl}
	for _, a := range n.attrs {
		ac := a.clone()
		ac.parent = cp
		cp.attrs = append(cp.attrs, ac)
	}
	for _, c := range n.children {
		cc := c.clone()
		cc.parent = cp
		cp.children = append(cp.children, cc)
	}
	return cp
}

func (n *xmlNode) root() *xmlNode {
	for _, c := range n.children {
		if c.kind == xmlElement {
			return c
		}
	}
	return nil
}

func (n *xmlNode) elements(name string) []*xmlNode {
	var out []*xmlNode
	for _, c := range n.children {
		if c.kind == xmlElement && (name == "" || c.name == name) {
			out = append(out, c)
		}
	}
	return out
}

func (n *xmlNode) descendants(name string, self bool) []*xmlNode {
	var out []*xmlNode
	var walk func(*xmlNode)
	walk = func(x *xmlNode) {
		for _, c := range x.children {
			if c.kind != xmlElement {
				continue
			}
			if name == "" || c.name == name {
				out = append(out, c)
			}
			walk(c)
		}
	}
	if self && n.kind == xmlElement && (name == "" || n.name == name) {
		out = append(out, n)
	}
	walk(n)
	return out
}

func (n *xmlNode) attribute(name string) *xmlNode {
	for _, a := range n.attrs {
		if a.name == name {
			return a
		}
	}
	return nil
}

// setAttribute adds or replaces an attribute.
func (n *xmlNode) setAttribute(name, value string) {
	if a := n.attribute(name); a != nil {
		a.value = value
		return
	}
	n.attrs = append(n.attrs, &xmlNode{kind: xmlAttribute, name: name, value: value, parent: n})
}

func (n *xmlNode) removeAttribute(name string) {
	for idx, a := range n.attrs {
		if a.name == name {
			a.parent = nil
			n.attrs = append(n.attrs[:idx], n.attrs[idx+1:]...)
			return
		}
	}
}

// text is the concatenated text content of n and its descendants.
func (n *xmlNode) text() string {
	switch n.kind {
	case xmlText, xmlAttribute, xmlComment:
		return n.value
	}
	var sb strings.Builder
	for _, c := range n.children {
		if c.kind != xmlComment {
			sb.WriteString(c.text())
		}
	}
	return sb.String()
}

func (n *xmlNode) setText(s string) {
	if n.kind != xmlElement {
		n.value = s
		return
	}
	for _, c := range n.children {
		c.parent = nil
	}
	n.children = nil
	if s != "" {
		n.children = []*xmlNode{{kind: xmlText, value: s, parent: n}}
	}
}

// detach removes n from its parent's children or attributes.
func (n *xmlNode) detach() error {
	p := n.parent
	if p == nil {
		return runtime.Exception("InvalidOperationException", "The parent is missing.")
	}
	if n.kind == xmlAttribute {
		p.removeAttribute(n.name)
		return nil
	}
	for idx, c := range p.children {
		if c == n {
			p.children = append(p.children[:idx], p.children[idx+1:]...)
			break
		}
	}
	n.parent = nil
	p.mergeText()
	return nil
}

func xmlList(nodes []*xmlNode) *runtime.ListValue {
	l := runtime.NewList("IEnumerable")
	for _, n := range nodes {
		l.Add(n.object())
	}
	return l
}

func xmlOrNothing(n *xmlNode) runtime.Value {
	if n == nil {
		return runtime.Nothing
	}
	return n.object()
}

func (n *xmlNode) callMethod(i *Interpreter, _ *runtime.ObjectValue, name string, args []runtime.Value) (runtime.Value, bool, error) {
	lower := strings.ToLower(name)
	switch lower {
	case "tostring":
		return str(n.render()), true, nil
	case "parent":
		if n.parent == nil || n.parent.kind == xmlDocument {
			return runtime.Nothing, true, nil
		}
		return n.parent.object(), true, nil
	case "document":
		p := n
		for p.parent != nil {
			p = p.parent
		}
		if p.kind != xmlDocument {
			return runtime.Nothing, true, nil
		}
		return p.object(), true, nil
	case "nodetype":
		return str(strings.TrimPrefix(xmlClassNames[n.kind], "X")), true, nil
	case "remove":
		return runtime.Nothing, true, n.detach()
	}
	switch n.kind {
	case xmlAttribute, xmlText, xmlComment:
		switch lower {
		case "name":
			return str(n.name), true, nil
		case "value":
			return str(n.value), true, nil
		case "setvalue":
			if err := arity("SetValue", args, 1, 1); err != nil {
				return nil, true, err
			}
			n.value = xmlValueText(args[0])
			return runtime.Nothing, true, nil
		}
		return nil, false, nil
	case xmlDeclaration:
		switch lower {
		case "version", "encoding", "standalone":
			if a := n.attribute(lower); a != nil {
				return str(a.value), true, nil
			}
			return runtime.Nothing, true, nil
		}
		return nil, false, nil
	}
	val, err := i.containerMethod(n, lower, name, args)
	if errors.Is(err, errUnhandledXML) {
		return nil, false, nil
	}
	return val, true, err
}

var errUnhandledXML = errors.New("unhandled xml member")

// containerMethod covers the members XDocument and XElement share plus
// the element-only ones.
func (i *Interpreter) containerMethod(n *xmlNode, lower, name string, args []runtime.Value) (runtime.Value, error) {
	nameArg := func(max int) (string, error) {
		if err := arity(name, args, 0, max); err != nil {
			return "", err
		}
		return argString(args, 0), nil
	}
	switch lower {
	case "root":
		if n.kind == xmlDocument {
			return xmlOrNothing(n.root()), nil
		}
	case "declaration":
		if n.kind == xmlDocument {
			return xmlOrNothing(n.decl), nil
		}
	case "element":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		return xmlOrNothing(first(n.elements(displayString(args[0])))), nil
	case "elements":
		tag, err := nameArg(1)
		if err != nil {
			return nil, err
		}
		return xmlList(n.elements(tag)), nil
	case "descendants", "descendantsandself":
		tag, err := nameArg(1)
		if err != nil {
			return nil, err
		}
		return xmlList(n.descendants(tag, lower == "descendantsandself")), nil
	case "nodes":
		return xmlList(n.children), nil
	case "firstnode":
		return xmlOrNothing(first(n.children)), nil
	case "lastnode":
		if len(n.children) == 0 {
			return runtime.Nothing, nil
		}
		return n.children[len(n.children)-1].object(), nil
	case "haselements":
		return boolean(len(n.elements("")) > 0), nil
	case "add", "addfirst":
		return runtime.Nothing, i.addXMLContent(n, args, lower == "addfirst")
	case "removenodes":
		for _, c := range n.children {
			c.parent = nil
		}
		n.children = nil
		return runtime.Nothing, nil
	case "save":
		if err := pathArg("Save", args, 1); err != nil {
			return nil, err
		}
		return runtime.Nothing, writeFile(argString(args, 0), []byte(n.saveText()), os.O_TRUNC)
	}
	if n.kind != xmlElement {
		return nil, errUnhandledXML
	}
	switch lower {
	case "name", "localname":
		return str(n.name), nil
	case "value":
		return str(n.text()), nil
	case "hasattributes":
		return boolean(len(n.attrs) > 0), nil
	case "isempty":
		return boolean(len(n.children) == 0), nil
	case "attribute":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		return xmlOrNothing(n.attribute(displayString(args[0]))), nil
	case "attributes":
		tag, err := nameArg(1)
		if err != nil {
			return nil, err
		}
		var attrs []*xmlNode
		for _, a := range n.attrs {
			if tag == "" || a.name == tag {
				attrs = append(attrs, a)
			}
		}
		return xmlList(attrs), nil
	case "ancestors":
		var out []*xmlNode
		for p := n.parent; p != nil && p.kind == xmlElement; p = p.parent {
			out = append(out, p)
		}
		return xmlList(out), nil
	case "setvalue":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		n.setText(xmlValueText(args[0]))
		return runtime.Nothing, nil
	case "setattributevalue":
		if err := arity(name, args, 2, 2); err != nil {
			return nil, err
		}
		if runtime.IsNothing(args[1]) {
			n.removeAttribute(displayString(args[0]))
		} else {
			n.setAttribute(displayString(args[0]), xmlValueText(args[1]))
		}
		return runtime.Nothing, nil
	case "setelementvalue":
		if err := arity(name, args, 2, 2); err != nil {
			return nil, err
		}
		tag := displayString(args[0])
		child := first(n.elements(tag))
		switch {
		case runtime.IsNothing(args[1]):
			if child != nil {
				return runtime.Nothing, child.detach()
			}
		case child != nil:
			child.setText(xmlValueText(args[1]))
		default:
			child = &xmlNode{kind: xmlElement, name: tag, parent: n}
			child.setText(xmlValueText(args[1]))
			n.children = append(n.children, child)
		}
		return runtime.Nothing, nil
	case "removeattributes":
		for _, a := range n.attrs {
			a.parent = nil
		}
		n.attrs = nil
		return runtime.Nothing, nil
	case "removeall":
		n.attrs = nil
		n.children = nil
		return runtime.Nothing, nil
	case "replacewith":
		if n.parent == nil {
			return nil, runtime.Exception("InvalidOperationException", "The parent is missing.")
		}
		p := n.parent
		idx := 0
		for idx < len(p.children) && p.children[idx] != n {
			idx++
		}
		tmp := &xmlNode{kind: p.kind}
		if err := i.addXMLContent(tmp, args, false); err != nil {
			return nil, err
		}
		for _, c := range tmp.children {
			c.parent = p
		}
		p.children = append(p.children[:idx], append(tmp.children, p.children[idx+1:]...)...)
		n.parent = nil
		p.mergeText()
		return runtime.Nothing, nil
	}
	return nil, errUnhandledXML
}

func (n *xmlNode) setMember(_ *Interpreter, _ *runtime.ObjectValue, name string, v runtime.Value) (bool, error) {
	if !strings.EqualFold(name, "Value") {
		return false, nil
	}
	n.setText(xmlValueText(v))
	return true, nil
}

func first(nodes []*xmlNode) *xmlNode {
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// render writes n indented by two spaces per level, the default
// SaveOptions formatting. Elements holding text are written inline.
func (n *xmlNode) render() string {
	var sb strings.Builder
	switch n.kind {
	case xmlDocument:
		for idx, c := range n.children {
			if idx > 0 {
				sb.WriteString("\r\n")
			}
			c.write(&sb, 0, true)
		}
	case xmlAttribute:
		writeXMLAttr(&sb, n)
	default:
		n.write(&sb, 0, true)
	}
	return sb.String()
}

// saveText is the file form of a document or element: a declaration
// followed by the rendered tree.
func (n *xmlNode) saveText() string {
	decl := `<?xml version="1.0" encoding="utf-8"?>`
	if n.decl != nil {
		decl = n.decl.render()
	}
	return decl + "\r\n" + n.render()
}

func (n *xmlNode) write(sb *strings.Builder, depth int, indent bool) {
	switch n.kind {
	case xmlText:
		xml.EscapeText(sb, []byte(n.value))
		return
	case xmlComment:
		sb.WriteString("<!--" + n.value + "-->")
		return
	case xmlDeclaration:
		sb.WriteString("<?xml")
		for _, a := range n.attrs {
			writeXMLAttr(sb, a)
		}
		sb.WriteString("?>")
		return
	}
	sb.WriteString("<" + n.name)
	for _, a := range n.attrs {
		writeXMLAttr(sb, a)
	}
	if len(n.children) == 0 {
		sb.WriteString(" />")
		return
	}
	sb.WriteString(">")
	nested := indent
	for _, c := range n.children {
		if c.kind == xmlText {
			nested = false
		}
	}
	for _, c := range n.children {
		if nested {
			sb.WriteString("\r\n" + strings.Repeat("  ", depth+1))
		}
		c.write(sb, depth+1, nested)
	}
	if nested {
		sb.WriteString("\r\n" + strings.Repeat("  ", depth))
	}
	sb.WriteString("</" + n.name + ">")
}

func writeXMLAttr(sb *strings.Builder, a *xmlNode) {
	sb.WriteString(" " + a.name + `="`)
	xml.EscapeText(sb, []byte(a.value))
	sb.WriteString(`"`)
}

// parseXML reads a document with encoding/xml. Whitespace-only text is
// dropped, matching LoadOptions.None.
func parseXML(r io.Reader) (*xmlNode, error) {
	doc := &xmlNode{kind: xmlDocument}
	cur := doc
	dec := xml.NewDecoder(r)
	dec.Strict = true
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		enc, err := ianaindex.IANA.Encoding(label)
		if err != nil || enc == nil {
			return nil, fmt.Errorf("unsupported encoding %q", label)
		}
		return enc.NewDecoder().Reader(input), nil
	}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, runtime.Exception("XmlException", err.Error())
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &xmlNode{kind: xmlElement, name: qualifiedXMLName(t.Name), parent: cur}
			for _, a := range t.Attr {
				el.attrs = append(el.attrs, &xmlNode{kind: xmlAttribute, name: qualifiedXMLName(a.Name), value: a.Value, parent: el})
			}
			cur.children = append(cur.children, el)
			cur = el
		case xml.EndElement:
			cur = cur.parent
		case xml.CharData:
			if cur == doc || strings.TrimSpace(string(t)) == "" {
				continue
			}
			cur.children = append(cur.children, &xmlNode{kind: xmlText, value: string(t), parent: cur})
			cur.mergeText()
		case xml.Comment:
			cur.children = append(cur.children, &xmlNode{kind: xmlComment, value: string(t), parent: cur})
		case xml.ProcInst:
			if t.Target == "xml" && cur == doc {
				doc.decl = parseDeclaration(string(t.Inst))
			}
		}
	}
	if doc.root() == nil {
		return nil, runtime.Exception("XmlException", "Root element is missing.")
	}
	return doc, nil
}

// qualifiedXMLName keeps the xmlns attribute names and otherwise uses the
// local name; namespaces are not modeled.
func qualifiedXMLName(n xml.Name) string {
	if n.Space == "xmlns" {
		return "xmlns:" + n.Local
	}
	return n.Local
}

func parseDeclaration(inst string) *xmlNode {
	decl := &xmlNode{kind: xmlDeclaration}
	for _, attr := range []string{"version", "encoding", "standalone"} {
		idx := strings.Index(inst, attr+"=")
		if idx < 0 {
			continue
		}
		rest := inst[idx+len(attr)+1:]
		if len(rest) < 2 {
			continue
		}
		quote := rest[0]
		if end := strings.IndexByte(rest[1:], quote); end >= 0 {
			decl.attrs = append(decl.attrs, &xmlNode{kind: xmlAttribute, name: attr, value: rest[1 : end+1]})
		}
	}
	return decl
}

func xmlResult(doc *xmlNode, asDocument bool) runtime.Value {
	if asDocument {
		return doc.object()
	}
	root := doc.root()
	root.parent = nil
	return root.object()
}

func xmlParser(name string, asDocument bool) builtinFunc {
	return func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name, args, 1, 2); err != nil {
			return nil, err
		}
		doc, err := parseXML(strings.NewReader(argString(args, 0)))
		if err != nil {
			return nil, err
		}
		return xmlResult(doc, asDocument), nil
	}
}

func xmlLoader(name string, asDocument bool) builtinFunc {
	return func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := pathArg(name, args, 1); err != nil {
			return nil, err
		}
		path := argString(args, 0)
		f, err := os.Open(path)
		if err != nil {
			return nil, ioError(err, path)
		}
		defer f.Close()
		doc, err := parseXML(f)
		if err != nil {
			return nil, err
		}
		return xmlResult(doc, asDocument), nil
	}
}
