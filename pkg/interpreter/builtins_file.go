package interpreter

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"vybe/interpreter-go/pkg/ast"
	"vybe/interpreter-go/pkg/runtime"
)

func init() {
	registerBuiltins(map[string]builtinFunc{
		"file.readalltext":      builtinReadAllText,
		"file.readalllines":     builtinReadAllLines,
		"file.readallbytes":     builtinReadAllBytes,
		"file.writealltext":     writeText("File.WriteAllText", os.O_TRUNC),
		"file.appendalltext":    writeText("File.AppendAllText", os.O_APPEND),
		"file.writealllines":    writeLines("File.WriteAllLines", os.O_TRUNC),
		"file.appendalllines":   writeLines("File.AppendAllLines", os.O_APPEND),
		"file.writeallbytes":    builtinWriteAllBytes,
		"file.exists":           builtinFileExists,
		"file.delete":           builtinFileDelete,
		"file.copy":             builtinFileCopy,
		"file.move":             builtinFileMove,
		"file.getlastwritetime": builtinFileDateTime,

		"directory.exists":              builtinDirectoryExists,
		"directory.createdirectory":     builtinCreateDirectory,
		"directory.delete":              builtinDirectoryDelete,
		"directory.getfiles":            listDirectory("Directory.GetFiles", false),
		"directory.getdirectories":      listDirectory("Directory.GetDirectories", true),
		"directory.getcurrentdirectory": builtinCurDir,
		"directory.setcurrentdirectory": builtinChDir,

		"path.combine":                     builtinPathCombine,
		"path.getfilename":                 pathFunc("Path.GetFileName", filepath.Base),
		"path.getfilenamewithoutextension": pathFunc("Path.GetFileNameWithoutExtension", stem),
		"path.getextension":                pathFunc("Path.GetExtension", filepath.Ext),
		"path.getdirectoryname":            pathFunc("Path.GetDirectoryName", filepath.Dir),
		"path.getfullpath":                 pathFunc("Path.GetFullPath", absPath),
		"path.hasextension":                builtinHasExtension,
		"path.changeextension":             builtinChangeExtension,
		"path.gettemppath":                 builtinTempPath,
		"path.directoryseparatorchar":      constant(runtime.CharValue{Val: filepath.Separator}),

		"my.computer.filesystem.readalltext":     builtinReadAllText,
		"my.computer.filesystem.writealltext":    builtinMyWriteAllText,
		"my.computer.filesystem.fileexists":      builtinFileExists,
		"my.computer.filesystem.directoryexists": builtinDirectoryExists,
		"my.computer.filesystem.deletefile":      builtinFileDelete,
		"my.computer.filesystem.createdirectory": builtinCreateDirectory,
		"my.computer.filesystem.copyfile":        builtinFileCopy,
		"my.computer.filesystem.movefile":        builtinFileMove,

		"dir":          builtinDir,
		"filecopy":     builtinFileCopy,
		"kill":         builtinFileDelete,
		"mkdir":        builtinCreateDirectory,
		"rmdir":        builtinDirectoryDelete,
		"chdir":        builtinChDir,
		"filelen":      builtinFileLen,
		"filedatetime": builtinFileDateTime,
		"freefile":     builtinFreeFile,
		"eof":          builtinEOF,
		"lof":          builtinLOF,
	})
}

// ioError maps a Go file system error to the matching .NET exception.
func ioError(err error, path string) *runtime.Error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return runtime.Exception("FileNotFoundException", "Could not find file '"+path+"'.")
	case errors.Is(err, fs.ErrPermission):
		return runtime.Exception("UnauthorizedAccessException", "Access to the path '"+path+"' is denied.")
	}
	return runtime.Exception("IOException", err.Error())
}

func pathArg(name string, args []runtime.Value, n int) error {
	if err := arity(name, args, n, n); err != nil {
		return err
	}
	for _, arg := range args[:n] {
		if runtime.IsNothing(arg) {
			return runtime.Exception("ArgumentNullException", "Value cannot be null.\nParameter name: path")
		}
	}
	return nil
}

func builtinReadAllText(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := pathArg("File.ReadAllText", args, 1); err != nil {
		return nil, err
	}
	path := argString(args, 0)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, ioError(err, path)
	}
	return str(strings.TrimPrefix(string(b), "\uFEFF")), nil
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func builtinReadAllLines(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
	text, err := builtinReadAllText(i, args)
	if err != nil {
		return nil, err
	}
	return stringsToArray(splitLines(displayString(text))), nil
}

func builtinReadAllBytes(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := pathArg("File.ReadAllBytes", args, 1); err != nil {
		return nil, err
	}
	path := argString(args, 0)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, ioError(err, path)
	}
	return byteArray(b), nil
}

func writeFile(path string, data []byte, flag int) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|flag, 0o644)
	if err != nil {
		return ioError(err, path)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return ioError(err, path)
	}
	if err := f.Close(); err != nil {
		return ioError(err, path)
	}
	return nil
}

func writeText(name string, flag int) builtinFunc {
	return func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name, args, 2, 3); err != nil {
			return nil, err
		}
		return runtime.Nothing, writeFile(argString(args, 0), []byte(argString(args, 1)), flag)
	}
}

func writeLines(name string, flag int) builtinFunc {
	return func(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name, args, 2, 3); err != nil {
			return nil, err
		}
		lines, err := stringItems(i, args[1:2])
		if err != nil {
			return nil, err
		}
		var b strings.Builder
		for _, line := range lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
		return runtime.Nothing, writeFile(argString(args, 0), []byte(b.String()), flag)
	}
}

func builtinWriteAllBytes(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("File.WriteAllBytes", args, 2, 2); err != nil {
		return nil, err
	}
	data, err := bytesOf(args[1])
	if err != nil {
		return nil, err
	}
	return runtime.Nothing, writeFile(argString(args, 0), data, os.O_TRUNC)
}

// builtinMyWriteAllText is My.Computer.FileSystem.WriteAllText(path, text,
// append).
func builtinMyWriteAllText(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("WriteAllText", args, 2, 4); err != nil {
		return nil, err
	}
	flag := os.O_TRUNC
	if appendMode, err := argBool(args, 2); err != nil {
		return nil, err
	} else if appendMode {
		flag = os.O_APPEND
	}
	return runtime.Nothing, writeFile(argString(args, 0), []byte(argString(args, 1)), flag)
}

func builtinFileExists(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("File.Exists", args, 1, 1); err != nil {
		return nil, err
	}
	info, err := os.Stat(argString(args, 0))
	return boolean(err == nil && !info.IsDir()), nil
}

func builtinFileDelete(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := pathArg("File.Delete", args, 1); err != nil {
		return nil, err
	}
	path := argString(args, 0)
	// .NET's File.Delete succeeds when the file is already gone.
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, ioError(err, path)
	}
	return runtime.Nothing, nil
}

func builtinFileCopy(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("File.Copy", args, 2, 3); err != nil {
		return nil, err
	}
	src, dst := argString(args, 0), argString(args, 1)
	overwrite, err := argBool(args, 2)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dst); err == nil && !overwrite && len(args) == 3 {
		return nil, runtime.Exception("IOException", "The file '"+dst+"' already exists.")
	}
	in, err := os.Open(src)
	if err != nil {
		return nil, ioError(err, src)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return nil, ioError(err, dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return nil, ioError(err, dst)
	}
	if err := out.Close(); err != nil {
		return nil, ioError(err, dst)
	}
	return runtime.Nothing, nil
}

func builtinFileMove(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := pathArg("File.Move", args, 2); err != nil {
		return nil, err
	}
	src := argString(args, 0)
	if err := os.Rename(src, argString(args, 1)); err != nil {
		return nil, ioError(err, src)
	}
	return runtime.Nothing, nil
}

func builtinDirectoryExists(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Directory.Exists", args, 1, 1); err != nil {
		return nil, err
	}
	info, err := os.Stat(argString(args, 0))
	return boolean(err == nil && info.IsDir()), nil
}

func builtinCreateDirectory(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := pathArg("Directory.CreateDirectory", args, 1); err != nil {
		return nil, err
	}
	path := argString(args, 0)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, ioError(err, path)
	}
	return runtime.Nothing, nil
}

func builtinDirectoryDelete(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Directory.Delete", args, 1, 2); err != nil {
		return nil, err
	}
	path := argString(args, 0)
	recursive, err := argBool(args, 1)
	if err != nil {
		return nil, err
	}
	if recursive {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, runtime.Exception("DirectoryNotFoundException", "Could not find a part of the path '"+path+"'.")
		}
		return nil, ioError(err, path)
	}
	return runtime.Nothing, nil
}

// listDirectory implements GetFiles and GetDirectories with an optional
// wildcard pattern. Results are full paths in name order.
func listDirectory(name string, dirs bool) builtinFunc {
	return func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name, args, 1, 3); err != nil {
			return nil, err
		}
		root := argString(args, 0)
		pattern := "*"
		if len(args) > 1 {
			pattern = argString(args, 1)
		}
		entries, err := os.ReadDir(root)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, runtime.Exception("DirectoryNotFoundException", "Could not find a part of the path '"+root+"'.")
			}
			return nil, ioError(err, root)
		}
		var out []string
		for _, entry := range entries {
			if entry.IsDir() != dirs {
				continue
			}
			if ok, _ := filepath.Match(strings.ToLower(pattern), strings.ToLower(entry.Name())); ok {
				out = append(out, filepath.Join(root, entry.Name()))
			}
		}
		sort.Strings(out)
		return stringsToArray(out), nil
	}
}

func builtinCurDir(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, ioError(err, ".")
	}
	return str(dir), nil
}

func builtinChDir(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := pathArg("ChDir", args, 1); err != nil {
		return nil, err
	}
	path := argString(args, 0)
	if err := os.Chdir(path); err != nil {
		return nil, ioError(err, path)
	}
	return runtime.Nothing, nil
}

func builtinPathCombine(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Path.Combine", args, 1, -1); err != nil {
		return nil, err
	}
	var parts []string
	for idx := range args {
		part := argString(args, idx)
		// A rooted segment discards everything before it.
		if filepath.IsAbs(part) {
			parts = parts[:0]
		}
		parts = append(parts, part)
	}
	return str(filepath.Join(parts...)), nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

func pathFunc(name string, fn func(string) string) builtinFunc {
	return func(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		if runtime.IsNothing(args[0]) {
			return runtime.Nothing, nil
		}
		path := argString(args, 0)
		if path == "" {
			return str(""), nil
		}
		return str(fn(path)), nil
	}
}

func builtinHasExtension(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Path.HasExtension", args, 1, 1); err != nil {
		return nil, err
	}
	return boolean(filepath.Ext(argString(args, 0)) != ""), nil
}

func builtinChangeExtension(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Path.ChangeExtension", args, 2, 2); err != nil {
		return nil, err
	}
	path := argString(args, 0)
	path = strings.TrimSuffix(path, filepath.Ext(path))
	if runtime.IsNothing(args[1]) {
		return str(path), nil
	}
	ext := argString(args, 1)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return str(path + ext), nil
}

func builtinTempPath(*Interpreter, []runtime.Value) (runtime.Value, error) {
	return str(os.TempDir() + string(filepath.Separator)), nil
}

// builtinDir implements Dir(pattern): the first matching file name, then
// each further match on calls without arguments, then "".
func builtinDir(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("Dir", args, 0, 2); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		if len(i.files.dirMatches) == 0 {
			return str(""), nil
		}
		next := i.files.dirMatches[0]
		i.files.dirMatches = i.files.dirMatches[1:]
		return str(next), nil
	}
	pattern := argString(args, 0)
	root, glob := filepath.Split(pattern)
	if root == "" {
		root = "."
	}
	if glob == "" {
		glob = "*"
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		i.files.dirMatches = nil
		return str(""), nil
	}
	var matches []string
	for _, entry := range entries {
		if ok, _ := filepath.Match(strings.ToLower(glob), strings.ToLower(entry.Name())); ok && !entry.IsDir() {
			matches = append(matches, entry.Name())
		}
	}
	sort.Strings(matches)
	if len(matches) == 0 {
		i.files.dirMatches = nil
		return str(""), nil
	}
	i.files.dirMatches = matches[1:]
	return str(matches[0]), nil
}

func builtinFileLen(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := pathArg("FileLen", args, 1); err != nil {
		return nil, err
	}
	path := argString(args, 0)
	info, err := os.Stat(path)
	if err != nil {
		return nil, ioError(err, path)
	}
	return runtime.LongValue{Val: info.Size()}, nil
}

func builtinFileDateTime(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := pathArg("FileDateTime", args, 1); err != nil {
		return nil, err
	}
	path := argString(args, 0)
	info, err := os.Stat(path)
	if err != nil {
		return nil, ioError(err, path)
	}
	return runtime.DateValue{Val: runtime.TimeToOLE(info.ModTime())}, nil
}

func builtinFreeFile(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("FreeFile", args, 0, 1); err != nil {
		return nil, err
	}
	return runtime.IntegerValue{Val: int32(i.files.free())}, nil
}

func builtinEOF(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("EOF", args, 1, 1); err != nil {
		return nil, err
	}
	f, err := i.files.lookup(args[0])
	if err != nil {
		return nil, err
	}
	return boolean(f.eof()), nil
}

func builtinLOF(i *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if err := arity("LOF", args, 1, 1); err != nil {
		return nil, err
	}
	f, err := i.files.lookup(args[0])
	if err != nil {
		return nil, err
	}
	if f.writer != nil {
		if err := f.writer.Flush(); err != nil {
			return nil, ioError(err, f.path)
		}
	}
	info, err := f.file.Stat()
	if err != nil {
		return nil, ioError(err, f.path)
	}
	return runtime.LongValue{Val: info.Size()}, nil
}

// openFile is one handle opened by the Open statement.
type openFile struct {
	path   string
	mode   ast.FileOpenMode
	file   *os.File
	reader *bufio.Reader
	writer *bufio.Writer
}

func (f *openFile) eof() bool {
	if f.reader == nil {
		return true
	}
	_, err := f.reader.Peek(1)
	return err != nil
}

func (f *openFile) close() error {
	if f.writer != nil {
		if err := f.writer.Flush(); err != nil {
			f.file.Close()
			return err
		}
	}
	return f.file.Close()
}

// fileTable holds the numbered handles of the legacy file statements.
type fileTable struct {
	open       map[int]*openFile
	dirMatches []string
}

func newFileTable() *fileTable {
	return &fileTable{open: make(map[int]*openFile)}
}

func (t *fileTable) free() int {
	n := 1
	for t.open[n] != nil {
		n++
	}
	return n
}

func fileNumber(v runtime.Value) (int, error) {
	n, err := roundedInteger(v)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > 511 {
		return 0, runtime.Exception("IOException", "Bad file name or number.")
	}
	return int(n), nil
}

func (t *fileTable) lookup(v runtime.Value) (*openFile, error) {
	n, err := fileNumber(v)
	if err != nil {
		return nil, err
	}
	f := t.open[n]
	if f == nil {
		return nil, runtime.Exception("IOException", "Bad file name or number.")
	}
	return f, nil
}

func (t *fileTable) openPath(n int, path string, mode ast.FileOpenMode) error {
	if t.open[n] != nil {
		return runtime.Exception("IOException", "File already open.")
	}
	var flag int
	switch mode {
	case ast.FileInput:
		flag = os.O_RDONLY
	case ast.FileOutput:
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case ast.FileAppend:
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	case ast.FileBinary, ast.FileRandom:
		flag = os.O_RDWR | os.O_CREATE
	default:
		return runtime.Errorf("invalid file mode '%s'", mode)
	}
	file, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return ioError(err, path)
	}
	f := &openFile{path: path, mode: mode, file: file}
	switch mode {
	case ast.FileInput:
		f.reader = bufio.NewReader(file)
	case ast.FileOutput, ast.FileAppend:
		f.writer = bufio.NewWriter(file)
	default:
		f.reader = bufio.NewReader(file)
	}
	t.open[n] = f
	return nil
}

func (t *fileTable) closeFile(n int) error {
	f := t.open[n]
	if f == nil {
		return nil
	}
	delete(t.open, n)
	if err := f.close(); err != nil {
		return ioError(err, f.path)
	}
	return nil
}

func (t *fileTable) closeAll() error {
	numbers := make([]int, 0, len(t.open))
	for n := range t.open {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	var first error
	for _, n := range numbers {
		if err := t.closeFile(n); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (i *Interpreter) execOpen(n *ast.OpenStatement) outcome {
	path, err := i.evalExpression(n.Path)
	if err != nil {
		return raised(err)
	}
	numVal, err := i.evalExpression(n.FileNumber)
	if err != nil {
		return raised(err)
	}
	num, err := fileNumber(numVal)
	if err != nil {
		return raised(err)
	}
	if err := i.files.openPath(num, displayString(path), n.Mode); err != nil {
		return raised(err)
	}
	i.logger.Debug("file opened", "number", num, "path", displayString(path), "mode", string(n.Mode))
	return normal
}

func (i *Interpreter) execClose(n *ast.CloseStatement) outcome {
	if len(n.FileNumbers) == 0 {
		if err := i.files.closeAll(); err != nil {
			return raised(err)
		}
		return normal
	}
	for _, expr := range n.FileNumbers {
		v, err := i.evalExpression(expr)
		if err != nil {
			return raised(err)
		}
		num, err := fileNumber(v)
		if err != nil {
			return raised(err)
		}
		if err := i.files.closeFile(num); err != nil {
			return raised(err)
		}
	}
	return normal
}

// writeField renders one Write # item: strings quoted, dates as #date#,
// Booleans as #TRUE#/#FALSE#.
func writeField(v runtime.Value) string {
	switch val := v.(type) {
	case runtime.StringValue:
		return `"` + val.Val + `"`
	case runtime.CharValue:
		return `"` + string(val.Val) + `"`
	case runtime.BoolValue:
		if val.Val {
			return "#TRUE#"
		}
		return "#FALSE#"
	case runtime.DateValue:
		return "#" + displayString(val) + "#"
	case nil, runtime.NothingValue:
		return ""
	}
	return displayString(v)
}

func (i *Interpreter) execPrint(n *ast.PrintStatement) outcome {
	numVal, err := i.evalExpression(n.FileNumber)
	if err != nil {
		return raised(err)
	}
	f, err := i.files.lookup(numVal)
	if err != nil {
		return raised(err)
	}
	if f.mode == ast.FileInput {
		return raised(runtime.Exception("IOException", "Bad file mode."))
	}
	parts := make([]string, len(n.Items))
	for idx, item := range n.Items {
		v, err := i.evalExpression(item)
		if err != nil {
			return raised(err)
		}
		if n.IsWrite {
			parts[idx] = writeField(v)
		} else {
			parts[idx] = displayString(v)
		}
	}
	sep := ""
	if n.IsWrite {
		sep = ","
	}
	line := strings.Join(parts, sep)
	if !n.NoNewline {
		line += "\n"
	}
	var w io.Writer = f.file
	if f.writer != nil {
		w = f.writer
	}
	if _, err := io.WriteString(w, line); err != nil {
		return raised(ioError(err, f.path))
	}
	return normal
}

func (f *openFile) readLine() (string, error) {
	if f.reader == nil {
		return "", runtime.Exception("IOException", "Bad file mode.")
	}
	line, err := f.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return "", runtime.Exception("EndOfStreamException", "Input past end of file.")
		}
		return "", ioError(err, f.path)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (i *Interpreter) execLineInput(n *ast.LineInputStatement) outcome {
	numVal, err := i.evalExpression(n.FileNumber)
	if err != nil {
		return raised(err)
	}
	f, err := i.files.lookup(numVal)
	if err != nil {
		return raised(err)
	}
	line, err := f.readLine()
	if err != nil {
		return raised(err)
	}
	if err := i.assignTo(n.Target, str(line)); err != nil {
		return raised(err)
	}
	return normal
}

// nextField reads one comma-separated Input # field, unquoting strings
// and decoding #...# literals.
func (f *openFile) nextField() (runtime.Value, error) {
	for {
		b, err := f.reader.Peek(1)
		if err != nil {
			return nil, runtime.Exception("EndOfStreamException", "Input past end of file.")
		}
		if b[0] != ' ' && b[0] != '\r' && b[0] != '\n' && b[0] != '\t' {
			break
		}
		f.reader.ReadByte()
	}
	var field strings.Builder
	quoted := false
	if b, _ := f.reader.Peek(1); b[0] == '"' {
		quoted = true
		f.reader.ReadByte()
		for {
			c, err := f.reader.ReadByte()
			if err != nil || c == '"' {
				break
			}
			field.WriteByte(c)
		}
	}
	for {
		c, err := f.reader.ReadByte()
		if err != nil || c == ',' || c == '\n' {
			break
		}
		if !quoted && c != '\r' {
			field.WriteByte(c)
		}
	}
	text := field.String()
	if quoted {
		return str(text), nil
	}
	text = strings.TrimSpace(text)
	switch strings.ToUpper(text) {
	case "#TRUE#":
		return boolean(true), nil
	case "#FALSE#":
		return boolean(false), nil
	}
	if strings.HasPrefix(text, "#") && strings.HasSuffix(text, "#") && len(text) > 1 {
		if d, ok := runtime.ParseDate(text[1 : len(text)-1]); ok {
			return runtime.DateValue{Val: d}, nil
		}
	}
	if n, err := strconv.ParseFloat(text, 64); err == nil {
		if n == float64(int32(n)) {
			return runtime.IntegerValue{Val: int32(n)}, nil
		}
		return double(n), nil
	}
	return str(text), nil
}

func (i *Interpreter) execInput(n *ast.InputStatement) outcome {
	numVal, err := i.evalExpression(n.FileNumber)
	if err != nil {
		return raised(err)
	}
	f, err := i.files.lookup(numVal)
	if err != nil {
		return raised(err)
	}
	if f.reader == nil {
		return raised(runtime.Exception("IOException", "Bad file mode."))
	}
	for _, target := range n.Targets {
		v, err := f.nextField()
		if err != nil {
			return raised(err)
		}
		if err := i.assignTo(target, v); err != nil {
			return raised(err)
		}
	}
	return normal
}
