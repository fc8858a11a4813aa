package interpreter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"vybe/interpreter-go/pkg/ast"
	"vybe/interpreter-go/pkg/runtime"
)

// dataRegistry owns every database handle the program opened. Handles are
// shared per connection string, the way ADO.NET pools connections, and
// stay open until the interpreter is closed, so an in-memory database
// survives Close and Open.
type dataRegistry struct {
	pools map[string]*sql.DB
}

func newDataRegistry() *dataRegistry {
	return &dataRegistry{pools: make(map[string]*sql.DB)}
}

// dataSourcePath extracts the SQLite file from an ADO.NET style connection
// string.
func dataSourcePath(connString string) (string, error) {
	s := strings.TrimSpace(connString)
	switch {
	case s == ":memory:":
		return s, nil
	case strings.HasPrefix(strings.ToLower(s), "sqlite:"):
		return s[len("sqlite:"):], nil
	}
	for _, part := range strings.Split(s, ";") {
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "data source", "datasource", "filename", "database":
			return strings.Trim(strings.TrimSpace(val), `"'`), nil
		}
	}
	return "", runtime.Exception("NotSupportedException", "Unsupported connection string '"+connString+"'. Only SQLite data sources are supported.")
}

func (r *dataRegistry) open(connString string) (*sql.DB, error) {
	path, err := dataSourcePath(connString)
	if err != nil {
		return nil, err
	}
	if db, ok := r.pools[path]; ok {
		return db, nil
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, dataError(err)
	}
	// One connection keeps :memory: databases and transactions on a single
	// SQLite handle.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, dataError(err)
	}
	r.pools[path] = db
	return db, nil
}

func (r *dataRegistry) closeAll() error {
	var errs []error
	for path, db := range r.pools {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", path, err))
		}
		delete(r.pools, path)
	}
	return errors.Join(errs...)
}

func dataError(err error) *runtime.Error {
	return runtime.Exception("SqlException", err.Error())
}

// toSQL converts an interpreter value into a database/sql argument.
func toSQL(v runtime.Value) any {
	switch val := v.(type) {
	case nil, runtime.NothingValue:
		return nil
	case runtime.IntegerValue:
		return int64(val.Val)
	case runtime.LongValue:
		return val.Val
	case runtime.ByteValue:
		return int64(val.Val)
	case runtime.SingleValue:
		return float64(val.Val)
	case runtime.DoubleValue:
		return val.Val
	case runtime.BoolValue:
		return val.Val
	case runtime.StringValue:
		return val.Val
	case runtime.CharValue:
		return string(val.Val)
	case runtime.DateValue:
		return runtime.OLEToTime(val.Val).Format("2006-01-02 15:04:05")
	case *runtime.ArrayValue:
		if b, err := bytesOf(val); err == nil {
			return b
		}
	case *runtime.ObjectValue:
		if isDBNull(val) {
			return nil
		}
	}
	return displayString(v)
}

// fromSQL converts a scanned column into an interpreter value; NULL
// becomes DBNull.Value.
func fromSQL(v any) runtime.Value {
	switch val := v.(type) {
	case nil:
		return dbNull
	case int64:
		if val == int64(int32(val)) {
			return runtime.IntegerValue{Val: int32(val)}
		}
		return runtime.LongValue{Val: val}
	case float64:
		return runtime.DoubleValue{Val: val}
	case bool:
		return runtime.BoolValue{Val: val}
	case string:
		return runtime.StringValue{Val: val}
	case []byte:
		return byteArray(val)
	case time.Time:
		return runtime.DateValue{Val: runtime.TimeToOLE(val)}
	}
	return runtime.StringValue{Val: fmt.Sprint(v)}
}

// dbConnection is the native side of SqlConnection and its siblings.
type dbConnection struct {
	db   *sql.DB
	open bool
}

func newConnection(typeName string, args []runtime.Value) (*runtime.ObjectValue, error) {
	if err := arity(typeName, args, 0, 1); err != nil {
		return nil, err
	}
	obj := runtime.NewObject(typeName)
	obj.Set("ConnectionString", str(argString(args, 0)))
	obj.Set("State", runtime.IntegerValue{})
	obj.Native = &dbConnection{}
	return obj, nil
}

func (c *dbConnection) callMethod(i *Interpreter, self *runtime.ObjectValue, name string, args []runtime.Value) (runtime.Value, bool, error) {
	switch strings.ToLower(name) {
	case "open":
		if c.open {
			return nil, true, runtime.Exception("InvalidOperationException", "The connection was not closed. The connection's current state is open.")
		}
		db, err := i.data.open(displayString(self.Get("ConnectionString")))
		if err != nil {
			return nil, true, err
		}
		c.db, c.open = db, true
		self.Set("State", runtime.IntegerValue{Val: 1})
		i.logger.Debug("database opened", "connection", displayString(self.Get("ConnectionString")))
		return runtime.Nothing, true, nil
	case "close", "dispose":
		c.open = false
		self.Set("State", runtime.IntegerValue{})
		return runtime.Nothing, true, nil
	case "createcommand":
		cmd := newCommand("SqlCommand", nil)
		cmd.Set("Connection", self)
		return cmd, true, nil
	case "begintransaction":
		if err := c.exec(context.Background(), "BEGIN"); err != nil {
			return nil, true, err
		}
		tx := runtime.NewObject("SqlTransaction")
		tx.Set("Connection", self)
		tx.Native = &dbTransaction{conn: c}
		return tx, true, nil
	}
	return nil, false, nil
}

func (c *dbConnection) exec(ctx context.Context, query string, args ...any) error {
	if !c.open {
		return runtime.Exception("InvalidOperationException", "ExecuteNonQuery requires an open and available Connection. The connection's current state is closed.")
	}
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return dataError(err)
	}
	return nil
}

type dbTransaction struct {
	conn *dbConnection
	done bool
}

func (t *dbTransaction) callMethod(_ *Interpreter, _ *runtime.ObjectValue, name string, _ []runtime.Value) (runtime.Value, bool, error) {
	var stmt string
	switch strings.ToLower(name) {
	case "commit":
		stmt = "COMMIT"
	case "rollback":
		stmt = "ROLLBACK"
	case "dispose":
		if t.done {
			return runtime.Nothing, true, nil
		}
		stmt = "ROLLBACK"
	default:
		return nil, false, nil
	}
	if t.done {
		return nil, true, runtime.Exception("InvalidOperationException", "This SqlTransaction has completed; it is no longer usable.")
	}
	t.done = true
	return runtime.Nothing, true, t.conn.exec(context.Background(), stmt)
}

// dbCommand holds the native side of SqlCommand. CommandText and
// Connection are plain fields so initializers and assignments work.
type dbCommand struct {
	params *parameterCollection
}

func newCommand(typeName string, args []runtime.Value) *runtime.ObjectValue {
	obj := runtime.NewObject(typeName)
	obj.Set("CommandText", str(argString(args, 0)))
	conn := runtime.Value(runtime.Nothing)
	if len(args) > 1 {
		conn = args[1]
	}
	obj.Set("Connection", conn)
	obj.Set("CommandType", runtime.IntegerValue{Val: 1})
	params := &parameterCollection{}
	coll := runtime.NewObject("SqlParameterCollection")
	coll.Native = params
	obj.Set("Parameters", coll)
	obj.Native = &dbCommand{params: params}
	return obj
}

func (c *dbCommand) connection(self *runtime.ObjectValue) (*dbConnection, error) {
	obj, ok := self.Get("Connection").(*runtime.ObjectValue)
	if !ok {
		return nil, runtime.Exception("InvalidOperationException", "ExecuteReader: Connection property has not been initialized.")
	}
	conn, ok := obj.Native.(*dbConnection)
	if !ok {
		return nil, runtime.TypeMismatch("SqlConnection", obj.ClassName)
	}
	if !conn.open {
		return nil, runtime.Exception("InvalidOperationException", "ExecuteReader requires an open and available Connection. The connection's current state is closed.")
	}
	return conn, nil
}

func (c *dbCommand) query(i *Interpreter, self *runtime.ObjectValue) (*resultSet, error) {
	conn, err := c.connection(self)
	if err != nil {
		return nil, err
	}
	text := displayString(self.Get("CommandText"))
	i.logger.Debug("executing query", "sql", text, "parameters", len(c.params.items))
	rows, err := conn.db.QueryContext(context.Background(), text, c.params.args()...)
	if err != nil {
		return nil, dataError(err)
	}
	defer rows.Close()
	return readResultSet(rows)
}

func (c *dbCommand) callMethod(i *Interpreter, self *runtime.ObjectValue, name string, _ []runtime.Value) (runtime.Value, bool, error) {
	switch strings.ToLower(name) {
	case "executenonquery":
		conn, err := c.connection(self)
		if err != nil {
			return nil, true, err
		}
		text := displayString(self.Get("CommandText"))
		i.logger.Debug("executing statement", "sql", text, "parameters", len(c.params.items))
		res, err := conn.db.ExecContext(context.Background(), text, c.params.args()...)
		if err != nil {
			return nil, true, dataError(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return runtime.IntegerValue{Val: -1}, true, nil
		}
		return runtime.IntegerValue{Val: int32(n)}, true, nil
	case "executescalar":
		rs, err := c.query(i, self)
		if err != nil {
			return nil, true, err
		}
		if len(rs.rows) == 0 || len(rs.columns) == 0 {
			return runtime.Nothing, true, nil
		}
		return rs.rows[0][0], true, nil
	case "executereader":
		rs, err := c.query(i, self)
		if err != nil {
			return nil, true, err
		}
		return newDataReader(rs), true, nil
	case "prepare", "cancel", "dispose":
		return runtime.Nothing, true, nil
	}
	return nil, false, nil
}

type parameter struct {
	name string
	obj  *runtime.ObjectValue
}

// parameterCollection backs Command.Parameters. Names keep their @, : or
// $ prefix in the program and are bound without it.
type parameterCollection struct {
	items []parameter
}

func (p *parameterCollection) args() []any {
	out := make([]any, len(p.items))
	for idx, item := range p.items {
		name := strings.TrimLeft(item.name, "@:$")
		out[idx] = sql.Named(name, toSQL(item.obj.Get("Value")))
	}
	return out
}

func (p *parameterCollection) add(name string, v runtime.Value) *runtime.ObjectValue {
	obj := runtime.NewObject("SqlParameter")
	obj.Set("ParameterName", str(name))
	obj.Set("Value", v)
	p.items = append(p.items, parameter{name: name, obj: obj})
	return obj
}

func (p *parameterCollection) callMethod(_ *Interpreter, _ *runtime.ObjectValue, name string, args []runtime.Value) (runtime.Value, bool, error) {
	switch strings.ToLower(name) {
	case "addwithvalue":
		if err := arity("Parameters.AddWithValue", args, 2, 2); err != nil {
			return nil, true, err
		}
		return p.add(argString(args, 0), args[1]), true, nil
	case "add":
		if err := arity("Parameters.Add", args, 1, 3); err != nil {
			return nil, true, err
		}
		if obj, ok := args[0].(*runtime.ObjectValue); ok && obj.ClassName == "SqlParameter" {
			p.items = append(p.items, parameter{name: displayString(obj.Get("ParameterName")), obj: obj})
			return obj, true, nil
		}
		return p.add(argString(args, 0), runtime.Nothing), true, nil
	case "clear":
		p.items = nil
		return runtime.Nothing, true, nil
	case "count":
		return runtime.IntegerValue{Val: int32(len(p.items))}, true, nil
	case "contains":
		for _, item := range p.items {
			if strings.EqualFold(item.name, argString(args, 0)) {
				return boolean(true), true, nil
			}
		}
		return boolean(false), true, nil
	}
	return nil, false, nil
}

func (p *parameterCollection) index(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if s, ok := args[0].(runtime.StringValue); ok {
		for _, item := range p.items {
			if strings.EqualFold(item.name, s.Val) {
				return item.obj, nil
			}
		}
		return nil, runtime.Exception("IndexOutOfRangeException", "An SqlParameter with ParameterName '"+s.Val+"' is not contained by this SqlParameterCollection.")
	}
	idx, err := roundedInteger(args[0])
	if err != nil {
		return nil, err
	}
	if idx < 0 || int(idx) >= len(p.items) {
		return nil, runtime.IndexOutOfRange(int(idx), len(p.items))
	}
	return p.items[idx].obj, nil
}

func (p *parameterCollection) setIndex(*Interpreter, []runtime.Value, runtime.Value) error {
	return runtime.Exception("NotSupportedException", "Collection is read-only.")
}

// resultSet is a fully read query result.
type resultSet struct {
	columns []string
	rows    [][]runtime.Value
}

func readResultSet(rows *sql.Rows) (*resultSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, dataError(err)
	}
	rs := &resultSet{columns: cols}
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for idx := range raw {
			ptrs[idx] = &raw[idx]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, dataError(err)
		}
		row := make([]runtime.Value, len(cols))
		for idx, v := range raw {
			row[idx] = fromSQL(v)
		}
		rs.rows = append(rs.rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, dataError(err)
	}
	return rs, nil
}

func (rs *resultSet) ordinal(name string) int {
	for idx, col := range rs.columns {
		if strings.EqualFold(col, name) {
			return idx
		}
	}
	return -1
}

// dataReader walks a result set row by row.
type dataReader struct {
	rs     *resultSet
	pos    int
	closed bool
}

func newDataReader(rs *resultSet) *runtime.ObjectValue {
	obj := runtime.NewObject("SqlDataReader")
	obj.Native = &dataReader{rs: rs, pos: -1}
	return obj
}

func (r *dataReader) current() ([]runtime.Value, error) {
	if r.closed {
		return nil, runtime.Exception("InvalidOperationException", "Invalid attempt to read when reader is closed.")
	}
	if r.pos < 0 || r.pos >= len(r.rs.rows) {
		return nil, runtime.Exception("InvalidOperationException", "Invalid attempt to read when no data is present.")
	}
	return r.rs.rows[r.pos], nil
}

func (r *dataReader) column(arg runtime.Value) (runtime.Value, error) {
	row, err := r.current()
	if err != nil {
		return nil, err
	}
	idx := -1
	if s, ok := arg.(runtime.StringValue); ok {
		idx = r.rs.ordinal(s.Val)
		if idx < 0 {
			return nil, runtime.Exception("IndexOutOfRangeException", s.Val)
		}
	} else {
		n, err := roundedInteger(arg)
		if err != nil {
			return nil, err
		}
		idx = int(n)
	}
	if idx < 0 || idx >= len(row) {
		return nil, runtime.IndexOutOfRange(idx, len(row))
	}
	return row[idx], nil
}

func (r *dataReader) index(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	return r.column(args[0])
}

func (r *dataReader) setIndex(*Interpreter, []runtime.Value, runtime.Value) error {
	return runtime.Exception("NotSupportedException", "SqlDataReader is read-only.")
}

func (r *dataReader) callMethod(i *Interpreter, _ *runtime.ObjectValue, name string, args []runtime.Value) (runtime.Value, bool, error) {
	lower := strings.ToLower(name)
	switch lower {
	case "read":
		if r.closed {
			return nil, true, runtime.Exception("InvalidOperationException", "Invalid attempt to call Read when reader is closed.")
		}
		if r.pos < len(r.rs.rows) {
			r.pos++
		}
		return boolean(r.pos < len(r.rs.rows)), true, nil
	case "close", "dispose":
		r.closed = true
		return runtime.Nothing, true, nil
	case "isclosed":
		return boolean(r.closed), true, nil
	case "fieldcount":
		return runtime.IntegerValue{Val: int32(len(r.rs.columns))}, true, nil
	case "hasrows":
		return boolean(len(r.rs.rows) > 0), true, nil
	case "getname":
		idx, err := argInt(args, 0)
		if err != nil {
			return nil, true, err
		}
		if idx < 0 || idx >= len(r.rs.columns) {
			return nil, true, runtime.IndexOutOfRange(idx, len(r.rs.columns))
		}
		return str(r.rs.columns[idx]), true, nil
	case "getordinal":
		idx := r.rs.ordinal(argString(args, 0))
		if idx < 0 {
			return nil, true, runtime.Exception("IndexOutOfRangeException", argString(args, 0))
		}
		return runtime.IntegerValue{Val: int32(idx)}, true, nil
	case "item", "getvalue":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, true, err
		}
		val, err := r.column(args[0])
		return val, true, err
	case "isdbnull":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, true, err
		}
		val, err := r.column(args[0])
		return boolean(isDBNull(val)), true, err
	case "getstring", "getint32", "getint64", "getint16", "getdouble", "getfloat", "getdecimal", "getboolean", "getdatetime":
		if err := arity(name, args, 1, 1); err != nil {
			return nil, true, err
		}
		val, err := r.column(args[0])
		if err != nil {
			return nil, true, err
		}
		if isDBNull(val) {
			return nil, true, runtime.Exception("InvalidCastException", "Data is Null. This method or property cannot be called on Null values.")
		}
		target := map[string]string{
			"getstring": "String", "getint32": "Integer", "getint64": "Long", "getint16": "Integer",
			"getdouble": "Double", "getfloat": "Single", "getdecimal": "Double",
			"getboolean": "Boolean", "getdatetime": "Date",
		}[lower]
		if target == "String" {
			return str(displayString(val)), true, nil
		}
		conv, err := i.coerceToType(val, &ast.TypeRef{Name: target})
		return conv, true, err
	}
	return nil, false, nil
}

// dataTable is the native side of DataTable.
type dataTable struct {
	columns []string
	rows    []*runtime.ObjectValue
}

func newDataTable(name string) *runtime.ObjectValue {
	obj := runtime.NewObject("DataTable")
	t := &dataTable{}
	obj.Native = t
	obj.Set("TableName", str(name))
	rows := runtime.NewObject("DataRowCollection")
	rows.Native = &dataRowCollection{table: t, owner: obj}
	obj.Set("Rows", rows)
	cols := runtime.NewObject("DataColumnCollection")
	cols.Native = &dataColumnCollection{table: t}
	obj.Set("Columns", cols)
	return obj
}

func (t *dataTable) ordinal(name string) int {
	for idx, col := range t.columns {
		if strings.EqualFold(col, name) {
			return idx
		}
	}
	return -1
}

func (t *dataTable) newRow(values []runtime.Value) *runtime.ObjectValue {
	row := runtime.NewObject("DataRow")
	cells := make([]runtime.Value, len(t.columns))
	for idx := range cells {
		cells[idx] = dbNull
		if idx < len(values) {
			cells[idx] = values[idx]
		}
	}
	row.Native = &dataRow{table: t, cells: cells}
	return row
}

// load replaces the table's contents with a result set; columns already
// defined are kept when they match.
func (t *dataTable) load(rs *resultSet) {
	t.columns = append([]string(nil), rs.columns...)
	t.rows = t.rows[:0]
	for _, values := range rs.rows {
		t.rows = append(t.rows, t.newRow(values))
	}
}

func (t *dataTable) callMethod(_ *Interpreter, _ *runtime.ObjectValue, name string, args []runtime.Value) (runtime.Value, bool, error) {
	switch strings.ToLower(name) {
	case "newrow":
		return t.newRow(nil), true, nil
	case "clear":
		t.rows = nil
		return runtime.Nothing, true, nil
	case "acceptchanges", "beginloaddata", "endloaddata", "dispose":
		return runtime.Nothing, true, nil
	case "select":
		out := make([]runtime.Value, len(t.rows))
		for idx, row := range t.rows {
			out[idx] = row
		}
		return runtime.NewArray(out), true, nil
	}
	return nil, false, nil
}

func (t *dataTable) items() []runtime.Value {
	out := make([]runtime.Value, len(t.rows))
	for idx, row := range t.rows {
		out[idx] = row
	}
	return out
}

type dataRow struct {
	table *dataTable
	cells []runtime.Value
}

func (r *dataRow) cell(arg runtime.Value) (int, error) {
	if s, ok := arg.(runtime.StringValue); ok {
		idx := r.table.ordinal(s.Val)
		if idx < 0 {
			return 0, runtime.Exception("ArgumentException", "Column '"+s.Val+"' does not belong to table.")
		}
		return idx, nil
	}
	n, err := roundedInteger(arg)
	if err != nil {
		return 0, err
	}
	if n < 0 || int(n) >= len(r.cells) {
		return 0, runtime.IndexOutOfRange(int(n), len(r.cells))
	}
	return int(n), nil
}

func (r *dataRow) index(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	idx, err := r.cell(args[0])
	if err != nil {
		return nil, err
	}
	return r.cells[idx], nil
}

func (r *dataRow) setIndex(_ *Interpreter, args []runtime.Value, v runtime.Value) error {
	idx, err := r.cell(args[0])
	if err != nil {
		return err
	}
	r.cells[idx] = v
	return nil
}

func (r *dataRow) callMethod(i *Interpreter, _ *runtime.ObjectValue, name string, args []runtime.Value) (runtime.Value, bool, error) {
	switch strings.ToLower(name) {
	case "item":
		if len(args) == 1 {
			val, err := r.index(i, args)
			return val, true, err
		}
	case "itemarray":
		return runtime.NewArray(append([]runtime.Value(nil), r.cells...)), true, nil
	case "isnull":
		idx, err := r.cell(args[0])
		if err != nil {
			return nil, true, err
		}
		return boolean(isDBNull(r.cells[idx])), true, nil
	case "delete":
		for idx, row := range r.table.rows {
			if row.Native == r {
				r.table.rows = append(r.table.rows[:idx], r.table.rows[idx+1:]...)
				break
			}
		}
		return runtime.Nothing, true, nil
	}
	return nil, false, nil
}

type dataRowCollection struct {
	table *dataTable
	owner *runtime.ObjectValue
}

func (c *dataRowCollection) items() []runtime.Value { return c.table.items() }

func (c *dataRowCollection) index(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	idx, err := roundedInteger(args[0])
	if err != nil {
		return nil, err
	}
	if idx < 0 || int(idx) >= len(c.table.rows) {
		return nil, runtime.IndexOutOfRange(int(idx), len(c.table.rows))
	}
	return c.table.rows[idx], nil
}

func (c *dataRowCollection) setIndex(*Interpreter, []runtime.Value, runtime.Value) error {
	return runtime.Exception("NotSupportedException", "Collection is read-only.")
}

func (c *dataRowCollection) callMethod(i *Interpreter, _ *runtime.ObjectValue, name string, args []runtime.Value) (runtime.Value, bool, error) {
	switch strings.ToLower(name) {
	case "count":
		return runtime.IntegerValue{Val: int32(len(c.table.rows))}, true, nil
	case "add":
		if len(args) == 1 {
			if row, ok := args[0].(*runtime.ObjectValue); ok {
				if _, isRow := row.Native.(*dataRow); isRow {
					c.table.rows = append(c.table.rows, row)
					return row, true, nil
				}
			}
		}
		values := args
		if len(args) == 1 {
			if arr, ok := args[0].(*runtime.ArrayValue); ok {
				values = arr.Elements
			}
		}
		if len(values) > len(c.table.columns) {
			return nil, true, runtime.Exception("ArgumentException", "Input array is longer than the number of columns in this table.")
		}
		row := c.table.newRow(values)
		c.table.rows = append(c.table.rows, row)
		return row, true, nil
	case "removeat":
		idx, err := argInt(args, 0)
		if err != nil {
			return nil, true, err
		}
		if idx < 0 || idx >= len(c.table.rows) {
			return nil, true, runtime.IndexOutOfRange(idx, len(c.table.rows))
		}
		c.table.rows = append(c.table.rows[:idx], c.table.rows[idx+1:]...)
		return runtime.Nothing, true, nil
	case "clear":
		c.table.rows = nil
		return runtime.Nothing, true, nil
	case "item":
		val, err := c.index(i, args)
		return val, true, err
	}
	return i.sequenceMethod(c.items(), name, args)
}

type dataColumnCollection struct {
	table *dataTable
}

func columnObject(name string, ordinal int) *runtime.ObjectValue {
	col := runtime.NewObject("DataColumn")
	col.Set("ColumnName", str(name))
	col.Set("Ordinal", runtime.IntegerValue{Val: int32(ordinal)})
	return col
}

func (c *dataColumnCollection) items() []runtime.Value {
	out := make([]runtime.Value, len(c.table.columns))
	for idx, name := range c.table.columns {
		out[idx] = columnObject(name, idx)
	}
	return out
}

func (c *dataColumnCollection) index(_ *Interpreter, args []runtime.Value) (runtime.Value, error) {
	if s, ok := args[0].(runtime.StringValue); ok {
		idx := c.table.ordinal(s.Val)
		if idx < 0 {
			return runtime.Nothing, nil
		}
		return columnObject(c.table.columns[idx], idx), nil
	}
	idx, err := roundedInteger(args[0])
	if err != nil {
		return nil, err
	}
	if idx < 0 || int(idx) >= len(c.table.columns) {
		return nil, runtime.IndexOutOfRange(int(idx), len(c.table.columns))
	}
	return columnObject(c.table.columns[idx], int(idx)), nil
}

func (c *dataColumnCollection) setIndex(*Interpreter, []runtime.Value, runtime.Value) error {
	return runtime.Exception("NotSupportedException", "Collection is read-only.")
}

func (c *dataColumnCollection) callMethod(i *Interpreter, _ *runtime.ObjectValue, name string, args []runtime.Value) (runtime.Value, bool, error) {
	switch strings.ToLower(name) {
	case "count":
		return runtime.IntegerValue{Val: int32(len(c.table.columns))}, true, nil
	case "add":
		if err := arity("Columns.Add", args, 1, 2); err != nil {
			return nil, true, err
		}
		colName := argString(args, 0)
		if c.table.ordinal(colName) >= 0 {
			return nil, true, runtime.Exception("DuplicateNameException", "A column named '"+colName+"' already belongs to this DataTable.")
		}
		c.table.columns = append(c.table.columns, colName)
		for _, row := range c.table.rows {
			r := row.Native.(*dataRow)
			r.cells = append(r.cells, dbNull)
		}
		return columnObject(colName, len(c.table.columns)-1), true, nil
	case "contains":
		return boolean(c.table.ordinal(argString(args, 0)) >= 0), true, nil
	case "indexof":
		return runtime.IntegerValue{Val: int32(c.table.ordinal(argString(args, 0)))}, true, nil
	}
	return i.sequenceMethod(c.items(), name, args)
}

func newDataSet(name string) *runtime.ObjectValue {
	obj := runtime.NewObject("DataSet")
	obj.Set("DataSetName", str(name))
	obj.Set("Tables", runtime.NewList("DataTableCollection"))
	return obj
}

// dataAdapter fills DataTables and DataSets from a select command.
type dataAdapter struct {
	command *runtime.ObjectValue
}

func newDataAdapter(typeName string, args []runtime.Value) (*runtime.ObjectValue, error) {
	if err := arity(typeName, args, 0, 2); err != nil {
		return nil, err
	}
	obj := runtime.NewObject(typeName)
	var cmd *runtime.ObjectValue
	if len(args) == 1 {
		if c, ok := args[0].(*runtime.ObjectValue); ok {
			cmd = c
		}
	}
	if cmd == nil {
		cmd = newCommand("SqlCommand", args)
	}
	obj.Set("SelectCommand", cmd)
	obj.Native = &dataAdapter{}
	return obj, nil
}

func (a *dataAdapter) callMethod(i *Interpreter, self *runtime.ObjectValue, name string, args []runtime.Value) (runtime.Value, bool, error) {
	if !strings.EqualFold(name, "fill") {
		return nil, false, nil
	}
	if err := arity("Fill", args, 1, 2); err != nil {
		return nil, true, err
	}
	cmdObj, ok := self.Get("SelectCommand").(*runtime.ObjectValue)
	if !ok {
		return nil, true, runtime.Exception("InvalidOperationException", "The SelectCommand property has not been initialized before calling 'Fill'.")
	}
	cmd, ok := cmdObj.Native.(*dbCommand)
	if !ok {
		return nil, true, runtime.TypeMismatch("SqlCommand", cmdObj.ClassName)
	}
	rs, err := cmd.query(i, cmdObj)
	if err != nil {
		return nil, true, err
	}
	target, ok := args[0].(*runtime.ObjectValue)
	if !ok {
		return nil, true, runtime.TypeMismatch("DataTable", runtime.TypeName(args[0]))
	}
	if target.ClassName == "DataSet" {
		tables := target.Get("Tables").(*runtime.ListValue)
		tableName := "Table"
		if len(args) == 2 {
			tableName = argString(args, 1)
		}
		table := newDataTable(tableName)
		tables.Add(table)
		table.Native.(*dataTable).load(rs)
		return runtime.IntegerValue{Val: int32(len(rs.rows))}, true, nil
	}
	t, ok := target.Native.(*dataTable)
	if !ok {
		return nil, true, runtime.TypeMismatch("DataTable", target.ClassName)
	}
	t.load(rs)
	return runtime.IntegerValue{Val: int32(len(rs.rows))}, true, nil
}

// bindingSource is the native side of BindingSource: a cursor over its
// DataSource whose moves are reported to the host.
type bindingSource struct {
	self     *runtime.ObjectValue
	source   runtime.Value
	position int
	bound    []string
}

func newBindingSource(args []runtime.Value) *runtime.ObjectValue {
	obj := runtime.NewObject("BindingSource")
	bs := &bindingSource{self: obj, source: runtime.Nothing}
	if len(args) > 0 {
		bs.source = args[0]
	}
	obj.Native = bs
	return obj
}

func bindingSourceOf(v runtime.Value) (*bindingSource, bool) {
	obj, ok := v.(*runtime.ObjectValue)
	if !ok {
		return nil, false
	}
	bs, ok := obj.Native.(*bindingSource)
	return bs, ok
}

func (b *bindingSource) bind(control string) {
	for _, name := range b.bound {
		if strings.EqualFold(name, control) {
			return
		}
	}
	b.bound = append(b.bound, control)
}

func (b *bindingSource) list(i *Interpreter) []runtime.Value {
	if runtime.IsNothing(b.source) {
		return nil
	}
	items, err := i.iterate(b.source)
	if err != nil {
		return nil
	}
	return items
}

// moveTo clamps the position and reports it.
func (b *bindingSource) moveTo(i *Interpreter, pos int) {
	count := len(b.list(i))
	if pos >= count {
		pos = count - 1
	}
	if pos < 0 {
		pos = 0
	}
	b.position = pos
	i.SideEffects.Push(runtime.BindingPositionChanged{Source: formName(b.self), Position: pos, Count: count})
}

func (b *bindingSource) setMember(i *Interpreter, _ *runtime.ObjectValue, name string, v runtime.Value) (bool, error) {
	switch strings.ToLower(name) {
	case "datasource":
		b.source = v
		b.position = 0
		if cols, rows, ok := i.tabulate(v); ok {
			for _, control := range b.bound {
				i.SideEffects.Push(runtime.DataSourceChanged{ControlName: control, Columns: cols, Rows: rows})
			}
		}
		return true, nil
	case "position":
		pos, err := roundedInteger(v)
		if err != nil {
			return true, err
		}
		b.moveTo(i, int(pos))
		return true, nil
	}
	return false, nil
}

func (b *bindingSource) items() []runtime.Value {
	switch src := b.source.(type) {
	case *runtime.ArrayValue:
		return src.Elements
	case *runtime.ListValue:
		return src.Items
	case *runtime.ObjectValue:
		if it, ok := src.Native.(nativeIterable); ok {
			return it.items()
		}
	}
	return nil
}

func (b *bindingSource) callMethod(i *Interpreter, _ *runtime.ObjectValue, name string, args []runtime.Value) (runtime.Value, bool, error) {
	switch strings.ToLower(name) {
	case "datasource":
		return b.source, true, nil
	case "position":
		return runtime.IntegerValue{Val: int32(b.position)}, true, nil
	case "count":
		return runtime.IntegerValue{Val: int32(len(b.list(i)))}, true, nil
	case "current":
		items := b.list(i)
		if b.position < 0 || b.position >= len(items) {
			return runtime.Nothing, true, nil
		}
		return items[b.position], true, nil
	case "movenext":
		b.moveTo(i, b.position+1)
		return runtime.Nothing, true, nil
	case "moveprevious":
		b.moveTo(i, b.position-1)
		return runtime.Nothing, true, nil
	case "movefirst":
		b.moveTo(i, 0)
		return runtime.Nothing, true, nil
	case "movelast":
		b.moveTo(i, len(b.list(i))-1)
		return runtime.Nothing, true, nil
	case "resetbindings":
		if cols, rows, ok := i.tabulate(b.source); ok {
			for _, control := range b.bound {
				i.SideEffects.Push(runtime.DataSourceChanged{ControlName: control, Columns: cols, Rows: rows})
			}
		}
		return runtime.Nothing, true, nil
	}
	return nil, false, nil
}

// tabulate renders a bindable value as columns and display rows: a
// DataTable, a BindingSource, or a sequence of objects or scalars.
func (i *Interpreter) tabulate(v runtime.Value) ([]string, [][]string, bool) {
	if bs, ok := bindingSourceOf(v); ok {
		return i.tabulate(bs.source)
	}
	if obj, ok := v.(*runtime.ObjectValue); ok {
		if t, ok := obj.Native.(*dataTable); ok {
			rows := make([][]string, len(t.rows))
			for idx, row := range t.rows {
				cells := row.Native.(*dataRow).cells
				rows[idx] = make([]string, len(cells))
				for c, cell := range cells {
					rows[idx][c] = displayString(cell)
				}
			}
			return append([]string(nil), t.columns...), rows, true
		}
	}
	if runtime.IsNothing(v) {
		return nil, nil, false
	}
	items, err := i.iterate(v)
	if err != nil {
		return nil, nil, false
	}
	if len(items) == 0 {
		return nil, nil, true
	}
	first, isObject := items[0].(*runtime.ObjectValue)
	if !isObject || first.Native != nil {
		rows := make([][]string, len(items))
		for idx, item := range items {
			rows[idx] = []string{displayString(item)}
		}
		return []string{"Value"}, rows, true
	}
	cols := make([]string, 0, len(first.Fields))
	for key := range first.Fields {
		cols = append(cols, key)
	}
	sort.Strings(cols)
	rows := make([][]string, len(items))
	for idx, item := range items {
		rows[idx] = make([]string, len(cols))
		if obj, ok := item.(*runtime.ObjectValue); ok {
			for c, col := range cols {
				rows[idx][c] = displayString(obj.Get(col))
			}
		}
	}
	return cols, rows, true
}
