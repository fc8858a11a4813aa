package interpreter

import (
	"sort"

	"vybe/interpreter-go/pkg/ast"
	"vybe/interpreter-go/pkg/runtime"
)

// queryRow holds the range variable and every Let binding for one element
// flowing through a query.
type queryRow struct {
	names  []string
	values []runtime.Value
}

func (r queryRow) with(name string, v runtime.Value) queryRow {
	return queryRow{
		names:  append(append([]string(nil), r.names...), name),
		values: append(append([]runtime.Value(nil), r.values...), v),
	}
}

// evalIn evaluates expr in a scope holding the row's bindings.
func (i *Interpreter) evalIn(row queryRow, expr ast.Expression) (runtime.Value, error) {
	i.Env.PushScope()
	defer i.Env.PopScope()
	for idx, name := range row.names {
		i.Env.Define(name, row.values[idx])
	}
	return i.evalExpression(expr)
}

// evalQuery runs a query expression eagerly. The result is an Array.
func (i *Interpreter) evalQuery(q *ast.QueryExpression) (runtime.Value, error) {
	source, err := i.evalExpression(q.Source)
	if err != nil {
		return nil, err
	}
	items, err := i.iterate(source)
	if err != nil {
		return nil, err
	}
	rows := make([]queryRow, len(items))
	for idx, item := range items {
		rows[idx] = queryRow{names: []string{q.Variable}, values: []runtime.Value{item}}
	}
	for _, clause := range q.Clauses {
		switch clause.Kind {
		case ast.QueryWhere:
			kept := rows[:0]
			for _, row := range rows {
				cond, err := i.evalIn(row, clause.Condition)
				if err != nil {
					return nil, err
				}
				ok, err := runtime.AsBool(cond)
				if err != nil {
					return nil, err
				}
				if ok {
					kept = append(kept, row)
				}
			}
			rows = kept
		case ast.QueryOrderBy:
			if rows, err = i.orderRows(rows, clause.Keys); err != nil {
				return nil, err
			}
		case ast.QueryLet:
			for idx, row := range rows {
				val, err := i.evalIn(row, clause.Value)
				if err != nil {
					return nil, err
				}
				rows[idx] = row.with(clause.Name, runtime.CopyValue(val))
			}
		}
	}
	out := make([]runtime.Value, 0, len(rows))
	seen := make(map[string]bool)
	for _, row := range rows {
		val := row.values[0]
		if q.Select != nil {
			if val, err = i.evalIn(row, q.Select); err != nil {
				return nil, err
			}
		}
		if q.Distinct {
			key := distinctKey(val)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, val)
	}
	return runtime.NewArray(out), nil
}

// orderRows stable-sorts rows by each key in turn; later keys break ties.
func (i *Interpreter) orderRows(rows []queryRow, keys []*ast.OrderKey) ([]queryRow, error) {
	table := make([][]runtime.Value, len(rows))
	for idx, row := range rows {
		table[idx] = make([]runtime.Value, len(keys))
		for k, key := range keys {
			val, err := i.evalIn(row, key.Key)
			if err != nil {
				return nil, err
			}
			table[idx][k] = val
		}
	}
	order := make([]int, len(rows))
	for idx := range order {
		order[idx] = idx
	}
	sort.SliceStable(order, func(x, y int) bool {
		for k, key := range keys {
			cmp := compareForSort(table[order[x]][k], table[order[y]][k])
			if cmp == 0 {
				continue
			}
			if key.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	out := make([]queryRow, len(rows))
	for idx, from := range order {
		out[idx] = rows[from]
	}
	return out, nil
}
