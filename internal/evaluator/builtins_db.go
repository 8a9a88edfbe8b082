package evaluator

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// DBHandle wraps an open SQLite database as a runtime value.
type DBHandle struct {
	Path string
	DB   *sql.DB
}

func (h *DBHandle) Type() ObjectType { return "DB" }
func (h *DBHandle) Inspect() string  { return "<db " + h.Path + ">" }

func dbModule() *Module {
	fns := map[string]BuiltinFunction{
		"open":  dbOpen,
		"exec":  dbExec,
		"query": dbQuery,
		"close": dbClose,
	}
	return moduleOf("db", fns, nil, []string{"open", "exec", "query", "close"})
}

func dbOpen(ctx CallContext, args []Object) Object {
	if err := wantArgs("db.open", 1, args); err != nil {
		return err
	}
	path, err := argString("db.open", args, 0)
	if err != nil {
		return err
	}
	db, openErr := sql.Open("sqlite", path)
	if openErr != nil {
		return newError("Failed to open database '%s': %v", path, openErr)
	}
	return &DBHandle{Path: path, DB: db}
}

func dbArgs(name string, args []Object) (*DBHandle, string, []interface{}, *Error) {
	if len(args) != 2 && len(args) != 3 {
		return nil, "", nil, newError("Function '%s' expected 2 or 3 arguments, found %d", name, len(args))
	}
	handle, ok := args[0].(*DBHandle)
	if !ok {
		return nil, "", nil, newError("%s: argument 1 must be a database handle, got %s", name, typeName(args[0]))
	}
	query, err := argString(name, args, 1)
	if err != nil {
		return nil, "", nil, err
	}
	var params []interface{}
	if len(args) == 3 {
		arr, err := argArray(name, args, 2)
		if err != nil {
			return nil, "", nil, err
		}
		params = make([]interface{}, len(arr.Elements))
		for i, e := range arr.Elements {
			converted, convErr := objectToGo(e)
			if convErr != nil {
				return nil, "", nil, newError("%s: %v", name, convErr)
			}
			params[i] = converted
		}
	}
	return handle, query, params, nil
}

func dbExec(ctx CallContext, args []Object) Object {
	handle, query, params, err := dbArgs("db.exec", args)
	if err != nil {
		return err
	}
	result, execErr := handle.DB.Exec(query, params...)
	if execErr != nil {
		return newError("Database error: %v", execErr)
	}
	affected, _ := result.RowsAffected()
	return &Number{Value: float64(affected)}
}

// query returns rows as an array of objects keyed by column name.
func dbQuery(ctx CallContext, args []Object) Object {
	handle, query, params, err := dbArgs("db.query", args)
	if err != nil {
		return err
	}
	rows, queryErr := handle.DB.Query(query, params...)
	if queryErr != nil {
		return newError("Database error: %v", queryErr)
	}
	defer rows.Close()

	columns, colErr := rows.Columns()
	if colErr != nil {
		return newError("Database error: %v", colErr)
	}

	out := []Object{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if scanErr := rows.Scan(pointers...); scanErr != nil {
			return newError("Database error: %v", scanErr)
		}
		record := NewRecord()
		for i, col := range columns {
			record.Set(col, sqlValueToObject(values[i]))
		}
		out = append(out, record)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return newError("Database error: %v", rowsErr)
	}
	return &Array{Elements: out}
}

func sqlValueToObject(v interface{}) Object {
	switch value := v.(type) {
	case nil:
		return NULL
	case int64:
		return &Number{Value: float64(value)}
	case float64:
		return &Number{Value: value}
	case bool:
		return NativeBool(value)
	case string:
		return &String{Value: value}
	case []byte:
		return &String{Value: string(value)}
	default:
		return &String{Value: sqlFallbackString(v)}
	}
}

func sqlFallbackString(v interface{}) string {
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return ""
}

func dbClose(ctx CallContext, args []Object) Object {
	if err := wantArgs("db.close", 1, args); err != nil {
		return err
	}
	handle, ok := args[0].(*DBHandle)
	if !ok {
		return newError("db.close: argument 1 must be a database handle, got %s", typeName(args[0]))
	}
	if closeErr := handle.DB.Close(); closeErr != nil {
		return newError("Database error: %v", closeErr)
	}
	return NULL
}
