package output

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
	"unicode"
)

// timestampLayout renders epoch-second fields in tables.
const timestampLayout = "2006-01-02 15:04:05"

// TableFormatter formats data as an aligned text table.
//
// Slices of structs become one row per element, with columns driven by
// struct tags: `table:"-"` hides a field, `table:"wide"` shows it only
// in wide mode, and `table:"time"` renders an integer field as a local
// timestamp (the API carries times as Unix seconds). A single struct or
// a map becomes a key-value listing. Shapes the table cannot express
// fall back to indented JSON.
type TableFormatter struct {
	Wide      bool
	NoHeaders bool
}

// Format renders data as a table.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	if data == nil {
		return nil
	}

	switch t := data.(type) {
	case *Table:
		return t.RenderWithOptions(w, f.NoHeaders)
	case Table:
		return t.RenderWithOptions(w, f.NoHeaders)
	}

	table, err := toTable(data, f.Wide)
	if err != nil {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	}

	return table.RenderWithOptions(w, f.NoHeaders)
}

// column describes one rendered struct field.
type column struct {
	index  int
	header string
	asTime bool
}

func structColumns(t reflect.Type, wide bool) []column {
	var cols []column
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		opts := strings.Split(field.Tag.Get("table"), ",")
		if hasOption(opts, "-") {
			continue
		}
		if hasOption(opts, "wide") && !wide {
			continue
		}
		cols = append(cols, column{
			index:  i,
			header: headerName(field),
			asTime: hasOption(opts, "time"),
		})
	}
	return cols
}

func hasOption(opts []string, want string) bool {
	for _, o := range opts {
		if o == want {
			return true
		}
	}
	return false
}

// headerName derives a column header from the json tag (the wire name)
// or, absent one, the field name.
func headerName(field reflect.StructField) string {
	name := field.Name
	if tag, _, _ := strings.Cut(field.Tag.Get("json"), ","); tag != "" && tag != "-" {
		name = tag
	}
	return strings.ToUpper(snakeCase(name))
}

// toTable converts a slice of structs, a struct, or a map to a Table.
func toTable(data any, wide bool) (*Table, error) {
	v := reflect.ValueOf(data)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return &Table{}, nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return sliceToTable(v, wide)
	case reflect.Struct:
		return structToTable(v)
	case reflect.Map:
		return mapToTable(v)
	default:
		return nil, fmt.Errorf("unsupported type: %s", v.Kind())
	}
}

func sliceToTable(v reflect.Value, wide bool) (*Table, error) {
	elemType := v.Type().Elem()
	for elemType.Kind() == reflect.Pointer {
		elemType = elemType.Elem()
	}
	if elemType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("unsupported element type: %s", elemType.Kind())
	}

	cols := structColumns(elemType, wide)
	table := &Table{}
	for _, c := range cols {
		table.Headers = append(table.Headers, c.header)
	}

	for i := 0; i < v.Len(); i++ {
		elem := v.Index(i)
		for elem.Kind() == reflect.Pointer {
			if elem.IsNil() {
				break
			}
			elem = elem.Elem()
		}
		if elem.Kind() != reflect.Struct {
			continue
		}

		row := make([]string, 0, len(cols))
		for _, c := range cols {
			row = append(row, cellValue(elem.Field(c.index), c.asTime))
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// structToTable renders one struct as FIELD/VALUE rows. Wide-only
// fields are always included here; a detail view shows everything.
func structToTable(v reflect.Value) (*Table, error) {
	cols := structColumns(v.Type(), true)

	table := &Table{Headers: []string{"FIELD", "VALUE"}}
	for _, c := range cols {
		field := v.Type().Field(c.index)
		name := field.Name
		if tag, _, _ := strings.Cut(field.Tag.Get("json"), ","); tag != "" && tag != "-" {
			name = tag
		}
		table.AddRow(name, cellValue(v.Field(c.index), c.asTime))
	}
	return table, nil
}

// mapToTable renders a map as KEY/VALUE rows sorted by key, so output
// is stable.
func mapToTable(v reflect.Value) (*Table, error) {
	rows := make(map[string]string, v.Len())
	keys := make([]string, 0, v.Len())

	iter := v.MapRange()
	for iter.Next() {
		key := cellValue(iter.Key(), false)
		rows[key] = cellValue(iter.Value(), false)
		keys = append(keys, key)
	}
	sort.Strings(keys)

	table := &Table{Headers: []string{"KEY", "VALUE"}}
	for _, key := range keys {
		table.AddRow(key, rows[key])
	}
	return table, nil
}

// cellValue formats one value for display. Empty strings, zero
// timestamps, and nils render as "-".
func cellValue(v reflect.Value, asTime bool) string {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "-"
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return "-"
	}

	if asTime {
		n := intValue(v)
		if n == 0 {
			return "-"
		}
		return time.Unix(n, 0).Format(timestampLayout)
	}

	switch v.Kind() {
	case reflect.String:
		if v.String() == "" {
			return "-"
		}
		return v.String()
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "-"
		}
		return fmt.Sprintf("(%d items)", v.Len())
	case reflect.Map:
		if v.Len() == 0 {
			return "-"
		}
		return fmt.Sprintf("(%d keys)", v.Len())
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

func intValue(v reflect.Value) int64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return int64(v.Float())
	default:
		return 0
	}
}

// snakeCase inserts underscores at lower-to-upper boundaries, keeping
// runs of capitals together ("ParticipantID" -> "Participant_ID").
func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) && !unicode.IsUpper(rune(s[i-1])) {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Table represents tabular data built explicitly by a command.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Render renders the table to the writer.
func (t *Table) Render(w io.Writer) error {
	return t.RenderWithOptions(w, false)
}

// RenderWithOptions renders the table, optionally without headers.
func (t *Table) RenderWithOptions(w io.Writer, noHeaders bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if !noHeaders && len(t.Headers) > 0 {
		if _, err := fmt.Fprintln(tw, strings.Join(t.Headers, "\t")); err != nil {
			return err
		}
	}
	for _, row := range t.Rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}

	return tw.Flush()
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// SetHeaders sets the table headers.
func (t *Table) SetHeaders(headers ...string) {
	t.Headers = headers
}
