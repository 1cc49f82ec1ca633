package dataset

import (
	"strconv"
	"strings"

	"golang.org/x/xerrors"

	"go-ml.dev/pkg/defectdetect/tensor"
)

/*
ErrDuplicateID reports a sample identifier occurring more than once
*/
var ErrDuplicateID = xerrors.New("duplicate sample identifier")

/*
Row is one labeled image sample
*/
type Row struct {
	ID      string
	Image   *tensor.Image
	Type    string
	Quality float64
}

/*
Table is an in-memory collection of sample rows with unique identifiers
*/
type Table struct {
	rows []Row
}

/*
NewTable builds a table from rows enforcing identifier uniqueness
*/
func NewTable(rows []Row) (*Table, error) {
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		if seen[r.ID] {
			return nil, xerrors.Errorf("sample %q: %w", r.ID, ErrDuplicateID)
		}
		seen[r.ID] = true
	}
	return &Table{rows: rows}, nil
}

func (t *Table) Len() int    { return len(t.rows) }
func (t *Table) Rows() []Row { return t.rows }
func (t *Table) Row(i int) Row {
	return t.rows[i]
}

/*
SetImage replaces the image of row i in place
*/
func (t *Table) SetImage(i int, img *tensor.Image) {
	t.rows[i].Image = img
}

/*
Filter keeps only the rows satisfying a comparison query of the form
`column <op> literal` where op is one of ==, !=, >, >=, <, <= and literal
is a 'quoted string' or a number, e.g. `type=='poly'` or `proba>=0.5`.
The column is resolved against the given schema.
*/
func (t *Table) Filter(schema Schema, query string) error {
	pred, err := compileQuery(schema, query)
	if err != nil {
		return err
	}
	kept := t.rows[:0]
	for _, r := range t.rows {
		if pred(r) {
			kept = append(kept, r)
		}
	}
	t.rows = kept
	return nil
}

var queryOps = []string{"==", "!=", ">=", "<=", ">", "<"}

func compileQuery(schema Schema, query string) (func(Row) bool, error) {
	var op string
	var at int
	for _, q := range queryOps {
		if i := strings.Index(query, q); i >= 0 {
			op, at = q, i
			break
		}
	}
	if op == "" {
		return nil, xerrors.Errorf("query %q has no comparison operator", query)
	}
	column := strings.TrimSpace(query[:at])
	lit := strings.TrimSpace(query[at+len(op):])

	if strings.HasPrefix(lit, "'") && strings.HasSuffix(lit, "'") && len(lit) >= 2 {
		value := lit[1 : len(lit)-1]
		get, err := stringColumn(schema, column)
		if err != nil {
			return nil, err
		}
		switch op {
		case "==":
			return func(r Row) bool { return get(r) == value }, nil
		case "!=":
			return func(r Row) bool { return get(r) != value }, nil
		}
		return nil, xerrors.Errorf("operator %q is not applicable to string column %q", op, column)
	}

	value, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return nil, xerrors.Errorf("query %q: bad literal %q", query, lit)
	}
	if column != schema.Quality {
		return nil, xerrors.Errorf("column %q is not numeric", column)
	}
	switch op {
	case "==":
		return func(r Row) bool { return r.Quality == value }, nil
	case "!=":
		return func(r Row) bool { return r.Quality != value }, nil
	case ">":
		return func(r Row) bool { return r.Quality > value }, nil
	case ">=":
		return func(r Row) bool { return r.Quality >= value }, nil
	case "<":
		return func(r Row) bool { return r.Quality < value }, nil
	case "<=":
		return func(r Row) bool { return r.Quality <= value }, nil
	}
	return nil, xerrors.Errorf("unsupported operator %q", op)
}

func stringColumn(schema Schema, column string) (func(Row) string, error) {
	switch column {
	case schema.SampleID:
		return func(r Row) string { return r.ID }, nil
	case schema.Type:
		return func(r Row) string { return r.Type }, nil
	}
	return nil, xerrors.Errorf("unknown string column %q", column)
}
