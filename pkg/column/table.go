package column

import (
	"github.com/ajitpratap0/quasar/pkg/errors"
)

// Table is an ordered set of equal-length columns. It owns its columns.
type Table struct {
	cols []*Column
}

// NewTable assembles a table, taking ownership of the columns. All columns
// must have the same length.
func NewTable(cols ...*Column) (*Table, error) {
	for i := 1; i < len(cols); i++ {
		if cols[i].Len() != cols[0].Len() {
			return nil, errors.Newf(errors.ErrorTypeData,
				"table column %d has %d rows, expected %d", i, cols[i].Len(), cols[0].Len())
		}
	}
	return &Table{cols: cols}, nil
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.cols) }

// NumRows returns the number of rows.
func (t *Table) NumRows() int64 {
	if len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].Len()
}

// Column returns the i-th column without transferring ownership.
func (t *Table) Column(i int) *Column { return t.cols[i] }

// Release moves every column out of the table, leaving it empty.
func (t *Table) Release() []*Column {
	cols := t.cols
	t.cols = nil
	return cols
}

// Free destroys all columns still owned by the table.
func (t *Table) Free() {
	if t == nil {
		return
	}
	for _, c := range t.Release() {
		c.Free()
	}
}

// View returns non-owning views of every column.
func (t *Table) View() []ColumnView {
	views := make([]ColumnView, len(t.cols))
	for i, c := range t.cols {
		views[i] = c.View()
	}
	return views
}
