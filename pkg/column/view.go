package column

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// ColumnView is a non-owning reference to column memory, used by the
// non-destructive export path. The viewed memory must outlive every
// consumer of the view; a view never transfers ownership.
type ColumnView struct {
	dtype     arrow.DataType
	length    int64
	offset    int64
	nullCount int64
	mask      []byte
	data      []byte
	children  []ColumnView
}

// NewView assembles a view over raw column memory.
func NewView(dtype arrow.DataType, length int64, mask, data []byte, children []ColumnView) ColumnView {
	nullCount := int64(0)
	if mask != nil {
		nullCount = UnknownNullCount
	}
	if mask == nil && dtype.ID() == arrow.NULL {
		nullCount = length
	}
	return ColumnView{
		dtype:     dtype,
		length:    length,
		nullCount: nullCount,
		mask:      mask,
		data:      data,
		children:  children,
	}
}

// View returns a non-owning view of the column and its children.
func (c *Column) View() ColumnView {
	children := make([]ColumnView, len(c.children))
	for i, ch := range c.children {
		children[i] = ch.View()
	}
	if len(children) == 0 {
		children = nil
	}
	return ColumnView{
		dtype:     c.dtype,
		length:    c.length,
		nullCount: c.nullCount,
		mask:      c.mask.Bytes(),
		data:      c.data.Bytes(),
		children:  children,
	}
}

// DataType returns the viewed column's logical type descriptor.
func (v ColumnView) DataType() arrow.DataType { return v.dtype }

// Len returns the number of rows.
func (v ColumnView) Len() int64 { return v.length }

// Offset returns the element offset into the viewed memory.
func (v ColumnView) Offset() int64 { return v.offset }

// NullCount returns the number of null rows, or UnknownNullCount.
func (v ColumnView) NullCount() int64 { return v.nullCount }

// Nullable reports whether the view carries a null mask.
func (v ColumnView) Nullable() bool { return v.mask != nil }

// Mask returns the viewed validity bitmask bytes.
func (v ColumnView) Mask() []byte { return v.mask }

// Data returns the viewed payload bytes.
func (v ColumnView) Data() []byte { return v.data }

// NumChildren returns the number of child views.
func (v ColumnView) NumChildren() int { return len(v.children) }

// Child returns the i-th child view.
func (v ColumnView) Child(i int) ColumnView { return v.children[i] }
