// Package column implements the engine's internal column representation:
// typed, nullable, arbitrarily-nested device-resident columns.
//
// A Column exclusively owns its buffers and children. Physical layout
// follows the engine convention:
//
//	fixed-width / decimal  data = elements, no children
//	boolean                data = one byte per row (not bit-packed)
//	string                 data = character bytes, child 0 = offsets column
//	list                   child 0 = offsets column, child 1 = elements
//	struct                 one child per field
//	dictionary             child 0 = indices column, child 1 = keys column
//	null (degenerate)      no buffers, no children
//
// The null mask, when present, is a validity bitmask: bit i set means row i
// is valid. Absence of the mask means no nulls are possible.
package column

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/ajitpratap0/quasar/pkg/device"
)

// UnknownNullCount marks a null count that has not been computed.
const UnknownNullCount int64 = -1

// Column is an exclusively-owned, device-resident column of typed values.
type Column struct {
	dtype     arrow.DataType
	length    int64
	nullCount int64
	mask      *device.Buffer
	data      *device.Buffer
	children  []*Column
}

// New assembles a column from already-built parts. Ownership of the buffers
// and children moves into the column.
func New(dtype arrow.DataType, length int64, mask, data *device.Buffer, children []*Column) *Column {
	nullCount := int64(0)
	if mask == nil && dtype.ID() == arrow.NULL {
		nullCount = length
	}
	if mask != nil {
		nullCount = UnknownNullCount
	}
	return &Column{
		dtype:     dtype,
		length:    length,
		nullCount: nullCount,
		mask:      mask,
		data:      data,
		children:  children,
	}
}

// SetNullCount records the known number of nulls.
func (c *Column) SetNullCount(n int64) { c.nullCount = n }

// DataType returns the column's resolved logical type descriptor.
func (c *Column) DataType() arrow.DataType { return c.dtype }

// Len returns the number of rows.
func (c *Column) Len() int64 { return c.length }

// NullCount returns the number of null rows, or UnknownNullCount.
func (c *Column) NullCount() int64 { return c.nullCount }

// Nullable reports whether the column carries a null mask.
func (c *Column) Nullable() bool { return c.mask != nil }

// NumChildren returns the number of child columns.
func (c *Column) NumChildren() int { return len(c.children) }

// Child returns the i-th child column without transferring ownership.
func (c *Column) Child(i int) *Column { return c.children[i] }

// Data returns the payload buffer without transferring ownership.
func (c *Column) Data() *device.Buffer { return c.data }

// Mask returns the null-mask buffer without transferring ownership.
func (c *Column) Mask() *device.Buffer { return c.mask }

// Contents is the flat ownership-transfer payload extracted from a column.
// Buffer handles and child columns it holds are unique ownership tokens;
// each may be taken exactly once.
type Contents struct {
	Mask     *device.Buffer
	Data     *device.Buffer
	Children []*Column
}

// Release moves the column's buffers and children out, leaving the column
// empty and unusable. This is a one-shot, destructive operation.
func (c *Column) Release() Contents {
	out := Contents{
		Mask:     c.mask,
		Data:     c.data,
		Children: c.children,
	}
	c.dtype = arrow.Null
	c.length = 0
	c.nullCount = 0
	c.mask = nil
	c.data = nil
	c.children = nil
	return out
}

// Free releases all buffers still owned by the column, recursively. The
// column is left empty. Safe on nil and on already-released columns.
func (c *Column) Free() {
	if c == nil {
		return
	}
	rel := c.Release()
	rel.Free()
}

// TakeMask moves the null-mask buffer out of the contents.
func (r *Contents) TakeMask() *device.Buffer {
	m := r.Mask
	r.Mask = nil
	return m
}

// TakeData moves the data buffer out of the contents.
func (r *Contents) TakeData() *device.Buffer {
	d := r.Data
	r.Data = nil
	return d
}

// TakeChild moves the i-th child column out of the contents.
func (r *Contents) TakeChild(i int) *Column {
	ch := r.Children[i]
	r.Children[i] = nil
	return ch
}

// Free destroys every buffer and child still held by the contents. Used on
// failure paths so a partially-transferred export never leaks.
func (r *Contents) Free() {
	r.TakeMask().Free()
	r.TakeData().Free()
	for i := range r.Children {
		if r.Children[i] != nil {
			r.TakeChild(i).Free()
		}
	}
	r.Children = nil
}
