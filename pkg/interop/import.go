package interop

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/quasar/pkg/column"
	"github.com/ajitpratap0/quasar/pkg/device"
	"github.com/ajitpratap0/quasar/pkg/errors"
)

// ColumnFromDeviceArray reconstructs an engine column from an exported
// handle, copying buffer contents into fresh engine-owned allocations. It
// waits on the handle's completion token first, so it is safe to call from
// any execution context. The handle remains valid and owned by the caller.
func ColumnFromDeviceArray(ctx context.Context, h *DeviceArrayHandle, mr memory.Allocator) (*column.Column, error) {
	if err := h.Wait(ctx); err != nil {
		return nil, err
	}
	return importArray(h.Array(), mr)
}

// TableFromDeviceArray reconstructs a table from a struct-typed top-level
// node, one column per child.
func TableFromDeviceArray(ctx context.Context, h *DeviceArrayHandle, mr memory.Allocator) (*column.Table, error) {
	if err := h.Wait(ctx); err != nil {
		return nil, err
	}
	root := h.Array()
	if root.DataType().ID() != arrow.STRUCT {
		return nil, errors.Newf(errors.ErrorTypeData,
			"table import requires a struct-typed root, got %s", root.DataType())
	}
	cols := make([]*column.Column, 0, root.NumChildren())
	for i := 0; i < root.NumChildren(); i++ {
		c, err := importArray(root.Child(i), mr)
		if err != nil {
			for _, done := range cols {
				done.Free()
			}
			return nil, err
		}
		cols = append(cols, c)
	}
	return column.NewTable(cols...)
}

func copyBuffer(b *ForeignBuffer, mr memory.Allocator) (*device.Buffer, error) {
	if !b.IsSet() {
		return nil, nil
	}
	return device.NewBufferFromBytes(b.Bytes(), mr)
}

// importValidity copies the validity bitmask, resolving an unknown null
// count by counting bits.
func importValidity(a *ExportedArray, mr memory.Allocator) (*device.Buffer, int64, error) {
	if a.NumBuffers() == 0 || !a.Buffer(bufferValidity).IsSet() {
		return nil, 0, nil
	}
	mask, err := copyBuffer(a.Buffer(bufferValidity), mr)
	if err != nil {
		return nil, 0, err
	}
	nulls := a.NullCount()
	if nulls == column.UnknownNullCount {
		nulls = a.Len() - int64(bitutil.CountSetBits(mask.Bytes(), 0, int(a.Len())))
	}
	return mask, nulls, nil
}

func importArray(a *ExportedArray, mr memory.Allocator) (*column.Column, error) {
	dt, n := a.DataType(), a.Len()
	if dt.ID() == arrow.NULL {
		return column.NewEmpty(n), nil
	}

	mask, nulls, err := importValidity(a, mr)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*column.Column, error) {
		mask.Free()
		return nil, err
	}

	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT32, arrow.FLOAT64,
		arrow.DATE32, arrow.DATE64, arrow.TIMESTAMP,
		arrow.TIME32, arrow.TIME64, arrow.DURATION,
		arrow.DECIMAL128:
		data, err := copyBuffer(a.Buffer(bufferData), mr)
		if err != nil {
			return fail(err)
		}
		col := column.New(dt, n, mask, data, nil)
		col.SetNullCount(nulls)
		return col, nil

	case arrow.BOOL:
		// unpack the interchange bitmask back to byte-per-row storage
		data, err := device.NewBuffer(n, mr)
		if err != nil {
			return fail(err)
		}
		packed := a.Buffer(bufferData).Bytes()
		for i := int64(0); i < n; i++ {
			if bitutil.BitIsSet(packed, int(i)) {
				data.Bytes()[i] = 1
			}
		}
		col := column.New(dt, n, mask, data, nil)
		col.SetNullCount(nulls)
		return col, nil

	case arrow.STRING, arrow.LARGE_STRING:
		offType := arrow.DataType(arrow.PrimitiveTypes.Int32)
		if dt.ID() == arrow.LARGE_STRING {
			offType = arrow.PrimitiveTypes.Int64
		}
		offBuf, err := copyBuffer(a.Buffer(bufferOffsets), mr)
		if err != nil {
			return fail(err)
		}
		chars, err := copyBuffer(a.Buffer(bufferChars), mr)
		if err != nil {
			offBuf.Free()
			return fail(err)
		}
		offCol := column.New(offType, n+1, nil, offBuf, nil)
		col := column.New(dt, n, mask, chars, []*column.Column{offCol})
		col.SetNullCount(nulls)
		return col, nil

	case arrow.LIST:
		offBuf, err := copyBuffer(a.Buffer(bufferOffsets), mr)
		if err != nil {
			return fail(err)
		}
		elem, err := importArray(a.Child(0), mr)
		if err != nil {
			offBuf.Free()
			return fail(err)
		}
		offCol := column.New(arrow.PrimitiveTypes.Int32, n+1, nil, offBuf, nil)
		col := column.New(dt, n, mask, nil, []*column.Column{offCol, elem})
		col.SetNullCount(nulls)
		return col, nil

	case arrow.STRUCT:
		children := make([]*column.Column, 0, a.NumChildren())
		for i := 0; i < a.NumChildren(); i++ {
			ch, err := importArray(a.Child(i), mr)
			if err != nil {
				for _, done := range children {
					done.Free()
				}
				return fail(err)
			}
			children = append(children, ch)
		}
		col := column.New(dt, n, mask, nil, children)
		col.SetNullCount(nulls)
		return col, nil

	case arrow.DICTIONARY:
		dictType := dt.(*arrow.DictionaryType)
		idxBuf, err := copyBuffer(a.Buffer(bufferData), mr)
		if err != nil {
			return fail(err)
		}
		keys, err := importArray(a.Dictionary(), mr)
		if err != nil {
			idxBuf.Free()
			return fail(err)
		}
		idxCol := column.New(dictType.IndexType, n, nil, idxBuf, nil)
		col := column.New(dt, n, mask, nil, []*column.Column{idxCol, keys})
		col.SetNullCount(nulls)
		return col, nil

	default:
		return fail(errors.Newf(errors.ErrorTypeTypeIncompatible,
			"type %s is not representable in the device-array interchange format", dt))
	}
}
