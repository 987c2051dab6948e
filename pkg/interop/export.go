package interop

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/quasar/pkg/column"
	"github.com/ajitpratap0/quasar/pkg/device"
	"github.com/ajitpratap0/quasar/pkg/errors"
)

// exportColumn is the owning dispatcher: it consumes the column, moving its
// buffers into a foreign-owned tree. On failure the column's buffers are
// freed and the column is left empty, so repeated failing exports never
// leak. Unsupported type categories hit the single default arm and leave
// the column untouched.
func exportColumn(col *column.Column, st *device.Stream, mr memory.Allocator) (*ExportedArray, error) {
	dt := col.DataType()
	switch dt.ID() {
	case arrow.NULL:
		n, nulls := col.Len(), col.NullCount()
		col.Free()
		return newEmptyArray(n, nulls), nil
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT32, arrow.FLOAT64,
		arrow.DATE32, arrow.DATE64, arrow.TIMESTAMP,
		arrow.TIME32, arrow.TIME64, arrow.DURATION,
		arrow.DECIMAL128:
		return exportFixedWidth(col), nil
	case arrow.BOOL:
		return exportBool(col, st, mr)
	case arrow.STRING, arrow.LARGE_STRING:
		return exportStrings(col, mr)
	case arrow.LIST:
		return exportList(col, st, mr)
	case arrow.STRUCT:
		return exportStruct(col, st, mr)
	case arrow.DICTIONARY:
		return exportDictionary(col, st, mr)
	default:
		return nil, errors.Newf(errors.ErrorTypeTypeIncompatible,
			"type %s is not representable in the device-array interchange format", dt)
	}
}

// exportFixedWidth passes the null-mask and data buffers through untouched;
// the storage type is the logical type with no transformation.
func exportFixedWidth(col *column.Column) *ExportedArray {
	dt, n, nulls := col.DataType(), col.Len(), col.NullCount()
	rel := col.Release()
	out := newArray(dt, n, nulls, 2)
	out.attachOwned(bufferValidity, rel.TakeMask())
	out.attachOwned(bufferData, rel.TakeData())
	rel.Free()
	return out
}

// exportBool packs the engine's byte-per-row booleans into a fresh
// bitmask-shaped buffer on the stream, then transfers the new buffer. This
// is the one handler that allocates new payload instead of transferring
// existing payload; the original buffer is freed once packing completes.
func exportBool(col *column.Column, st *device.Stream, mr memory.Allocator) (*ExportedArray, error) {
	n, nulls := col.Len(), col.NullCount()
	rel := col.Release()

	packed, err := device.NewBuffer(bitutil.BytesForBits(n), mr)
	if err != nil {
		rel.Free()
		return nil, err
	}
	src := rel.TakeData()
	if err := st.Submit(func() {
		dst := packed.Bytes()
		for i, b := range src.Bytes() {
			if b != 0 {
				bitutil.SetBit(dst, i)
			}
		}
		src.Free()
	}); err != nil {
		packed.Free()
		src.Free()
		rel.Free()
		return nil, errors.Wrap(err, errors.ErrorTypeSync, "failed to enqueue boolean packing")
	}

	out := newArray(arrow.FixedWidthTypes.Boolean, n, nulls, 2)
	out.attachOwned(bufferValidity, rel.TakeMask())
	out.attachOwnedOrdered(bufferData, packed, st)
	rel.Free()
	return out, nil
}

// exportStrings transfers the null mask, offsets, and character buffers
// into slots 0..2. The offset width follows the source's offsets child; a
// zero-row column gets a synthesized single zero offset of the same width
// instead of its real child buffers, because the format requires length+1
// offsets even when length is zero.
func exportStrings(col *column.Column, mr memory.Allocator) (*ExportedArray, error) {
	n, nulls := col.Len(), col.NullCount()
	wide := col.DataType().ID() == arrow.LARGE_STRING
	if col.NumChildren() > 0 {
		wide = col.Child(0).DataType().ID() == arrow.INT64
	} else if n > 0 {
		return nil, errors.New(errors.ErrorTypeData, "string column with rows but no offsets child")
	}

	dt := arrow.DataType(arrow.BinaryTypes.String)
	width := int64(arrow.Int32SizeBytes)
	if wide {
		dt = arrow.BinaryTypes.LargeString
		width = int64(arrow.Int64SizeBytes)
	}
	rel := col.Release()
	out := newArray(dt, n, nulls, 3)
	out.attachOwned(bufferValidity, rel.TakeMask())

	if n == 0 {
		// A buffer of one zero-valued offset element, materialized
		// explicitly: an absent buffer is not interchangeable with a
		// zero-length one under the format's validation rules.
		off, err := device.NewBuffer(width, mr)
		if err != nil {
			out.Release()
			rel.Free()
			return nil, err
		}
		out.attachOwned(bufferOffsets, off)
		rel.Free()
		return out, nil
	}

	offRel := rel.TakeChild(0).Release()
	out.attachOwned(bufferOffsets, offRel.TakeData())
	out.attachOwned(bufferChars, rel.TakeData())
	offRel.Free()
	rel.Free()
	return out, nil
}

// exportList transfers the null mask and offsets, then recursively exports
// the single element child.
func exportList(col *column.Column, st *device.Stream, mr memory.Allocator) (*ExportedArray, error) {
	if col.NumChildren() != 2 {
		return nil, errors.Newf(errors.ErrorTypeData,
			"list column has %d children, want offsets and elements", col.NumChildren())
	}
	dt, n, nulls := col.DataType(), col.Len(), col.NullCount()
	rel := col.Release()
	out := newArray(dt, n, nulls, 2)
	out.attachOwned(bufferValidity, rel.TakeMask())

	offRel := rel.TakeChild(0).Release()
	out.attachOwned(bufferOffsets, offRel.TakeData())
	offRel.Free()

	elem := rel.TakeChild(1)
	child, err := exportColumn(elem, st, mr)
	if err != nil {
		elem.Free()
		out.Release()
		rel.Free()
		return nil, err
	}
	out.children = []*ExportedArray{child}
	rel.Free()
	return out, nil
}

// exportStruct transfers the null mask and recursively exports each child
// in original order. Degenerate-typed children take the empty path
// directly rather than the general dispatcher.
func exportStruct(col *column.Column, st *device.Stream, mr memory.Allocator) (*ExportedArray, error) {
	dt, n, nulls := col.DataType(), col.Len(), col.NullCount()
	rel := col.Release()
	out := newArray(dt, n, nulls, 1)
	out.attachOwned(bufferValidity, rel.TakeMask())

	out.children = make([]*ExportedArray, 0, len(rel.Children))
	for i := range rel.Children {
		ch := rel.TakeChild(i)
		if ch.DataType().ID() == arrow.NULL {
			cn, cnulls := ch.Len(), ch.NullCount()
			ch.Free()
			out.children = append(out.children, newEmptyArray(cn, cnulls))
			continue
		}
		childArr, err := exportColumn(ch, st, mr)
		if err != nil {
			ch.Free()
			out.Release()
			rel.Free()
			return nil, err
		}
		out.children = append(out.children, childArr)
	}
	rel.Free()
	return out, nil
}

// exportDictionary transfers the indices buffer as the main data buffer
// and recursively exports the keys as the dictionary child. A zero-row
// column substitutes the deterministic placeholder: zero-length
// 32-bit-indexed indices over a zero-length 64-bit-typed keys array.
func exportDictionary(col *column.Column, st *device.Stream, mr memory.Allocator) (*ExportedArray, error) {
	n, nulls := col.Len(), col.NullCount()
	if n == 0 {
		col.Free()
		dt := &arrow.DictionaryType{
			IndexType: arrow.PrimitiveTypes.Int32,
			ValueType: arrow.PrimitiveTypes.Int64,
		}
		out := newArray(dt, 0, 0, 2)
		out.dictionary = newArray(arrow.PrimitiveTypes.Int64, 0, 0, 2)
		return out, nil
	}
	if col.NumChildren() != 2 {
		return nil, errors.Newf(errors.ErrorTypeData,
			"dictionary column has %d children, want indices and keys", col.NumChildren())
	}

	idxType := col.Child(0).DataType()
	keyType := col.Child(1).DataType()
	rel := col.Release()
	out := newArray(&arrow.DictionaryType{IndexType: idxType, ValueType: keyType}, n, nulls, 2)
	out.attachOwned(bufferValidity, rel.TakeMask())

	idxRel := rel.TakeChild(0).Release()
	out.attachOwned(bufferData, idxRel.TakeData())
	idxRel.Free()

	keys := rel.TakeChild(1)
	dict, err := exportColumn(keys, st, mr)
	if err != nil {
		keys.Free()
		out.Release()
		rel.Free()
		return nil, err
	}
	out.dictionary = dict
	rel.Free()
	return out, nil
}
