package interop

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/quasar/pkg/column"
	"github.com/ajitpratap0/quasar/pkg/device"
	"github.com/ajitpratap0/quasar/pkg/errors"
)

// exportView is the view dispatcher: it references column memory without
// transferring ownership. The viewed memory must outlive every consumer of
// the returned tree. Boolean packing and the zero-row string offset still
// allocate fresh owned buffers; everything else is a reference.
func exportView(v column.ColumnView, st *device.Stream, mr memory.Allocator) (*ExportedArray, error) {
	dt := v.DataType()
	switch dt.ID() {
	case arrow.NULL:
		return newEmptyArray(v.Len(), v.NullCount()), nil
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT32, arrow.FLOAT64,
		arrow.DATE32, arrow.DATE64, arrow.TIMESTAMP,
		arrow.TIME32, arrow.TIME64, arrow.DURATION,
		arrow.DECIMAL128:
		out := newArray(dt, v.Len(), v.NullCount(), 2)
		out.attachView(bufferValidity, v.Mask())
		out.attachView(bufferData, v.Data())
		return out, nil
	case arrow.BOOL:
		return exportBoolView(v, st, mr)
	case arrow.STRING, arrow.LARGE_STRING:
		return exportStringsView(v, mr)
	case arrow.LIST:
		if v.NumChildren() != 2 {
			return nil, errors.Newf(errors.ErrorTypeData,
				"list view has %d children, want offsets and elements", v.NumChildren())
		}
		out := newArray(dt, v.Len(), v.NullCount(), 2)
		out.attachView(bufferValidity, v.Mask())
		out.attachView(bufferOffsets, v.Child(0).Data())
		child, err := exportView(v.Child(1), st, mr)
		if err != nil {
			out.Release()
			return nil, err
		}
		out.children = []*ExportedArray{child}
		return out, nil
	case arrow.STRUCT:
		out := newArray(dt, v.Len(), v.NullCount(), 1)
		out.attachView(bufferValidity, v.Mask())
		out.children = make([]*ExportedArray, 0, v.NumChildren())
		for i := 0; i < v.NumChildren(); i++ {
			ch := v.Child(i)
			if ch.DataType().ID() == arrow.NULL {
				out.children = append(out.children, newEmptyArray(ch.Len(), ch.NullCount()))
				continue
			}
			childArr, err := exportView(ch, st, mr)
			if err != nil {
				out.Release()
				return nil, err
			}
			out.children = append(out.children, childArr)
		}
		return out, nil
	case arrow.DICTIONARY:
		return exportDictionaryView(v, st, mr)
	default:
		return nil, errors.Newf(errors.ErrorTypeTypeIncompatible,
			"type %s is not representable in the device-array interchange format", dt)
	}
}

func exportBoolView(v column.ColumnView, st *device.Stream, mr memory.Allocator) (*ExportedArray, error) {
	packed, err := device.NewBuffer(bitutil.BytesForBits(v.Len()), mr)
	if err != nil {
		return nil, err
	}
	src := v.Data()
	if err := st.Submit(func() {
		dst := packed.Bytes()
		for i, b := range src {
			if b != 0 {
				bitutil.SetBit(dst, i)
			}
		}
	}); err != nil {
		packed.Free()
		return nil, errors.Wrap(err, errors.ErrorTypeSync, "failed to enqueue boolean packing")
	}
	out := newArray(arrow.FixedWidthTypes.Boolean, v.Len(), v.NullCount(), 2)
	out.attachView(bufferValidity, v.Mask())
	out.attachOwnedOrdered(bufferData, packed, st)
	return out, nil
}

func exportStringsView(v column.ColumnView, mr memory.Allocator) (*ExportedArray, error) {
	n := v.Len()
	wide := v.DataType().ID() == arrow.LARGE_STRING
	if v.NumChildren() > 0 {
		wide = v.Child(0).DataType().ID() == arrow.INT64
	} else if n > 0 {
		return nil, errors.New(errors.ErrorTypeData, "string view with rows but no offsets child")
	}

	dt := arrow.DataType(arrow.BinaryTypes.String)
	width := int64(arrow.Int32SizeBytes)
	if wide {
		dt = arrow.BinaryTypes.LargeString
		width = int64(arrow.Int64SizeBytes)
	}
	out := newArray(dt, n, v.NullCount(), 3)
	out.attachView(bufferValidity, v.Mask())

	if n == 0 {
		off, err := device.NewBuffer(width, mr)
		if err != nil {
			out.Release()
			return nil, err
		}
		out.attachOwned(bufferOffsets, off)
		return out, nil
	}

	out.attachView(bufferOffsets, v.Child(0).Data())
	out.attachView(bufferChars, v.Data())
	return out, nil
}

func exportDictionaryView(v column.ColumnView, st *device.Stream, mr memory.Allocator) (*ExportedArray, error) {
	if v.Len() == 0 {
		dt := &arrow.DictionaryType{
			IndexType: arrow.PrimitiveTypes.Int32,
			ValueType: arrow.PrimitiveTypes.Int64,
		}
		out := newArray(dt, 0, 0, 2)
		out.dictionary = newArray(arrow.PrimitiveTypes.Int64, 0, 0, 2)
		return out, nil
	}
	if v.NumChildren() != 2 {
		return nil, errors.Newf(errors.ErrorTypeData,
			"dictionary view has %d children, want indices and keys", v.NumChildren())
	}

	idx, keys := v.Child(0), v.Child(1)
	dt := &arrow.DictionaryType{IndexType: idx.DataType(), ValueType: keys.DataType()}
	out := newArray(dt, v.Len(), v.NullCount(), 2)
	out.attachView(bufferValidity, v.Mask())
	out.attachView(bufferData, idx.Data())

	dict, err := exportView(keys, st, mr)
	if err != nil {
		out.Release()
		return nil, err
	}
	out.dictionary = dict
	return out, nil
}
