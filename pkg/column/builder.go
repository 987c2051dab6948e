package column

import (
	"unsafe"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/quasar/pkg/device"
	"github.com/ajitpratap0/quasar/pkg/errors"
)

// Numeric constrains the Go element types storable in fixed-width columns.
type Numeric interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

func castToBytes[E Numeric](vals []E) []byte {
	if len(vals) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vals[0])), len(vals)*int(unsafe.Sizeof(vals[0])))
}

// newValidity packs a []bool validity pattern into a bitmask buffer.
// A nil pattern means the column is non-nullable (no mask at all).
func newValidity(valid []bool, mr memory.Allocator) (*device.Buffer, int64, error) {
	if valid == nil {
		return nil, 0, nil
	}
	buf, err := device.NewBuffer(bitutil.BytesForBits(int64(len(valid))), mr)
	if err != nil {
		return nil, 0, err
	}
	var nulls int64
	for i, v := range valid {
		if v {
			bitutil.SetBit(buf.Bytes(), i)
		} else {
			nulls++
		}
	}
	return buf, nulls, nil
}

// FromNumeric builds a fixed-width column of the given type from a Go
// slice. valid marks per-row validity; nil valid means non-nullable.
func FromNumeric[E Numeric](dtype arrow.DataType, vals []E, valid []bool, mr memory.Allocator) (*Column, error) {
	fw, ok := dtype.(arrow.FixedWidthDataType)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeData, "type %s is not fixed width", dtype)
	}
	var zero E
	if fw.BitWidth() != 8*int(unsafe.Sizeof(zero)) {
		return nil, errors.Newf(errors.ErrorTypeData,
			"element width %d does not match %s", 8*unsafe.Sizeof(zero), dtype)
	}
	if valid != nil && len(valid) != len(vals) {
		return nil, errors.New(errors.ErrorTypeData, "validity length does not match values")
	}

	data, err := device.NewBufferFromBytes(castToBytes(vals), mr)
	if err != nil {
		return nil, err
	}
	mask, nulls, err := newValidity(valid, mr)
	if err != nil {
		data.Free()
		return nil, err
	}
	col := New(dtype, int64(len(vals)), mask, data, nil)
	col.SetNullCount(nulls)
	return col, nil
}

// FromInt64s builds an INT64 column.
func FromInt64s(vals []int64, valid []bool, mr memory.Allocator) (*Column, error) {
	return FromNumeric(arrow.PrimitiveTypes.Int64, vals, valid, mr)
}

// FromInt32s builds an INT32 column.
func FromInt32s(vals []int32, valid []bool, mr memory.Allocator) (*Column, error) {
	return FromNumeric(arrow.PrimitiveTypes.Int32, vals, valid, mr)
}

// FromFloat64s builds a FLOAT64 column.
func FromFloat64s(vals []float64, valid []bool, mr memory.Allocator) (*Column, error) {
	return FromNumeric(arrow.PrimitiveTypes.Float64, vals, valid, mr)
}

// FromDecimal128 builds a DECIMAL128 column with the given precision and scale.
func FromDecimal128(precision, scale int32, vals []decimal128.Num, valid []bool, mr memory.Allocator) (*Column, error) {
	raw := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(vals))), len(vals)*16)
	data, err := device.NewBufferFromBytes(raw, mr)
	if err != nil {
		return nil, err
	}
	mask, nulls, err := newValidity(valid, mr)
	if err != nil {
		data.Free()
		return nil, err
	}
	col := New(&arrow.Decimal128Type{Precision: precision, Scale: scale}, int64(len(vals)), mask, data, nil)
	col.SetNullCount(nulls)
	return col, nil
}

// FromBools builds a BOOL column. The engine stores booleans one byte per
// row; bit packing happens only at export.
func FromBools(vals []bool, valid []bool, mr memory.Allocator) (*Column, error) {
	data, err := device.NewBuffer(int64(len(vals)), mr)
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		if v {
			data.Bytes()[i] = 1
		}
	}
	mask, nulls, err := newValidity(valid, mr)
	if err != nil {
		data.Free()
		return nil, err
	}
	col := New(arrow.FixedWidthTypes.Boolean, int64(len(vals)), mask, data, nil)
	col.SetNullCount(nulls)
	return col, nil
}

// FromStrings builds a STRING column with 32-bit offsets.
func FromStrings(vals []string, valid []bool, mr memory.Allocator) (*Column, error) {
	return buildStrings(vals, valid, false, mr)
}

// FromLargeStrings builds a string column with 64-bit offsets.
func FromLargeStrings(vals []string, valid []bool, mr memory.Allocator) (*Column, error) {
	return buildStrings(vals, valid, true, mr)
}

func buildStrings(vals []string, valid []bool, wide bool, mr memory.Allocator) (*Column, error) {
	var chars []byte
	for i, s := range vals {
		if valid != nil && !valid[i] {
			continue
		}
		chars = append(chars, s...)
	}

	var offBytes []byte
	var offType arrow.DataType
	if wide {
		offs := make([]int64, len(vals)+1)
		var pos int64
		for i, s := range vals {
			offs[i] = pos
			if valid == nil || valid[i] {
				pos += int64(len(s))
			}
		}
		offs[len(vals)] = pos
		offBytes = castToBytes(offs)
		offType = arrow.PrimitiveTypes.Int64
	} else {
		offs := make([]int32, len(vals)+1)
		var pos int32
		for i, s := range vals {
			offs[i] = pos
			if valid == nil || valid[i] {
				pos += int32(len(s))
			}
		}
		offs[len(vals)] = pos
		offBytes = castToBytes(offs)
		offType = arrow.PrimitiveTypes.Int32
	}

	offBuf, err := device.NewBufferFromBytes(offBytes, mr)
	if err != nil {
		return nil, err
	}
	charBuf, err := device.NewBufferFromBytes(chars, mr)
	if err != nil {
		offBuf.Free()
		return nil, err
	}
	mask, nulls, err := newValidity(valid, mr)
	if err != nil {
		offBuf.Free()
		charBuf.Free()
		return nil, err
	}

	dtype := arrow.DataType(arrow.BinaryTypes.String)
	if wide {
		dtype = arrow.BinaryTypes.LargeString
	}
	offCol := New(offType, int64(len(vals))+1, nil, offBuf, nil)
	col := New(dtype, int64(len(vals)), mask, charBuf, []*Column{offCol})
	col.SetNullCount(nulls)
	return col, nil
}

// NewList builds a LIST column over the element column. offsets must have
// one more entry than the list has rows, be non-decreasing, and end at the
// element count. Takes ownership of elem.
func NewList(offsets []int32, elem *Column, valid []bool, mr memory.Allocator) (*Column, error) {
	if len(offsets) == 0 {
		return nil, errors.New(errors.ErrorTypeData, "list offsets must have at least one entry")
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return nil, errors.New(errors.ErrorTypeData, "list offsets must be non-decreasing")
		}
	}
	if int64(offsets[len(offsets)-1]) != elem.Len() {
		return nil, errors.Newf(errors.ErrorTypeData,
			"final list offset %d does not match element count %d", offsets[len(offsets)-1], elem.Len())
	}

	offBuf, err := device.NewBufferFromBytes(castToBytes(offsets), mr)
	if err != nil {
		return nil, err
	}
	mask, nulls, err := newValidity(valid, mr)
	if err != nil {
		offBuf.Free()
		return nil, err
	}
	offCol := New(arrow.PrimitiveTypes.Int32, int64(len(offsets)), nil, offBuf, nil)
	col := New(arrow.ListOf(elem.DataType()), int64(len(offsets))-1, mask, nil, []*Column{offCol, elem})
	col.SetNullCount(nulls)
	return col, nil
}

// NewStruct builds a STRUCT column from named children of equal length.
// Takes ownership of the children.
func NewStruct(names []string, children []*Column, valid []bool, mr memory.Allocator) (*Column, error) {
	if len(names) != len(children) {
		return nil, errors.New(errors.ErrorTypeData, "struct field names do not match children")
	}
	var length int64
	fields := make([]arrow.Field, len(children))
	for i, ch := range children {
		if i == 0 {
			length = ch.Len()
		} else if ch.Len() != length {
			return nil, errors.Newf(errors.ErrorTypeData,
				"struct child %d has %d rows, expected %d", i, ch.Len(), length)
		}
		fields[i] = arrow.Field{Name: names[i], Type: ch.DataType(), Nullable: ch.Nullable()}
	}
	if len(children) == 0 {
		length = int64(len(valid))
	}
	mask, nulls, err := newValidity(valid, mr)
	if err != nil {
		return nil, err
	}
	col := New(arrow.StructOf(fields...), length, mask, nil, children)
	col.SetNullCount(nulls)
	return col, nil
}

// NewDictionary builds a DICTIONARY column from an integer indices column
// and a keys column of unique values. Takes ownership of both.
func NewDictionary(indices, keys *Column, valid []bool, mr memory.Allocator) (*Column, error) {
	switch indices.DataType().ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
	default:
		return nil, errors.Newf(errors.ErrorTypeData,
			"dictionary indices must be integers, got %s", indices.DataType())
	}
	mask, nulls, err := newValidity(valid, mr)
	if err != nil {
		return nil, err
	}
	dtype := &arrow.DictionaryType{IndexType: indices.DataType(), ValueType: keys.DataType()}
	col := New(dtype, indices.Len(), mask, nil, []*Column{indices, keys})
	col.SetNullCount(nulls)
	return col, nil
}

// NewEmpty builds a degenerate column: a type that carries no payload at
// all. It has no buffers and no children, only length metadata.
func NewEmpty(length int64) *Column {
	return New(arrow.Null, length, nil, nil, nil)
}
