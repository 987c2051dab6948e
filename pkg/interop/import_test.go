package interop

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/quasar/pkg/column"
	"github.com/ajitpratap0/quasar/pkg/testutil"
)

func TestRoundTripFixedWidth(t *testing.T) {
	mr := testutil.NewCheckedAllocator()
	ctx := context.Background()

	col, err := column.FromInt64s([]int64{1, 2, 3, 4, 5}, []bool{true, false, true, true, false}, mr)
	require.NoError(t, err)
	wantData := copyBytes(col.Data().Bytes())
	wantMask := copyBytes(col.Mask().Bytes())

	h, err := ToDeviceArray(ctx, col, nil, mr)
	require.NoError(t, err)

	back, err := ColumnFromDeviceArray(ctx, h, mr)
	require.NoError(t, err)

	assert.Equal(t, arrow.INT64, back.DataType().ID())
	assert.Equal(t, int64(5), back.Len())
	assert.Equal(t, int64(2), back.NullCount())
	assert.Equal(t, wantData, back.Data().Bytes())
	assert.Equal(t, wantMask, back.Mask().Bytes())

	back.Free()
	h.Release()
	testutil.AssertAllFreed(t, mr)
}

func TestRoundTripDecimalAndTemporal(t *testing.T) {
	valid := []bool{true, true, false}
	cases := []struct {
		name  string
		build func(mr memory.Allocator) (*column.Column, error)
		id    arrow.Type
	}{
		{"decimal128", func(mr memory.Allocator) (*column.Column, error) {
			vals := []decimal128.Num{
				decimal128.FromI64(1250075),
				decimal128.FromI64(-99),
				decimal128.FromI64(0),
			}
			return column.FromDecimal128(38, 4, vals, valid, mr)
		}, arrow.DECIMAL128},
		{"timestamp", func(mr memory.Allocator) (*column.Column, error) {
			return column.FromNumeric[int64](arrow.FixedWidthTypes.Timestamp_us,
				[]int64{1700000000000000, 1700000000000001, 0}, valid, mr)
		}, arrow.TIMESTAMP},
		{"date32", func(mr memory.Allocator) (*column.Column, error) {
			return column.FromNumeric[int32](arrow.FixedWidthTypes.Date32,
				[]int32{19700, 19701, 0}, valid, mr)
		}, arrow.DATE32},
		{"time64", func(mr memory.Allocator) (*column.Column, error) {
			return column.FromNumeric[int64](arrow.FixedWidthTypes.Time64us,
				[]int64{0, 86399999999, 0}, valid, mr)
		}, arrow.TIME64},
		{"duration", func(mr memory.Allocator) (*column.Column, error) {
			return column.FromNumeric[int64](arrow.FixedWidthTypes.Duration_ms,
				[]int64{1500, -1500, 0}, valid, mr)
		}, arrow.DURATION},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mr := testutil.NewCheckedAllocator()
			ctx := context.Background()

			col, err := tc.build(mr)
			require.NoError(t, err)
			wantType := col.DataType()
			wantData := copyBytes(col.Data().Bytes())
			wantMask := copyBytes(col.Mask().Bytes())

			h, err := ToDeviceArray(ctx, col, nil, mr)
			require.NoError(t, err)
			assert.Equal(t, tc.id, h.Array().DataType().ID())

			back, err := ColumnFromDeviceArray(ctx, h, mr)
			require.NoError(t, err)

			assert.Equal(t, wantType, back.DataType())
			assert.Equal(t, int64(3), back.Len())
			assert.Equal(t, int64(1), back.NullCount())
			assert.Equal(t, wantData, back.Data().Bytes())
			assert.Equal(t, wantMask, back.Mask().Bytes())

			back.Free()
			h.Release()
			testutil.AssertAllFreed(t, mr)
		})
	}
}

func TestRoundTripBool(t *testing.T) {
	mr := testutil.NewCheckedAllocator()
	ctx := context.Background()
	vals := []bool{true, false, true, true, false, false, true}

	col, err := column.FromBools(vals, nil, mr)
	require.NoError(t, err)
	want := copyBytes(col.Data().Bytes())

	h, err := ToDeviceArray(ctx, col, nil, mr)
	require.NoError(t, err)

	back, err := ColumnFromDeviceArray(ctx, h, mr)
	require.NoError(t, err)

	// byte-per-row storage restored from the packed interchange form
	assert.Equal(t, arrow.BOOL, back.DataType().ID())
	assert.Equal(t, want, back.Data().Bytes())

	back.Free()
	h.Release()
	testutil.AssertAllFreed(t, mr)
}

func TestRoundTripStrings(t *testing.T) {
	mr := testutil.NewCheckedAllocator()
	ctx := context.Background()

	col, err := column.FromStrings([]string{"alpha", "", "gamma"}, []bool{true, false, true}, mr)
	require.NoError(t, err)
	wantOffsets := copyBytes(col.Child(0).Data().Bytes())
	wantChars := copyBytes(col.Data().Bytes())

	h, err := ToDeviceArray(ctx, col, nil, mr)
	require.NoError(t, err)

	back, err := ColumnFromDeviceArray(ctx, h, mr)
	require.NoError(t, err)

	assert.Equal(t, arrow.STRING, back.DataType().ID())
	require.Equal(t, 1, back.NumChildren())
	assert.Equal(t, int64(4), back.Child(0).Len())
	assert.Equal(t, wantOffsets, back.Child(0).Data().Bytes())
	assert.Equal(t, wantChars, back.Data().Bytes())

	back.Free()
	h.Release()
	testutil.AssertAllFreed(t, mr)
}

func TestRoundTripNested(t *testing.T) {
	mr := testutil.NewCheckedAllocator()
	ctx := context.Background()

	elems, err := column.FromInt32s([]int32{1, 2, 3, 4, 5, 6}, nil, mr)
	require.NoError(t, err)
	lists, err := column.NewList([]int32{0, 2, 3, 6}, elems, []bool{true, true, false}, mr)
	require.NoError(t, err)
	wantElems := copyBytes(lists.Child(1).Data().Bytes())

	indices, err := column.FromInt32s([]int32{0, 1, 1}, nil, mr)
	require.NoError(t, err)
	keys, err := column.FromStrings([]string{"lo", "hi"}, nil, mr)
	require.NoError(t, err)
	dict, err := column.NewDictionary(indices, keys, nil, mr)
	require.NoError(t, err)

	col, err := column.NewStruct([]string{"runs", "labels"}, []*column.Column{lists, dict}, nil, mr)
	require.NoError(t, err)

	h, err := ToDeviceArray(ctx, col, nil, mr)
	require.NoError(t, err)

	back, err := ColumnFromDeviceArray(ctx, h, mr)
	require.NoError(t, err)

	require.Equal(t, arrow.STRUCT, back.DataType().ID())
	require.Equal(t, 2, back.NumChildren())

	gotList := back.Child(0)
	assert.Equal(t, arrow.LIST, gotList.DataType().ID())
	assert.Equal(t, int64(1), gotList.NullCount())
	require.Equal(t, 2, gotList.NumChildren())
	assert.Equal(t, wantElems, gotList.Child(1).Data().Bytes())

	gotDict := back.Child(1)
	assert.Equal(t, arrow.DICTIONARY, gotDict.DataType().ID())
	require.Equal(t, 2, gotDict.NumChildren())
	assert.Equal(t, arrow.INT32, gotDict.Child(0).DataType().ID())
	assert.Equal(t, arrow.STRING, gotDict.Child(1).DataType().ID())

	back.Free()
	h.Release()
	testutil.AssertAllFreed(t, mr)
}

func TestImportResolvesUnknownNullCount(t *testing.T) {
	mr := testutil.NewCheckedAllocator()
	ctx := context.Background()

	col, err := column.FromInt64s([]int64{1, 2, 3, 4, 5}, []bool{true, false, true, true, false}, mr)
	require.NoError(t, err)

	h, err := ToDeviceArray(ctx, col, nil, mr)
	require.NoError(t, err)
	h.arr.nullCount = column.UnknownNullCount

	back, err := ColumnFromDeviceArray(ctx, h, mr)
	require.NoError(t, err)
	assert.Equal(t, int64(2), back.NullCount())

	back.Free()
	h.Release()
	testutil.AssertAllFreed(t, mr)
}

func TestTableRoundTrip(t *testing.T) {
	mr := testutil.NewCheckedAllocator()
	ctx := context.Background()

	ints, err := column.FromInt64s([]int64{9, 8, 7}, nil, mr)
	require.NoError(t, err)
	wantInts := copyBytes(ints.Data().Bytes())
	floats, err := column.FromFloat64s([]float64{0.1, 0.2, 0.3}, []bool{true, true, false}, mr)
	require.NoError(t, err)
	tbl, err := column.NewTable(ints, floats)
	require.NoError(t, err)

	h, err := TableToDeviceArray(ctx, tbl, nil, mr)
	require.NoError(t, err)

	back, err := TableFromDeviceArray(ctx, h, mr)
	require.NoError(t, err)

	assert.Equal(t, 2, back.NumColumns())
	assert.Equal(t, int64(3), back.NumRows())
	assert.Equal(t, wantInts, back.Column(0).Data().Bytes())
	assert.Equal(t, int64(1), back.Column(1).NullCount())

	back.Free()
	h.Release()
	testutil.AssertAllFreed(t, mr)
}
