package column

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/quasar/pkg/errors"
	"github.com/ajitpratap0/quasar/pkg/testutil"
)

func TestFromNumericLayout(t *testing.T) {
	mr := testutil.NewCheckedAllocator()
	col, err := FromInt64s([]int64{1, 2, 3}, []bool{true, false, true}, mr)
	require.NoError(t, err)

	assert.Equal(t, arrow.INT64, col.DataType().ID())
	assert.Equal(t, int64(3), col.Len())
	assert.Equal(t, int64(1), col.NullCount())
	assert.True(t, col.Nullable())
	assert.Equal(t, 0, col.NumChildren())
	assert.Equal(t, int64(3*arrow.Int64SizeBytes), col.Data().Len())

	// rows 0 and 2 valid
	assert.Equal(t, []byte{0x05}, col.Mask().Bytes())

	col.Free()
	testutil.AssertAllFreed(t, mr)
}

func TestFromNumericRejectsWidthMismatch(t *testing.T) {
	_, err := FromNumeric[int64](arrow.PrimitiveTypes.Int32, []int64{1}, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestFromBoolsStoresBytePerRow(t *testing.T) {
	mr := testutil.NewCheckedAllocator()
	col, err := FromBools([]bool{true, false, true}, nil, mr)
	require.NoError(t, err)

	assert.Equal(t, arrow.BOOL, col.DataType().ID())
	assert.Equal(t, []byte{1, 0, 1}, col.Data().Bytes())
	assert.False(t, col.Nullable())

	col.Free()
	testutil.AssertAllFreed(t, mr)
}

func TestStringLayout(t *testing.T) {
	mr := testutil.NewCheckedAllocator()
	col, err := FromStrings([]string{"ab", "omitted", "c"}, []bool{true, false, true}, mr)
	require.NoError(t, err)

	assert.Equal(t, arrow.STRING, col.DataType().ID())
	assert.Equal(t, []byte("abc"), col.Data().Bytes())

	require.Equal(t, 1, col.NumChildren())
	offs := col.Child(0)
	assert.Equal(t, arrow.INT32, offs.DataType().ID())
	assert.Equal(t, int64(4), offs.Len())
	// null rows repeat the previous offset: [0, 2, 2, 3]
	assert.Equal(t, []byte{0, 0, 0, 0, 2, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0}, offs.Data().Bytes())

	col.Free()
	testutil.AssertAllFreed(t, mr)
}

func TestLargeStringOffsetsAreWide(t *testing.T) {
	mr := testutil.NewCheckedAllocator()
	col, err := FromLargeStrings([]string{"xy"}, nil, mr)
	require.NoError(t, err)

	assert.Equal(t, arrow.LARGE_STRING, col.DataType().ID())
	assert.Equal(t, arrow.INT64, col.Child(0).DataType().ID())
	assert.Equal(t, int64(2*arrow.Int64SizeBytes), col.Child(0).Data().Len())

	col.Free()
	testutil.AssertAllFreed(t, mr)
}

func TestNewListValidatesOffsets(t *testing.T) {
	mr := testutil.NewCheckedAllocator()

	elems, err := FromInt32s([]int32{1, 2, 3}, nil, mr)
	require.NoError(t, err)
	_, err = NewList([]int32{0, 2, 1}, elems, nil, mr)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
	elems.Free()

	elems, err = FromInt32s([]int32{1, 2, 3}, nil, mr)
	require.NoError(t, err)
	_, err = NewList([]int32{0, 2}, elems, nil, mr)
	require.Error(t, err)
	elems.Free()

	elems, err = FromInt32s([]int32{1, 2, 3}, nil, mr)
	require.NoError(t, err)
	col, err := NewList([]int32{0, 1, 3}, elems, nil, mr)
	require.NoError(t, err)
	assert.Equal(t, int64(2), col.Len())
	assert.Equal(t, arrow.LIST, col.DataType().ID())

	col.Free()
	testutil.AssertAllFreed(t, mr)
}

func TestNewStructRequiresEqualLengths(t *testing.T) {
	mr := testutil.NewCheckedAllocator()
	a, err := FromInt64s([]int64{1, 2}, nil, mr)
	require.NoError(t, err)
	b, err := FromInt64s([]int64{1, 2, 3}, nil, mr)
	require.NoError(t, err)

	_, err = NewStruct([]string{"a", "b"}, []*Column{a, b}, nil, mr)
	require.Error(t, err)
	a.Free()
	b.Free()
	testutil.AssertAllFreed(t, mr)
}

func TestNewDictionaryRejectsNonIntegerIndices(t *testing.T) {
	mr := testutil.NewCheckedAllocator()
	indices, err := FromFloat64s([]float64{0, 1}, nil, mr)
	require.NoError(t, err)
	keys, err := FromStrings([]string{"a", "b"}, nil, mr)
	require.NoError(t, err)

	_, err = NewDictionary(indices, keys, nil, mr)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))

	indices.Free()
	keys.Free()
	testutil.AssertAllFreed(t, mr)
}

func TestReleaseIsOneShot(t *testing.T) {
	mr := testutil.NewCheckedAllocator()
	col, err := FromInt64s([]int64{1, 2, 3}, []bool{true, true, false}, mr)
	require.NoError(t, err)

	rel := col.Release()
	assert.NotNil(t, rel.Data)
	assert.NotNil(t, rel.Mask)

	// the column is empty after release; releasing again yields nothing
	assert.Equal(t, arrow.NULL, col.DataType().ID())
	assert.Equal(t, int64(0), col.Len())
	again := col.Release()
	assert.Nil(t, again.Data)
	assert.Nil(t, again.Mask)

	col.Free()
	rel.Free()
	testutil.AssertAllFreed(t, mr)
}

func TestContentsTakeMovesOwnership(t *testing.T) {
	mr := testutil.NewCheckedAllocator()
	elems, err := FromInt32s([]int32{1, 2}, nil, mr)
	require.NoError(t, err)
	col, err := NewList([]int32{0, 2}, elems, nil, mr)
	require.NoError(t, err)

	rel := col.Release()
	taken := rel.TakeChild(1)
	require.NotNil(t, taken)
	assert.Nil(t, rel.Children[1])

	// Free only releases what was not taken
	rel.Free()
	assert.NotNil(t, taken.Data())
	taken.Free()
	testutil.AssertAllFreed(t, mr)
}

func TestNewEmpty(t *testing.T) {
	col := NewEmpty(7)
	assert.Equal(t, arrow.NULL, col.DataType().ID())
	assert.Equal(t, int64(7), col.Len())
	assert.Equal(t, int64(7), col.NullCount())
	assert.False(t, col.Nullable())
	col.Free()
}

func TestViewDoesNotOwn(t *testing.T) {
	mr := testutil.NewCheckedAllocator()
	col, err := FromStrings([]string{"ab", "cd"}, []bool{true, false}, mr)
	require.NoError(t, err)

	v := col.View()
	assert.Equal(t, arrow.STRING, v.DataType().ID())
	assert.Equal(t, int64(2), v.Len())
	assert.Equal(t, int64(1), v.NullCount())
	assert.Equal(t, col.Data().Bytes(), v.Data())
	require.Equal(t, 1, v.NumChildren())
	assert.Equal(t, col.Child(0).Data().Bytes(), v.Child(0).Data())

	// the view holds no ownership; freeing the column is still required
	col.Free()
	testutil.AssertAllFreed(t, mr)
}

func TestTableRequiresEqualLengths(t *testing.T) {
	mr := testutil.NewCheckedAllocator()
	a, err := FromInt64s([]int64{1}, nil, mr)
	require.NoError(t, err)
	b, err := FromInt64s([]int64{1, 2}, nil, mr)
	require.NoError(t, err)

	_, err = NewTable(a, b)
	require.Error(t, err)
	a.Free()
	b.Free()

	c, err := FromInt64s([]int64{1, 2}, nil, mr)
	require.NoError(t, err)
	d, err := FromStrings([]string{"x", "y"}, nil, mr)
	require.NoError(t, err)
	tbl, err := NewTable(c, d)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.NumColumns())
	assert.Equal(t, int64(2), tbl.NumRows())

	tbl.Free()
	testutil.AssertAllFreed(t, mr)
}
