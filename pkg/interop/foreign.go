// Package interop implements the zero-copy columnar export engine: it
// converts engine-owned columns into a standardized device-array
// interchange tree without copying payload bytes, transferring buffer
// ownership into foreign-owned slots and attaching a stream completion
// token so consumers on other execution contexts can order their reads.
package interop

import (
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/bitutil"

	"github.com/ajitpratap0/quasar/pkg/column"
	"github.com/ajitpratap0/quasar/pkg/device"
	"github.com/ajitpratap0/quasar/pkg/errors"
	"github.com/ajitpratap0/quasar/pkg/metrics"
)

// Buffer slot indices. Slot 0 is always the validity bitmask; subsequent
// slots depend on the type category. The convention is fixed and must
// match the interchange format exactly.
const (
	bufferValidity = 0
	bufferData     = 1
	bufferOffsets  = 1
	bufferChars    = 2
)

// ForeignBuffer is a buffer slot on an exported node: raw bytes plus a
// type-erased release closure. For the owning export path the closure
// captures the moved-in device buffer and frees it exactly once; for the
// view path there is no closure and release is a no-op.
type ForeignBuffer struct {
	data    []byte
	release func()
}

// Bytes returns the transferred bytes. Invalid after the owning node is
// released.
func (b *ForeignBuffer) Bytes() []byte { return b.data }

// Len returns the buffer length in bytes.
func (b *ForeignBuffer) Len() int64 { return int64(len(b.data)) }

// IsSet reports whether the slot holds a buffer. An unset validity slot
// means no nulls are possible, which is not the same as a zero-length
// buffer.
func (b *ForeignBuffer) IsSet() bool { return b.data != nil || b.release != nil }

func (b *ForeignBuffer) doRelease() {
	if b.release != nil {
		b.release()
		b.release = nil
	}
	b.data = nil
}

// ExportedArray is one node of the foreign-owned interchange tree: length,
// null count, fixed buffer slots, ordered children, and an optional
// dictionary child. Release is recursive and idempotent.
type ExportedArray struct {
	dtype      arrow.DataType
	length     int64
	nullCount  int64
	offset     int64
	buffers    []ForeignBuffer
	children   []*ExportedArray
	dictionary *ExportedArray
	released   atomic.Bool
}

func newArray(dtype arrow.DataType, length, nullCount int64, nbuffers int) *ExportedArray {
	return &ExportedArray{
		dtype:     dtype,
		length:    length,
		nullCount: nullCount,
		buffers:   make([]ForeignBuffer, nbuffers),
	}
}

func newEmptyArray(length, nullCount int64) *ExportedArray {
	return newArray(arrow.Null, length, nullCount, 0)
}

// attachOwned installs an engine-owned buffer into a slot, moving the
// ownership token into the slot's release closure. This is the only place
// object lifetime crosses the ownership boundary. Attaching nil leaves the
// slot unset.
func (a *ExportedArray) attachOwned(slot int, buf *device.Buffer) {
	if buf == nil {
		return
	}
	owned := buf
	a.buffers[slot] = ForeignBuffer{data: owned.Bytes(), release: owned.Free}
	metrics.BuffersTransferred.Inc()
}

// attachOwnedOrdered installs an engine-owned buffer that a still-enqueued
// producer task writes. Its release submits the free behind that work, so
// releasing the tree before the completion token signals cannot free the
// buffer out from under the producer. A closed stream has already drained,
// so the direct free fallback is safe.
func (a *ExportedArray) attachOwnedOrdered(slot int, buf *device.Buffer, st *device.Stream) {
	if buf == nil {
		return
	}
	owned := buf
	a.buffers[slot] = ForeignBuffer{data: owned.Bytes(), release: func() {
		if err := st.Submit(owned.Free); err != nil {
			owned.Free()
		}
	}}
	metrics.BuffersTransferred.Inc()
}

// attachView installs a referenced buffer into a slot without transferring
// ownership.
func (a *ExportedArray) attachView(slot int, data []byte) {
	if data == nil {
		return
	}
	a.buffers[slot] = ForeignBuffer{data: data}
	metrics.BuffersTransferred.Inc()
}

// DataType returns the node's logical type.
func (a *ExportedArray) DataType() arrow.DataType { return a.dtype }

// Len returns the node's row count.
func (a *ExportedArray) Len() int64 { return a.length }

// NullCount returns the node's null count; -1 means not computed.
func (a *ExportedArray) NullCount() int64 { return a.nullCount }

// Offset returns the element offset, always 0 from this engine.
func (a *ExportedArray) Offset() int64 { return a.offset }

// NumBuffers returns the number of buffer slots.
func (a *ExportedArray) NumBuffers() int { return len(a.buffers) }

// Buffer returns the i-th buffer slot.
func (a *ExportedArray) Buffer(i int) *ForeignBuffer { return &a.buffers[i] }

// NumChildren returns the number of child nodes.
func (a *ExportedArray) NumChildren() int { return len(a.children) }

// Child returns the i-th child node.
func (a *ExportedArray) Child(i int) *ExportedArray { return a.children[i] }

// Dictionary returns the dictionary child, or nil.
func (a *ExportedArray) Dictionary() *ExportedArray { return a.dictionary }

// Released reports whether the node has been released.
func (a *ExportedArray) Released() bool { return a.released.Load() }

// Release frees every owned buffer in the subtree, children and dictionary
// included, exactly once. Safe on nil; the second and later calls are
// no-ops.
func (a *ExportedArray) Release() {
	if a == nil || !a.released.CompareAndSwap(false, true) {
		return
	}
	for i := range a.buffers {
		a.buffers[i].doRelease()
	}
	for _, ch := range a.children {
		ch.Release()
	}
	a.dictionary.Release()
	a.children = nil
	a.dictionary = nil
}

// Int64Values reinterprets the buffer as int64 elements.
func (b *ForeignBuffer) Int64Values() []int64 {
	return arrow.Int64Traits.CastFromBytes(b.data)
}

// Int32Values reinterprets the buffer as int32 elements.
func (b *ForeignBuffer) Int32Values() []int32 {
	return arrow.Int32Traits.CastFromBytes(b.data)
}

// Offsets32 returns the narrow offsets buffer as elements.
func (a *ExportedArray) Offsets32() []int32 {
	return a.buffers[bufferOffsets].Int32Values()
}

// Offsets64 returns the wide offsets buffer as elements.
func (a *ExportedArray) Offsets64() []int64 {
	return a.buffers[bufferOffsets].Int64Values()
}

// ValidityBit reports whether row i is valid. With no validity buffer every
// row is valid.
func (a *ExportedArray) ValidityBit(i int64) bool {
	if len(a.buffers) == 0 || !a.buffers[bufferValidity].IsSet() {
		return true
	}
	return bitutil.BitIsSet(a.buffers[bufferValidity].data, int(i))
}

// totalBytes sums transferred buffer lengths across the subtree.
func (a *ExportedArray) totalBytes() int64 {
	if a == nil {
		return 0
	}
	var total int64
	for i := range a.buffers {
		total += a.buffers[i].Len()
	}
	for _, ch := range a.children {
		total += ch.totalBytes()
	}
	return total + a.dictionary.totalBytes()
}

// expectedBuffers returns the buffer slot count for a type category, or -1
// for unsupported categories.
func expectedBuffers(id arrow.Type) int {
	switch id {
	case arrow.NULL:
		return 0
	case arrow.STRUCT:
		return 1
	case arrow.STRING, arrow.LARGE_STRING:
		return 3
	default:
		return 2
	}
}

// validateArray checks structural invariants of a completed tree: buffer
// and child counts consistent with the declared type and length. A failure
// here indicates a handler defect, never expected in correct operation.
func validateArray(a *ExportedArray) error {
	if a == nil {
		return errors.New(errors.ErrorTypeValidation, "nil exported array")
	}
	if a.length < 0 {
		return errors.Newf(errors.ErrorTypeValidation, "negative length %d", a.length)
	}
	if a.nullCount > a.length || a.nullCount < column.UnknownNullCount {
		return errors.Newf(errors.ErrorTypeValidation,
			"null count %d out of range for length %d", a.nullCount, a.length)
	}
	if a.offset != 0 {
		return errors.Newf(errors.ErrorTypeValidation, "nonzero offset %d", a.offset)
	}

	id := a.dtype.ID()
	if want := expectedBuffers(id); len(a.buffers) != want {
		return errors.Newf(errors.ErrorTypeValidation,
			"%s array has %d buffer slots, want %d", a.dtype, len(a.buffers), want)
	}
	if len(a.buffers) > 0 && a.buffers[bufferValidity].IsSet() {
		if a.buffers[bufferValidity].Len() < bitutil.BytesForBits(a.length) {
			return errors.Newf(errors.ErrorTypeValidation,
				"validity buffer of %d bytes too short for %d rows",
				a.buffers[bufferValidity].Len(), a.length)
		}
	}

	switch id {
	case arrow.NULL:
		if len(a.children) != 0 || a.dictionary != nil {
			return errors.New(errors.ErrorTypeValidation, "degenerate array must have no children")
		}
	case arrow.STRING:
		if err := checkOffsets(a, 4); err != nil {
			return err
		}
	case arrow.LARGE_STRING:
		if err := checkOffsets(a, 8); err != nil {
			return err
		}
	case arrow.LIST:
		if len(a.children) != 1 {
			return errors.Newf(errors.ErrorTypeValidation, "list array has %d children, want 1", len(a.children))
		}
	case arrow.STRUCT:
		st := a.dtype.(*arrow.StructType)
		if len(a.children) != st.NumFields() {
			return errors.Newf(errors.ErrorTypeValidation,
				"struct array has %d children, want %d", len(a.children), st.NumFields())
		}
	case arrow.DICTIONARY:
		if a.dictionary == nil {
			return errors.New(errors.ErrorTypeValidation, "dictionary array missing keys child")
		}
		if len(a.children) != 0 {
			return errors.New(errors.ErrorTypeValidation, "dictionary array must have no direct children")
		}
	}

	for _, ch := range a.children {
		if err := validateArray(ch); err != nil {
			return err
		}
	}
	if a.dictionary != nil {
		return validateArray(a.dictionary)
	}
	return nil
}

// checkOffsets enforces the length+1 offsets rule for string arrays: the
// offsets buffer always exists and holds exactly length+1 elements, even
// for zero rows.
func checkOffsets(a *ExportedArray, width int64) error {
	off := &a.buffers[bufferOffsets]
	if !off.IsSet() || off.Len() != (a.length+1)*width {
		return errors.Newf(errors.ErrorTypeValidation,
			"string offsets buffer of %d bytes, want %d", off.Len(), (a.length+1)*width)
	}
	if len(a.children) != 0 {
		return errors.New(errors.ErrorTypeValidation, "string array must have no children")
	}
	return nil
}
