// Package testutil provides testing utilities for Quasar
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// NewCheckedAllocator returns a leak-checking allocator. Call
// AssertAllFreed at the end of the test to verify every device allocation
// was returned.
func NewCheckedAllocator() *memory.CheckedAllocator {
	return memory.NewCheckedAllocator(memory.NewGoAllocator())
}

// AssertAllFreed fails the test if the allocator still has outstanding
// allocations.
func AssertAllFreed(t *testing.T, mr *memory.CheckedAllocator) {
	t.Helper()
	mr.AssertSize(t, 0)
}

// FailingAllocator wraps an allocator and fails every allocation after
// the first Remaining successes. Used to exercise resource-exhaustion
// paths deterministically.
type FailingAllocator struct {
	Wrapped   memory.Allocator
	Remaining int
}

// Allocate returns nil once the allowance is exhausted.
func (a *FailingAllocator) Allocate(size int) []byte {
	if a.Remaining <= 0 {
		return nil
	}
	a.Remaining--
	return a.Wrapped.Allocate(size)
}

// Reallocate fails alongside Allocate.
func (a *FailingAllocator) Reallocate(size int, b []byte) []byte {
	if a.Remaining <= 0 {
		return nil
	}
	a.Remaining--
	return a.Wrapped.Reallocate(size, b)
}

// Free always delegates so successful allocations can be returned.
func (a *FailingAllocator) Free(b []byte) {
	a.Wrapped.Free(b)
}
