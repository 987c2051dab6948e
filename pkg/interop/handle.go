package interop

import (
	"context"
	"sync/atomic"

	"github.com/ajitpratap0/quasar/pkg/device"
	"github.com/ajitpratap0/quasar/pkg/errors"
	"github.com/ajitpratap0/quasar/pkg/metrics"
)

// DeviceArrayHandle wraps a completed exported tree with device identity
// and a completion token recorded on the producing stream. Consumers on a
// different execution context must Wait before reading the transferred
// buffers; export itself never blocks for in-flight producer work.
//
// The handle owns the tree and the token. Release destroys the token,
// recursively releases the tree, and is idempotent: a second call from any
// goroutine is a no-op.
type DeviceArrayHandle struct {
	arr        *ExportedArray
	deviceType device.Type
	deviceID   device.ID
	event      *device.Event
	released   atomic.Bool
}

// finalize validates the completed tree and wraps it with device identity
// and a completion token. Validation failure is fatal: the tree is
// released and no handle is returned.
func finalize(arr *ExportedArray, st *device.Stream) (*DeviceArrayHandle, error) {
	if err := validateArray(arr); err != nil {
		arr.Release()
		return nil, errors.Wrap(err, errors.ErrorTypeValidation,
			"exported array failed structural validation")
	}
	ev, err := device.Record(st)
	if err != nil {
		arr.Release()
		return nil, err
	}

	metrics.BytesExported.Add(float64(arr.totalBytes()))
	metrics.LiveHandles.Inc()
	return &DeviceArrayHandle{
		arr:        arr,
		deviceType: st.DeviceType(),
		deviceID:   st.DeviceID(),
		event:      ev,
	}, nil
}

// Array returns the wrapped exported tree. Invalid after Release.
func (h *DeviceArrayHandle) Array() *ExportedArray { return h.arr }

// DeviceType returns the kind of device the buffers live on.
func (h *DeviceArrayHandle) DeviceType() device.Type { return h.deviceType }

// DeviceID returns the device the buffers live on.
func (h *DeviceArrayHandle) DeviceID() device.ID { return h.deviceID }

// Token returns the completion token recorded against the producing stream.
func (h *DeviceArrayHandle) Token() *device.Event { return h.event }

// Wait blocks until all producer work enqueued before the export has
// completed. Consumers on another stream call this before reading.
func (h *DeviceArrayHandle) Wait(ctx context.Context) error {
	return h.event.Wait(ctx)
}

// Released reports whether the handle has been released.
func (h *DeviceArrayHandle) Released() bool { return h.released.Load() }

// Release destroys the completion token, recursively releases the wrapped
// tree, and frees the wrapper. Safe to invoke from a different owner than
// the one that created the handle; the second call is a no-op. Release may
// run before the token signals: buffers still being written by in-flight
// producer work are freed behind that work in stream order.
func (h *DeviceArrayHandle) Release() {
	if h == nil || !h.released.CompareAndSwap(false, true) {
		return
	}
	h.event.Destroy()
	h.arr.Release()
	metrics.LiveHandles.Dec()
}
