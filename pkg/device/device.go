// Package device models the accelerator execution and memory primitives the
// engine runs on: ordered execution streams, completion events, and
// exclusively-owned device buffers served by an allocator.
//
// Streams are FIFO asynchronous executors. Work submitted to a stream runs in
// submission order on a dedicated goroutine; nothing on the host blocks for it
// unless it synchronizes explicitly or waits on an event recorded after the
// work. A nil *Stream is the host path: submitted work runs synchronously and
// events recorded against it are born signaled.
package device

// Type identifies the kind of device memory lives on. Values follow the
// Arrow device interchange enumeration.
type Type int32

const (
	// TypeCPU is plain host memory
	TypeCPU Type = 1
	// TypeCUDA is CUDA GPU device memory
	TypeCUDA Type = 2
	// TypeCUDAHost is CUDA pinned host memory
	TypeCUDAHost Type = 3
	// TypeCUDAManaged is CUDA managed/unified memory
	TypeCUDAManaged Type = 13
	// TypeROCM is ROCm GPU device memory
	TypeROCM Type = 10
)

// String returns the device type name
func (t Type) String() string {
	switch t {
	case TypeCPU:
		return "cpu"
	case TypeCUDA:
		return "cuda"
	case TypeCUDAHost:
		return "cuda_host"
	case TypeCUDAManaged:
		return "cuda_managed"
	case TypeROCM:
		return "rocm"
	default:
		return "unknown"
	}
}

// ID identifies a device instance of a given type
type ID int32
