package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/quasar/pkg/column"
	"github.com/ajitpratap0/quasar/pkg/config"
	"github.com/ajitpratap0/quasar/pkg/device"
	"github.com/ajitpratap0/quasar/pkg/interop"
	"github.com/ajitpratap0/quasar/pkg/json"
	"github.com/ajitpratap0/quasar/pkg/logger"
	"github.com/ajitpratap0/quasar/pkg/observability"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	var configPath string

	root := &cobra.Command{
		Use:   "quasar",
		Short: "Quasar - GPU-resident columnar data engine",
		Long: `Quasar is an in-memory, GPU-resident columnar data engine.
Its export engine hands columns to foreign consumers through a zero-copy
device-array interchange structure with stream-ordered synchronization.`,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to engine config (YAML)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Quasar v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "inspect",
		Short: "Export a sample table and print the device-array tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, mr, err := setup(configPath)
			if err != nil {
				return err
			}
			defer st.Close()
			logger.Info("engine configured",
				zap.String("device", cfg.Device.Kind),
				zap.String("allocator", cfg.Memory.Allocator))

			tbl, err := sampleTable(mr)
			if err != nil {
				return err
			}

			handle, err := interop.TableToDeviceArray(context.Background(), tbl, st, mr)
			if err != nil {
				return err
			}
			defer handle.Release()

			if err := handle.Wait(context.Background()); err != nil {
				return err
			}

			out, err := json.MarshalIndent(describe(handle), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	})

	var iterations int
	bench := &cobra.Command{
		Use:   "bench",
		Short: "Measure export throughput on a sample table",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, mr, err := setup(configPath)
			if err != nil {
				return err
			}
			defer st.Close()

			start := time.Now()
			for i := 0; i < iterations; i++ {
				tbl, err := sampleTable(mr)
				if err != nil {
					return err
				}
				handle, err := interop.TableToDeviceArray(context.Background(), tbl, st, mr)
				if err != nil {
					return err
				}
				if err := handle.Wait(context.Background()); err != nil {
					return err
				}
				handle.Release()
			}
			elapsed := time.Since(start)
			fmt.Printf("%d exports in %s (%.0f exports/sec)\n",
				iterations, elapsed, float64(iterations)/elapsed.Seconds())
			return nil
		},
	}
	bench.Flags().IntVar(&iterations, "iterations", 1000, "number of exports to run")
	root.AddCommand(bench)

	if err := root.Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}

// setup loads configuration and builds the stream and allocator.
func setup(configPath string) (*config.EngineConfig, *device.Stream, memory.Allocator, error) {
	cfg := config.NewEngineConfig("quasar")
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, nil, nil, err
		}
		cfg = loaded
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Encoding:    cfg.Logging.Encoding,
	}); err != nil {
		return nil, nil, nil, err
	}

	if cfg.Observability.EnableTracing {
		if err := observability.InitTracing(observability.TracingConfig{
			ServiceName:    cfg.Name,
			ServiceVersion: version,
			Environment:    "cli",
			SamplingRate:   cfg.Observability.SamplingRate,
		}); err != nil {
			return nil, nil, nil, err
		}
	}

	kinds := map[string]device.Type{
		"cpu":          device.TypeCPU,
		"cuda":         device.TypeCUDA,
		"cuda_host":    device.TypeCUDAHost,
		"cuda_managed": device.TypeCUDAManaged,
		"rocm":         device.TypeROCM,
	}
	st := device.NewStream(kinds[cfg.Device.Kind], device.ID(cfg.Device.ID))

	var mr memory.Allocator = memory.NewGoAllocator()
	if cfg.Memory.Allocator == "pooled" {
		mr = device.NewPooledAllocator()
	}
	return cfg, st, mr, nil
}

// sampleTable builds a small table covering the supported type categories.
func sampleTable(mr memory.Allocator) (*column.Table, error) {
	ints, err := column.FromInt64s([]int64{1, 2, 3, 4, 5}, []bool{true, false, true, true, false}, mr)
	if err != nil {
		return nil, err
	}
	floats, err := column.FromFloat64s([]float64{0.5, 1.5, 2.5, 3.5, 4.5}, nil, mr)
	if err != nil {
		return nil, err
	}
	bools, err := column.FromBools([]bool{true, false, true, false, true}, nil, mr)
	if err != nil {
		return nil, err
	}
	strs, err := column.FromStrings([]string{"alpha", "beta", "gamma", "delta", "epsilon"}, nil, mr)
	if err != nil {
		return nil, err
	}

	elems, err := column.FromInt32s([]int32{1, 2, 3, 4, 5, 6}, nil, mr)
	if err != nil {
		return nil, err
	}
	lists, err := column.NewList([]int32{0, 2, 3, 3, 5, 6}, elems, nil, mr)
	if err != nil {
		return nil, err
	}

	return column.NewTable(ints, floats, bools, strs, lists)
}

// describe renders an exported tree as nested JSON-friendly maps.
func describe(h *interop.DeviceArrayHandle) map[string]interface{} {
	return map[string]interface{}{
		"device_type": h.DeviceType().String(),
		"device_id":   h.DeviceID(),
		"signaled":    h.Token().Signaled(),
		"array":       describeArray(h.Array()),
	}
}

func describeArray(a *interop.ExportedArray) map[string]interface{} {
	buffers := make([]map[string]interface{}, a.NumBuffers())
	for i := 0; i < a.NumBuffers(); i++ {
		buffers[i] = map[string]interface{}{
			"set":   a.Buffer(i).IsSet(),
			"bytes": a.Buffer(i).Len(),
		}
	}
	children := make([]map[string]interface{}, a.NumChildren())
	for i := 0; i < a.NumChildren(); i++ {
		children[i] = describeArray(a.Child(i))
	}
	out := map[string]interface{}{
		"type":       a.DataType().String(),
		"length":     a.Len(),
		"null_count": a.NullCount(),
		"buffers":    buffers,
		"children":   children,
	}
	if a.Dictionary() != nil {
		out["dictionary"] = describeArray(a.Dictionary())
	}
	return out
}
