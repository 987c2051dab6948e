package interop

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/quasar/pkg/column"
	"github.com/ajitpratap0/quasar/pkg/device"
	"github.com/ajitpratap0/quasar/pkg/errors"
	"github.com/ajitpratap0/quasar/pkg/logger"
	"github.com/ajitpratap0/quasar/pkg/metrics"
	"github.com/ajitpratap0/quasar/pkg/observability"
)

// ToDeviceArray exports a column by consuming it: buffer ownership moves
// into the returned handle and the column is left empty. Producer work may
// still be in flight on the stream when this returns; consumers on other
// streams must wait on the handle's completion token before reading.
func ToDeviceArray(ctx context.Context, col *column.Column, st *device.Stream, mr memory.Allocator) (*DeviceArrayHandle, error) {
	return export(ctx, "column_owning", st, func() (*ExportedArray, error) {
		arr, err := exportColumn(col, st, mr)
		if err != nil {
			col.Free()
			return nil, err
		}
		return arr, nil
	})
}

// ToDeviceArrayView exports a column by reference: no ownership transfers
// and the viewed memory must outlive every consumer of the handle.
func ToDeviceArrayView(ctx context.Context, v column.ColumnView, st *device.Stream, mr memory.Allocator) (*DeviceArrayHandle, error) {
	return export(ctx, "column_view", st, func() (*ExportedArray, error) {
		return exportView(v, st, mr)
	})
}

// TableToDeviceArray exports a table by consuming it, producing a
// struct-typed top-level node with one child per table column.
func TableToDeviceArray(ctx context.Context, tbl *column.Table, st *device.Stream, mr memory.Allocator) (*DeviceArrayHandle, error) {
	return export(ctx, "table_owning", st, func() (*ExportedArray, error) {
		nrows := tbl.NumRows()
		cols := tbl.Release()

		fields := make([]arrow.Field, len(cols))
		for i, c := range cols {
			fields[i] = arrow.Field{Name: fmt.Sprintf("f%d", i), Type: c.DataType(), Nullable: c.Nullable()}
		}
		root := newArray(arrow.StructOf(fields...), nrows, 0, 1)
		root.children = make([]*ExportedArray, 0, len(cols))
		for i, c := range cols {
			var childArr *ExportedArray
			var err error
			if c.DataType().ID() == arrow.NULL {
				cn, cnulls := c.Len(), c.NullCount()
				c.Free()
				childArr = newEmptyArray(cn, cnulls)
			} else {
				childArr, err = exportColumn(c, st, mr)
			}
			if err != nil {
				c.Free()
				for _, rest := range cols[i+1:] {
					rest.Free()
				}
				root.Release()
				return nil, err
			}
			root.children = append(root.children, childArr)
		}
		return root, nil
	})
}

// TableToDeviceArrayView exports column views as a struct-typed top-level
// node with one child per view, without transferring ownership.
func TableToDeviceArrayView(ctx context.Context, views []column.ColumnView, st *device.Stream, mr memory.Allocator) (*DeviceArrayHandle, error) {
	return export(ctx, "table_view", st, func() (*ExportedArray, error) {
		var nrows int64
		if len(views) > 0 {
			nrows = views[0].Len()
		}
		for i, v := range views {
			if v.Len() != nrows {
				return nil, errors.Newf(errors.ErrorTypeData,
					"table view %d has %d rows, want %d", i, v.Len(), nrows)
			}
		}

		fields := make([]arrow.Field, len(views))
		for i, v := range views {
			fields[i] = arrow.Field{Name: fmt.Sprintf("f%d", i), Type: v.DataType(), Nullable: v.Nullable()}
		}
		root := newArray(arrow.StructOf(fields...), nrows, 0, 1)
		root.children = make([]*ExportedArray, 0, len(views))
		for _, v := range views {
			childArr, err := exportView(v, st, mr)
			if err != nil {
				root.Release()
				return nil, err
			}
			root.children = append(root.children, childArr)
		}
		return root, nil
	})
}

// export runs one export operation: build the tree, finalize it into a
// handle, and record tracing and metrics for the path.
func export(ctx context.Context, path string, st *device.Stream, build func() (*ExportedArray, error)) (*DeviceArrayHandle, error) {
	_, span := observability.StartSpan(ctx, "interop.export",
		attribute.String("path", path),
		attribute.String("device", st.DeviceType().String()))
	timer := metrics.NewTimer(path)

	var h *DeviceArrayHandle
	arr, err := build()
	if err == nil {
		h, err = finalize(arr, st)
	}
	timer.Stop()

	if err != nil {
		metrics.RecordOutcome(path, string(errors.TypeOf(err)))
		logger.WithContext(ctx).Error("device-array export failed",
			zap.String("path", path), zap.Error(err))
		observability.EndSpan(span, err)
		return nil, err
	}
	metrics.RecordOutcome(path, "success")
	observability.EndSpan(span, nil)
	return h, nil
}
