package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/kjk/journal/metrics"
	"github.com/kjk/journal/typedstore"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func getCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	_ = c.Write(m)
	return m.GetCounter().GetValue()
}

func getGaugeValue(g prometheus.Gauge) float64 {
	m := &dto.Metric{}
	_ = g.Write(m)
	return m.GetGauge().GetValue()
}

func TestObserveSave(t *testing.T) {
	ok := metrics.StoreOps.WithLabelValues(typedstore.OpSave, "ok")
	failed := metrics.StoreOps.WithLabelValues(typedstore.OpSave, "error")
	initialOk := getCounterValue(ok)
	initialFailed := getCounterValue(failed)
	initialBytes := getCounterValue(metrics.StoreBytesWritten)

	metrics.ObserveOp(&typedstore.OpInfo{Op: typedstore.OpRegister, Kind: "test.save"})
	metrics.ObserveOp(&typedstore.OpInfo{Op: typedstore.OpSave, Kind: "test.save", Bytes: 24, Duration: time.Millisecond})
	metrics.ObserveOp(&typedstore.OpInfo{Op: typedstore.OpSave, Kind: "test.save", Bytes: 24})
	metrics.ObserveOp(&typedstore.OpInfo{Op: typedstore.OpSave, Kind: "test.save", Err: errors.New("disk full")})

	if got := getCounterValue(ok); got != initialOk+2 {
		t.Fatalf("save ok expected %v, got %v", initialOk+2, got)
	}
	if got := getCounterValue(failed); got != initialFailed+1 {
		t.Fatalf("save error expected %v, got %v", initialFailed+1, got)
	}
	if got := getCounterValue(metrics.StoreBytesWritten); got != initialBytes+48 {
		t.Fatalf("bytes written expected %v, got %v", initialBytes+48, got)
	}
	if got := getGaugeValue(metrics.StoreRecords.WithLabelValues("test.save")); got != 2 {
		t.Fatalf("records expected 2, got %v", got)
	}
}

func TestSetRecords(t *testing.T) {
	metrics.SetRecords("test.attach", 17)
	if got := getGaugeValue(metrics.StoreRecords.WithLabelValues("test.attach")); got != 17 {
		t.Fatalf("records expected 17, got %v", got)
	}
}
