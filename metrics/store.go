package metrics

import (
	"github.com/kjk/journal/typedstore"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	StoreOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_store_ops_total",
			Help: "Total number of record store operations",
		},
		[]string{"op", "result"}, // ok, error
	)

	StoreOpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "journal_store_op_duration_seconds",
			Help:    "Histogram of record store operation latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	StoreBytesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "journal_store_bytes_written_total",
		Help: "Total number of bytes appended to record files",
	})

	StoreBytesRead = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "journal_store_bytes_read_total",
		Help: "Total number of bytes read from record files",
	})

	StoreRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "journal_store_records",
			Help: "Number of records in a kind's file",
		},
		[]string{"kind"},
	)
)

// ObserveOp records a finished store operation. Use as typedstore.Store.OnOp
func ObserveOp(op *typedstore.OpInfo) {
	result := "ok"
	if op.Err != nil {
		result = "error"
	}
	StoreOps.WithLabelValues(op.Op, result).Inc()
	StoreOpLatency.WithLabelValues(op.Op).Observe(op.Duration.Seconds())
	if op.Err != nil {
		return
	}
	switch op.Op {
	case typedstore.OpSave:
		StoreBytesWritten.Add(float64(op.Bytes))
		StoreRecords.WithLabelValues(op.Kind).Inc()
	case typedstore.OpRegister:
		StoreRecords.WithLabelValues(op.Kind).Set(0)
	case typedstore.OpGet, typedstore.OpGetAll:
		StoreBytesRead.Add(float64(op.Bytes))
	}
}

// SetRecords sets number of records of kind, e.g. after attaching to an
// existing file
func SetRecords(kind string, n int) {
	StoreRecords.WithLabelValues(kind).Set(float64(n))
}
