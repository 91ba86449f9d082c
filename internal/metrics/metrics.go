// Package metrics tracks scan throughput both as in-process counters (for
// the JSON stats endpoint) and as Prometheus collectors (for /metrics).
package metrics

import (
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "idscan"

type Metrics struct {
	startTime time.Time

	scansTotal   atomic.Int64
	scansSuccess atomic.Int64
	scansFailed  atomic.Int64
	fieldsFound  atomic.Int64

	mrzParsed   atomic.Int64
	mrzUnparsed atomic.Int64

	ocrCalls    atomic.Int64
	ocrFailures atomic.Int64

	batchSucceeded atomic.Int64
	batchFailed    atomic.Int64

	requestsTotal  atomic.Int64
	requestsFailed atomic.Int64

	responseTimes     []time.Duration
	responseTimesLock sync.Mutex

	kindScans map[string]*atomic.Int64
	kindLock  sync.Mutex

	registry     *prometheus.Registry
	scans        *prometheus.CounterVec
	fields       *prometheus.HistogramVec
	scanDuration *prometheus.HistogramVec
	mrzDecodes   *prometheus.CounterVec
	ocrDuration  *prometheus.HistogramVec
	batchItems   *prometheus.CounterVec
	requests     *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}

// New creates metrics backed by their own Prometheus registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	m := &Metrics{
		startTime:     time.Now(),
		responseTimes: make([]time.Duration, 0, 1000),
		kindScans:     make(map[string]*atomic.Int64),
		registry:      reg,
		scans: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Documents processed, by kind and outcome",
		}, []string{"kind", "outcome"}),
		fields: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fields_found",
			Help:      "Resolved fields per document",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 8, 10, 13},
		}, []string{"kind"}),
		scanDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "End-to-end document processing time",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		mrzDecodes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mrz_decodes_total",
			Help:      "MRZ decode attempts by outcome",
		}, []string{"outcome"}),
		ocrDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ocr_duration_seconds",
			Help:      "OCR engine call latency",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"engine", "outcome"}),
		batchItems: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_items_total",
			Help:      "Batch items by outcome",
		}, []string{"outcome"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by outcome",
		}, []string{"outcome"}),
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Time since process start",
	}, func() float64 {
		return time.Since(m.startTime).Seconds()
	})

	return m
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// RecordScan records one processed document
func (m *Metrics) RecordScan(kind string, success bool, fieldsFound int, d time.Duration) {
	m.scansTotal.Add(1)
	if success {
		m.scansSuccess.Add(1)
		m.fieldsFound.Add(int64(fieldsFound))
		m.fields.WithLabelValues(kind).Observe(float64(fieldsFound))
	} else {
		m.scansFailed.Add(1)
	}
	m.scans.WithLabelValues(kind, outcome(success)).Inc()
	m.scanDuration.WithLabelValues(kind).Observe(d.Seconds())

	m.kindLock.Lock()
	if m.kindScans[kind] == nil {
		m.kindScans[kind] = &atomic.Int64{}
	}
	m.kindScans[kind].Add(1)
	m.kindLock.Unlock()

	m.RecordResponseTime(d)
}

// RecordMRZ records whether a zone decoded into a record
func (m *Metrics) RecordMRZ(parsed bool) {
	if parsed {
		m.mrzParsed.Add(1)
		m.mrzDecodes.WithLabelValues("parsed").Inc()
	} else {
		m.mrzUnparsed.Add(1)
		m.mrzDecodes.WithLabelValues("unparsed").Inc()
	}
}

// RecordOCR records one engine call
func (m *Metrics) RecordOCR(engine string, success bool, d time.Duration) {
	m.ocrCalls.Add(1)
	if !success {
		m.ocrFailures.Add(1)
	}
	m.ocrDuration.WithLabelValues(engine, outcome(success)).Observe(d.Seconds())
}

func (m *Metrics) RecordBatchItem(success bool) {
	if success {
		m.batchSucceeded.Add(1)
	} else {
		m.batchFailed.Add(1)
	}
	m.batchItems.WithLabelValues(outcome(success)).Inc()
}

func (m *Metrics) RecordRequest(success bool) {
	m.requestsTotal.Add(1)
	if !success {
		m.requestsFailed.Add(1)
	}
	m.requests.WithLabelValues(outcome(success)).Inc()
}

func (m *Metrics) RecordResponseTime(d time.Duration) {
	m.responseTimesLock.Lock()
	defer m.responseTimesLock.Unlock()

	m.responseTimes = append(m.responseTimes, d)
	if len(m.responseTimes) > 1000 {
		m.responseTimes = m.responseTimes[1:]
	}
}

type Snapshot struct {
	Uptime          time.Duration    `json:"uptime"`
	ScansTotal      int64            `json:"scans_total"`
	ScansSuccess    int64            `json:"scans_success"`
	ScansFailed     int64            `json:"scans_failed"`
	FieldsFound     int64            `json:"fields_found"`
	MRZParsed       int64            `json:"mrz_parsed"`
	MRZUnparsed     int64            `json:"mrz_unparsed"`
	OCRCalls        int64            `json:"ocr_calls"`
	OCRFailures     int64            `json:"ocr_failures"`
	BatchSucceeded  int64            `json:"batch_succeeded"`
	BatchFailed     int64            `json:"batch_failed"`
	RequestsTotal   int64            `json:"requests_total"`
	RequestsFailed  int64            `json:"requests_failed"`
	AvgScanTime     time.Duration    `json:"avg_scan_time"`
	P99ScanTime     time.Duration    `json:"p99_scan_time"`
	ScansByKind     map[string]int64 `json:"scans_by_kind"`
	SuccessRate     float64          `json:"success_rate"`
	AvgFieldsPerDoc float64          `json:"avg_fields_per_doc"`
}

func (m *Metrics) Snapshot() *Snapshot {
	s := &Snapshot{
		Uptime:         time.Since(m.startTime),
		ScansTotal:     m.scansTotal.Load(),
		ScansSuccess:   m.scansSuccess.Load(),
		ScansFailed:    m.scansFailed.Load(),
		FieldsFound:    m.fieldsFound.Load(),
		MRZParsed:      m.mrzParsed.Load(),
		MRZUnparsed:    m.mrzUnparsed.Load(),
		OCRCalls:       m.ocrCalls.Load(),
		OCRFailures:    m.ocrFailures.Load(),
		BatchSucceeded: m.batchSucceeded.Load(),
		BatchFailed:    m.batchFailed.Load(),
		RequestsTotal:  m.requestsTotal.Load(),
		RequestsFailed: m.requestsFailed.Load(),
		ScansByKind:    make(map[string]int64),
	}

	if s.ScansTotal > 0 {
		s.SuccessRate = float64(s.ScansSuccess) / float64(s.ScansTotal) * 100
	}
	if s.ScansSuccess > 0 {
		s.AvgFieldsPerDoc = float64(s.FieldsFound) / float64(s.ScansSuccess)
	}

	m.responseTimesLock.Lock()
	if len(m.responseTimes) > 0 {
		var total time.Duration
		for _, rt := range m.responseTimes {
			total += rt
		}
		s.AvgScanTime = total / time.Duration(len(m.responseTimes))

		sorted := make([]time.Duration, len(m.responseTimes))
		copy(sorted, m.responseTimes)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		p99Index := int(float64(len(sorted)) * 0.99)
		if p99Index >= len(sorted) {
			p99Index = len(sorted) - 1
		}
		s.P99ScanTime = sorted[p99Index]
	}
	m.responseTimesLock.Unlock()

	m.kindLock.Lock()
	for k, v := range m.kindScans {
		s.ScansByKind[k] = v.Load()
	}
	m.kindLock.Unlock()

	return s
}

// Registry exposes the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func RecordScan(kind string, success bool, fieldsFound int, d time.Duration) {
	Default().RecordScan(kind, success, fieldsFound, d)
}

func RecordMRZ(parsed bool) {
	Default().RecordMRZ(parsed)
}

func RecordOCR(engine string, success bool, d time.Duration) {
	Default().RecordOCR(engine, success, d)
}

func RecordBatchItem(success bool) {
	Default().RecordBatchItem(success)
}

func RecordRequest(success bool) {
	Default().RecordRequest(success)
}

func GetSnapshot() *Snapshot {
	return Default().Snapshot()
}
