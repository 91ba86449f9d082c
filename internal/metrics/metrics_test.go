package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDefault(t *testing.T) {
	m1 := Default()
	m2 := Default()

	if m1 != m2 {
		t.Error("Default() should return same instance")
	}
}

func TestRecordScan_Success(t *testing.T) {
	m := New()
	m.RecordScan("license", true, 4, 20*time.Millisecond)

	if m.scansTotal.Load() != 1 || m.scansSuccess.Load() != 1 {
		t.Error("Successful scan not counted")
	}
	if m.fieldsFound.Load() != 4 {
		t.Errorf("Expected 4 fields, got %d", m.fieldsFound.Load())
	}
	if got := testutil.ToFloat64(m.scans.WithLabelValues("license", "success")); got != 1 {
		t.Errorf("Expected scans_total{license,success}=1, got %v", got)
	}
}

func TestRecordScan_Failure(t *testing.T) {
	m := New()
	m.RecordScan("passport", false, 0, time.Millisecond)

	if m.scansFailed.Load() != 1 {
		t.Error("Failed scan not counted")
	}
	if m.fieldsFound.Load() != 0 {
		t.Error("Failed scans must not add fields")
	}
	if got := testutil.ToFloat64(m.scans.WithLabelValues("passport", "failure")); got != 1 {
		t.Errorf("Expected scans_total{passport,failure}=1, got %v", got)
	}
}

func TestRecordMRZ(t *testing.T) {
	m := New()
	m.RecordMRZ(true)
	m.RecordMRZ(false)
	m.RecordMRZ(false)

	if got := testutil.ToFloat64(m.mrzDecodes.WithLabelValues("unparsed")); got != 2 {
		t.Errorf("Expected 2 unparsed decodes, got %v", got)
	}
	s := m.Snapshot()
	if s.MRZParsed != 1 || s.MRZUnparsed != 2 {
		t.Errorf("Unexpected MRZ counts: %d/%d", s.MRZParsed, s.MRZUnparsed)
	}
}

func TestRecordOCR(t *testing.T) {
	m := New()
	m.RecordOCR("tesseract", true, 300*time.Millisecond)
	m.RecordOCR("tesseract", false, time.Second)

	s := m.Snapshot()
	if s.OCRCalls != 2 || s.OCRFailures != 1 {
		t.Errorf("Unexpected OCR counts: %d/%d", s.OCRCalls, s.OCRFailures)
	}
}

func TestSnapshot(t *testing.T) {
	m := New()
	m.RecordScan("license", true, 5, 10*time.Millisecond)
	m.RecordScan("license", true, 3, 30*time.Millisecond)
	m.RecordScan("ssn", false, 0, 20*time.Millisecond)
	m.RecordBatchItem(true)
	m.RecordBatchItem(false)
	m.RecordRequest(true)

	s := m.Snapshot()

	if s.ScansTotal != 3 {
		t.Errorf("Expected 3 scans, got %d", s.ScansTotal)
	}
	if s.ScansByKind["license"] != 2 || s.ScansByKind["ssn"] != 1 {
		t.Errorf("Unexpected per-kind counts: %v", s.ScansByKind)
	}
	if s.AvgFieldsPerDoc != 4 {
		t.Errorf("Expected 4 fields per doc, got %v", s.AvgFieldsPerDoc)
	}
	if s.AvgScanTime != 20*time.Millisecond {
		t.Errorf("Expected 20ms average, got %v", s.AvgScanTime)
	}
	if s.BatchSucceeded != 1 || s.BatchFailed != 1 {
		t.Error("Batch items not counted")
	}
	if s.RequestsTotal != 1 {
		t.Error("Request not counted")
	}
}

func TestSnapshot_ZeroScans(t *testing.T) {
	m := New()
	s := m.Snapshot()

	if s.SuccessRate != 0 || s.AvgFieldsPerDoc != 0 {
		t.Error("Rates should be 0 with no scans")
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordScan("passport", true, 13, 50*time.Millisecond)
	m.RecordMRZ(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	output := string(body)

	for _, want := range []string{
		`idscan_scans_total{kind="passport",outcome="success"} 1`,
		`idscan_mrz_decodes_total{outcome="parsed"} 1`,
		"idscan_uptime_seconds",
		"idscan_fields_found_bucket",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Metrics output missing %q", want)
		}
	}
}

func TestResponseTimePercentile(t *testing.T) {
	m := New()

	for i := 0; i < 100; i++ {
		m.RecordResponseTime(time.Duration(i+1) * time.Millisecond)
	}

	s := m.Snapshot()

	if s.P99ScanTime != 100*time.Millisecond {
		t.Errorf("Expected p99 of 100ms, got %v", s.P99ScanTime)
	}
}

func TestResponseTimeRolling(t *testing.T) {
	m := New()

	for i := 0; i < 1100; i++ {
		m.RecordResponseTime(time.Duration(i+1) * time.Millisecond)
	}

	m.responseTimesLock.Lock()
	count := len(m.responseTimes)
	m.responseTimesLock.Unlock()

	if count > 1000 {
		t.Errorf("Response times should be capped at 1000, got %d", count)
	}
}

func TestConcurrentAccess(t *testing.T) {
	m := New()
	done := make(chan bool)

	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				m.RecordScan("license", j%2 == 0, 3, time.Millisecond)
				m.RecordOCR("tesseract", true, time.Millisecond)
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	s := m.Snapshot()
	if s.ScansTotal != 1000 {
		t.Errorf("Expected 1000 scans, got %d", s.ScansTotal)
	}
}

func BenchmarkRecordScan(b *testing.B) {
	m := New()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.RecordScan("license", true, 4, time.Millisecond)
	}
}

func BenchmarkSnapshot(b *testing.B) {
	m := New()
	for i := 0; i < 100; i++ {
		m.RecordScan("license", true, 4, time.Millisecond)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Snapshot()
	}
}
