package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmsas95/idscan/internal/batch"
	"github.com/gmsas95/idscan/internal/config"
	"github.com/gmsas95/idscan/internal/extract"
	"github.com/gmsas95/idscan/internal/mrz"
	"github.com/gmsas95/idscan/internal/scan"
	"github.com/gmsas95/idscan/internal/store"
)

const sampleMRZ = "P<USASMITH<<JOHN<<<<<<<<<<<<<<<<<<<<<<<<<<<\nL898902C36USA6908061F9204159<<<<<<<<<<<<<06\n"

func TestRun_Dispatch(t *testing.T) {
	assert.Equal(t, 0, Run([]string{"version"}))
	assert.Equal(t, 0, Run([]string{"help"}))
	assert.Equal(t, 2, Run([]string{"frobnicate"}))
	assert.Equal(t, 2, Run(nil))
	assert.Equal(t, 1, Run([]string{"license"}), "missing image argument")
}

func TestMRZCommand_Text(t *testing.T) {
	dataDir := t.TempDir()
	var stdout bytes.Buffer

	err := runMRZ([]string{"--data", dataDir}, strings.NewReader(sampleMRZ), &stdout)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "Raw MRZ Text:")
	assert.Contains(t, stdout.String(), "Passport Number: L898902C3")
	assert.FileExists(t, filepath.Join(dataDir, "output", "stdin.json"))
}

func TestMRZCommand_JSONFromFile(t *testing.T) {
	dataDir := t.TempDir()
	path := filepath.Join(t.TempDir(), "zone.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleMRZ), 0644))

	var stdout bytes.Buffer
	require.NoError(t, runMRZ([]string{"--data", dataDir, "--json", path}, nil, &stdout))

	var res mrz.Result
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &res))
	require.NotNil(t, res.Parsed)
	assert.Equal(t, "SMITH", res.Parsed.Surname)
	assert.FileExists(t, filepath.Join(dataDir, "output", "zone.json"))
}

func TestHistoryCommand(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, runMRZ([]string{"--data", dataDir}, strings.NewReader(sampleMRZ), &bytes.Buffer{}))

	var stdout bytes.Buffer
	require.NoError(t, runHistory([]string{"--data", dataDir, "--json"}, &stdout))
	var scans []store.Scan
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &scans))
	require.Len(t, scans, 1)
	assert.Equal(t, "passport", scans[0].Kind)

	stdout.Reset()
	require.NoError(t, runHistory([]string{"show", "--data", dataDir, scans[0].ID}, &stdout))
	assert.Contains(t, stdout.String(), scans[0].ID)
	assert.Contains(t, stdout.String(), "L898902C3")

	stdout.Reset()
	require.NoError(t, runHistory([]string{"stats", "--data", dataDir}, &stdout))
	assert.Contains(t, stdout.String(), "passport")

	stdout.Reset()
	require.NoError(t, runHistory([]string{"rm", "--data", dataDir, scans[0].ID}, &stdout))
	assert.Contains(t, stdout.String(), "Deleted")

	stdout.Reset()
	require.NoError(t, runHistory([]string{"list", "--data", dataDir}, &stdout))
	assert.Contains(t, stdout.String(), "No scans recorded yet.")

	assert.Error(t, runHistory([]string{"bogus", "--data", dataDir}, &bytes.Buffer{}))
	assert.Error(t, runHistory([]string{"list", "--data", dataDir, "-k", "visa"}, &bytes.Buffer{}))
}

func TestBatchCommand_Validation(t *testing.T) {
	dataDir := t.TempDir()
	assert.Error(t, runBatch([]string{"--data", dataDir}, &bytes.Buffer{}), "needs -i or -d")
	assert.Error(t, runBatch([]string{"--data", dataDir, "-i", "a", "-d", "b"}, &bytes.Buffer{}))
	assert.Error(t, runBatch([]string{"--data", dataDir, "-d", t.TempDir(), "-k", "visa"}, &bytes.Buffer{}))
}

func TestBatchCommand_EmptyFolder(t *testing.T) {
	var stdout bytes.Buffer
	err := runBatch([]string{"--data", t.TempDir(), "-d", t.TempDir(), "-k", "ssn"}, &stdout)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "=== Batch Processing Summary ===")
	assert.Contains(t, stdout.String(), "Total:     0")
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(config.LogConfig{Level: "debug"})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	logger, err = NewLogger(config.LogConfig{JSON: true, Level: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1), "debug disabled at warn")

	_, err = NewLogger(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestRenderOutcome(t *testing.T) {
	rec := extract.NewRecord(extract.KindLicense)
	rec.DocNumber = extract.Found("12345678")
	out := &scan.Outcome{Kind: extract.KindLicense, Source: "front.jpg", Record: rec, Duration: 12 * time.Millisecond}

	card := renderOutcome(out)
	assert.Contains(t, card, "License")
	assert.Contains(t, card, "front.jpg")
	assert.Contains(t, card, "12345678")
	assert.Contains(t, card, extract.NotFound)
	assert.Contains(t, card, "1 fields")

	detected := false
	unparsed := &scan.Outcome{
		Kind:        extract.KindPassport,
		Passport:    &mrz.Result{RawText: "P<GARBAGE"},
		MRZDetected: &detected,
	}
	card = renderOutcome(unparsed)
	assert.Contains(t, card, "Could not parse MRZ data")
	assert.Contains(t, card, "P<GARBAGE")
	assert.Contains(t, card, "bottom strip")
}

func TestRenderTables(t *testing.T) {
	scans := []store.Scan{
		{ID: "scan_1", Kind: "ssn", Source: "card.png", Status: store.StatusOK, FieldsFound: 3, CreatedAt: time.Now()},
		{ID: "scan_2", Kind: "license", Source: strings.Repeat("x", 60) + ".png", Status: store.StatusFailed},
	}
	out := renderScanTable(scans)
	assert.Contains(t, out, "scan_1")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "…")

	stats := renderStatsTable([]store.KindStats{{Kind: "ssn", Total: 2, Failed: 1, AvgFields: 2.5, AvgDuration: 40}})
	assert.Contains(t, stats, "2.5")

	res := renderBatchResult(&batch.Result{Total: 2, Success: 1, Failed: 1, Items: []batch.OutputItem{
		{Path: "a.png", Success: true},
		{Path: "b.png", Error: "unreadable"},
	}})
	assert.Contains(t, res, "b.png")
	assert.NotContains(t, res, "a.png")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "…6789", truncate("0123456789", 5))
}
