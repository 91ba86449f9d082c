package scan

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmsas95/idscan/internal/config"
	apperrors "github.com/gmsas95/idscan/internal/errors"
	"github.com/gmsas95/idscan/internal/extract"
	"github.com/gmsas95/idscan/internal/imaging"
	"github.com/gmsas95/idscan/internal/metrics"
	"github.com/gmsas95/idscan/internal/ocr"
	"github.com/gmsas95/idscan/internal/output"
	"github.com/gmsas95/idscan/internal/store"
)

const (
	mrzLine1 = "P<USASMITH<<JOHN<<<<<<<<<<<<<<<<<<<<<<<<<<<"
	mrzLine2 = "L898902C36USA6908061F9204159<<<<<<<<<<<<<06"
)

var licenseLines = ocr.FromTexts("PENNSYLVANIA", "DLN: 12 345 678", "EXP: 01/02/2030", "SEX: F", "JANE DOE")

type fixture struct {
	svc     *Service
	store   *store.Store
	metrics *metrics.Metrics
	outDir  string
}

func newFixture(t *testing.T, engine ocr.Engine) *fixture {
	t.Helper()
	dir := t.TempDir()

	st, err := store.New(&config.Config{Storage: config.StorageConfig{DataDir: dir, SQLitePath: filepath.Join(dir, "scan.db")}})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	outDir := filepath.Join(dir, "out")
	w, err := output.NewWriter(outDir, []string{"json", "txt"})
	require.NoError(t, err)

	m := metrics.New()
	svc := New(Config{
		Engine:  engine,
		Store:   st,
		Writer:  w,
		Metrics: m,
		Options: DefaultOptions(),
	})
	return &fixture{svc: svc, store: st, metrics: m, outDir: outDir}
}

func card(w, h int) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetGray(w/2, h/2, color.Gray{Y: 0})
	return img
}

func writeCard(t *testing.T, name string) string {
	t.Helper()
	data, err := imaging.EncodePNG(card(1200, 760))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestScanFile_License(t *testing.T) {
	engine := ocr.NewStatic(licenseLines)
	f := newFixture(t, engine)

	out, err := f.svc.ScanFile(context.Background(), extract.KindLicense, writeCard(t, "front.png"))
	require.NoError(t, err)

	require.NotNil(t, out.Record)
	assert.Equal(t, extract.Found("12345678"), out.Record.DocNumber)
	assert.Equal(t, extract.Found("Pennsylvania"), out.Record.Region)
	assert.Equal(t, extract.Found("Jane Doe"), out.Record.Name)
	assert.Equal(t, 5, out.FieldsFound())
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, 1, engine.Calls())

	assert.ElementsMatch(t, []string{
		filepath.Join(f.outDir, "front.json"),
		filepath.Join(f.outDir, "front.txt"),
	}, out.Files)

	row, err := f.store.GetScan(out.ID)
	require.NoError(t, err)
	assert.Equal(t, "license", row.Kind)
	assert.Equal(t, "permissive", row.Profile)
	assert.Equal(t, "static", row.Engine)
	assert.Equal(t, 5, row.FieldsFound)
	assert.Contains(t, row.RawText, "DLN: 12 345 678")

	var stored extract.Record
	require.NoError(t, json.Unmarshal(row.Result, &stored))
	assert.Equal(t, extract.Found("12345678"), stored.DocNumber)
	assert.Equal(t, extract.Missing(), stored.Signature)

	s := f.metrics.Snapshot()
	assert.EqualValues(t, 1, s.ScansSuccess)
	assert.EqualValues(t, 1, s.OCRCalls)
}

func TestScanImage_Passport(t *testing.T) {
	f := newFixture(t, ocr.NewStatic(ocr.FromTexts(mrzLine1, "L898902C3 6USA6908061F9204159<<<<<<<<<<<<<06")))

	out, err := f.svc.ScanImage(context.Background(), extract.KindPassport, "passport.jpg", card(1000, 700))
	require.NoError(t, err)

	require.NotNil(t, out.Passport)
	require.NotNil(t, out.Passport.Parsed)
	assert.Equal(t, "L898902C3", out.Passport.Parsed.PassportNumber)
	assert.Equal(t, mrzLine1+"\n"+mrzLine2, out.Passport.RawText)
	require.NotNil(t, out.MRZDetected)
	assert.False(t, *out.MRZDetected, "a blank card falls back to the bottom strip")
	assert.Equal(t, out.Passport, out.Document())
	assert.EqualValues(t, 1, f.metrics.Snapshot().MRZParsed)
}

func TestScanImage_PassportUnparsed(t *testing.T) {
	f := newFixture(t, ocr.NewStatic(ocr.FromTexts("NOT AN MRZ")))

	out, err := f.svc.ScanImage(context.Background(), extract.KindPassport, "blurry.jpg", card(800, 500))
	require.NoError(t, err, "an undecodable zone is not an error")
	assert.Nil(t, out.Passport.Parsed)
	assert.Equal(t, 0, out.FieldsFound())

	txt, err := os.ReadFile(filepath.Join(f.outDir, "blurry.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(txt), "Could not parse MRZ data")
}

func TestScanImage_OCRFailure(t *testing.T) {
	cause := apperrors.New(apperrors.ErrOCRFailed.Code, "engine crashed")
	f := newFixture(t, ocr.NewFailing(cause))

	_, err := f.svc.ScanImage(context.Background(), extract.KindSSN, "card.png", card(600, 400))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrOCRFailed.Code, apperrors.GetCode(err))

	failed, err := f.store.ListScans(store.ListOptions{Status: store.StatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "ssn", failed[0].Kind)
	assert.Contains(t, failed[0].Error, "engine crashed")

	s := f.metrics.Snapshot()
	assert.EqualValues(t, 1, s.ScansFailed)
	assert.EqualValues(t, 1, s.OCRFailures)
}

func TestScanFile_Unreadable(t *testing.T) {
	f := newFixture(t, ocr.NewStatic(nil))
	path := filepath.Join(t.TempDir(), "junk.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0644))

	_, err := f.svc.ScanFile(context.Background(), extract.KindLicense, path)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrImageUnreadable.Code, apperrors.GetCode(err))
}

func TestScanImage_UnknownKind(t *testing.T) {
	f := newFixture(t, ocr.NewStatic(nil))

	_, err := f.svc.ScanImage(context.Background(), extract.Kind("visa"), "x.png", card(10, 10))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrBadRequest.Code, apperrors.GetCode(err))
}

func TestExtractLines(t *testing.T) {
	engine := ocr.NewStatic(nil)
	f := newFixture(t, engine)

	out, err := f.svc.ExtractLines(context.Background(), extract.KindSSN, "", []ocr.Line{
		{Text: "123-45-6789", Confidence: ocr.Conf(0.9), Order: 0},
		{Text: "THIS NUMBER HAS BEEN ESTABLISHED FOR", Confidence: ocr.Conf(0.9), Order: 1},
		{Text: "JOHN SMITH", Confidence: ocr.Conf(0.9), Order: 2},
		{Text: "John Smith", Confidence: ocr.Conf(0.6), Order: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, extract.Found("123-45-6789"), out.Record.DocNumber)
	assert.Equal(t, extract.Found("JOHN SMITH"), out.Record.Name)
	assert.Equal(t, extract.Found("John Smith"), out.Record.Signature)
	assert.Equal(t, 0, engine.Calls(), "no recognition for supplied lines")
	assert.FileExists(t, filepath.Join(f.outDir, "ssn_data.json"))
}

func TestParseMRZ_BatchTagged(t *testing.T) {
	f := newFixture(t, ocr.NewStatic(nil))
	ctx := WithBatchID(context.Background(), "batch_1")

	out, err := f.svc.ParseMRZ(ctx, "zone.txt", mrzLine1+"\n"+mrzLine2)
	require.NoError(t, err)
	require.NotNil(t, out.Passport.Parsed)
	assert.Equal(t, "Female", string(out.Passport.Parsed.Sex))

	rows, err := f.store.ListScans(store.ListOptions{BatchID: "batch_1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, out.ID, rows[0].ID)
}

func TestService_NoStoreNoWriter(t *testing.T) {
	svc := New(Config{Engine: ocr.NewStatic(licenseLines), Metrics: metrics.New()})

	out, err := svc.ExtractLines(context.Background(), extract.KindLicense, "front.png", licenseLines)
	require.NoError(t, err)
	assert.Empty(t, out.ID)
	assert.Empty(t, out.Files)
	assert.Equal(t, "static", svc.EngineName())
	assert.True(t, svc.EngineAvailable())
}

func TestRedactRawText(t *testing.T) {
	f := newFixture(t, ocr.NewStatic(nil))
	opts := DefaultOptions()
	opts.RedactRawText = true
	svc := New(Config{Engine: ocr.NewStatic(nil), Store: f.store, Metrics: f.metrics, Options: opts})

	out, err := svc.ExtractLines(context.Background(), extract.KindSSN, "card.png", ocr.FromTexts("123-45-6789", "JOHN SMITH"))
	require.NoError(t, err)
	assert.Equal(t, extract.Found("123-45-6789"), out.Record.DocNumber, "the result itself is untouched")

	row, err := f.store.GetScan(out.ID)
	require.NoError(t, err)
	assert.NotContains(t, row.RawText, "123-45-6789")
	assert.Contains(t, row.RawText, "***-**-6789")
}
