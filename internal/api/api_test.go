package api

import (
	"bytes"
	"encoding/json"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmsas95/idscan/internal/config"
	"github.com/gmsas95/idscan/internal/imaging"
	"github.com/gmsas95/idscan/internal/metrics"
	"github.com/gmsas95/idscan/internal/ocr"
	"github.com/gmsas95/idscan/internal/scan"
	"github.com/gmsas95/idscan/internal/store"
)

const (
	mrzLine1 = "P<USASMITH<<JOHN<<<<<<<<<<<<<<<<<<<<<<<<<<<"
	mrzLine2 = "L898902C36USA6908061F9204159<<<<<<<<<<<<<06"
)

type testServer struct {
	srv   *Server
	store *store.Store
	token string
}

func newTestServer(t *testing.T, engine ocr.Engine, password string) *testServer {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		Server: config.ServerConfig{Port: 8080, BodyLimitMB: 5},
		Security: config.SecurityConfig{
			JWTSecret:     "test-secret",
			AdminPassword: password,
			TokenTTL:      10,
		},
		Storage: config.StorageConfig{DataDir: dir, SQLitePath: filepath.Join(dir, "api.db")},
	}

	st, err := store.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	m := metrics.New()
	svc := scan.New(scan.Config{Engine: engine, Store: st, Metrics: m, Options: scan.DefaultOptions()})

	srv := New(Deps{Config: cfg, Scans: svc, Store: st, Metrics: m, Version: "test"})
	ts := &testServer{srv: srv, store: st}
	ts.token = ts.login(t, password)
	return ts
}

func (ts *testServer) login(t *testing.T, password string) string {
	t.Helper()
	body, _ := json.Marshal(tokenRequest{Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/token", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.srv.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tok tokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tok))
	require.NotEmpty(t, tok.Token)
	return tok.Token
}

func (ts *testServer) do(t *testing.T, method, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer "+ts.token)
	resp, err := ts.srv.App().Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (ts *testServer) postJSON(t *testing.T, path string, v interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return ts.do(t, http.MethodPost, path, bytes.NewReader(body), "application/json")
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var m map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	return m
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, ocr.NewStatic(nil), "")

	resp, err := ts.srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, "static", body["engine"])
	assert.Equal(t, true, body["engine_available"])
}

func TestAuth(t *testing.T) {
	ts := newTestServer(t, ocr.NewStatic(nil), "hunter2")

	t.Run("missing header", func(t *testing.T) {
		resp, err := ts.srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/scans", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/scans", nil)
		req.Header.Set("Authorization", "Bearer nope")
		resp, err := ts.srv.App().Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("wrong password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/token", strings.NewReader(`{"password":"guess"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := ts.srv.App().Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "AUTH_001", decode(t, resp)["code"])
	})

	t.Run("valid token", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, "/api/scans", nil, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestExtractLicense(t *testing.T) {
	ts := newTestServer(t, ocr.NewStatic(nil), "")

	resp := ts.postJSON(t, "/api/extract/license", extractRequest{
		Source: "front.jpg",
		Texts:  []string{"PENNSYLVANIA", "DLN: 12 345 678", "EXP: 01/02/2030", "SEX: F", "JANE DOE"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	record := body["record"].(map[string]interface{})
	assert.Equal(t, "12345678", record["doc_number"])
	assert.Equal(t, "Pennsylvania", record["region"])
	assert.NotEmpty(t, body["id"])
}

func TestExtract_Errors(t *testing.T) {
	ts := newTestServer(t, ocr.NewStatic(nil), "")

	resp := ts.postJSON(t, "/api/extract/visa", extractRequest{Texts: []string{"x"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "GEN_002", decode(t, resp)["code"])

	resp = ts.postJSON(t, "/api/extract/ssn", extractRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestParseMRZ(t *testing.T) {
	ts := newTestServer(t, ocr.NewStatic(nil), "")

	resp := ts.postJSON(t, "/api/mrz/parse", mrzRequest{Text: mrzLine1 + "\n" + mrzLine2})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	passport := body["passport"].(map[string]interface{})
	assert.Equal(t, mrzLine1+"\n"+mrzLine2, passport["raw_mrz_text"])
	parsed := passport["parsed_data"].(map[string]interface{})
	assert.Equal(t, "L898902C3", parsed["passport_number"])
}

func TestParseMRZ_Unparsed(t *testing.T) {
	ts := newTestServer(t, ocr.NewStatic(nil), "")

	resp := ts.postJSON(t, "/api/mrz/parse", mrzRequest{Text: "garbage"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	passport := decode(t, resp)["passport"].(map[string]interface{})
	assert.Nil(t, passport["parsed_data"])
}

func uploadBody(t *testing.T, name string) (*bytes.Buffer, string) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 400, 250))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	data, err := imaging.EncodePNG(img)
	require.NoError(t, err)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestScanUpload(t *testing.T) {
	engine := ocr.NewStatic(ocr.FromTexts("123-45-6789", "THIS NUMBER HAS BEEN ESTABLISHED FOR", "JOHN SMITH"))
	ts := newTestServer(t, engine, "")

	body, ct := uploadBody(t, "card.png")
	resp := ts.do(t, http.MethodPost, "/api/scan/ssn", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode(t, resp)
	record := out["record"].(map[string]interface{})
	assert.Equal(t, "123-45-6789", record["doc_number"])
	assert.Equal(t, "card.png", out["source"])
	assert.Equal(t, 1, engine.Calls())
}

func TestScanUpload_Errors(t *testing.T) {
	ts := newTestServer(t, ocr.NewStatic(nil), "")

	resp := ts.do(t, http.MethodPost, "/api/scan/license", strings.NewReader("{}"), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "junk.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("not an image"))
	require.NoError(t, w.Close())

	resp = ts.do(t, http.MethodPost, "/api/scan/license", &buf, w.FormDataContentType())
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "IMG_001", decode(t, resp)["code"])
}

func TestScanHistory(t *testing.T) {
	ts := newTestServer(t, ocr.NewStatic(nil), "")

	resp := ts.postJSON(t, "/api/mrz/parse", mrzRequest{Source: "p.txt", Text: mrzLine1 + "\n" + mrzLine2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	id := decode(t, resp)["id"].(string)

	resp = ts.postJSON(t, "/api/extract/ssn", extractRequest{Texts: []string{"123-45-6789"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/scans?kind=passport", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	scans := decode(t, resp)["scans"].([]interface{})
	require.Len(t, scans, 1)
	assert.Equal(t, id, scans[0].(map[string]interface{})["id"])

	resp = ts.do(t, http.MethodGet, "/api/scans/"+id, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "p.txt", decode(t, resp)["source"])

	resp = ts.do(t, http.MethodDelete, "/api/scans/"+id, nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/scans/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "GEN_001", decode(t, resp)["code"])

	resp = ts.do(t, http.MethodDelete, "/api/scans/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatsAndMetrics(t *testing.T) {
	ts := newTestServer(t, ocr.NewStatic(nil), "")

	resp := ts.postJSON(t, "/api/extract/ssn", extractRequest{Texts: []string{"123-45-6789"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/stats", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	kinds := decode(t, resp)["kinds"].([]interface{})
	require.Len(t, kinds, 1)

	resp, err := ts.srv.App().Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	text, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(text), `idscan_scans_total{kind="ssn",outcome="success"} 1`)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}

func TestRejectsMalformedText(t *testing.T) {
	ts := newTestServer(t, ocr.NewStatic(nil), "")

	resp := ts.postJSON(t, "/api/mrz/parse", mrzRequest{Text: "P<USA\x00SMITH"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	lines := make([]string, 501)
	for i := range lines {
		lines[i] = "LINE"
	}
	resp = ts.postJSON(t, "/api/extract/license", extractRequest{Texts: lines})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "GEN_002", decode(t, resp)["code"])
}
