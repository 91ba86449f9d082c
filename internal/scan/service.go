// Package scan runs documents through recognition and extraction, then
// persists and writes the results.
package scan

import (
	"context"
	"encoding/json"
	"image"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/gmsas95/idscan/internal/errors"
	"github.com/gmsas95/idscan/internal/extract"
	"github.com/gmsas95/idscan/internal/imaging"
	"github.com/gmsas95/idscan/internal/metrics"
	"github.com/gmsas95/idscan/internal/mrz"
	"github.com/gmsas95/idscan/internal/ocr"
	"github.com/gmsas95/idscan/internal/output"
	"github.com/gmsas95/idscan/internal/security"
	"github.com/gmsas95/idscan/internal/store"
)

// Options tunes recognition and extraction
type Options struct {
	Profile     extract.Profile
	ResizeWidth int
	OCR         ocr.Options
	Timeout     time.Duration

	// RedactRawText masks SSNs and MRZ lines in the stored raw text
	RedactRawText bool
}

// DefaultOptions returns the permissive profile with 800 px license resizing
func DefaultOptions() Options {
	return Options{
		Profile:     extract.Permissive,
		ResizeWidth: 800,
		OCR:         ocr.DefaultOptions(),
		Timeout:     time.Minute,
	}
}

// Config wires a Service. Store and Writer are optional.
type Config struct {
	Engine  ocr.Engine
	Locator *mrz.Locator
	Store   *store.Store
	Writer  *output.Writer
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	Options Options
}

// Service processes identity documents
type Service struct {
	engine  ocr.Engine
	reader  *mrz.Reader
	store   *store.Store
	writer  *output.Writer
	metrics *metrics.Metrics
	logger  *zap.Logger
	opts    Options
	now     func() time.Time
}

// New creates a scan service
func New(cfg Config) *Service {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Locator == nil {
		cfg.Locator = mrz.NewLocator(mrz.DefaultLocatorConfig())
	}
	if cfg.Options.Profile.Name == "" {
		cfg.Options.Profile = extract.Permissive
	}

	engine := &instrumented{next: cfg.Engine, metrics: cfg.Metrics}
	return &Service{
		engine:  engine,
		reader:  mrz.NewReader(engine, cfg.Locator, cfg.Options.OCR),
		store:   cfg.Store,
		writer:  cfg.Writer,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		opts:    cfg.Options,
		now:     time.Now,
	}
}

// EngineName returns the underlying OCR engine name
func (s *Service) EngineName() string {
	return s.engine.Name()
}

// EngineAvailable reports whether recognition can run
func (s *Service) EngineAvailable() bool {
	return s.engine.IsAvailable()
}

// Outcome is the result of processing one document
type Outcome struct {
	ID          string             `json:"id,omitempty"`
	Kind        extract.Kind       `json:"kind"`
	Source      string             `json:"source"`
	Record      *extract.Record    `json:"record,omitempty"`
	Passport    *mrz.Result        `json:"passport,omitempty"`
	KeyValues   *extract.KeyValues `json:"key_values,omitempty"`
	MRZDetected *bool              `json:"mrz_detected,omitempty"`
	Files       []string           `json:"files,omitempty"`
	Duration    time.Duration      `json:"duration"`
	Lines       []ocr.Line         `json:"-"`
}

// Document returns the value written to output files
func (o *Outcome) Document() interface{} {
	if o.Passport != nil {
		return o.Passport
	}
	return o.Record
}

// FieldsFound counts resolved fields
func (o *Outcome) FieldsFound() int {
	if o.Passport != nil {
		if o.Passport.Parsed == nil {
			return 0
		}
		n := 0
		for _, f := range o.Passport.Parsed.Fields() {
			if f.Value != "" && f.Value != extract.NotFound {
				n++
			}
		}
		return n
	}
	if o.Record != nil {
		return o.Record.FoundCount()
	}
	return 0
}

// RawText is the recognized text kept with the stored scan
func (o *Outcome) RawText() string {
	if o.Passport != nil {
		return o.Passport.RawText
	}
	return ocr.JoinText(o.Lines)
}

type batchKey struct{}

// WithBatchID tags scans made with ctx as members of a batch run
func WithBatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, batchKey{}, id)
}

func batchIDFrom(ctx context.Context) *string {
	if id, ok := ctx.Value(batchKey{}).(string); ok && id != "" {
		return &id
	}
	return nil
}

// ScanFile loads an image from disk and processes it
func (s *Service) ScanFile(ctx context.Context, kind extract.Kind, path string) (*Outcome, error) {
	img, _, err := imaging.Load(path)
	if err != nil {
		s.fail(ctx, kind, path, time.Time{}, err)
		return nil, err
	}
	return s.ScanImage(ctx, kind, path, img)
}

// ScanBytes decodes an uploaded image and processes it
func (s *Service) ScanBytes(ctx context.Context, kind extract.Kind, source string, data []byte) (*Outcome, error) {
	img, _, err := imaging.DecodeBytes(data)
	if err != nil {
		s.fail(ctx, kind, source, time.Time{}, err)
		return nil, err
	}
	return s.ScanImage(ctx, kind, source, img)
}

// ScanImage recognizes and extracts a decoded image
func (s *Service) ScanImage(ctx context.Context, kind extract.Kind, source string, img image.Image) (*Outcome, error) {
	start := s.now()
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	out := &Outcome{Kind: kind, Source: source}

	switch kind {
	case extract.KindPassport:
		res, err := s.reader.Read(ctx, img)
		if err != nil {
			s.fail(ctx, kind, source, start, err)
			return nil, err
		}
		out.Passport = &res.Result
		out.Lines = res.Lines
		out.MRZDetected = &res.Detected
		s.metrics.RecordMRZ(res.Parsed != nil)

	case extract.KindLicense, extract.KindSSN:
		if kind == extract.KindLicense && s.opts.ResizeWidth > 0 {
			img = imaging.ResizeToWidth(img, s.opts.ResizeWidth)
		}
		data, err := imaging.EncodePNG(img)
		if err != nil {
			s.fail(ctx, kind, source, start, err)
			return nil, err
		}
		lines, err := s.engine.Recognize(ctx, data, s.opts.OCR)
		if err != nil {
			s.fail(ctx, kind, source, start, err)
			return nil, err
		}
		s.extract(out, lines)

	default:
		return nil, apperrors.New(apperrors.ErrBadRequest.Code, "unknown document kind "+string(kind))
	}

	return s.finish(ctx, out, start)
}

// ExtractLines runs extraction on already-recognized lines
func (s *Service) ExtractLines(ctx context.Context, kind extract.Kind, source string, lines []ocr.Line) (*Outcome, error) {
	start := s.now()
	out := &Outcome{Kind: kind, Source: source}

	switch kind {
	case extract.KindPassport:
		raw := strings.ReplaceAll(ocr.JoinText(lines), " ", "")
		res := mrz.NewResult(raw, s.now())
		out.Passport = &res
		out.Lines = lines
		s.metrics.RecordMRZ(res.Parsed != nil)
	case extract.KindLicense, extract.KindSSN:
		s.extract(out, lines)
	default:
		return nil, apperrors.New(apperrors.ErrBadRequest.Code, "unknown document kind "+string(kind))
	}

	return s.finish(ctx, out, start)
}

// ParseMRZ decodes raw MRZ text
func (s *Service) ParseMRZ(ctx context.Context, source, raw string) (*Outcome, error) {
	start := s.now()
	res := mrz.NewResult(raw, s.now())
	s.metrics.RecordMRZ(res.Parsed != nil)
	out := &Outcome{Kind: extract.KindPassport, Source: source, Passport: &res}
	return s.finish(ctx, out, start)
}

func (s *Service) extract(out *Outcome, lines []ocr.Line) {
	out.Lines = lines
	if out.Kind == extract.KindSSN {
		out.Record = extract.ExtractSSN(lines)
		return
	}
	out.Record, out.KeyValues = extract.ExtractLicense(lines, s.opts.Profile)
}

func (s *Service) finish(ctx context.Context, out *Outcome, start time.Time) (*Outcome, error) {
	out.Duration = s.now().Sub(start)
	fields := out.FieldsFound()

	if s.store != nil {
		result, err := json.Marshal(out.Document())
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, "failed to encode result")
		}
		row := &store.Scan{
			Kind:        string(out.Kind),
			Source:      out.Source,
			Engine:      s.engine.Name(),
			Profile:     s.profileName(out.Kind),
			FieldsFound: fields,
			Result:      result,
			RawText:     s.storedText(out.RawText()),
			DurationMs:  out.Duration.Milliseconds(),
			BatchID:     batchIDFrom(ctx),
		}
		if err := s.store.SaveScan(row); err != nil {
			return nil, err
		}
		out.ID = row.ID
	}

	if s.writer != nil {
		base := output.BaseName(out.Source, out.Kind)
		files, err := s.writer.Write(base, out.Document())
		if err != nil {
			s.logger.Warn("Failed to write output files", zap.String("source", out.Source), zap.Error(err))
		}
		out.Files = files
	}

	s.metrics.RecordScan(string(out.Kind), true, fields, out.Duration)
	s.logger.Info("Document processed",
		zap.String("kind", string(out.Kind)),
		zap.String("source", filepath.Base(out.Source)),
		zap.Int("fields_found", fields),
		zap.Duration("duration", out.Duration),
	)
	return out, nil
}

// fail records a document that could not be processed
func (s *Service) fail(ctx context.Context, kind extract.Kind, source string, start time.Time, cause error) {
	var d time.Duration
	if !start.IsZero() {
		d = s.now().Sub(start)
	}
	s.metrics.RecordScan(string(kind), false, 0, d)
	msg := security.RedactPII(cause.Error())
	s.logger.Warn("Document failed",
		zap.String("kind", string(kind)),
		zap.String("source", source),
		zap.String("code", apperrors.GetCode(cause)),
		zap.String("error", msg),
	)

	if s.store == nil {
		return
	}
	row := &store.Scan{
		Kind:       string(kind),
		Source:     source,
		Engine:     s.engine.Name(),
		Profile:    s.profileName(kind),
		Status:     store.StatusFailed,
		Error:      msg,
		DurationMs: d.Milliseconds(),
		BatchID:    batchIDFrom(ctx),
	}
	if err := s.store.SaveScan(row); err != nil {
		s.logger.Warn("Failed to record failed scan", zap.Error(err))
	}
}

func (s *Service) storedText(raw string) string {
	if s.opts.RedactRawText {
		return security.RedactPII(raw)
	}
	return raw
}

func (s *Service) profileName(kind extract.Kind) string {
	if kind == extract.KindLicense {
		return s.opts.Profile.Name
	}
	return ""
}
