// Package batch scans many documents concurrently with per-item timeouts,
// retries and an optional rate limit.
package batch

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/gmsas95/idscan/internal/errors"
	"github.com/gmsas95/idscan/internal/extract"
	"github.com/gmsas95/idscan/internal/metrics"
	"github.com/gmsas95/idscan/internal/scan"
	"github.com/gmsas95/idscan/internal/store"
)

// Scanner processes one image file
type Scanner interface {
	ScanFile(ctx context.Context, kind extract.Kind, path string) (*scan.Outcome, error)
}

type Processor struct {
	scanner Scanner
	store   *store.Store
	metrics *metrics.Metrics
	config  Config
	limiter *limiter
	logger  *zap.Logger
}

type Config struct {
	MaxConcurrency int
	Timeout        time.Duration
	RetryCount     int
	RetryDelay     time.Duration
	SkipInvalid    bool
	// Rate caps documents per second across workers (0 = unlimited)
	Rate  float64
	Burst int
}

type InputItem struct {
	ID   string       `json:"id"`
	Path string       `json:"path"`
	Kind extract.Kind `json:"kind,omitempty"`
}

type OutputItem struct {
	ID          string        `json:"id"`
	Path        string        `json:"path"`
	Kind        extract.Kind  `json:"kind"`
	ScanID      string        `json:"scan_id,omitempty"`
	FieldsFound int           `json:"fields_found"`
	Document    interface{}   `json:"result,omitempty"`
	Files       []string      `json:"files,omitempty"`
	Attempts    int           `json:"attempts"`
	Duration    time.Duration `json:"duration"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`

	index int
}

type Result struct {
	BatchID   string        `json:"batch_id,omitempty"`
	Total     int           `json:"total"`
	Success   int           `json:"success"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
	Items     []OutputItem  `json:"items"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
}

func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 3,
		Timeout:        120 * time.Second,
		RetryCount:     1,
		RetryDelay:     500 * time.Millisecond,
		SkipInvalid:    true,
		Burst:          1,
	}
}

func NewProcessor(scanner Scanner, cfg Config, logger *zap.Logger) *Processor {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		scanner: scanner,
		metrics: metrics.Default(),
		config:  cfg,
		limiter: newLimiter(cfg.Rate, cfg.Burst),
		logger:  logger,
	}
}

// WithStore records each run as a store.BatchRun
func (p *Processor) WithStore(st *store.Store) *Processor {
	p.store = st
	return p
}

// WithMetrics replaces the default metrics sink
func (p *Processor) WithMetrics(m *metrics.Metrics) *Processor {
	p.metrics = m
	return p
}

// ProcessFile scans every image listed in a text (one path per line) or
// JSONL list file. Items without a kind use defaultKind.
func (p *Processor) ProcessFile(ctx context.Context, listPath string, defaultKind extract.Kind, outputPath string) (*Result, error) {
	items, err := p.loadInputFile(listPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load input file: %w", err)
	}
	for i := range items {
		if items[i].Kind == "" {
			items[i].Kind = defaultKind
		}
	}

	result, err := p.Process(ctx, items, "cli")
	if err != nil {
		return result, err
	}

	if outputPath != "" {
		if err := p.saveOutputFile(outputPath, result); err != nil {
			return result, fmt.Errorf("failed to save output file: %w", err)
		}
	}
	return result, nil
}

// ProcessDir scans every image in dir as kind
func (p *Processor) ProcessDir(ctx context.Context, dir string, recursive bool, kind extract.Kind, outputPath string) (*Result, error) {
	items, err := CollectImages(dir, recursive, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to collect images: %w", err)
	}

	result, err := p.Process(ctx, items, "cli")
	if err != nil {
		return result, err
	}

	if outputPath != "" {
		if err := p.saveOutputFile(outputPath, result); err != nil {
			return result, fmt.Errorf("failed to save output file: %w", err)
		}
	}
	return result, nil
}

// Process scans items with a pool of workers. Items come back in input order.
func (p *Processor) Process(ctx context.Context, items []InputItem, trigger string) (*Result, error) {
	startTime := time.Now()
	result := &Result{
		Total:     len(items),
		StartTime: startTime,
		Items:     make([]OutputItem, 0, len(items)),
	}

	run := p.startRun(items, trigger, startTime)
	if run != nil {
		result.BatchID = run.ID
		ctx = scan.WithBatchID(ctx, run.ID)
	}

	concurrency := p.config.MaxConcurrency
	if concurrency > len(items) {
		concurrency = len(items)
	}

	p.logger.Info("Starting batch",
		zap.Int("total_items", len(items)),
		zap.Int("concurrency", concurrency),
		zap.Float64("rate", p.config.Rate),
	)

	progress := &ProgressTracker{Total: len(items), StartTime: startTime}
	itemsChan := make(chan indexed, len(items))
	resultsChan := make(chan OutputItem, len(items))

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, itemsChan, resultsChan, progress)
		}()
	}

	for i, item := range items {
		itemsChan <- indexed{index: i, item: item}
	}
	close(itemsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for output := range resultsChan {
		result.Items = append(result.Items, output)
		switch {
		case output.Success:
			result.Success++
		case output.Error == "skipped":
			result.Skipped++
		default:
			result.Failed++
		}
	}
	sort.Slice(result.Items, func(i, j int) bool {
		return result.Items[i].index < result.Items[j].index
	})

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	p.finishRun(run, result)
	p.logger.Info("Batch complete",
		zap.Int("total", result.Total),
		zap.Int("success", result.Success),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
		zap.Duration("duration", result.Duration),
	)

	return result, ctx.Err()
}

type indexed struct {
	index int
	item  InputItem
}

func (p *Processor) worker(ctx context.Context, items <-chan indexed, results chan<- OutputItem, progress *ProgressTracker) {
	for in := range items {
		var output OutputItem
		if err := p.limiter.wait(ctx); err != nil {
			output = OutputItem{
				ID:        in.item.ID,
				Path:      in.item.Path,
				Kind:      in.item.Kind,
				Error:     fmt.Sprintf("not started: %v", err),
				Timestamp: time.Now(),
			}
		} else {
			output = p.processItem(ctx, in.item)
		}
		output.index = in.index

		if output.Error != "skipped" {
			p.metrics.RecordBatchItem(output.Success)
		}
		results <- output

		if done := progress.Increment(); done%25 == 0 {
			p.logger.Info("Batch progress",
				zap.Int("completed", done),
				zap.Int("total", progress.Total),
				zap.Float64("percent", progress.Percent()),
				zap.Duration("elapsed", progress.Elapsed()),
				zap.Duration("eta", progress.ETA()),
			)
		}
	}
}

func (p *Processor) processItem(ctx context.Context, item InputItem) OutputItem {
	output := OutputItem{
		ID:        item.ID,
		Path:      item.Path,
		Kind:      item.Kind,
		Timestamp: time.Now(),
	}

	if p.config.SkipInvalid {
		if _, err := os.Stat(item.Path); err != nil || !IsImage(item.Path) {
			output.Error = "skipped"
			return output
		}
	}

	var outcome *scan.Outcome
	var err error
	start := time.Now()

	for attempt := 0; attempt <= p.config.RetryCount; attempt++ {
		output.Attempts = attempt + 1
		processCtx := ctx
		var cancel context.CancelFunc = func() {}
		if p.config.Timeout > 0 {
			processCtx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		}

		outcome, err = p.scanner.ScanFile(processCtx, item.Kind, item.Path)
		cancel()

		if err == nil || !retryable(err) || ctx.Err() != nil {
			break
		}

		if attempt < p.config.RetryCount {
			p.logger.Debug("Retrying document", zap.String("path", item.Path), zap.Int("attempt", attempt+1), zap.Error(err))
			time.Sleep(p.config.RetryDelay)
		}
	}
	output.Duration = time.Since(start)

	if err != nil {
		output.Error = err.Error()
		return output
	}

	output.ScanID = outcome.ID
	output.FieldsFound = outcome.FieldsFound()
	output.Document = outcome.Document()
	output.Files = outcome.Files
	output.Success = true
	return output
}

// retryable is false for failures a second attempt cannot fix
func retryable(err error) bool {
	return !errors.Is(err, apperrors.ErrImageUnreadable) &&
		!errors.Is(err, apperrors.ErrBadRequest) &&
		!errors.Is(err, apperrors.ErrOCRUnavailable)
}

func (p *Processor) startRun(items []InputItem, trigger string, start time.Time) *store.BatchRun {
	if p.store == nil {
		return nil
	}
	run := &store.BatchRun{
		Kind:      batchKind(items),
		Trigger:   trigger,
		Total:     len(items),
		StartedAt: start,
	}
	if err := p.store.SaveBatchRun(run); err != nil {
		p.logger.Warn("Failed to record batch run", zap.Error(err))
		return nil
	}
	return run
}

func (p *Processor) finishRun(run *store.BatchRun, result *Result) {
	if run == nil {
		return
	}
	end := result.EndTime
	run.Succeeded = result.Success
	run.Failed = result.Failed
	run.DurationMs = result.Duration.Milliseconds()
	run.FinishedAt = &end
	if err := p.store.SaveBatchRun(run); err != nil {
		p.logger.Warn("Failed to update batch run", zap.Error(err))
	}
}

// batchKind names the run's document kind, "mixed" when items differ
func batchKind(items []InputItem) string {
	kind := ""
	for _, it := range items {
		if kind == "" {
			kind = string(it.Kind)
		} else if string(it.Kind) != kind {
			return "mixed"
		}
	}
	return kind
}

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true,
	".tif": true, ".tiff": true, ".gif": true, ".webp": true,
}

// IsImage reports whether path has a supported image extension
func IsImage(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// CollectImages lists the images in dir, sorted by name
func CollectImages(dir string, recursive bool, kind extract.Kind) ([]InputItem, error) {
	var items []InputItem
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if IsImage(path) {
			items = append(items, InputItem{Path: path, Kind: kind})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	for i := range items {
		items[i].ID = fmt.Sprintf("item-%d", i+1)
	}
	return items, nil
}

func (p *Processor) loadInputFile(path string) ([]InputItem, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".json") || strings.HasSuffix(lower, ".jsonl") {
		return p.loadJSONFile(file)
	}

	return p.loadTextFile(file)
}

func (p *Processor) loadJSONFile(file *os.File) ([]InputItem, error) {
	var items []InputItem
	decoder := json.NewDecoder(file)

	for decoder.More() {
		var item InputItem
		if err := decoder.Decode(&item); err != nil {
			if p.config.SkipInvalid {
				// a syntax error leaves the decoder unusable
				break
			}
			return nil, fmt.Errorf("failed to decode JSON: %w", err)
		}
		if item.Path == "" {
			continue
		}
		if item.Kind != "" {
			kind, ok := extract.ParseKind(string(item.Kind))
			if !ok {
				if p.config.SkipInvalid {
					continue
				}
				return nil, fmt.Errorf("unknown kind %q for %s", item.Kind, item.Path)
			}
			item.Kind = kind
		}
		if item.ID == "" {
			item.ID = fmt.Sprintf("item-%d", len(items)+1)
		}
		items = append(items, item)
	}

	return items, nil
}

func (p *Processor) loadTextFile(file *os.File) ([]InputItem, error) {
	var items []InputItem
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		items = append(items, InputItem{
			ID:   fmt.Sprintf("line-%d", lineNum),
			Path: line,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return items, nil
}

func (p *Processor) saveOutputFile(path string, result *Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if strings.HasSuffix(strings.ToLower(path), ".json") {
		encoder := json.NewEncoder(file)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	for _, item := range result.Items {
		fmt.Fprintf(file, "=== %s ===\n", item.ID)
		fmt.Fprintf(file, "Path: %s\n", item.Path)
		fmt.Fprintf(file, "Kind: %s\n", item.Kind)
		if item.Success {
			fmt.Fprintf(file, "Fields found: %d\n", item.FieldsFound)
			if len(item.Files) > 0 {
				fmt.Fprintf(file, "Files: %s\n", strings.Join(item.Files, ", "))
			}
		}
		if item.Error != "" {
			fmt.Fprintf(file, "Error: %s\n", item.Error)
		}
		fmt.Fprintf(file, "Attempts: %d | Time: %v\n\n", item.Attempts, item.Duration)
	}

	return nil
}

func (r *Result) Summary() string {
	var sb strings.Builder
	sb.WriteString("=== Batch Processing Summary ===\n")
	sb.WriteString(fmt.Sprintf("Total:     %d\n", r.Total))
	sb.WriteString(fmt.Sprintf("Success:   %d\n", r.Success))
	sb.WriteString(fmt.Sprintf("Failed:    %d\n", r.Failed))
	sb.WriteString(fmt.Sprintf("Skipped:   %d\n", r.Skipped))
	sb.WriteString(fmt.Sprintf("Duration:  %v\n", r.Duration))
	return sb.String()
}

func (r *Result) ToJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
