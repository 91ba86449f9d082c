package ocr

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/gmsas95/idscan/internal/errors"
)

// Tesseract runs the tesseract binary and parses its TSV output
type Tesseract struct {
	binaryPath string
}

// NewTesseract creates a tesseract CLI engine
func NewTesseract(binaryPath string) *Tesseract {
	if binaryPath == "" {
		binaryPath = "tesseract"
	}
	return &Tesseract{binaryPath: binaryPath}
}

// Name returns the engine name
func (t *Tesseract) Name() string {
	return "tesseract"
}

// IsAvailable checks if tesseract is installed
func (t *Tesseract) IsAvailable() bool {
	_, err := exec.LookPath(t.binaryPath)
	return err == nil
}

// Recognize pipes the image to tesseract on stdin and reads TSV from stdout
func (t *Tesseract) Recognize(ctx context.Context, img []byte, opts Options) ([]Line, error) {
	if !t.IsAvailable() {
		return nil, apperrors.Wrap(fmt.Errorf("%s not found in PATH", t.binaryPath), apperrors.ErrOCRUnavailable.Code, "tesseract not installed")
	}

	cmd := exec.CommandContext(ctx, t.binaryPath, t.args(opts)...)
	cmd.Stdin = bytes.NewReader(img)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.Wrap(ctx.Err(), apperrors.ErrOCRFailed.Code, "tesseract interrupted")
		}
		return nil, apperrors.Wrap(fmt.Errorf("%w (output: %s)", err, strings.TrimSpace(stderr.String())), apperrors.ErrOCRFailed.Code, "tesseract failed")
	}

	lines, err := ParseTSV(stdout.Bytes())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrOCRFailed.Code, "unreadable tesseract output")
	}
	return lines, nil
}

func (t *Tesseract) args(opts Options) []string {
	lang := opts.Language
	if lang == "" {
		lang = "eng"
	}
	args := []string{"stdin", "stdout", "-l", lang}
	if opts.PageSegMode > 0 {
		args = append(args, "--psm", strconv.Itoa(opts.PageSegMode))
	}
	if opts.Whitelist != "" {
		args = append(args, "-c", "tessedit_char_whitelist="+opts.Whitelist)
	}
	return append(args, "tsv")
}

// ListLanguages lists available tesseract languages
func (t *Tesseract) ListLanguages(ctx context.Context) ([]string, error) {
	output, err := exec.CommandContext(ctx, t.binaryPath, "--list-langs").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list languages: %w", err)
	}

	var langs []string
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.Contains(line, "List") {
			langs = append(langs, line)
		}
	}
	return langs, nil
}

type tsvKey struct {
	block, par, line int
}

type tsvLine struct {
	words []string
	confs []float64
	box   image.Rectangle
}

// ParseTSV groups tesseract word rows (level 5) into text lines.
// Line confidence is the mean word confidence scaled to [0,1].
func ParseTSV(data []byte) ([]Line, error) {
	grouped := make(map[tsvKey]*tsvLine)
	var keys []tsvKey

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	header := true
	for scanner.Scan() {
		row := scanner.Text()
		if header {
			header = false
			if strings.HasPrefix(row, "level") {
				continue
			}
		}
		cols := strings.Split(row, "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}

		nums := make([]int, 10)
		for i := 1; i <= 9; i++ {
			n, err := strconv.Atoi(cols[i])
			if err != nil {
				return nil, fmt.Errorf("column %d: %w", i, err)
			}
			nums[i] = n
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil {
			return nil, fmt.Errorf("confidence: %w", err)
		}

		key := tsvKey{block: nums[2], par: nums[3], line: nums[4]}
		box := image.Rect(nums[6], nums[7], nums[6]+nums[8], nums[7]+nums[9])
		tl, ok := grouped[key]
		if !ok {
			tl = &tsvLine{box: box}
			grouped[key] = tl
			keys = append(keys, key)
		} else {
			tl.box = tl.box.Union(box)
		}
		tl.words = append(tl.words, text)
		if conf >= 0 {
			tl.confs = append(tl.confs, conf)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	lines := make([]Line, 0, len(keys))
	for _, key := range keys {
		tl := grouped[key]
		line := Line{Text: strings.Join(tl.words, " "), Box: tl.box}
		if len(tl.confs) > 0 {
			var sum float64
			for _, c := range tl.confs {
				sum += c
			}
			line.Confidence = Conf(sum / float64(len(tl.confs)) / 100)
		}
		lines = append(lines, line)
	}
	return orderByPosition(lines), nil
}

// orderByPosition assigns Order from the top edge, left edge breaking ties
func orderByPosition(lines []Line) []Line {
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].Box.Min.Y != lines[j].Box.Min.Y {
			return lines[i].Box.Min.Y < lines[j].Box.Min.Y
		}
		return lines[i].Box.Min.X < lines[j].Box.Min.X
	})
	for i := range lines {
		lines[i].Order = i
	}
	return lines
}
