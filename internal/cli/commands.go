package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gmsas95/idscan/internal/batch"
	"github.com/gmsas95/idscan/internal/config"
	"github.com/gmsas95/idscan/internal/extract"
	"github.com/gmsas95/idscan/internal/output"
	"github.com/gmsas95/idscan/internal/scan"
	"github.com/gmsas95/idscan/internal/store"
)

// printOutcome writes a card on a terminal, the document as JSON with
// --json, and the plain text report otherwise
func printOutcome(w io.Writer, g *globals, out *scan.Outcome) error {
	if g.pretty(w) {
		_, err := fmt.Fprintln(w, renderOutcome(out))
		return err
	}
	var data []byte
	var err error
	if g.json {
		data, err = output.JSON(out.Document())
	} else {
		data, err = output.Text(out.Document())
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func runScan(kind extract.Kind, args []string, stdout io.Writer) error {
	var g globals
	fs := flag.NewFlagSet(string(kind), flag.ContinueOnError)
	g.register(fs)
	profile := fs.String("profile", "", "License heuristics profile: permissive or strict")
	engine := fs.String("engine", "", "OCR engine: tesseract or gosseract")
	lang := fs.String("lang", "", "Tesseract language")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: idscan %s <image>...", kind)
	}

	application, cleanup, err := bootstrap(&g, func(cfg *config.Config) {
		if *profile != "" {
			cfg.Extract.Profile = *profile
		}
		if *engine != "" {
			cfg.OCR.Engine = *engine
		}
		if *lang != "" {
			cfg.OCR.Language = *lang
		}
	})
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	failed := 0
	for _, path := range fs.Args() {
		out, err := application.Scans.ScanFile(ctx, kind, path)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			continue
		}
		if err := printOutcome(stdout, &g, out); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, fs.NArg())
	}
	return nil
}

func runMRZ(args []string, stdin io.Reader, stdout io.Writer) error {
	var g globals
	fs := flag.NewFlagSet("mrz", flag.ContinueOnError)
	g.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	source := "stdin"
	var raw []byte
	var err error
	if path := fs.Arg(0); path != "" && path != "-" {
		source = path
		raw, err = os.ReadFile(path)
	} else {
		raw, err = io.ReadAll(stdin)
	}
	if err != nil {
		return fmt.Errorf("failed to read MRZ text: %w", err)
	}

	application, cleanup, err := bootstrap(&g, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := application.Scans.ParseMRZ(context.Background(), source, string(raw))
	if err != nil {
		return err
	}
	return printOutcome(stdout, &g, out)
}

func runBatch(args []string, stdout io.Writer) error {
	var g globals
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	g.register(fs)
	input := fs.String("i", "", "List file: one image path per line, or JSONL {path, kind}")
	dir := fs.String("d", "", "Scan every image in this folder")
	recursive := fs.Bool("r", false, "Recurse into subfolders with -d")
	kindName := fs.String("k", "license", "Document kind for items without one")
	report := fs.String("o", "", "Write a report (.json or .txt)")
	concurrency := fs.Int("c", 0, "Concurrent documents (default from config)")
	timeout := fs.Int("t", 0, "Per-document timeout in seconds (default from config)")
	rate := fs.Float64("rate", -1, "Documents per second, 0 for unlimited (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*input == "") == (*dir == "") {
		return fmt.Errorf("usage: idscan batch -i <list> | -d <folder> [-k kind] [-o report]")
	}
	kind, err := parseKind(*kindName)
	if err != nil {
		return err
	}

	application, cleanup, err := bootstrap(&g, func(cfg *config.Config) {
		if *concurrency > 0 {
			cfg.Batch.Concurrency = *concurrency
		}
		if *timeout > 0 {
			cfg.Batch.Timeout = *timeout
		}
		if *rate >= 0 {
			cfg.Batch.Rate = *rate
		}
	})
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	if *input != "" {
		result, err := application.Batch.ProcessFile(ctx, *input, kind, *report)
		if result == nil {
			return err
		}
		printBatch(stdout, &g, result)
		return err
	}

	result, err := application.Batch.ProcessDir(ctx, *dir, *recursive, kind, *report)
	if result == nil {
		return err
	}
	printBatch(stdout, &g, result)
	return err
}

func printBatch(w io.Writer, g *globals, result *batch.Result) {
	switch {
	case g.json:
		if s, err := result.ToJSON(); err == nil {
			fmt.Fprintln(w, s)
		}
	case g.pretty(w):
		fmt.Fprintln(w, renderBatchResult(result))
	default:
		fmt.Fprint(w, result.Summary())
	}
}

func runWatch(args []string) error {
	var g globals
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	g.register(fs)
	dir := fs.String("dir", "", "Inbox folder (default <data>/inbox)")
	schedule := fs.String("schedule", "", `Sweep schedule, cron spec or "@every 5m"`)
	kindName := fs.String("k", "", "Document kind of inbox images")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *kindName != "" {
		if _, err := parseKind(*kindName); err != nil {
			return err
		}
	}

	application, cleanup, err := bootstrap(&g, func(cfg *config.Config) {
		if *dir != "" {
			cfg.Inbox.Dir, _ = filepath.Abs(*dir)
		}
		if *schedule != "" {
			cfg.Inbox.Schedule = *schedule
		}
		if *kindName != "" {
			kind, _ := extract.ParseKind(*kindName)
			cfg.Inbox.Kind = string(kind)
		}
	})
	if err != nil {
		return err
	}
	defer cleanup()

	return application.RunWatch()
}

func runServe(args []string) error {
	var g globals
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	g.register(fs)
	port := fs.Int("port", 0, "Listen port (default from config)")
	withInbox := fs.Bool("inbox", false, "Also sweep the inbox folder")
	if err := fs.Parse(args); err != nil {
		return err
	}

	application, cleanup, err := bootstrap(&g, func(cfg *config.Config) {
		if *port > 0 {
			cfg.Server.Port = *port
		}
	})
	if err != nil {
		return err
	}
	defer cleanup()

	return application.RunServer(*withInbox)
}

func runHistory(args []string, stdout io.Writer) error {
	sub := "list"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		sub, args = args[0], args[1:]
	}
	if sub == "help" {
		printHistoryHelp(stdout)
		return nil
	}

	var g globals
	fs := flag.NewFlagSet("history "+sub, flag.ContinueOnError)
	g.register(fs)
	kindName := fs.String("k", "", "Only this document kind")
	status := fs.String("s", "", "Only this status: ok or failed")
	batchID := fs.String("batch", "", "Only scans from this batch run")
	limit := fs.Int("n", 20, "Maximum rows")
	if err := fs.Parse(args); err != nil {
		return err
	}

	application, cleanup, err := bootstrap(&g, nil)
	if err != nil {
		return err
	}
	defer cleanup()
	st := application.Store

	switch sub {
	case "list", "ls":
		opts := store.ListOptions{Status: *status, BatchID: *batchID, Limit: *limit}
		if *kindName != "" {
			kind, err := parseKind(*kindName)
			if err != nil {
				return err
			}
			opts.Kind = string(kind)
		}
		scans, err := st.ListScans(opts)
		if err != nil {
			return err
		}
		if g.json {
			return writeJSON(stdout, scans)
		}
		if len(scans) == 0 {
			fmt.Fprintln(stdout, "No scans recorded yet.")
			return nil
		}
		fmt.Fprintln(stdout, renderScanTable(scans))

	case "show":
		if fs.NArg() != 1 {
			return fmt.Errorf("usage: idscan history show <id>")
		}
		row, err := st.GetScan(fs.Arg(0))
		if err != nil {
			return err
		}
		if g.json {
			return writeJSON(stdout, row)
		}
		fmt.Fprintln(stdout, renderScanTable([]store.Scan{*row}))
		if row.Error != "" {
			fmt.Fprintln(stdout, failStyle.Render(row.Error))
		}
		if len(row.Result) > 0 {
			data, err := output.JSON(row.Result)
			if err != nil {
				return err
			}
			stdout.Write(data)
		}

	case "rm", "delete":
		if fs.NArg() != 1 {
			return fmt.Errorf("usage: idscan history rm <id>")
		}
		if err := st.DeleteScan(fs.Arg(0)); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Deleted %s\n", fs.Arg(0))

	case "stats":
		stats, err := st.Stats()
		if err != nil {
			return err
		}
		if g.json {
			return writeJSON(stdout, stats)
		}
		fmt.Fprintln(stdout, renderStatsTable(stats))

	case "batches":
		runs, err := st.ListBatchRuns(*limit)
		if err != nil {
			return err
		}
		if g.json {
			return writeJSON(stdout, runs)
		}
		fmt.Fprintln(stdout, renderBatchRuns(runs))

	default:
		printHistoryHelp(stdout)
		return fmt.Errorf("unknown history command %q", sub)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
