package cli

import (
	"fmt"
	"io"
)

func PrintHelp(w io.Writer) {
	fmt.Fprintf(w, `idscan %s - extract identity-document fields from images

Usage:
  idscan license <image>...      Scan driving licenses
  idscan ssn <image>...          Scan social security cards
  idscan passport <image>...     Locate and decode passport MRZs
  idscan mrz [file|-]            Decode MRZ text from a file or stdin
  idscan batch [options]         Scan a folder or a list of images
  idscan watch [options]         Scan images dropped into the inbox folder
  idscan serve [options]         Start the HTTP API
  idscan history [subcommand]    List, show or delete stored scans
  idscan version                 Show version

Global options:
  --config <path>    Config file (default <data>/idscan.yaml)
  --data <dir>       Data directory (default ~/.local/share/idscan)
  --json             Print JSON instead of formatted output

Environment variables use the IDSCAN_ prefix, e.g. IDSCAN_OCR_LANGUAGE=eng.
Run "idscan <command> -h" for command options.
`, Version)
}

func printHistoryHelp(w io.Writer) {
	fmt.Fprintln(w, `Usage: idscan history [list|show|rm|stats|batches] [options]

  list [-k kind] [-s status] [-n limit] [--batch id]   List recent scans (default)
  show <id>                                            Show one stored scan
  rm <id>                                              Delete a stored scan
  stats                                                Per-kind totals
  batches [-n limit]                                   Recent batch runs`)
}
