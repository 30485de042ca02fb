// Command parse segments a newsletter issue without touching any store.
// It reads the issue JSON from a file argument or stdin and writes the
// extracted items as JSON to stdout.
package main

import (
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"

	"newsletter_ingest/internal/config"
	"newsletter_ingest/internal/domain"
	"newsletter_ingest/internal/parser"
)

func main() {
	configPath := flag.String("config", "", "optional config file for parser settings")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	opts := parser.DefaultOptions()
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		opts = cfg.Parser.Options()
	}

	in := io.Reader(os.Stdin)
	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			logger.Error("failed to open issue", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	var issue domain.Issue
	if err := json.NewDecoder(in).Decode(&issue); err != nil {
		logger.Error("failed to decode issue", "error", err)
		os.Exit(1)
	}

	result, mode := parser.New(opts).ParseWithMode(&issue)
	logger.Info("parsed issue",
		"issue_id", issue.ID,
		"mode", mode.String(),
		"items", result.Metadata.TotalItems,
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.Error("failed to write result", "error", err)
		os.Exit(1)
	}
}
