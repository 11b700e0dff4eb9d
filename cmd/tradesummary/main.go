package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/export"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/logger"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/models"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/parsers"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/processors"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/security/validation"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	exitNoTrade = 3
)

const sniffLen = 1024

type options struct {
	format     string
	out        string
	csv        string
	showTrades bool
	logLevel   string
}

func main() {
	os.Exit(run(os.Args[1:], afero.NewOsFs(), os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, fs afero.Fs, stdin io.Reader, stdout, stderr io.Writer) int {
	var opts options
	flags := pflag.NewFlagSet("tradesummary", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVarP(&opts.format, "format", "f", "auto", "input format: csv, json or auto")
	flags.StringVarP(&opts.out, "out", "o", "", "write the processed bundle JSON to this path")
	flags.StringVar(&opts.csv, "csv", "", "write the per-symbol summary CSV to this path")
	flags.BoolVar(&opts.showTrades, "trades", false, "also print the normalized trades")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	flags.Usage = func() {
		fmt.Fprintln(stderr, "Usage: tradesummary [flags] [file]")
		fmt.Fprintln(stderr, "Reads trades from file, or stdin when no file is given.")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if flags.NArg() > 1 {
		fmt.Fprintln(stderr, "Error: at most one input file may be given")
		flags.Usage()
		return exitUsage
	}
	if err := validation.ValidateFormatHint(opts.format); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	level, ok := logger.ParseLevel(opts.logLevel)
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown log level %q\n", opts.logLevel)
		return exitUsage
	}
	logger.L = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	sourceName := "stdin"
	var content []byte
	var err error
	if flags.NArg() == 1 {
		path := flags.Arg(0)
		if sourceName, err = validation.ValidateFileName(path); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitUsage
		}
		content, err = afero.ReadFile(fs, path)
	} else {
		content, err = io.ReadAll(stdin)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error reading input: %v\n", err)
		return exitFailed
	}

	if len(content) > 0 {
		prefix := content
		if len(prefix) > sniffLen {
			prefix = prefix[:sniffLen]
		}
		if _, err := validation.ValidateTextBytes(prefix, len(content) > sniffLen); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailed
		}
	}

	processor := processors.NewTradeProcessor()
	res, err := processor.Process(context.Background(), string(content), models.ParseFormatHint(opts.format))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, processors.ErrEmptyResult) && !parsers.IsFormatError(err) {
			return exitNoTrade
		}
		return exitFailed
	}
	bundle := processor.Bundle(sourceName, res)

	fmt.Fprintf(stdout, "%s: %d trades, %d symbols", sourceName, len(res.Trades), len(res.Summary))
	if res.Rejected > 0 {
		fmt.Fprintf(stdout, ", %d records skipped", res.Rejected)
	}
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout)

	if opts.showTrades {
		if err := export.WriteTradeTable(stdout, res.Trades); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailed
		}
		fmt.Fprintln(stdout)
	}
	if err := export.WriteSummaryTable(stdout, res.Summary); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailed
	}

	if opts.out != "" {
		if err := writeFile(fs, opts.out, func(w io.Writer) error { return export.WriteBundle(w, bundle) }); err != nil {
			fmt.Fprintf(stderr, "Error saving bundle: %v\n", err)
			return exitFailed
		}
		fmt.Fprintf(stderr, "Bundle saved to %s\n", opts.out)
	}
	if opts.csv != "" {
		if err := writeFile(fs, opts.csv, func(w io.Writer) error { return export.WriteSummaryCSV(w, res.Summary) }); err != nil {
			fmt.Fprintf(stderr, "Error saving summary CSV: %v\n", err)
			return exitFailed
		}
		fmt.Fprintf(stderr, "Summary CSV saved to %s\n", opts.csv)
	}
	return exitOK
}

func writeFile(fs afero.Fs, path string, write func(io.Writer) error) error {
	f, err := fs.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
