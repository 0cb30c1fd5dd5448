package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/poccariswet/wasm-bindgen-sub000/catch"
	"github.com/poccariswet/wasm-bindgen-sub000/errors"
	"github.com/poccariswet/wasm-bindgen-sub000/ir"
)

type options struct {
	in       string
	out      string
	patterns string
	table    string
	alloc    string
	signal   string
	strategy string
}

func main() {
	var (
		opts        options
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Debug logging")
	)
	flag.StringVar(&opts.in, "in", "", "Path to input wasm module")
	flag.StringVar(&opts.out, "out", "", "Path to write the transformed module")
	flag.StringVar(&opts.patterns, "catch", "", "Imports to wrap (module.name, name, module.*, * ; comma-separated)")
	flag.StringVar(&opts.table, "table", catch.DefaultTable, "Export name of the externref table")
	flag.StringVar(&opts.alloc, "alloc", catch.DefaultAlloc, "Export name of the externref slot allocator")
	flag.StringVar(&opts.signal, "signal", catch.DefaultSignal, "Export name of the exception store")
	flag.StringVar(&opts.strategy, "strategy", "auto", "Exception handling encoding (auto, legacy, modern)")
	flag.Parse()

	if opts.in == "" || opts.out == "" {
		fmt.Fprintln(os.Stderr, "Usage: catchwrap -in <in.wasm> -out <out.wasm> -catch 'env.*,my_import'")
		fmt.Fprintln(os.Stderr, "       catchwrap -in <in.wasm> -out <out.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync() //nolint:errcheck
		catch.SetLogger(logger)
		ir.SetLogger(logger)
	}

	var err error
	if *interactive {
		err = runInteractive(opts)
	} else {
		err = run(opts)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, styles(isTerminal(os.Stderr)).err.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}
}

func run(opts options) error {
	data, err := os.ReadFile(opts.in)
	if err != nil {
		return errors.Load("read "+opts.in, err)
	}
	matcher := catch.ParsePatterns(opts.patterns)
	if matcher.Empty() {
		return errors.InvalidInput(errors.PhaseConfig, "no imports selected; use -catch or -i")
	}
	out, report, err := transform(data, opts, matcher)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.out, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.out, err)
	}
	fmt.Print(formatReport(opts, report, styles(isTerminal(os.Stdout))))
	return nil
}

// transform runs the pass and turns its fatal aborts into errors.
func transform(data []byte, opts options, matcher catch.ImportMatcher) (out []byte, report *catch.Report, err error) {
	strategy, err := catch.ParseStrategy(opts.strategy)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("%v", r)
		}
	}()
	return catch.Transform(data, catch.Config{
		Matcher:  matcher,
		Table:    opts.table,
		Alloc:    opts.alloc,
		Signal:   opts.signal,
		Strategy: strategy,
	})
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

type styleSet struct {
	title  lipgloss.Style
	name   lipgloss.Style
	detail lipgloss.Style
	err    lipgloss.Style
}

func styles(color bool) styleSet {
	if !color {
		plain := lipgloss.NewStyle()
		return styleSet{title: plain, name: plain, detail: plain, err: plain}
	}
	return styleSet{
		title:  titleStyle,
		name:   funcStyle,
		detail: typeStyle,
		err:    errorStyle,
	}
}

func formatReport(opts options, report *catch.Report, s styleSet) string {
	var b strings.Builder
	b.WriteString(s.title.Render("catchwrap"))
	b.WriteString(" ")
	b.WriteString(opts.in)
	b.WriteString(" -> ")
	b.WriteString(opts.out)
	b.WriteString("\n")
	if len(report.Wrapped) == 0 {
		b.WriteString("No imports matched; module written unchanged.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Strategy: %s\n", s.detail.Render(report.Strategy.String()))
	if report.Tag != nil {
		fmt.Fprintf(&b, "Tag: %s.%s (tag %d)\n", catch.TagModule, catch.TagName, *report.Tag)
	}
	b.WriteString("Wrapped imports:\n")
	for _, w := range report.Wrapped {
		target := fmt.Sprintf("func %d", w.Wrapper)
		if w.Existing {
			target += " (existing)"
		}
		fmt.Fprintf(&b, "  %s -> %s\n", s.name.Render(w.Module+"."+w.Name), s.detail.Render(target))
	}
	fmt.Fprintf(&b, "Rewritten call sites: %d\n", report.RewrittenCalls)
	return b.String()
}
