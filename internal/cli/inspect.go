package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/segmentio/encoding/json"
	"github.com/spf13/cobra"
	"go.lsp.dev/uri"

	"github.com/mvp-joe/fluxion/internal/document"
	"github.com/mvp-joe/fluxion/internal/hover"
	"github.com/mvp-joe/fluxion/internal/syntax"
	"github.com/mvp-joe/fluxion/internal/text"
)

var (
	inspectLine      int
	inspectCharacter int
	inspectJSON      bool
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show the symbols of a Python file, and optionally a hover",
	Long: `Inspect builds the same document model the server does for a single file
and prints its top-level symbols. With --line, it also prints the hover
answer for that position (0-based line and UTF-16 character).

Examples:
  # List symbols
  fluxion inspect app/models.py

  # Hover at line 10, character 4
  fluxion inspect app/models.py --line 10 --character 4

  # Machine-readable output
  fluxion inspect app/models.py --json
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := inspectOptions{JSON: inspectJSON}
		if cmd.Flags().Changed("line") {
			opts.Hover = &text.Position{Line: inspectLine, Character: inspectCharacter}
		}
		return runInspect(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().IntVar(&inspectLine, "line", 0, "Line to hover (0-based)")
	inspectCmd.Flags().IntVar(&inspectCharacter, "character", 0, "Character to hover (0-based, UTF-16)")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Output as JSON")
}

type inspectOptions struct {
	Hover *text.Position
	JSON  bool
}

type inspectSymbol struct {
	Name  string     `json:"name"`
	Kind  string     `json:"kind"`
	Range text.Range `json:"range"`
}

type inspectReport struct {
	URI        string          `json:"uri"`
	Lines      int             `json:"lines"`
	ParseError string          `json:"parse_error,omitempty"`
	Symbols    []inspectSymbol `json:"symbols"`
	Hover      string          `json:"hover,omitempty"`
}

func runInspect(ctx context.Context, out io.Writer, path string, opts inspectOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	// one-shot run, nothing to cache
	analyzer := document.NewAnalyzer(syntax.NewPythonParser(), nil, nil)

	doc := document.New(ctx, string(uri.File(abs)), string(content), analyzer)
	snap := doc.Snapshot()

	report := inspectReport{
		URI:     doc.ID(),
		Lines:   snap.Lines().LineCount(),
		Symbols: []inspectSymbol{},
	}
	if failed, ok := snap.Syntax().(document.Failed); ok {
		report.ParseError = failed.Err.Error()
	}
	for _, sym := range snap.Symbols() {
		report.Symbols = append(report.Symbols, inspectSymbol{
			Name:  sym.Name,
			Kind:  sym.Kind.String(),
			Range: sym.Range,
		})
	}

	if opts.Hover != nil {
		desc, err := hover.Resolve(doc, *opts.Hover)
		switch {
		case errors.Is(err, text.ErrOutOfBounds):
			return fmt.Errorf("position %s: %w", opts.Hover, err)
		case err != nil:
			return err
		}
		report.Hover = desc.Markdown()
	}

	if opts.JSON {
		jsonBytes, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(out, string(jsonBytes))
		return nil
	}

	printReport(out, report)
	return nil
}

func printReport(out io.Writer, r inspectReport) {
	fmt.Fprintf(out, "%s\n", r.URI)
	fmt.Fprintf(out, "  Lines:   %d\n", r.Lines)
	fmt.Fprintf(out, "  Symbols: %d\n", len(r.Symbols))
	if r.ParseError != "" {
		fmt.Fprintf(out, "  Parse:   %s\n", r.ParseError)
	}
	fmt.Fprintln(out)

	for _, s := range r.Symbols {
		fmt.Fprintf(out, "  %-10s %-24s %s\n", s.Kind, s.Name, s.Range)
	}

	if r.Hover != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, r.Hover)
	}
}
