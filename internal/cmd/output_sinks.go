package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/namelens/domainsearch/internal/output"
)

// outputSink is where a command writes its rendered result.
type outputSink struct {
	writer io.Writer
	close  func() error
	path   string
}

var nonFilename = regexp.MustCompile(`[^a-z0-9._-]+`)

// sanitizeFilename turns a query such as "Coffee Shop" into "coffee-shop".
func sanitizeFilename(value string) string {
	clean := nonFilename.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	clean = strings.Trim(clean, "-.")
	if clean == "" {
		return "output"
	}
	return clean
}

func outputExtension(format output.Format) string {
	switch format {
	case output.FormatJSON:
		return "json"
	case output.FormatMarkdown:
		return "md"
	default:
		return "txt"
	}
}

func resolveOutputFormat(cmd *cobra.Command) (output.Format, error) {
	value, err := cmd.Flags().GetString("output-format")
	if err != nil {
		return "", err
	}
	return output.ParseFormat(value)
}

// openOutput honours --out and --out-dir. With --out-dir the file is named
// <stem>.<ext>; with neither, output goes to the command's stdout.
func openOutput(cmd *cobra.Command, stem string, format output.Format) (*outputSink, error) {
	outPath, _ := cmd.Flags().GetString("out")
	outDir, _ := cmd.Flags().GetString("out-dir")
	outPath, outDir = strings.TrimSpace(outPath), strings.TrimSpace(outDir)

	switch {
	case outPath != "" && outDir != "":
		return nil, fmt.Errorf("--out and --out-dir are mutually exclusive")
	case outDir != "":
		outPath = filepath.Join(outDir, stem+"."+outputExtension(format))
	case outPath == "" || outPath == "-":
		return &outputSink{writer: cmd.OutOrStdout(), close: func() error { return nil }, path: "-"}, nil
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(outPath)
	if err != nil {
		return nil, err
	}
	return &outputSink{writer: file, close: file.Close, path: outPath}, nil
}

// requireFormat rejects formats a command has no renderer for.
func requireFormat(format output.Format, allowed ...output.Format) error {
	for _, candidate := range allowed {
		if format == candidate {
			return nil
		}
	}
	return fmt.Errorf("unsupported output format: %s", format)
}
