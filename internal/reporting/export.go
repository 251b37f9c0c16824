package reporting

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Output file names written by Export.
const (
	CSVFile      = "variant_summaries.csv"
	XLSXFile     = "variant_summaries.xlsx"
	MarkdownFile = "REPORT.md"
)

// Export generates a report and writes the CSV, XLSX and Markdown files into
// dir, creating it if needed. Returns the written paths.
func Export(ctx context.Context, g *Generator, dir string) ([]string, error) {
	report, err := g.Generate(ctx)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	outputs := []struct {
		name  string
		write func(io.Writer, *Report) error
	}{
		{CSVFile, WriteCSV},
		{XLSXFile, WriteXLSX},
		{MarkdownFile, func(w io.Writer, r *Report) error {
			_, err := io.WriteString(w, RenderMarkdown(r))
			return err
		}},
	}

	paths := make([]string, 0, len(outputs))
	for _, out := range outputs {
		path := filepath.Join(dir, out.name)
		if err := writeFile(path, report, out.write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, r *Report, write func(io.Writer, *Report) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
