package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"novel_crafter/export"
	"novel_crafter/processor"
)

var (
	exportFormat string
	exportOut    string
	exportTitle  string
	exportAuthor string
)

var exportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Export a manuscript to Word, HTML, PDF or plain text",
	Long: `Exports FILE ("-" reads standard input). If the requested format cannot be
produced, a plain-text document containing the original text is written
instead and a warning is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "word", "output format: word, html, pdf or text")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "output file (default: derived from the title)")
	exportCmd.Flags().StringVar(&exportTitle, "title", "", "document title")
	exportCmd.Flags().StringVar(&exportAuthor, "author", "", "document author")
}

func runExport(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	opts := export.Options{Title: exportTitle, Author: exportAuthor}.WithDefaults(cfg.Export)

	doc, err := exportDocument(cmd.Context(), newProcessor(cfg, logger), exportFormat, text, opts, cfg.PDFTimeout())
	if err != nil {
		return err
	}
	out := exportOut
	if out == "" {
		out = doc.Filename(opts.Title)
	}
	if err := os.WriteFile(out, doc.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	if doc.Fallback {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s export failed; wrote plain text to %s\n", exportFormat, out)
	}
	logger.Info("export written", zap.String("format", exportFormat), zap.String("path", out), zap.Int("bytes", len(doc.Data)))
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func exportDocument(ctx context.Context, p *processor.Processor, format, text string, opts export.Options, pdfTimeout time.Duration) (export.Document, error) {
	switch strings.ToLower(format) {
	case "word", "docx":
		return p.ExportToWord(text, opts), nil
	case "html":
		return p.ExportToHTML(text, opts), nil
	case "pdf":
		ctx, cancel := context.WithTimeout(ctx, pdfTimeout)
		defer cancel()
		return p.ExportToPDF(ctx, text, opts), nil
	case "text", "txt":
		return p.ExportToText(text), nil
	default:
		return export.Document{}, fmt.Errorf("unknown export format %q (want word, html, pdf or text)", format)
	}
}
