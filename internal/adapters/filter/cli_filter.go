package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/mikey/threat-analyzer/internal/core"
)

// Analyzer is the part of the analysis service the CLI needs
type Analyzer interface {
	MessageAnalyzer
	AnalyzePDF(ctx context.Context, raw []byte) core.PdfResult
	AnalyzeURL(ctx context.Context, rawURL string) core.URLResult
}

// CliFilter runs one analysis from the command line and prints the result
type CliFilter struct {
	service Analyzer
	logger  *zap.Logger
	out     io.Writer
	verbose bool
	asJSON  bool
}

// NewCliFilter creates a new CLI filter writing to out
func NewCliFilter(service Analyzer, logger *zap.Logger, out io.Writer, verbose, asJSON bool) *CliFilter {
	return &CliFilter{
		service: service,
		logger:  logger,
		out:     out,
		verbose: verbose,
		asJSON:  asJSON,
	}
}

var (
	heading = color.New(color.Bold, color.FgCyan)
	danger  = color.New(color.Bold, color.FgRed)
	warn    = color.New(color.FgYellow)
	ok      = color.New(color.FgGreen)
)

// ProcessEmail analyzes a raw RFC 5322 message
func (f *CliFilter) ProcessEmail(ctx context.Context, raw []byte) (*core.MessageResult, error) {
	msg, err := ParseMessage(raw)
	if err != nil {
		f.logger.Error("Failed to parse email", zap.Error(err))
		return nil, err
	}
	f.logger.Debug("Processing email", zap.String("message_id", msg.MessageID))

	start := time.Now()
	result := f.service.AnalyzeMessage(ctx, msg)
	duration := time.Since(start)

	if f.asJSON {
		return &result, f.writeJSON(result)
	}

	heading.Fprintln(f.out, "=== Email Summary ===")
	if msg.Headers != nil {
		fmt.Fprintf(f.out, "From: %s\n", msg.Headers.From)
	}
	fmt.Fprintf(f.out, "Subject: %s\n", msg.Subject)
	fmt.Fprintf(f.out, "Body length: %d bytes\n", len(msg.Body))
	fmt.Fprintf(f.out, "Links: %d, attachments: %d\n", len(msg.URLs), len(msg.Attachments))
	if f.verbose {
		preview := msg.Body
		if len(preview) > 500 {
			preview = preview[:500] + "..."
		}
		fmt.Fprintf(f.out, "\nBody preview:\n%s\n", preview)
	}

	fmt.Fprintln(f.out)
	heading.Fprintln(f.out, "=== Results ===")
	labelColor(result.Email.Label).Fprintf(f.out, "Label: %s\n", result.Email.Label)
	fmt.Fprintf(f.out, "Score: %.2f\n", result.Email.Score)
	fmt.Fprintf(f.out, "Confidence: %.3f\n", result.Email.Confidence)
	f.printReasons(result.Email.Reasons)
	for name, pdf := range result.PDFs {
		fmt.Fprintf(f.out, "Attachment %s: risk %.1f/20 (%d pages, %d links)\n", name, pdf.RiskScore, pdf.PageCount, len(pdf.URLs))
	}
	fmt.Fprintf(f.out, "Version: %s\n", result.Email.Version)
	fmt.Fprintf(f.out, "Processing time: %v\n", duration)
	return &result, nil
}

// ProcessPDF analyzes a PDF document
func (f *CliFilter) ProcessPDF(ctx context.Context, raw []byte) (core.PdfResult, error) {
	result := f.service.AnalyzePDF(ctx, raw)
	if f.asJSON {
		return result, f.writeJSON(result)
	}

	heading.Fprintln(f.out, "=== PDF Analysis ===")
	riskColor(result.RiskScore, 10, 5).Fprintf(f.out, "Risk score: %.1f/20\n", result.RiskScore)
	fmt.Fprintf(f.out, "Pages: %d\n", result.PageCount)
	fmt.Fprintf(f.out, "JavaScript: %t, actions: %t, embedded files: %t, encrypted: %t\n",
		result.HasJS, result.HasActions, result.HasEmbeddedFiles, result.IsEncrypted)
	fmt.Fprintf(f.out, "Links: %d\n", len(result.URLs))
	if f.verbose {
		for _, u := range result.URLs {
			fmt.Fprintf(f.out, "  %s\n", u)
		}
	}
	f.printReasons(result.Reasons)
	return result, nil
}

// ProcessURL analyzes a single URL
func (f *CliFilter) ProcessURL(ctx context.Context, rawURL string) (core.URLResult, error) {
	result := f.service.AnalyzeURL(ctx, rawURL)
	if f.asJSON {
		return result, f.writeJSON(result)
	}

	heading.Fprintln(f.out, "=== URL Analysis ===")
	fmt.Fprintf(f.out, "URL: %s\n", result.URL)
	fmt.Fprintf(f.out, "Domain: %s (suffix %q)\n", result.Domain, result.TLD)
	riskColor(result.Score, 6, 3).Fprintf(f.out, "Risk: %s (%.1f/15)\n", result.Risk, result.Score)
	if f.verbose {
		fmt.Fprintf(f.out, "IP host: %t, encoded: %t, shortener: %t, trusted: %t, entropy: %.2f\n",
			result.HasIP, result.IsEncoded, result.IsShortened, result.KnownSafe, result.Entropy)
	}
	f.printReasons(result.Reasons)
	return result, nil
}

func (f *CliFilter) printReasons(reasons []string) {
	if len(reasons) == 0 {
		fmt.Fprintln(f.out, "Reasons: none")
		return
	}
	fmt.Fprintln(f.out, "Reasons:")
	for _, r := range reasons {
		fmt.Fprintf(f.out, "  - %s\n", r)
	}
}

func (f *CliFilter) writeJSON(v any) error {
	enc := json.NewEncoder(f.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func labelColor(label core.Label) *color.Color {
	switch label {
	case core.LabelPhishing:
		return danger
	case core.LabelFraud, core.LabelSpam:
		return warn
	default:
		return ok
	}
}

func riskColor(score, high, medium float64) *color.Color {
	switch {
	case score >= high:
		return danger
	case score >= medium:
		return warn
	default:
		return ok
	}
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
