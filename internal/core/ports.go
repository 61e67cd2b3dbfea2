package core

import (
	"context"
	"time"
)

// EmailClassifier scores email content
type EmailClassifier interface {
	// Classify never fails; absent fields count as absent signals
	Classify(input EmailInput) EmailResult
}

// PDFAnalyzer scores raw PDF bytes
type PDFAnalyzer interface {
	// Analyze degrades unparseable documents into a penalised result instead of failing
	Analyze(raw []byte) PdfResult
}

// URLAnalyzer scores URLs
type URLAnalyzer interface {
	Analyze(rawURL string) URLResult
	AnalyzeBatch(urls []string) BatchResult
}

// VerdictRepository stores verdicts for auditing
type VerdictRepository interface {
	// Save stores a verdict
	Save(ctx context.Context, verdict *Verdict) error

	// Get retrieves a verdict by id
	Get(ctx context.Context, id string) (*Verdict, error)

	// Delete removes a verdict
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired verdicts
	Cleanup(ctx context.Context) error
}

// MetricsRecorder observes analyses
type MetricsRecorder interface {
	ObserveAnalysis(kind Kind, label string, score float64, elapsed time.Duration)
	ObserveStore(err error)
}
