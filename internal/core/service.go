package core

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/glaslos/tlsh"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/threat-analyzer/internal/utils"
)

const (
	// minFingerprintBytes is the shortest input TLSH will hash
	minFingerprintBytes = 50
	logFieldRunes       = 80
)

// TextSanitizer cleans untrusted text before it reaches an analyzer
type TextSanitizer interface {
	ProcessText(text string, maxSize int) string
}

// ServiceOptions tunes the analysis service
type ServiceOptions struct {
	// Retention sets Verdict.ExpiresAt; zero keeps verdicts until deleted
	Retention time.Duration
	// MaxTextBytes bounds subject, body and PDF text; zero disables the bound
	MaxTextBytes int
}

// AnalysisService is the entry point transports call into
type AnalysisService struct {
	email   EmailClassifier
	pdf     PDFAnalyzer
	urls    URLAnalyzer
	store   VerdictRepository
	metrics MetricsRecorder
	text    TextSanitizer
	logger  *zap.Logger
	opts    ServiceOptions
}

// NewAnalysisService creates a new analysis service. store, metrics and text may be nil.
func NewAnalysisService(
	email EmailClassifier,
	pdf PDFAnalyzer,
	urls URLAnalyzer,
	store VerdictRepository,
	metrics MetricsRecorder,
	text TextSanitizer,
	logger *zap.Logger,
	opts ServiceOptions,
) *AnalysisService {
	return &AnalysisService{
		email:   email,
		pdf:     pdf,
		urls:    urls,
		store:   store,
		metrics: metrics,
		text:    text,
		logger:  logger,
		opts:    opts,
	}
}

// AnalyzeEmail classifies an email
func (s *AnalysisService) AnalyzeEmail(ctx context.Context, input EmailInput) EmailResult {
	start := time.Now()
	input = s.sanitizeEmail(input)

	result := s.email.Classify(input)
	s.observe(KindEmail, string(result.Label), result.Score, time.Since(start))

	s.logger.Info("Email analyzed",
		zap.String("label", string(result.Label)),
		zap.Float64("score", result.Score),
		zap.Float64("confidence", result.Confidence),
		zap.Int("url_count", len(input.URLs)))

	result.VerdictID = s.record(ctx, KindEmail, string(result.Label), result.Score, result.Reasons,
		input.Subject+"\n"+input.Body)
	return result
}

// AnalyzePDF scores a PDF document
func (s *AnalysisService) AnalyzePDF(ctx context.Context, raw []byte) PdfResult {
	start := time.Now()

	result := s.pdf.Analyze(raw)
	label := pdfLabel(result.RiskScore)
	s.observe(KindPDF, label, result.RiskScore, time.Since(start))

	s.logger.Info("PDF analyzed",
		zap.Int("size", len(raw)),
		zap.Int("pages", result.PageCount),
		zap.Float64("risk_score", result.RiskScore),
		zap.Int("url_count", len(result.URLs)))

	result.VerdictID = s.record(ctx, KindPDF, label, result.RiskScore, result.Reasons, string(raw))
	return result
}

// AnalyzeURL scores a single URL
func (s *AnalysisService) AnalyzeURL(ctx context.Context, rawURL string) URLResult {
	start := time.Now()

	result := s.urls.Analyze(rawURL)
	s.observe(KindURL, string(result.Risk), result.Score, time.Since(start))

	s.logger.Info("URL analyzed",
		zap.String("url", truncateForLog(rawURL)),
		zap.String("risk", string(result.Risk)),
		zap.Float64("score", result.Score))

	result.VerdictID = s.record(ctx, KindURL, string(result.Risk), result.Score, result.Reasons, rawURL)
	return result
}

// AnalyzeURLBatch scores a batch of URLs; items past the analyzer's limit are dropped
func (s *AnalysisService) AnalyzeURLBatch(ctx context.Context, urls []string) BatchResult {
	start := time.Now()

	batch := s.urls.AnalyzeBatch(urls)
	elapsed := time.Since(start)
	for i := range batch.Results {
		r := &batch.Results[i]
		s.observe(KindURL, string(r.Risk), r.Score, elapsed/time.Duration(max(1, batch.Total)))
		r.VerdictID = s.record(ctx, KindURL, string(r.Risk), r.Score, r.Reasons, r.URL)
	}

	s.logger.Info("URL batch analyzed",
		zap.Int("requested", len(urls)),
		zap.Int("total", batch.Total),
		zap.Duration("elapsed", elapsed))
	return batch
}

// AnalyzeMessage scores every PDF attachment, then classifies the email with
// the attachments' text and links folded in
func (s *AnalysisService) AnalyzeMessage(ctx context.Context, msg *Message) MessageResult {
	out := MessageResult{MessageID: msg.MessageID}
	input := msg.EmailInput
	input.URLs = append([]string(nil), msg.URLs...)

	var pdfTexts []string
	for _, att := range msg.Attachments {
		if !att.IsPDF() {
			continue
		}
		res := s.AnalyzePDF(ctx, att.Content)
		if out.PDFs == nil {
			out.PDFs = make(map[string]*PdfResult)
		}
		out.PDFs[attachmentKey(att, out.PDFs)] = &res

		if res.Text != "" {
			pdfTexts = append(pdfTexts, res.Text)
		}
		input.URLs = appendUnique(input.URLs, res.URLs...)
	}

	if len(pdfTexts) > 0 && input.PDFText == nil {
		joined := strings.Join(pdfTexts, "\n")
		input.PDFText = &joined
	}

	out.Email = s.AnalyzeEmail(ctx, input)

	s.logger.Debug("Message analyzed",
		zap.String("message_id", msg.MessageID),
		zap.Int("attachments", len(msg.Attachments)),
		zap.Int("pdfs", len(out.PDFs)),
		zap.String("label", string(out.Email.Label)))
	return out
}

// Verdict looks up a stored verdict
func (s *AnalysisService) Verdict(ctx context.Context, id string) (*Verdict, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.Get(ctx, id)
}

func (s *AnalysisService) sanitizeEmail(in EmailInput) EmailInput {
	if s.text == nil {
		return in
	}
	in.Subject = s.text.ProcessText(in.Subject, s.opts.MaxTextBytes)
	in.Body = s.text.ProcessText(in.Body, s.opts.MaxTextBytes)
	if in.PDFText != nil {
		t := s.text.ProcessText(*in.PDFText, s.opts.MaxTextBytes)
		in.PDFText = &t
	}
	return in
}

func (s *AnalysisService) observe(kind Kind, label string, score float64, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveAnalysis(kind, label, score, elapsed)
	}
}

// record stores a verdict and returns its id. Store failures are logged,
// never returned; the id is then empty.
func (s *AnalysisService) record(ctx context.Context, kind Kind, label string, score float64, reasons []string, content string) string {
	if s.store == nil {
		return ""
	}

	now := time.Now()
	v := &Verdict{
		ID:          uuid.New().String(),
		Kind:        kind,
		Label:       label,
		Score:       score,
		Reasons:     reasons,
		Fingerprint: Fingerprint([]byte(content)),
		CreatedAt:   now,
	}
	if s.opts.Retention > 0 {
		v.ExpiresAt = now.Add(s.opts.Retention)
	}

	err := s.store.Save(ctx, v)
	if s.metrics != nil {
		s.metrics.ObserveStore(err)
	}
	if err != nil {
		s.logger.Error("Failed to store verdict",
			zap.Error(err),
			zap.String("kind", string(kind)),
			zap.String("id", v.ID))
		return ""
	}
	s.logger.Debug("Verdict stored", zap.String("id", v.ID), zap.String("kind", string(kind)))
	return v.ID
}

// Fingerprint returns the TLSH digest of content, or "" when content is too
// short or too uniform to hash
func Fingerprint(content []byte) string {
	if len(content) < minFingerprintBytes {
		return ""
	}
	h, err := tlsh.HashBytes(content)
	if err != nil {
		return ""
	}
	return h.String()
}

// pdfLabel buckets a PDF risk score for metrics and verdicts
func pdfLabel(score float64) string {
	switch {
	case score >= 10:
		return "high"
	case score >= 5:
		return "medium"
	default:
		return "low"
	}
}

// attachmentKey names an attachment uniquely within taken
func attachmentKey(att Attachment, taken map[string]*PdfResult) string {
	base := att.FileName
	if base == "" {
		base = "attachment-" + strconv.Itoa(len(taken)+1)
	}
	key := base
	for n := 2; ; n++ {
		if _, dup := taken[key]; !dup {
			return key
		}
		key = base + "#" + strconv.Itoa(n)
	}
}

func appendUnique(dst []string, items ...string) []string {
	seen := make(map[string]struct{}, len(dst))
	for _, d := range dst {
		seen[d] = struct{}{}
	}
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		dst = append(dst, it)
	}
	return dst
}

// truncateForLog bounds a log field to logFieldRunes characters
func truncateForLog(s string) string {
	cut := utils.TruncateRunes(s, logFieldRunes)
	if cut == s {
		return s
	}
	return cut + "..."
}
