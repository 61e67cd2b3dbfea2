package factory

import (
	"go.uber.org/zap"

	"github.com/mikey/threat-analyzer/internal/analyzer/email"
	"github.com/mikey/threat-analyzer/internal/analyzer/pdf"
	"github.com/mikey/threat-analyzer/internal/analyzer/urlintel"
	"github.com/mikey/threat-analyzer/internal/config"
	"github.com/mikey/threat-analyzer/internal/whitelist"
)

// AnalyzerFactory creates the three analysis engines from configuration
type AnalyzerFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewAnalyzerFactory creates a new analyzer factory
func NewAnalyzerFactory(cfg *config.Config, logger *zap.Logger) *AnalyzerFactory {
	return &AnalyzerFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateEmailClassifier creates the email classifier
func (f *AnalyzerFactory) CreateEmailClassifier() *email.Classifier {
	ec := f.cfg.GetEmail()
	return email.NewClassifier(email.Options{
		PhishingWeight: ec.PhishingWeight,
		FraudWeight:    ec.FraudWeight,
		SpamWeight:     ec.SpamWeight,
		MaxReasons:     ec.MaxReasons,
		Version:        ec.Version,
	})
}

// CreatePDFAnalyzer creates the PDF analyzer
func (f *AnalyzerFactory) CreatePDFAnalyzer() *pdf.Analyzer {
	pc := f.cfg.GetPDF()
	return pdf.NewAnalyzer(pdf.Options{
		MaxTextChars: pc.MaxTextChars,
		MaxURLs:      pc.MaxURLs,
	})
}

// CreateTrustedDomains creates the trusted domain checker: the built-in
// list plus any configured domains
func (f *AnalyzerFactory) CreateTrustedDomains() *whitelist.Checker {
	domains := append([]string(nil), whitelist.DefaultTrustedDomains...)
	domains = append(domains, f.cfg.GetURL().TrustedDomains...)
	return whitelist.NewChecker(domains, f.logger)
}

// CreateURLAnalyzer creates the URL analyzer
func (f *AnalyzerFactory) CreateURLAnalyzer(trusted *whitelist.Checker) *urlintel.Analyzer {
	return urlintel.NewAnalyzer(urlintel.Options{
		BatchLimit: f.cfg.GetURL().BatchLimit,
	}, trusted)
}
