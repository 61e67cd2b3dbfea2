package factory

import (
	"go.uber.org/zap"

	"github.com/mikey/threat-analyzer/internal/config"
	"github.com/mikey/threat-analyzer/internal/core"
	"github.com/mikey/threat-analyzer/internal/utils"
)

// TextProcessorFactory creates the sanitizer applied to email text before scoring
type TextProcessorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTextProcessorFactory creates a new TextProcessorFactory
func NewTextProcessorFactory(cfg *config.Config, logger *zap.Logger) *TextProcessorFactory {
	return &TextProcessorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTextProcessor creates a new TextProcessor
func (f *TextProcessorFactory) CreateTextProcessor() core.TextSanitizer {
	return utils.NewTextProcessor(f.logger)
}

// MaxTextBytes returns the per-field byte bound for email text
func (f *TextProcessorFactory) MaxTextBytes() int {
	return f.cfg.GetEmail().MaxTextBytes
}
