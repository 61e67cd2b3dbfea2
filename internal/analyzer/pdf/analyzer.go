package pdf

import (
	"fmt"
	"time"

	"github.com/mikey/threat-analyzer/internal/core"
	"github.com/mikey/threat-analyzer/internal/utils"
)

// Risk weights
const (
	RiskCeiling       = 20.0
	parseErrorPenalty = 5.0
	jsWeight          = 8.0
	actionWeight      = 3.0
	embeddedWeight    = 5.0
	encryptWeight     = 3.0
	perURLWeight      = 0.5
	maxURLWeight      = 5.0
	keywordLinkWeight = 3.0
	minKeywordHits    = 1
)

// Options bounds the evidence exported with a result
type Options struct {
	MaxTextChars int
	MaxURLs      int
}

// DefaultOptions returns the stock bounds
func DefaultOptions() Options {
	return Options{
		MaxTextChars: 10000,
		MaxURLs:      50,
	}
}

// Analyzer scores PDF documents by structure. It is safe for concurrent use.
type Analyzer struct {
	opts Options
}

// NewAnalyzer creates an analyzer. Unset or out-of-range options fall back
// to the defaults, which are also the upper bounds.
func NewAnalyzer(opts Options) *Analyzer {
	def := DefaultOptions()
	if opts.MaxTextChars <= 0 || opts.MaxTextChars > def.MaxTextChars {
		opts.MaxTextChars = def.MaxTextChars
	}
	if opts.MaxURLs <= 0 || opts.MaxURLs > def.MaxURLs {
		opts.MaxURLs = def.MaxURLs
	}
	return &Analyzer{opts: opts}
}

// Analyze inspects raw PDF bytes. Extraction failures are folded into the
// score; the result is always complete.
func (a *Analyzer) Analyze(raw []byte) core.PdfResult {
	start := time.Now()
	result := core.PdfResult{
		URLs:    []string{},
		Reasons: []string{},
	}
	acc := core.NewAccumulator()

	doc, err := extract(raw)
	if err != nil {
		acc.Add(core.Flat(parseErrorPenalty, "PDF parse error: "+err.Error()))
	}
	result.PageCount = doc.pages

	names := nameSet(raw)

	if hasAny(names, encryptNames) {
		result.IsEncrypted = true
		acc.Add(core.Flat(encryptWeight, "PDF is encrypted"))
	}
	if hasAny(names, jsNames) {
		result.HasJS = true
		acc.Add(core.Flat(jsWeight, "Contains JavaScript"))
	}
	if hasAny(names, actionNames) {
		result.HasActions = true
		acc.Add(core.Flat(actionWeight, "Contains automatic actions"))
	}
	if hasAny(names, embeddedNames) {
		result.HasEmbeddedFiles = true
		acc.Add(core.Flat(embeddedWeight, "Contains embedded files"))
	}

	urls := collectURLs(doc.text, raw)
	if len(urls) > 0 {
		result.HasLinks = true
		acc.Add(core.Flat(
			min(maxURLWeight, float64(len(urls))*perURLWeight),
			fmt.Sprintf("Contains %d external URLs", len(urls)),
		))
	}

	result.Text = utils.TruncateRunes(doc.text, a.opts.MaxTextChars)
	if result.HasLinks && keywordHits(result.Text) >= minKeywordHits {
		acc.Add(core.Flat(keywordLinkWeight, "Phishing keywords with external links"))
	}

	if len(urls) > a.opts.MaxURLs {
		urls = urls[:a.opts.MaxURLs]
	}
	result.URLs = append(result.URLs, urls...)
	result.Reasons = append(result.Reasons, acc.Reasons()...)
	result.RiskScore = core.Clamp(acc.Total(), RiskCeiling)
	result.ProcessingTimeMs = core.ElapsedMs(start)
	return result
}
