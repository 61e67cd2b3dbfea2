package email

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mikey/threat-analyzer/internal/core"
	"github.com/mikey/threat-analyzer/internal/utils"
)

// Score ceilings and threshold bands
const (
	ScoreCeiling      = 1.0
	urlScoreCeiling   = 1.0
	urlScoreWeight    = 0.5
	PhishingThreshold = 0.6
	FraudThreshold    = 0.4
	SpamThreshold     = 0.5

	// LegitReason is the only reason reported for legit mail
	LegitReason = "No suspicious patterns detected"
)

// Options tunes the derived score weights and reporting
type Options struct {
	PhishingWeight float64
	FraudWeight    float64
	SpamWeight     float64
	MaxReasons     int
	Version        string
}

// DefaultOptions returns the stock weights
func DefaultOptions() Options {
	return Options{
		PhishingWeight: 15.0,
		FraudWeight:    12.0,
		SpamWeight:     8.0,
		MaxReasons:     5,
		Version:        "1.0.0-heuristic",
	}
}

// signals is the read-only view of one email that extractors inspect
type signals struct {
	text       string
	urls       []string
	hasPDFText bool
	from       string
	replyTo    string
}

type extractor func(s *signals) core.Contribution

// extractors run in this order; reasons keep the same order
var extractors = []extractor{
	urgency,
	suspiciousPhrasing,
	brandImpersonation,
	urlRisk,
	pdfWithLinks,
	headerMismatch,
}

// Classifier is the heuristic email classifier. It is safe for concurrent use.
type Classifier struct {
	opts Options
}

// NewClassifier creates a classifier, filling unset options with defaults
func NewClassifier(opts Options) *Classifier {
	def := DefaultOptions()
	if opts.PhishingWeight <= 0 {
		opts.PhishingWeight = def.PhishingWeight
	}
	if opts.FraudWeight <= 0 {
		opts.FraudWeight = def.FraudWeight
	}
	if opts.SpamWeight <= 0 {
		opts.SpamWeight = def.SpamWeight
	}
	if opts.MaxReasons <= 0 || opts.MaxReasons > def.MaxReasons {
		opts.MaxReasons = def.MaxReasons
	}
	if opts.Version == "" {
		opts.Version = def.Version
	}
	return &Classifier{opts: opts}
}

// Classify scores an email and assigns a label
func (c *Classifier) Classify(in core.EmailInput) core.EmailResult {
	start := time.Now()

	pdfText := ""
	if in.PDFText != nil {
		pdfText = *in.PDFText
	}
	s := &signals{
		text:       utils.NormalizeText(in.Subject + " " + in.Body + " " + pdfText),
		urls:       in.URLs,
		hasPDFText: pdfText != "",
	}
	if in.Headers != nil {
		s.from = in.Headers.From
		s.replyTo = in.Headers.ReplyTo
	}

	acc := core.NewAccumulator()
	for _, extract := range extractors {
		acc.Add(extract(s))
	}

	// Reserved: no extractor feeds the spam score yet.
	spamScore := 0.0

	result := c.classify(core.Clamp(acc.Total(), ScoreCeiling), spamScore, acc.Reasons())
	result.ProcessingTimeMs = core.ElapsedMs(start)
	return result
}

// Label maps a clamped phishing score and spam score to a label.
// The bands are evaluated top-down and the first match wins.
func Label(phishingScore, spamScore float64) core.Label {
	switch {
	case phishingScore >= PhishingThreshold:
		return core.LabelPhishing
	case phishingScore >= FraudThreshold:
		return core.LabelFraud
	case spamScore >= SpamThreshold:
		return core.LabelSpam
	default:
		return core.LabelLegit
	}
}

func (c *Classifier) classify(phishingScore, spamScore float64, reasons []string) core.EmailResult {
	label := Label(phishingScore, spamScore)

	var confidence, derived float64
	switch label {
	case core.LabelPhishing:
		confidence = phishingScore
		derived = confidence * c.opts.PhishingWeight
	case core.LabelFraud:
		confidence = phishingScore
		derived = confidence * c.opts.FraudWeight
	case core.LabelSpam:
		confidence = spamScore
		derived = confidence * c.opts.SpamWeight
	default:
		// Sub-threshold evidence is not surfaced.
		confidence = 1.0 - phishingScore
		derived = 0
		reasons = []string{LegitReason}
	}

	if len(reasons) > c.opts.MaxReasons {
		reasons = reasons[:c.opts.MaxReasons]
	}

	return core.EmailResult{
		Label:      label,
		Confidence: core.Round(confidence, 3),
		Score:      core.Round(derived, 2),
		Reasons:    reasons,
		Version:    c.opts.Version,
	}
}

func urgency(s *signals) core.Contribution {
	n := countMatches(s.text, urgencyPatterns)
	if n == 0 {
		return core.None
	}
	return core.Flat(0.3, fmt.Sprintf("Urgency language detected (%d patterns)", n))
}

func suspiciousPhrasing(s *signals) core.Contribution {
	n := countMatches(s.text, suspiciousPhrases)
	if n == 0 {
		return core.None
	}
	return core.Flat(min(0.3, float64(n)*0.1), fmt.Sprintf("Suspicious phrases detected (%d patterns)", n))
}

func brandImpersonation(s *signals) core.Contribution {
	if s.from == "" {
		return core.None
	}
	from := strings.ToLower(s.from)
	for _, brand := range brandKeywords {
		if strings.Contains(s.text, brand) && !strings.Contains(from, brand) {
			return core.Flat(0.25, "Possible brand impersonation: "+brand)
		}
	}
	return core.None
}

// urlRisk scores every URL, clamps the sum and weights it into the email score
func urlRisk(s *signals) core.Contribution {
	var score float64
	var reasons []string

	for _, u := range s.urls {
		lowered := strings.ToLower(u)

		if ipURLPattern.MatchString(lowered) {
			score += 0.3
			reasons = append(reasons, "URL contains IP address")
		}

		for _, tld := range suspiciousTLDs {
			if strings.Contains(lowered, tld) {
				score += 0.2
				reasons = append(reasons, "Suspicious TLD: "+tld)
				break
			}
		}

		if strings.Contains(u, "%") && len(encodedOctet.FindAllString(u, -1)) > maxEncodedOctets {
			score += 0.2
			reasons = append(reasons, "Excessive URL encoding")
		}

		if utf8.RuneCountInString(u) > longURLLength {
			score += 0.1
			reasons = append(reasons, "Unusually long URL")
		}
	}

	return core.Contribution{
		Weight:  core.Clamp(score, urlScoreCeiling) * urlScoreWeight,
		Reasons: reasons,
	}
}

func pdfWithLinks(s *signals) core.Contribution {
	if s.hasPDFText && len(s.urls) > 0 {
		return core.Flat(0.2, "PDF contains external URLs")
	}
	return core.None
}

func headerMismatch(s *signals) core.Contribution {
	if s.from == "" || s.replyTo == "" {
		return core.None
	}
	fromDomain := domainOf(s.from)
	replyDomain := domainOf(s.replyTo)
	if fromDomain == "" || replyDomain == "" || strings.EqualFold(fromDomain, replyDomain) {
		return core.None
	}
	return core.Flat(0.3, fmt.Sprintf("From/Reply-To mismatch: %s vs %s", fromDomain, replyDomain))
}

// domainOf returns the part after the last '@', or "" when there is none
func domainOf(addr string) string {
	i := strings.LastIndex(addr, "@")
	if i < 0 {
		return ""
	}
	return strings.TrimRight(addr[i+1:], "> \t")
}
