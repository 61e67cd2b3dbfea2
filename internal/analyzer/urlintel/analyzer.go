package urlintel

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/mikey/threat-analyzer/internal/core"
	"github.com/mikey/threat-analyzer/internal/whitelist"
)

// Score ceiling, tier boundaries and signal weights
const (
	ScoreCeiling      = 15.0
	CriticalThreshold = 10.0
	HighThreshold     = 6.0
	MediumThreshold   = 3.0

	parseErrorPenalty = 3.0
	ipWeight          = 5.0
	suffixWeight      = 3.0
	shortenerWeight   = 2.0
	encodingWeight    = 2.0
	longWeight        = 1.0
	veryLongWeight    = 2.0
	subdomainWeight   = 2.0
	pathKeywordWeight = 1.5
	entropyWeight     = 2.0
	lookalikeWeight   = 5.0
	idnWeight         = 4.0
	doubleExtWeight   = 4.0

	maxEncodedOctets  = 3
	longURLLength     = 100
	veryLongLength    = 200
	maxSubdomainDepth = 2
	entropyThreshold  = 4.0
)

// Options tunes batch handling
type Options struct {
	BatchLimit int
}

// DefaultOptions returns the stock batch limit
func DefaultOptions() Options {
	return Options{BatchLimit: 20}
}

// Analyzer scores URLs. It is safe for concurrent use.
type Analyzer struct {
	opts    Options
	trusted *whitelist.Checker
}

// NewAnalyzer creates a URL analyzer. trusted may be nil.
func NewAnalyzer(opts Options, trusted *whitelist.Checker) *Analyzer {
	if opts.BatchLimit <= 0 || opts.BatchLimit > DefaultOptions().BatchLimit {
		opts.BatchLimit = DefaultOptions().BatchLimit
	}
	return &Analyzer{opts: opts, trusted: trusted}
}

// Tier maps a clamped score to its risk tier
func Tier(score float64) core.RiskTier {
	switch {
	case score >= CriticalThreshold:
		return core.RiskCritical
	case score >= HighThreshold:
		return core.RiskHigh
	case score >= MediumThreshold:
		return core.RiskMedium
	default:
		return core.RiskLow
	}
}

// Analyze scores a single URL. Unparseable input yields a penalised but complete result.
func (a *Analyzer) Analyze(raw string) core.URLResult {
	start := time.Now()
	result := core.URLResult{
		URL:     raw,
		Reasons: []string{},
	}
	acc := core.NewAccumulator()

	p, err := parse(raw)
	if err != nil {
		acc.Add(core.Flat(parseErrorPenalty, "Analysis error: "+err.Error()))
	} else {
		a.score(raw, p, &result, acc)
	}

	result.Reasons = append(result.Reasons, acc.Reasons()...)
	result.Score = core.Clamp(acc.Total(), ScoreCeiling)
	result.Risk = Tier(result.Score)
	result.ProcessingTimeMs = core.ElapsedMs(start)
	return result
}

func (a *Analyzer) score(raw string, p parts, result *core.URLResult, acc *core.Accumulator) {
	result.Domain = p.domain
	result.TLD = p.suffix
	result.Subdomain = p.subdomain
	result.KnownSafe = !p.isIP && a.trusted.IsTrustedHost(p.domain)

	if p.isIP {
		result.HasIP = true
		acc.Add(core.Flat(ipWeight, "Uses IP address instead of domain"))
	}

	if _, ok := suspiciousSuffixes[p.suffix]; ok {
		acc.Add(core.Flat(suffixWeight, "Suspicious TLD: ."+p.suffix))
	}

	if _, ok := shorteners[p.domain]; ok {
		result.IsShortened = true
		acc.Add(core.Flat(shortenerWeight, "URL shortener detected"))
	}

	if octets := len(encodedOctet.FindAllStringIndex(raw, -1)); octets > 0 {
		result.IsEncoded = true
		if octets > maxEncodedOctets {
			acc.Add(core.Flat(encodingWeight, fmt.Sprintf("Excessive URL encoding (%d encoded chars)", octets)))
		}
	}

	length := utf8.RuneCountInString(raw)
	if length > longURLLength {
		acc.Add(core.Flat(longWeight, "Unusually long URL"))
	}
	if length > veryLongLength {
		acc.Add(core.Flat(veryLongWeight, "Extremely long URL"))
	}

	if depth := p.subdomainDepth(); depth > maxSubdomainDepth {
		acc.Add(core.Flat(subdomainWeight, fmt.Sprintf("Deep subdomain nesting (%d levels)", depth)))
	}

	for _, kw := range pathKeywords {
		if strings.Contains(p.path, kw) {
			acc.Add(core.Flat(pathKeywordWeight, "Suspicious path keyword: "+kw))
			break
		}
	}

	e := Entropy(p.label)
	result.Entropy = core.Round(e, 4)
	if e > entropyThreshold {
		acc.Add(core.Flat(entropyWeight, fmt.Sprintf("High domain entropy: %.2f", e)))
	}

	lookalikeHit := false
	label := strings.ToLower(p.label)
	for _, l := range lookalikes {
		if l.pattern.MatchString(label) {
			acc.Add(core.Flat(lookalikeWeight, fmt.Sprintf("Possible %s lookalike", l.brand)))
			lookalikeHit = true
			break
		}
	}

	if !lookalikeHit && !result.KnownSafe && strings.Contains(p.host, "xn--") {
		acc.Add(core.Flat(idnWeight, "Suspicious IDN/Homograph (punycode)"))
	}

	if doubleExtension.MatchString(p.path) {
		acc.Add(core.Flat(doubleExtWeight, "Double file extension detected"))
	}
}

// AnalyzeBatch scores up to the configured limit of URLs concurrently.
// Output order matches input order; URLs past the limit are dropped.
func (a *Analyzer) AnalyzeBatch(urls []string) core.BatchResult {
	if len(urls) > a.opts.BatchLimit {
		urls = urls[:a.opts.BatchLimit]
	}

	results := make([]core.URLResult, len(urls))
	var g errgroup.Group
	for i, u := range urls {
		g.Go(func() error {
			results[i] = a.Analyze(u)
			return nil
		})
	}
	_ = g.Wait()

	return core.BatchResult{
		Results: results,
		Total:   len(results),
	}
}
