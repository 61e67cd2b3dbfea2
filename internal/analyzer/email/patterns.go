package email

import "regexp"

// Pattern tables are compiled once and only read afterwards.
// Order matters wherever the first match wins.

var urgencyPatterns = compileAll(
	`\burgent\b`,
	`\bimmediately\b`,
	`\bsuspended\b`,
	`\bverify\b.*\baccount\b`,
	`\bconfirm\b.*\bidentity\b`,
	`\baction\s+required\b`,
	`\bwithin\s+\d+\s+hours?\b`,
	`\baccount\s+will\s+be\s+(closed|suspended|terminated)\b`,
	`\bfinal\s+warning\b`,
	`\blast\s+chance\b`,
)

var suspiciousPhrases = compileAll(
	`click\s+(here|below|the\s+link)`,
	`update\s+your\s+(payment|billing|account)`,
	`your\s+account\s+has\s+been\s+(compromised|hacked)`,
	`unusual\s+(activity|login|sign-in)`,
	`verify\s+your\s+identity`,
	`confirm\s+your\s+password`,
	`win\s+\$?\d+`,
	`you\s+have\s+won`,
	`lottery\s+winner`,
	`inheritance\s+from`,
	`nigerian\s+prince`,
	`transfer\s+\$?\d+\s*(million|thousand)?`,
)

var brandKeywords = []string{
	"paypal", "amazon", "microsoft", "apple", "google",
	"netflix", "bank", "santander", "bradesco", "itau",
	"nubank", "caixa", "banco do brasil",
}

var suspiciousTLDs = []string{".xyz", ".top", ".click", ".link", ".pw", ".tk", ".ml", ".ga"}

var (
	ipURLPattern = regexp.MustCompile(`https?://\d+\.\d+\.\d+\.\d+`)
	encodedOctet = regexp.MustCompile(`%[0-9a-fA-F]{2}`)
)

const (
	maxEncodedOctets = 3
	longURLLength    = 100
)

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

func countMatches(text string, patterns []*regexp.Regexp) int {
	n := 0
	for _, p := range patterns {
		if p.MatchString(text) {
			n++
		}
	}
	return n
}
