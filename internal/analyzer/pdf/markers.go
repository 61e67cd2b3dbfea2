package pdf

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mikey/threat-analyzer/internal/utils"
)

var (
	namePattern = regexp.MustCompile(`/([A-Za-z0-9#._+-]+)`)
	uriPattern  = regexp.MustCompile(`/URI\s*\(([^)]*)\)`)
)

var (
	jsNames       = []string{"JavaScript", "JS"}
	actionNames   = []string{"OpenAction", "Launch", "AA"}
	embeddedNames = []string{"EmbeddedFile", "EmbeddedFiles", "Filespec"}
	encryptNames  = []string{"Encrypt"}
)

// phishingKeywords are matched against lowercased extracted text
var phishingKeywords = []string{
	"password", "credential", "login", "verify", "urgent",
}

// nameSet collects every PDF name token in raw, with #xx escapes decoded
// so that /J#61vaScript is seen as /JavaScript.
func nameSet(raw []byte) map[string]struct{} {
	names := make(map[string]struct{})
	for _, m := range namePattern.FindAllSubmatch(raw, -1) {
		name := string(m[1])
		if strings.Contains(name, "#") {
			name = decodeName(name)
		}
		names[name] = struct{}{}
	}
	return names
}

func decodeName(name string) string {
	var sb strings.Builder
	for i := 0; i < len(name); i++ {
		if name[i] == '#' && i+2 < len(name) {
			if b, err := strconv.ParseUint(name[i+1:i+3], 16, 8); err == nil {
				sb.WriteByte(byte(b))
				i += 2
				continue
			}
		}
		sb.WriteByte(name[i])
	}
	return sb.String()
}

func hasAny(names map[string]struct{}, wanted []string) bool {
	for _, w := range wanted {
		if _, ok := names[w]; ok {
			return true
		}
	}
	return false
}

// collectURLs returns distinct URLs in first-seen order: text first, then URI actions
func collectURLs(text string, raw []byte) []string {
	seen := make(map[string]struct{})
	var urls []string
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}

	for _, u := range utils.ExtractURLs(text) {
		add(u)
	}
	for _, m := range uriPattern.FindAllSubmatch(raw, -1) {
		add(string(m[1]))
	}
	return urls
}

// keywordHits counts distinct phishing keywords in text
func keywordHits(text string) int {
	lowered := strings.ToLower(text)
	n := 0
	for _, kw := range phishingKeywords {
		if strings.Contains(lowered, kw) {
			n++
		}
	}
	return n
}
