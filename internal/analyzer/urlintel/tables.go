package urlintel

import "regexp"

// suspiciousSuffixes are public suffixes favoured by throwaway registrations
var suspiciousSuffixes = map[string]struct{}{
	"xyz": {}, "top": {}, "click": {}, "link": {}, "pw": {}, "tk": {},
	"ml": {}, "ga": {}, "cf": {}, "gq": {}, "work": {}, "party": {},
	"review": {}, "country": {}, "stream": {}, "download": {}, "racing": {},
	"win": {}, "bid": {}, "date": {}, "faith": {}, "loan": {}, "men": {},
	"cricket": {}, "science": {},
}

var shorteners = map[string]struct{}{
	"bit.ly": {}, "goo.gl": {}, "t.co": {}, "tinyurl.com": {}, "ow.ly": {},
	"is.gd": {}, "buff.ly": {}, "adf.ly": {}, "j.mp": {}, "tr.im": {},
	"cli.gs": {}, "short.to": {}, "budurl.com": {}, "ping.fm": {},
	"post.ly": {}, "just.as": {}, "bkite.com": {}, "snipr.com": {},
	"fic.kr": {}, "loopt.us": {}, "su.pr": {}, "twurl.nl": {},
	"snipurl.com": {}, "short.ie": {}, "kl.am": {}, "wp.me": {}, "u.nu": {},
	"rubyurl.com": {}, "om.ly": {}, "to.ly": {}, "bit.do": {}, "lnkd.in": {},
	"db.tt": {}, "qr.ae": {}, "cur.lv": {}, "ity.im": {}, "q.gs": {},
	"po.st": {}, "bc.vc": {}, "twitthis.com": {}, "u.to": {}, "j.gs": {},
	"v.gd": {}, "tra.kz": {}, "rb.gy": {},
}

// pathKeywords are checked in order; only the first hit counts
var pathKeywords = []string{
	"login", "signin", "verify", "secure", "account", "update",
	"confirm", "banking", "password", "credential", "auth",
}

type lookalike struct {
	pattern *regexp.Regexp
	brand   string
}

// lookalikes are checked in order; only the first hit counts
var lookalikes = []lookalike{
	{regexp.MustCompile(`paypa[l1]`), "PayPal"},
	{regexp.MustCompile(`amaz[0o]n`), "Amazon"},
	{regexp.MustCompile(`g[0o]{2}gle`), "Google"},
	{regexp.MustCompile(`micr[0o]s[0o]ft`), "Microsoft"},
	{regexp.MustCompile(`app[l1]e`), "Apple"},
	{regexp.MustCompile(`faceb[0o]{2}k`), "Facebook"},
}

var (
	encodedOctet    = regexp.MustCompile(`%[0-9A-Fa-f]{2}`)
	doubleExtension = regexp.MustCompile(`\.(pdf|doc|xls|exe|zip)\.[a-z]{2,4}$`)
)
