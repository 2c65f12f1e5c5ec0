package domain

import (
	"errors"
	"strings"
	"time"
)

// TimeLayout is the timestamp format written at the start of every log line.
const TimeLayout = "2006-01-02 15:04:05"

// Sentinels substituted for absent inputs.
const (
	UnknownURL       = "Unknown"
	DirectReferrer   = "Direct"
	UnknownUserAgent = "Unknown"
)

var (
	ErrMalformedLine = errors.New("malformed visit line")
	// ErrAmbiguousLine means a free-text field contains a field separator,
	// so the URL, referrer and user agent boundaries cannot be trusted.
	ErrAmbiguousLine = errors.New("ambiguous visit line")
)

// Visit is a single anonymous page view as recorded by the beacon.
// It is never mutated after construction.
type Visit struct {
	Timestamp    time.Time `json:"timestamp"`
	AnonymizedIP string    `json:"anonymized_ip"`
	URL          string    `json:"url"`
	Referrer     string    `json:"referrer"`
	UserAgent    string    `json:"user_agent"`
}

var lineEscaper = strings.NewReplacer("\r", `\r`, "\n", `\n`)

// Line renders the visit in the flat log format, newline included.
func (v Visit) Line() string {
	var b strings.Builder
	b.WriteString(v.Timestamp.Format(TimeLayout))
	b.WriteString(" | IP: ")
	b.WriteString(lineEscaper.Replace(v.AnonymizedIP))
	b.WriteString(" | URL: ")
	b.WriteString(lineEscaper.Replace(v.URL))
	b.WriteString(" | Referrer: ")
	b.WriteString(lineEscaper.Replace(v.Referrer))
	b.WriteString(" | UA: ")
	b.WriteString(lineEscaper.Replace(v.UserAgent))
	b.WriteByte('\n')
	return b.String()
}

// ParseLine is the inverse of Line. The timestamp is interpreted in loc
// (time.Local when nil). Field values are not unescaped.
//
// Line does not escape " | ", and the URL, referrer and user agent are
// client-controlled. When one of them contains " | Referrer: " or " | UA: "
// the split is a guess: the visit is still returned, together with
// ErrAmbiguousLine.
func ParseLine(line string, loc *time.Location) (Visit, error) {
	if loc == nil {
		loc = time.Local
	}
	line = strings.TrimRight(line, "\r\n")

	ts, rest, ok := strings.Cut(line, " | IP: ")
	if !ok {
		return Visit{}, ErrMalformedLine
	}
	ip, rest, ok := strings.Cut(rest, " | URL: ")
	if !ok {
		return Visit{}, ErrMalformedLine
	}
	// URL and referrer are free text, so the user agent is split off from
	// the right and the referrer from what remains.
	idx := strings.LastIndex(rest, " | UA: ")
	if idx < 0 {
		return Visit{}, ErrMalformedLine
	}
	ua := rest[idx+len(" | UA: "):]
	rest = rest[:idx]
	idx = strings.LastIndex(rest, " | Referrer: ")
	if idx < 0 {
		return Visit{}, ErrMalformedLine
	}
	url, ref := rest[:idx], rest[idx+len(" | Referrer: "):]

	t, err := time.ParseInLocation(TimeLayout, ts, loc)
	if err != nil {
		return Visit{}, ErrMalformedLine
	}

	v := Visit{
		Timestamp:    t,
		AnonymizedIP: ip,
		URL:          url,
		Referrer:     ref,
		UserAgent:    ua,
	}
	if strings.Contains(url, " | Referrer: ") || strings.Contains(url+ref, " | UA: ") {
		return v, ErrAmbiguousLine
	}
	return v, nil
}

// VisitStats is an aggregate over a set of visits.
type VisitStats struct {
	TotalVisits  int64        `json:"total_visits"`
	TopURLs      []CountEntry `json:"top_urls"`
	TopReferrers []CountEntry `json:"top_referrers"`
	DailyVisits  []DailyVisit `json:"daily_visits"` // timeline
}

type CountEntry struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

type DailyVisit struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int64  `json:"count"`
}
