package timeutil

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Clock returns the current instant. It is only consulted when a parse asks
// for future adjustment.
type Clock func() time.Time

// ExpressionParser finds a clock time such as "3pm", "at 3:30" or "14.05" in
// free text and places it on a base calendar day.
//
// The zero value is not usable; construct it with NewExpressionParser. An
// ExpressionParser holds no mutable state and is safe for concurrent use.
type ExpressionParser struct {
	now    Clock
	strict bool
}

// Option configures an ExpressionParser.
type Option func(*ExpressionParser)

// WithClock overrides the current-time source used for future adjustment.
func WithClock(c Clock) Option {
	return func(p *ExpressionParser) {
		if c != nil {
			p.now = c
		}
	}
}

// WithStrictRanges rejects captures that are not a valid wall-clock time
// (hour above 23, minute above 59, or a 12-hour value outside 1-12 when a
// meridiem is present). Without it such captures are accepted and overflow
// through time.Date normalization.
func WithStrictRanges() Option {
	return func(p *ExpressionParser) {
		p.strict = true
	}
}

// NewExpressionParser constructs an ExpressionParser. By default it reads
// time.Now and accepts out-of-range captures.
func NewExpressionParser(opts ...Option) *ExpressionParser {
	p := &ExpressionParser{now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Groups: 1 = hour, 2 = minute, 3 = meridiem.
var clockRe = regexp.MustCompile(`(?i)\b(?:at\s+)?(\d{1,2})(?:[:.]?(\d{2}))?\s*(am|pm)?\b`)

type meridiem int

const (
	meridiemNone meridiem = iota
	meridiemAM
	meridiemPM
)

// candidate is one raw match before normalization.
type candidate struct {
	hour     int
	minute   int
	meridiem meridiem
}

// Parse returns the first clock time found in description, applied to the
// calendar day of base in base's location. The boolean is false when the text
// holds no time expression.
//
// When adjustToFuture is set and the result is not strictly after the clock's
// current instant, the result moves forward by one calendar day.
func (p *ExpressionParser) Parse(description string, base time.Time, adjustToFuture bool) (time.Time, bool) {
	if description == "" {
		return time.Time{}, false
	}

	m := clockRe.FindStringSubmatch(description)
	if m == nil {
		return time.Time{}, false
	}

	c := newCandidate(m)
	hour, ok := p.normalize(c)
	if !ok {
		return time.Time{}, false
	}

	y, mo, d := base.Date()
	res := time.Date(y, mo, d, hour, c.minute, 0, 0, base.Location())

	if adjustToFuture && !res.After(p.now()) {
		res = res.AddDate(0, 0, 1)
	}
	return res, true
}

// ParseNow is Parse with the clock's current instant as the base date.
func (p *ExpressionParser) ParseNow(description string, adjustToFuture bool) (time.Time, bool) {
	return p.Parse(description, p.now(), adjustToFuture)
}

// newCandidate reads a submatch of clockRe. The groups hold one or two
// digits only, so the conversions cannot fail.
func newCandidate(m []string) candidate {
	var c candidate
	c.hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		c.minute, _ = strconv.Atoi(m[2])
	}

	switch strings.ToLower(m[3]) {
	case "am":
		c.meridiem = meridiemAM
	case "pm":
		c.meridiem = meridiemPM
	}
	return c
}

// normalize converts the captured hour to the 24-hour convention.
func (p *ExpressionParser) normalize(c candidate) (int, bool) {
	if p.strict {
		if c.minute > 59 {
			return 0, false
		}
		if c.meridiem != meridiemNone && (c.hour < 1 || c.hour > 12) {
			return 0, false
		}
		if c.hour > 23 {
			return 0, false
		}
	}

	switch c.meridiem {
	case meridiemPM:
		if c.hour < 12 {
			return c.hour + 12, true
		}
	case meridiemAM:
		if c.hour == 12 {
			return 0, true
		}
	}
	return c.hour, true
}

// Candidates returns every time-like substring of text in order of
// appearance. Callers scanning a long note pass each one to Parse.
func Candidates(text string) []string {
	if text == "" {
		return nil
	}
	matches := clockRe.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m))
	}
	return out
}

// FormatClock renders t as "3:04pm". Parsing the rendering yields the same
// hour and minute.
func FormatClock(t time.Time) string {
	return t.Format("3:04pm")
}
