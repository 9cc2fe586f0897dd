package linkpreview

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog"
)

// Preview is the readable summary of a web page attached to a note.
type Preview struct {
	URL     string
	Title   string
	Excerpt string
	Site    string
}

// Previewer fetches pages and extracts their readable title and excerpt.
type Previewer struct {
	timeout time.Duration
	log     zerolog.Logger
}

// NewPreviewer constructs a new Previewer.
func NewPreviewer(timeout time.Duration, logger zerolog.Logger) *Previewer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Previewer{
		timeout: timeout,
		log:     logger.With().Str("component", "linkpreview").Logger(),
	}
}

var urlRe = regexp.MustCompile(`https?://[^\s<>"')\]]+`)

// FirstURL returns the first http(s) URL in text, or "".
func FirstURL(text string) string {
	u := urlRe.FindString(text)
	return strings.TrimRight(u, ".,;:!?")
}

const maxExcerpt = 280

// Preview downloads rawURL and returns its readable metadata.
func (p *Previewer) Preview(ctx context.Context, rawURL string) (Preview, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Preview{}, fmt.Errorf("unsupported url %q", rawURL)
	}
	if err := ctx.Err(); err != nil {
		return Preview{}, err
	}

	article, err := readability.FromURL(u.String(), p.timeout)
	if err != nil {
		return Preview{}, fmt.Errorf("read %s: %w", u.Host, err)
	}

	out := Preview{
		URL:     u.String(),
		Title:   strings.TrimSpace(article.Title),
		Excerpt: truncate(strings.TrimSpace(article.Excerpt), maxExcerpt),
		Site:    strings.TrimSpace(article.SiteName),
	}
	if out.Title == "" {
		out.Title = u.Host
	}
	p.log.Debug().Str("host", u.Host).Str("title", out.Title).Msg("link preview fetched")
	return out, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
