package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
)

const (
	maxPageBytes       = 10 * 1024 * 1024
	maxExtractedLength = 100000
	minContentLength   = 100
)

var (
	errHTTPStatus      = errors.New("unexpected HTTP status")
	errNotHTML         = errors.New("not an HTML page")
	errContentTooShort = errors.New("content too short")
)

// Extractor fetches article pages and pulls out readable body text.
type Extractor struct {
	client    *http.Client
	userAgent string
	logger    *zerolog.Logger
}

// NewExtractor creates a content extractor.
func NewExtractor(userAgent string, logger *zerolog.Logger) *Extractor {
	return &Extractor{
		client:    &http.Client{Timeout: fetchTimeout},
		userAgent: userAgent,
		logger:    logger,
	}
}

// Extract fetches a page and returns its readable text, falling back to
// stripped raw text when readability finds nothing.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}

	body, err := e.fetchPage(ctx, rawURL)
	if err != nil {
		return "", err
	}

	text := ""

	article, err := readability.FromReader(strings.NewReader(string(body)), parsed)
	if err == nil {
		text = strings.TrimSpace(article.TextContent)
	}

	if text == "" {
		e.logger.Debug().Str("url", rawURL).Msg("Readability found no content, stripping raw HTML")

		text = StripHTML(string(body))
	}

	if len(text) < minContentLength {
		return "", fmt.Errorf("%w: %d chars", errContentTooShort, len(text))
	}

	return truncate(text, maxExtractedLength), nil
}

func (e *Extractor) fetchPage(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", errHTTPStatus, resp.StatusCode)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml") {
		return nil, fmt.Errorf("%w: %s", errNotHTML, contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return body, nil
}

// StripHTML removes markup and returns the visible text with whitespace
// collapsed. Script, style and noscript blocks are dropped entirely.
func StripHTML(fragment string) string {
	if fragment == "" {
		return ""
	}

	tokenizer := html.NewTokenizer(strings.NewReader(fragment))

	var (
		builder strings.Builder
		skip    int
	)

	for {
		tokenType := tokenizer.Next()

		switch tokenType {
		case html.ErrorToken:
			return collapseWhitespace(builder.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if isInvisibleTag(string(name)) {
				skip++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if isInvisibleTag(string(name)) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				builder.Write(tokenizer.Text())
				builder.WriteByte(' ')
			}
		}
	}
}

func isInvisibleTag(name string) bool {
	switch name {
	case "script", "style", "noscript":
		return true
	default:
		return false
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
