package linkcheck

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Result is one deliverable URL verification.
type Result struct {
	URL       string    `json:"url"`
	Reachable bool      `json:"reachable"`
	Title     string    `json:"title,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker verifies that submitted deliverable links still resolve and pulls
// the page title for the review context shown to managers.
type Checker struct {
	httpClient *http.Client
	log        *zap.Logger
	maxRetries int
}

func NewChecker(timeoutMS, maxRetries int, log *zap.Logger) *Checker {
	return &Checker{
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutMS) * time.Millisecond,
		},
		log:        log,
		maxRetries: maxRetries,
	}
}

// Check fetches one deliverable URL with bounded retries. A non-2xx status
// or transport failure after all retries marks the link unreachable; that is
// a signal for review, never an error for the caller.
func (c *Checker) Check(ctx context.Context, rawURL string) Result {
	result := Result{URL: rawURL, CheckedAt: time.Now()}

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return result
	}

	var doc *goquery.Document
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return result
		}
		req.Header.Set("User-Agent", "talent-marketplace-linkcheck/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(attempt+1) * 500 * time.Millisecond)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d for %s", resp.StatusCode, rawURL)
			time.Sleep(time.Duration(attempt+1) * 500 * time.Millisecond)
			continue
		}

		result.Reachable = true
		contentType := resp.Header.Get("Content-Type")
		if strings.Contains(contentType, "text/html") {
			doc, err = goquery.NewDocumentFromReader(resp.Body)
			resp.Body.Close()
			if err == nil && doc != nil {
				result.Title = strings.TrimSpace(doc.Find("title").First().Text())
			}
		} else {
			resp.Body.Close()
		}
		lastErr = nil
		break
	}

	if lastErr != nil {
		c.log.Debug("deliverable link unreachable", zap.String("url", rawURL), zap.Error(lastErr))
	}
	return result
}

// CheckAll verifies every deliverable of a submission.
func (c *Checker) CheckAll(ctx context.Context, urls []string) []Result {
	results := make([]Result, 0, len(urls))
	for _, u := range urls {
		results = append(results, c.Check(ctx, u))
	}
	return results
}
