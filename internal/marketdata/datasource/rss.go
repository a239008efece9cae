package datasource

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"market-report/internal/interfaces"
	"market-report/internal/logger"
	"market-report/internal/store"
	"market-report/internal/types"
)

const (
	maxSummary = 300
	userAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// RSSSource scrapes headlines from RSS 2.0 and Atom feeds
type RSSSource struct {
	feeds   []store.Feed
	perFeed int
	timeout time.Duration
}

var _ interfaces.Source = (*RSSSource)(nil)

func NewRSSSource(feeds []store.Feed, perFeed int, timeout time.Duration) *RSSSource {
	if perFeed <= 0 {
		perFeed = 10
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RSSSource{feeds: feeds, perFeed: perFeed, timeout: timeout}
}

func (s *RSSSource) Name() string { return "rss" }

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
}

func parsePubDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Fetch visits each feed in turn. Items dated outside the range are dropped;
// undated items are kept.
func (s *RSSSource) Fetch(ctx context.Context, r types.DateRange) (*types.SourceData, error) {
	data := &types.SourceData{}
	var errs []error
	failed := 0

	for _, feed := range s.feeds {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		items, err := s.scrapeFeed(ctx, feed, r)
		if err != nil {
			failed++
			errs = append(errs, fmt.Errorf("%s: %w", feed.Name, err))
			logger.Debug(ctx, "RSS feed failed", "feed", feed.Name, "error", err)
			continue
		}
		data.News = append(data.News, items...)
	}

	if len(s.feeds) > 0 && failed == len(s.feeds) {
		return nil, errors.Join(errs...)
	}
	return data, nil
}

func (s *RSSSource) scrapeFeed(ctx context.Context, feed store.Feed, r types.DateRange) ([]types.NewsItem, error) {
	var items []types.NewsItem
	var scrapeErr error

	c := colly.NewCollector(
		colly.MaxDepth(1),
		colly.Async(false),
		colly.UserAgent(userAgent),
	)
	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	c.SetRequestTimeout(timeout)

	c.OnRequest(func(req *colly.Request) {
		if ctx.Err() != nil {
			req.Abort()
		}
	})

	collect := func(e *colly.XMLElement, link, published string) {
		if len(items) >= s.perFeed {
			return
		}
		title := strings.TrimSpace(e.ChildText("title"))
		if title == "" {
			return
		}
		item := types.NewsItem{
			Headline: title,
			Source:   feed.Name,
			URL:      strings.TrimSpace(link),
			Summary:  truncate(stripHTML(firstNonEmpty(e.ChildText("description"), e.ChildText("summary"))), maxSummary),
		}
		if t, ok := parsePubDate(published); ok {
			if !r.Contains(t.UTC()) {
				return
			}
			item.Published = t
		}
		items = append(items, item)
	}

	// RSS 2.0
	c.OnXML("//item", func(e *colly.XMLElement) {
		collect(e, e.ChildText("link"), e.ChildText("pubDate"))
	})
	// Atom
	c.OnXML("//entry", func(e *colly.XMLElement) {
		collect(e, e.ChildAttr("link", "href"), firstNonEmpty(e.ChildText("published"), e.ChildText("updated")))
	})

	c.OnError(func(resp *colly.Response, err error) {
		scrapeErr = fmt.Errorf("status %d: %w", resp.StatusCode, err)
	})

	if err := c.Visit(feed.URL); err != nil {
		return nil, err
	}
	c.Wait()

	if scrapeErr != nil {
		return nil, scrapeErr
	}
	return items, nil
}

// stripHTML reduces an HTML fragment (feed descriptions often carry markup) to text.
func stripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
