package datasource

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"market-report/internal/api"
	"market-report/internal/interfaces"
	"market-report/internal/types"
)

// NewsAPIConfig configures the NewsAPI "everything" search
type NewsAPIConfig struct {
	BaseURL  string
	APIKey   string
	Query    string
	PageSize int
}

type NewsAPISource struct {
	client *api.Client
	cfg    NewsAPIConfig
}

var _ interfaces.Source = (*NewsAPISource)(nil)

func NewNewsAPISource(cfg NewsAPIConfig, opts ...api.ClientOption) *NewsAPISource {
	all := append([]api.ClientOption{
		api.WithBaseURL(cfg.BaseURL),
		api.WithHeader("X-Api-Key", cfg.APIKey),
		api.WithTimeout(20 * time.Second),
	}, opts...)
	return &NewsAPISource{client: api.NewClient(all...), cfg: cfg}
}

func (s *NewsAPISource) Name() string { return "newsapi" }

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		URL         string    `json:"url"`
		PublishedAt time.Time `json:"publishedAt"`
	} `json:"articles"`
}

func (s *NewsAPISource) Fetch(ctx context.Context, r types.DateRange) (*types.SourceData, error) {
	q := url.Values{}
	q.Set("q", s.cfg.Query)
	q.Set("from", r.Start.Format(types.DateLayout))
	q.Set("to", r.End.Format(types.DateLayout))
	q.Set("sortBy", "relevancy")
	q.Set("language", "en")
	q.Set("pageSize", strconv.Itoa(s.cfg.PageSize))

	resp, err := s.client.GET(ctx, "/everything?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var nr newsAPIResponse
	if err := resp.ParseJSON(&nr); err != nil {
		return nil, err
	}
	if nr.Status != "ok" {
		return nil, fmt.Errorf("newsapi %s: %s", nr.Code, nr.Message)
	}

	data := &types.SourceData{}
	for _, a := range nr.Articles {
		title := strings.TrimSpace(a.Title)
		// NewsAPI reports removed articles with this placeholder title
		if title == "" || title == "[Removed]" {
			continue
		}
		source := a.Source.Name
		if source == "" {
			source = "NewsAPI"
		}
		data.News = append(data.News, types.NewsItem{
			Headline:  title,
			Source:    source,
			URL:       a.URL,
			Summary:   truncate(strings.TrimSpace(a.Description), maxSummary),
			Published: a.PublishedAt,
		})
	}
	return data, nil
}
