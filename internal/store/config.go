package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Symbol is a ticker plus the display name used in prompts and the report.
// Key is the symbol the series is merged under when a source uses its own ticker
// format (EODHD "GSPC.INDX" for "^GSPC"); empty means Symbol.
type Symbol struct {
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name"`
	Key    string `yaml:"key"`
}

// MergeKey returns the symbol used to merge this series with other sources.
func (s Symbol) MergeKey() string {
	if s.Key != "" {
		return s.Key
	}
	return s.Symbol
}

func sym(symbol, name string) Symbol {
	return Symbol{Symbol: symbol, Name: name}
}

// Provider is one configured LLM provider. Lower priority is tried first.
type Provider struct {
	Name     string `yaml:"name"`
	Model    string `yaml:"model"`
	Priority int    `yaml:"priority"`
	Endpoint string `yaml:"endpoint"`
}

// Feed is an RSS feed.
type Feed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

func feed(name, url string) Feed {
	return Feed{Name: name, URL: url}
}

// KiteInstrument maps a Kite instrument token to a display name.
type KiteInstrument struct {
	Name  string `yaml:"name"`
	Token int    `yaml:"token"`
}

type Config struct {
	Report struct {
		Title       string `yaml:"title"`
		DefaultDays int    `yaml:"default_days"`
	} `yaml:"report"`
	LLM struct {
		Providers   []Provider    `yaml:"providers"`
		Timeout     time.Duration `yaml:"timeout"`
		MaxRetries  int           `yaml:"max_retries"`
		Backoff     time.Duration `yaml:"backoff"`
		MaxBackoff  time.Duration `yaml:"max_backoff"`
		MaxTokens   int           `yaml:"max_tokens"`
		Temperature float32       `yaml:"temperature"`
		System      string        `yaml:"system"`
	} `yaml:"llm"`
	Data struct {
		// Sources lists enabled sources in merge order.
		Sources        []string      `yaml:"sources"`
		Concurrency    int           `yaml:"concurrency"`
		SourceTimeout  time.Duration `yaml:"source_timeout"`
		MaxRangeDays   int           `yaml:"max_range_days"`
		IndicatorMerge string        `yaml:"indicator_merge"`
		Yahoo          struct {
			BaseURL    string   `yaml:"base_url"`
			RateLimit  int      `yaml:"rate_limit"`
			Indices    []Symbol `yaml:"indices"`
			Sectors    []Symbol `yaml:"sectors"`
			Indicators []Symbol `yaml:"indicators"`
			Watchlist  []Symbol `yaml:"watchlist"`
		} `yaml:"yahoo"`
		EODHD struct {
			BaseURL   string   `yaml:"base_url"`
			RateLimit int      `yaml:"rate_limit"`
			Symbols   []Symbol `yaml:"symbols"`
		} `yaml:"eodhd"`
		NewsAPI struct {
			BaseURL  string `yaml:"base_url"`
			Query    string `yaml:"query"`
			PageSize int    `yaml:"page_size"`
		} `yaml:"newsapi"`
		RSS struct {
			Feeds   []Feed `yaml:"feeds"`
			PerFeed int    `yaml:"per_feed"`
		} `yaml:"rss"`
		Kite struct {
			Instruments []KiteInstrument `yaml:"instruments"`
		} `yaml:"kite"`
	} `yaml:"data"`
	Output struct {
		Dir string `yaml:"dir"`
	} `yaml:"output"`
}

const (
	IndicatorMergeLast  = "last"
	IndicatorMergeFirst = "first"
)

var knownProviders = map[string]bool{"openai": true, "claude": true, "gemini": true, "noop": true}

var knownSources = map[string]bool{"yahoo": true, "eodhd": true, "newsapi": true, "rss": true, "kite": true}

// Default returns the built-in configuration used when no config file exists.
func Default() *Config {
	var c Config
	c.Report.Title = "Market Analysis Report"
	// Zero is a valid setting for these two, so they are not part of applyDefaults.
	c.LLM.MaxRetries = 2
	c.LLM.Temperature = 0.7
	c.LLM.Providers = []Provider{
		{Name: "openai", Model: "gpt-4-turbo-preview", Priority: 1},
		{Name: "claude", Model: "claude-3-sonnet-20240229", Priority: 2},
		{Name: "gemini", Model: "gemini-pro", Priority: 3},
	}
	c.Data.Sources = []string{"yahoo", "eodhd", "kite", "newsapi", "rss"}
	c.Data.Yahoo.Indices = []Symbol{
		sym("^GSPC", "S&P 500"),
		sym("^IXIC", "NASDAQ"),
		sym("^DJI", "Dow Jones"),
		sym("^RUT", "Russell 2000"),
		sym("^VIX", "VIX"),
		sym("^FTSE", "FTSE 100"),
		sym("^N225", "Nikkei 225"),
		sym("^HSI", "Hang Seng"),
	}
	c.Data.Yahoo.Sectors = []Symbol{
		sym("XLK", "Technology"),
		sym("XLV", "Healthcare"),
		sym("XLF", "Financials"),
		sym("XLY", "Consumer Discretionary"),
		sym("XLP", "Consumer Staples"),
		sym("XLE", "Energy"),
		sym("XLU", "Utilities"),
		sym("XLI", "Industrials"),
		sym("XLB", "Materials"),
		sym("XLRE", "Real Estate"),
		sym("XLC", "Communication Services"),
	}
	c.Data.Yahoo.Indicators = []Symbol{
		sym("^TNX", "10-Year Treasury"),
		sym("^IRX", "13-Week Treasury"),
		sym("^TYX", "30-Year Treasury"),
		sym("DX-Y.NYB", "Dollar Index"),
		sym("GC=F", "Gold"),
		sym("CL=F", "Crude Oil"),
	}
	c.Data.Yahoo.Watchlist = []Symbol{
		sym("AAPL", "Apple"),
		sym("MSFT", "Microsoft"),
		sym("NVDA", "NVIDIA"),
		sym("AMZN", "Amazon"),
		sym("GOOGL", "Alphabet"),
		sym("META", "Meta Platforms"),
		sym("TSLA", "Tesla"),
	}
	c.Data.EODHD.Symbols = []Symbol{
		{Symbol: "GSPC.INDX", Name: "S&P 500", Key: "^GSPC"},
		{Symbol: "IXIC.INDX", Name: "NASDAQ", Key: "^IXIC"},
		{Symbol: "DJI.INDX", Name: "Dow Jones", Key: "^DJI"},
	}
	c.Data.NewsAPI.Query = "stock market OR economy OR finance OR trading OR investment"
	c.Data.RSS.Feeds = []Feed{
		feed("Reuters", "https://feeds.reuters.com/reuters/businessNews"),
		feed("Bloomberg", "https://feeds.bloomberg.com/markets/news.rss"),
		feed("CNBC", "https://www.cnbc.com/id/100003114/device/rss/rss.html"),
		feed("MarketWatch", "https://feeds.marketwatch.com/marketwatch/topstories/"),
		feed("Yahoo Finance", "https://finance.yahoo.com/news/rssindex"),
	}
	c.Data.Kite.Instruments = []KiteInstrument{
		{Name: "NIFTY 50", Token: 256265},
		{Name: "NIFTY BANK", Token: 260105},
	}
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.Report.Title == "" {
		c.Report.Title = "Market Analysis Report"
	}
	if c.Report.DefaultDays == 0 {
		c.Report.DefaultDays = 7
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 60 * time.Second
	}
	if c.LLM.Backoff == 0 {
		c.LLM.Backoff = time.Second
	}
	if c.LLM.MaxBackoff == 0 {
		c.LLM.MaxBackoff = 8 * time.Second
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 2000
	}
	if c.LLM.System == "" {
		c.LLM.System = "You are a financial analyst creating comprehensive market reports. Provide detailed, professional analysis."
	}
	if c.Data.Concurrency == 0 {
		c.Data.Concurrency = 4
	}
	if c.Data.SourceTimeout == 0 {
		c.Data.SourceTimeout = 30 * time.Second
	}
	if c.Data.MaxRangeDays == 0 {
		c.Data.MaxRangeDays = 365
	}
	if c.Data.IndicatorMerge == "" {
		c.Data.IndicatorMerge = IndicatorMergeLast
	}
	if c.Data.Yahoo.BaseURL == "" {
		c.Data.Yahoo.BaseURL = "https://query1.finance.yahoo.com"
	}
	if c.Data.Yahoo.RateLimit == 0 {
		c.Data.Yahoo.RateLimit = 5
	}
	if c.Data.EODHD.BaseURL == "" {
		c.Data.EODHD.BaseURL = "https://eodhd.com/api"
	}
	if c.Data.EODHD.RateLimit == 0 {
		c.Data.EODHD.RateLimit = 10
	}
	if c.Data.NewsAPI.BaseURL == "" {
		c.Data.NewsAPI.BaseURL = "https://newsapi.org/v2"
	}
	if c.Data.NewsAPI.PageSize == 0 {
		c.Data.NewsAPI.PageSize = 50
	}
	if c.Data.RSS.PerFeed == 0 {
		c.Data.RSS.PerFeed = 10
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "reports"
	}
	for i := range c.LLM.Providers {
		c.LLM.Providers[i].Name = strings.ToLower(strings.TrimSpace(c.LLM.Providers[i].Name))
	}
}

func (c *Config) Validate() error {
	if len(c.LLM.Providers) == 0 {
		return errors.New("llm.providers cannot be empty")
	}
	names := make(map[string]bool, len(c.LLM.Providers))
	priorities := make(map[int]string, len(c.LLM.Providers))
	for _, p := range c.LLM.Providers {
		if !knownProviders[p.Name] {
			return fmt.Errorf("llm.providers: unknown provider '%s'", p.Name)
		}
		if names[p.Name] {
			return fmt.Errorf("llm.providers: provider '%s' listed twice", p.Name)
		}
		names[p.Name] = true
		if other, dup := priorities[p.Priority]; dup {
			return fmt.Errorf("llm.providers: '%s' and '%s' share priority %d", other, p.Name, p.Priority)
		}
		priorities[p.Priority] = p.Name
	}
	if c.LLM.MaxRetries < 0 || c.LLM.MaxRetries > 5 {
		return fmt.Errorf("llm.max_retries must be between 0-5, got %d", c.LLM.MaxRetries)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0-2, got %.2f", c.LLM.Temperature)
	}
	for _, s := range c.Data.Sources {
		if !knownSources[s] {
			return fmt.Errorf("data.sources: unknown source '%s'", s)
		}
	}
	if c.Data.Concurrency < 1 {
		return fmt.Errorf("data.concurrency must be positive, got %d", c.Data.Concurrency)
	}
	if c.Data.MaxRangeDays < 1 || c.Data.MaxRangeDays > 365 {
		return fmt.Errorf("data.max_range_days must be between 1-365, got %d", c.Data.MaxRangeDays)
	}
	if c.Data.IndicatorMerge != IndicatorMergeLast && c.Data.IndicatorMerge != IndicatorMergeFirst {
		return fmt.Errorf("data.indicator_merge must be '%s' or '%s', got '%s'", IndicatorMergeLast, IndicatorMergeFirst, c.Data.IndicatorMerge)
	}
	return nil
}

// LoadConfig reads a YAML file over the defaults. Lists in the file replace the defaults.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return c, nil
}

// LoadOrDefault loads path when it exists and falls back to Default otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return LoadConfig(path)
}
