package store

import (
	"github.com/kelseyhightower/envconfig"
)

// Credentials are read from the environment (after godotenv has loaded .env).
type Credentials struct {
	OpenAIKey       string `envconfig:"OPENAI_API_KEY"`
	AnthropicKey    string `envconfig:"ANTHROPIC_API_KEY"`
	GoogleKey       string `envconfig:"GOOGLE_API_KEY"`
	NewsAPIKey      string `envconfig:"NEWS_API_KEY"`
	EODHDKey        string `envconfig:"EODHD_API_KEY"`
	KiteAPIKey      string `envconfig:"KITE_API_KEY"`
	KiteAccessToken string `envconfig:"KITE_ACCESS_TOKEN"`
}

func LoadCredentials() (Credentials, error) {
	var c Credentials
	if err := envconfig.Process("", &c); err != nil {
		return Credentials{}, err
	}
	return c, nil
}

// ProviderKey returns the API key for an LLM provider name.
func (c Credentials) ProviderKey(provider string) string {
	switch provider {
	case "openai":
		return c.OpenAIKey
	case "claude":
		return c.AnthropicKey
	case "gemini":
		return c.GoogleKey
	}
	return ""
}

// HasProvider reports credential presence. The offline noop provider needs none.
func (c Credentials) HasProvider(provider string) bool {
	return provider == "noop" || c.ProviderKey(provider) != ""
}

// HasSource reports whether a data source has what it needs to run.
func (c Credentials) HasSource(source string) bool {
	switch source {
	case "newsapi":
		return c.NewsAPIKey != ""
	case "eodhd":
		return c.EODHDKey != ""
	case "kite":
		return c.KiteAPIKey != "" && c.KiteAccessToken != ""
	}
	return true
}
