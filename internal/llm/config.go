package llm

import (
	"fmt"
	"time"
)

// Config holds the settings for an OpenAI-compatible chat completion API.
type Config struct {
	APIKey      string        `json:"api_key" mapstructure:"api_key"`
	APIURL      string        `json:"api_url" mapstructure:"api_url"`
	Model       string        `json:"model" mapstructure:"model"`
	MaxTokens   int           `json:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `json:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`
	SiteURL     string        `json:"site_url" mapstructure:"site_url"`
	AppName     string        `json:"app_name" mapstructure:"app_name"`
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if c.APIURL == "" {
		return fmt.Errorf("API URL is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("max tokens must be greater than 0")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	return nil
}

// GetHeaders returns the headers sent with every request.
func (c *Config) GetHeaders() map[string]string {
	headers := map[string]string{
		"Authorization": "Bearer " + c.APIKey,
		"Content-Type":  "application/json",
	}

	if c.SiteURL != "" {
		headers["HTTP-Referer"] = c.SiteURL
	}
	if c.AppName != "" {
		headers["X-Title"] = c.AppName
	}

	return headers
}
