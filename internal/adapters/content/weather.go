// Package content implements the built-in content providers. Each provider
// fetches one kind of external data and carries the default summarization
// prompt for it; both are overridable from the task configuration.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/manthysbr/llmsender/internal/confmap"
)

const weatherPrompt = "Summarize the following weather report in a short, friendly message. Mention the temperature, conditions and anything worth preparing for."

// WeatherProvider fetches current conditions from the OpenWeatherMap API.
type WeatherProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	city    string
	units   string
	prompt  string
}

// NewWeather builds a weather provider from a plugin configuration map.
// Recognized keys: api_key, base_url, city, units, prompt.
func NewWeather(config map[string]any) (any, error) {
	city := confmap.String(config, "city", "")
	if city == "" {
		return nil, fmt.Errorf("weather provider requires a city")
	}
	apiKey := confmap.String(config, "api_key", "")
	if apiKey == "" {
		apiKey = os.Getenv("OPENWEATHERMAP_API_KEY")
	}
	return &WeatherProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: confmap.String(config, "base_url", "https://api.openweathermap.org/data/2.5"),
		apiKey:  apiKey,
		city:    city,
		units:   confmap.String(config, "units", "metric"),
		prompt:  confmap.String(config, "prompt", weatherPrompt),
	}, nil
}

func (p *WeatherProvider) Prompt() string { return p.prompt }

// Fetch retrieves current conditions and renders them as a plain-text
// report the summarizer can work from.
func (p *WeatherProvider) Fetch(ctx context.Context) (string, error) {
	q := url.Values{}
	q.Set("q", p.city)
	q.Set("appid", p.apiKey)
	q.Set("units", p.units)

	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/weather?%s", p.baseURL, q.Encode()), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call weather API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("weather API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Name    string `json:"name"`
		Weather []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			TempMin   float64 `json:"temp_min"`
			TempMax   float64 `json:"temp_max"`
			Humidity  int     `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode weather response: %w", err)
	}

	unit := "°C"
	if p.units == "imperial" {
		unit = "°F"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Weather in %s:\n", result.Name)
	for _, w := range result.Weather {
		fmt.Fprintf(&b, "Conditions: %s (%s)\n", w.Main, w.Description)
	}
	fmt.Fprintf(&b, "Temperature: %.1f%s (feels like %.1f%s)\n", result.Main.Temp, unit, result.Main.FeelsLike, unit)
	fmt.Fprintf(&b, "Range: %.1f%s to %.1f%s\n", result.Main.TempMin, unit, result.Main.TempMax, unit)
	fmt.Fprintf(&b, "Humidity: %d%%\n", result.Main.Humidity)
	fmt.Fprintf(&b, "Wind: %.1f m/s\n", result.Wind.Speed)
	return b.String(), nil
}
