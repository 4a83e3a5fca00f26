package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/manthysbr/llmsender/internal/confmap"
)

const exchangeRatePrompt = "Summarize the following exchange rates in one short paragraph. Highlight notable values and keep the numbers precise."

// ExchangeRateProvider fetches currency rates from exchangerate-api.com.
// With an API key it uses the authenticated v6 endpoint; without one it
// falls back to the open endpoint, which is rate-limited but keyless.
type ExchangeRateProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	base    string
	symbols []string
	prompt  string
}

// NewExchangeRate builds an exchange-rate provider from a plugin
// configuration map. Recognized keys: api_key, base_url, base, symbols,
// prompt.
func NewExchangeRate(config map[string]any) (any, error) {
	apiKey := confmap.String(config, "api_key", "")
	if apiKey == "" {
		apiKey = os.Getenv("EXCHANGERATE_API_KEY")
	}
	defaultURL := "https://open.er-api.com/v6"
	if apiKey != "" {
		defaultURL = "https://v6.exchangerate-api.com/v6"
	}
	return &ExchangeRateProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: confmap.String(config, "base_url", defaultURL),
		apiKey:  apiKey,
		base:    strings.ToUpper(confmap.String(config, "base", "USD")),
		symbols: confmap.Strings(config, "symbols"),
		prompt:  confmap.String(config, "prompt", exchangeRatePrompt),
	}, nil
}

func (p *ExchangeRateProvider) Prompt() string { return p.prompt }

func (p *ExchangeRateProvider) Fetch(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/latest/%s", p.baseURL, p.base)
	if p.apiKey != "" {
		url = fmt.Sprintf("%s/%s/latest/%s", p.baseURL, p.apiKey, p.base)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call exchange rate API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("exchange rate API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Result string             `json:"result"`
		Rates  map[string]float64 `json:"rates"`
		// authenticated endpoint uses a different field name
		ConversionRates map[string]float64 `json:"conversion_rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode exchange rate response: %w", err)
	}
	if result.Result != "" && result.Result != "success" {
		return "", fmt.Errorf("exchange rate API reported %q", result.Result)
	}
	rates := result.Rates
	if len(rates) == 0 {
		rates = result.ConversionRates
	}
	if len(rates) == 0 {
		return "", fmt.Errorf("no rates in response")
	}

	symbols := p.symbols
	if len(symbols) == 0 {
		symbols = []string{"EUR", "GBP", "JPY", "CNY"}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Exchange rates for 1 %s:\n", p.base)
	for _, sym := range symbols {
		sym = strings.ToUpper(sym)
		rate, ok := rates[sym]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s: %.4f\n", sym, rate)
	}
	return b.String(), nil
}
