// Package plugins registers the built-in plugin set: the flat plugins every
// deployment gets, and the implementation keys pack manifests can bind to.
package plugins

import (
	"github.com/manthysbr/llmsender/internal/adapters/actions"
	"github.com/manthysbr/llmsender/internal/adapters/content"
	"github.com/manthysbr/llmsender/internal/adapters/llm"
	"github.com/manthysbr/llmsender/internal/adapters/notify"
	"github.com/manthysbr/llmsender/internal/core/domain"
	"github.com/manthysbr/llmsender/internal/core/ports"
	"github.com/manthysbr/llmsender/internal/core/services"
	"github.com/manthysbr/llmsender/internal/packs"
	"github.com/manthysbr/llmsender/internal/packs/twitter"
)

// RegisterBuiltins populates the registry with the flat built-in plugins and
// binds the pack implementation keys. loader may be nil when no pack
// directory is configured.
func RegisterBuiltins(registry *services.PluginRegistry, loader *packs.Loader) {
	for _, reg := range builtins() {
		registry.Register(reg)
	}
	if loader != nil {
		for key, factory := range packImpls() {
			loader.RegisterImpl(key, factory)
		}
	}
}

func builtins() []ports.Registration {
	return []ports.Registration{
		// content providers
		{
			Role: domain.RoleContent, Name: "weather",
			Requires: []ports.Requirement{{
				EnvVar: "OPENWEATHERMAP_API_KEY", ConfigKey: "api_key",
				Hint: "get a free key at https://openweathermap.org/api",
			}},
			New: content.NewWeather,
		},
		{
			Role: domain.RoleContent, Name: "exchange_rate",
			New: content.NewExchangeRate,
		},
		{
			Role: domain.RoleContent, Name: "news",
			Requires: []ports.Requirement{{
				EnvVar: "NEWSAPI_API_KEY", ConfigKey: "api_key",
				Hint: "get a free key at https://newsapi.org",
			}},
			New: content.NewNews,
		},

		// summarizers
		{
			Role: domain.RoleLLM, Name: "openai",
			Requires: []ports.Requirement{{
				EnvVar: "OPENAI_API_KEY", ConfigKey: "api_key",
			}},
			New: llm.NewOpenAI,
		},
		{
			Role: domain.RoleLLM, Name: "anthropic",
			Requires: []ports.Requirement{{
				EnvVar: "ANTHROPIC_API_KEY", ConfigKey: "api_key",
			}},
			New: llm.NewAnthropic,
		},
		{
			Role: domain.RoleLLM, Name: "gemini",
			Requires: []ports.Requirement{{
				EnvVar: "GEMINI_API_KEY", ConfigKey: "api_key",
			}},
			New: llm.NewGemini,
		},
		{
			Role: domain.RoleLLM, Name: "ollama",
			New: llm.NewOllama,
		},

		// actions
		{Role: domain.RoleAction, Name: "filter", New: actions.NewFilter},
		{Role: domain.RoleAction, Name: "format", New: actions.NewFormat},

		// notifiers
		{
			Role: domain.RoleNotifier, Name: "telegram",
			Requires: []ports.Requirement{{
				EnvVar: "TELEGRAM_BOT_TOKEN", ConfigKey: "bot_token",
				Hint: "create a bot with @BotFather and export TELEGRAM_BOT_TOKEN",
			}},
			New: notify.NewTelegram,
		},
		{
			Role: domain.RoleNotifier, Name: "bark",
			Requires: []ports.Requirement{{
				EnvVar: "BARK_DEVICE_KEY", ConfigKey: "device_key",
			}},
			New: notify.NewBark,
		},
		{
			Role: domain.RoleNotifier, Name: "email",
			Requires: []ports.Requirement{{
				EnvVar: "SMTP_PASSWORD", ConfigKey: "password",
			}},
			New: notify.NewEmail,
		},
	}
}

// packImpls maps manifest impl keys to their factories. Pack manifests bind
// local component names to these keys; credentials are declared per
// component in the manifest, not here.
func packImpls() map[string]ports.Factory {
	return map[string]ports.Factory{
		"twitter/fetch_tweets":  twitter.NewFetchTweets,
		"twitter/filter_tweets": twitter.NewFilterTweets,
		"twitter/post_tweet":    twitter.NewPostTweet,
		"twitter/new_tweet":     twitter.NewNewTweetTrigger,
	}
}
