// Package registry exposes a read-only view over the configured providers.
package registry

import (
	"fmt"

	"github.com/mihdan/recrawler/internal/config"
	"github.com/mihdan/recrawler/internal/domain/model"
	repo "github.com/mihdan/recrawler/internal/domain/repository"
)

// ProviderRegistry holds the provider snapshots built from the configuration
// store. It has no side effects; secrets stay opaque inside the credential
// maps. Whether a credential is actually usable is decided by the adapter at
// request-build time, so an enabled provider with a missing token still shows
// up here and fails fast with a configuration-error log entry.
type ProviderRegistry struct {
	configs map[model.Slug]model.ProviderConfig
	// order keeps listings deterministic.
	order []model.Slug
}

// NewProviderRegistry snapshots the provider settings. Only the selected
// IndexNow-family variant is admitted; webmaster providers are independently
// toggled and can run alongside it and each other.
func NewProviderRegistry(cfg *config.Config) *ProviderRegistry {
	r := &ProviderRegistry{configs: make(map[model.Slug]model.ProviderConfig)}

	if chosen := model.Slug(cfg.Providers.IndexNowProvider); chosen != "" {
		r.add(model.ProviderConfig{
			Slug:     chosen,
			Kind:     model.KindIndexNow,
			Enabled:  true,
			Endpoint: cfg.Providers.IndexNow.Endpoint,
			Credentials: map[string]string{
				model.CredentialAPIKey:      cfg.Providers.IndexNow.APIKey,
				model.CredentialKeyLocation: cfg.Providers.IndexNow.KeyLocation,
			},
		})
	}

	yandex := cfg.Providers.YandexWebmaster
	r.add(model.ProviderConfig{
		Slug:     model.SlugYandexWebmaster,
		Kind:     model.KindWebmaster,
		Enabled:  yandex.Enabled,
		Endpoint: yandex.Endpoint,
		Credentials: map[string]string{
			model.CredentialToken:  yandex.Token,
			model.CredentialUserID: yandex.UserID,
			model.CredentialHostID: yandex.HostID,
		},
	})

	bing := cfg.Providers.BingWebmaster
	r.add(model.ProviderConfig{
		Slug:     model.SlugBingWebmaster,
		Kind:     model.KindWebmaster,
		Enabled:  bing.Enabled,
		Endpoint: bing.Endpoint,
		Credentials: map[string]string{
			model.CredentialAPIKey:  bing.APIKey,
			model.CredentialSiteURL: bing.SiteURL,
		},
	})

	google := cfg.Providers.GoogleWebmaster
	r.add(model.ProviderConfig{
		Slug:     model.SlugGoogleWebmaster,
		Kind:     model.KindWebmaster,
		Enabled:  google.Enabled,
		Endpoint: google.Endpoint,
		Credentials: map[string]string{
			model.CredentialToken: google.Token,
		},
	})

	return r
}

func (r *ProviderRegistry) add(cfg model.ProviderConfig) {
	r.configs[cfg.Slug] = cfg
	r.order = append(r.order, cfg.Slug)
}

// ListEnabled returns the providers eligible for dispatch, in stable order.
func (r *ProviderRegistry) ListEnabled() []model.ProviderConfig {
	enabled := make([]model.ProviderConfig, 0, len(r.order))
	for _, slug := range r.order {
		cfg := r.configs[slug]
		if cfg.Enabled {
			enabled = append(enabled, cfg)
		}
	}
	return enabled
}

// Get returns one provider's snapshot.
func (r *ProviderRegistry) Get(slug model.Slug) (model.ProviderConfig, error) {
	cfg, ok := r.configs[slug]
	if !ok {
		return model.ProviderConfig{}, fmt.Errorf("provider %s: %w", slug, repo.ErrNotFound)
	}
	return cfg, nil
}
