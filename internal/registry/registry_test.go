package registry

import (
	"testing"

	"github.com/mihdan/recrawler/internal/config"
	"github.com/mihdan/recrawler/internal/domain/model"
	repo "github.com/mihdan/recrawler/internal/domain/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() *config.Config {
	return &config.Config{
		Providers: config.ProvidersConfig{
			IndexNowProvider: "yandex-index-now",
			IndexNow: config.IndexNowConfig{
				APIKey: "a1b2c3d4",
			},
			YandexWebmaster: config.YandexWebmasterConfig{
				Enabled: true,
				Token:   "token",
				UserID:  "123",
				HostID:  "https:example.com:443",
			},
			BingWebmaster: config.BingWebmasterConfig{
				Enabled: false,
				APIKey:  "bingkey",
			},
			GoogleWebmaster: config.GoogleWebmasterConfig{
				Enabled: true,
			},
		},
	}
}

func TestProviderRegistry_SingleIndexNowVariant(t *testing.T) {
	r := NewProviderRegistry(baseConfig())

	enabled := r.ListEnabled()
	slugs := make([]model.Slug, 0, len(enabled))
	for _, cfg := range enabled {
		slugs = append(slugs, cfg.Slug)
	}

	assert.Contains(t, slugs, model.SlugYandexIndexNow)
	assert.NotContains(t, slugs, model.SlugIndexNow)
	assert.NotContains(t, slugs, model.SlugBingIndexNow)
}

func TestProviderRegistry_WebmasterTogglesAreIndependent(t *testing.T) {
	r := NewProviderRegistry(baseConfig())

	enabled := r.ListEnabled()
	slugs := make([]model.Slug, 0, len(enabled))
	for _, cfg := range enabled {
		slugs = append(slugs, cfg.Slug)
	}

	assert.Contains(t, slugs, model.SlugYandexWebmaster)
	assert.Contains(t, slugs, model.SlugGoogleWebmaster)
	assert.NotContains(t, slugs, model.SlugBingWebmaster)
}

func TestProviderRegistry_EnabledWithoutCredentialsIsListed(t *testing.T) {
	// Credential validity is the adapter's call: an enabled provider with no
	// token must still reach dispatch so the failure lands in the log.
	cfg := baseConfig()
	cfg.Providers.GoogleWebmaster.Token = ""

	r := NewProviderRegistry(cfg)

	google, err := r.Get(model.SlugGoogleWebmaster)
	require.NoError(t, err)
	assert.True(t, google.Enabled)
	assert.Empty(t, google.Credential(model.CredentialToken))

	slugs := make([]model.Slug, 0)
	for _, p := range r.ListEnabled() {
		slugs = append(slugs, p.Slug)
	}
	assert.Contains(t, slugs, model.SlugGoogleWebmaster)
}

func TestProviderRegistry_EmptySelectorDisablesIndexNowFamily(t *testing.T) {
	cfg := baseConfig()
	cfg.Providers.IndexNowProvider = ""

	r := NewProviderRegistry(cfg)

	for _, p := range r.ListEnabled() {
		assert.NotEqual(t, model.KindIndexNow, p.Kind)
	}
}

func TestProviderRegistry_Get(t *testing.T) {
	r := NewProviderRegistry(baseConfig())

	yandex, err := r.Get(model.SlugYandexWebmaster)
	require.NoError(t, err)
	assert.Equal(t, "token", yandex.Credential(model.CredentialToken))

	_, err = r.Get(model.SlugSeznamIndexNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestProviderRegistry_CredentialSnapshot(t *testing.T) {
	r := NewProviderRegistry(baseConfig())

	chosen, err := r.Get(model.SlugYandexIndexNow)
	require.NoError(t, err)
	assert.Equal(t, model.KindIndexNow, chosen.Kind)
	assert.Equal(t, "a1b2c3d4", chosen.Credential(model.CredentialAPIKey))
}
