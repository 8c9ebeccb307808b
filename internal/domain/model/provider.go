package model

// Slug identifies a search-engine provider. The set is closed and mirrors
// the search_engine column of the dispatch log.
type Slug string

const (
	SlugIndexNow        Slug = "index-now"
	SlugYandexIndexNow  Slug = "yandex-index-now"
	SlugBingIndexNow    Slug = "bing-index-now"
	SlugSeznamIndexNow  Slug = "seznam-index-now"
	SlugNaverIndexNow   Slug = "naver-index-now"
	SlugYandexWebmaster Slug = "yandex-webmaster"
	SlugBingWebmaster   Slug = "bing-webmaster"
	SlugGoogleWebmaster Slug = "google-webmaster"

	// SlugSite marks log rows produced by the service itself rather than
	// by a provider exchange.
	SlugSite Slug = "site"
)

// Kind separates the two provider protocol families.
type Kind string

const (
	// KindIndexNow providers share the lightweight IndexNow ping protocol:
	// one POST with the site key as ownership proof.
	KindIndexNow Kind = "index-now"
	// KindWebmaster providers expose an authenticated REST API and require
	// a token or API key.
	KindWebmaster Kind = "webmaster"
)

// Credential keys used by the provider adapters.
const (
	CredentialAPIKey      = "api_key"
	CredentialKeyLocation = "key_location"
	CredentialToken       = "token"
	CredentialUserID      = "user_id"
	CredentialHostID      = "host_id"
	CredentialSiteURL     = "site_url"
)

// ProviderConfig is a read-only snapshot of one provider's settings, taken
// from the configuration store at dispatch time. A provider with Enabled
// false or missing required credentials is never dispatched to.
type ProviderConfig struct {
	Slug        Slug
	Kind        Kind
	Enabled     bool
	Endpoint    string
	Credentials map[string]string
}

// Credential returns the named credential or the empty string.
func (c ProviderConfig) Credential(key string) string {
	return c.Credentials[key]
}

// HasCredentials reports whether every named credential is present and non-empty.
func (c ProviderConfig) HasCredentials(keys ...string) bool {
	for _, k := range keys {
		if c.Credentials[k] == "" {
			return false
		}
	}
	return true
}
