package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mihdan/recrawler/internal/domain/model"
)

// indexNowVariant holds what actually differs between the IndexNow endpoints:
// the API URL and the crawler user agent used for key verification fetches.
type indexNowVariant struct {
	endpoint     string
	botUserAgent string
}

var indexNowVariants = map[model.Slug]indexNowVariant{
	model.SlugIndexNow: {
		endpoint:     "https://api.indexnow.org/indexnow",
		botUserAgent: "Mozilla/5.0 (compatible; YandexBot/3.0; +http://yandex.com/bots)",
	},
	model.SlugYandexIndexNow: {
		endpoint:     "https://yandex.com/indexnow",
		botUserAgent: "Mozilla/5.0 (compatible; YandexBot/3.0; +http://yandex.com/bots)",
	},
	model.SlugBingIndexNow: {
		endpoint:     "https://www.bing.com/indexnow",
		botUserAgent: "Mozilla/5.0 (compatible; bingbot/2.0; +http://www.bing.com/bingbot.htm)",
	},
	model.SlugSeznamIndexNow: {
		endpoint:     "https://search.seznam.cz/indexnow",
		botUserAgent: "Mozilla/5.0 (compatible; SeznamBot/3.2; +http://napoveda.seznam.cz/en/seznambot-intro/)",
	},
	model.SlugNaverIndexNow: {
		endpoint:     "https://searchadvisor.naver.com/indexnow",
		botUserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko; compatible; Yeti/1.1; https://naver.me/spd) Chrome/112.0.0.0 Safari/537.36",
	},
}

// IndexNowSlugs lists the members of the IndexNow family.
func IndexNowSlugs() []model.Slug {
	return []model.Slug{
		model.SlugIndexNow,
		model.SlugYandexIndexNow,
		model.SlugBingIndexNow,
		model.SlugSeznamIndexNow,
		model.SlugNaverIndexNow,
	}
}

// IndexNowAdapter implements the IndexNow ping protocol for one of the
// family's endpoints. All variants share the request shape; only the
// endpoint and the bot user agent differ.
type IndexNowAdapter struct {
	slug    model.Slug
	variant indexNowVariant
}

var _ Adapter = (*IndexNowAdapter)(nil)

// NewIndexNowAdapter creates the adapter for one IndexNow variant.
func NewIndexNowAdapter(slug model.Slug) (*IndexNowAdapter, error) {
	v, ok := indexNowVariants[slug]
	if !ok {
		return nil, fmt.Errorf("unknown index-now variant: %s", slug)
	}
	return &IndexNowAdapter{slug: slug, variant: v}, nil
}

func (a *IndexNowAdapter) Slug() model.Slug { return a.slug }

func (a *IndexNowAdapter) Kind() model.Kind { return model.KindIndexNow }

// indexNowPayload is the documented IndexNow submission body.
type indexNowPayload struct {
	Host        string   `json:"host"`
	Key         string   `json:"key"`
	KeyLocation string   `json:"keyLocation,omitempty"`
	URLList     []string `json:"urlList"`
}

// BuildRequest builds the JSON ping. Deletions are submitted like updates:
// the engine recrawls the URL and observes the removal itself.
func (a *IndexNowAdapter) BuildRequest(_ context.Context, e *model.ChangeEvent, cfg model.ProviderConfig) (*Request, error) {
	key := cfg.Credential(model.CredentialAPIKey)
	if key == "" {
		return nil, missingCredential(a.slug, model.CredentialAPIKey)
	}

	host := e.Host()
	keyLocation := cfg.Credential(model.CredentialKeyLocation)
	if keyLocation == "" {
		keyLocation = fmt.Sprintf("https://%s/%s.txt", host, key)
	}

	body, err := json.Marshal(indexNowPayload{
		Host:        host,
		Key:         key,
		KeyLocation: keyLocation,
		URLList:     []string{e.URL},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: marshal payload: %w", a.slug, err)
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = a.variant.endpoint
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json; charset=utf-8")

	return &Request{
		Method: http.MethodPost,
		URL:    endpoint,
		Header: header,
		Body:   body,
	}, nil
}

// BuildKeyCheckRequest builds the GET a search-engine crawler would issue to
// verify ownership of the key file, using the engine's own user agent.
func (a *IndexNowAdapter) BuildKeyCheckRequest(host string, cfg model.ProviderConfig) (*Request, error) {
	key := cfg.Credential(model.CredentialAPIKey)
	if key == "" {
		return nil, missingCredential(a.slug, model.CredentialAPIKey)
	}
	location := cfg.Credential(model.CredentialKeyLocation)
	if location == "" {
		if host == "" {
			return nil, fmt.Errorf("%s: site host not configured for key check", a.slug)
		}
		location = fmt.Sprintf("https://%s/%s.txt", host, key)
	}

	header := http.Header{}
	header.Set("User-Agent", a.variant.botUserAgent)

	return &Request{
		Method: http.MethodGet,
		URL:    location,
		Header: header,
	}, nil
}

var _ KeyChecker = (*IndexNowAdapter)(nil)

// keyCheckParser classifies the ownership probe: the key file must answer
// 200 and contain the key itself, otherwise the engine drops every ping.
type keyCheckParser struct {
	key string
}

// NewKeyCheckParser returns the parser for a key verification fetch.
func NewKeyCheckParser(key string) ResponseParser {
	return keyCheckParser{key: key}
}

func (p keyCheckParser) ParseResponse(resp *Response) model.Outcome {
	switch {
	case resp.StatusCode != http.StatusOK:
		return model.Outcome{
			Kind:       model.OutcomeClientError,
			StatusCode: resp.StatusCode,
			Message:    "key file not reachable",
		}
	case !strings.Contains(string(resp.Body), p.key):
		return model.Outcome{
			Kind:       model.OutcomeClientError,
			StatusCode: resp.StatusCode,
			Message:    "key file does not contain the key",
		}
	default:
		return model.Outcome{
			Kind:       model.OutcomeSuccess,
			StatusCode: resp.StatusCode,
			Message:    "key file verified",
		}
	}
}

// ParseResponse maps the documented IndexNow status codes.
func (a *IndexNowAdapter) ParseResponse(resp *Response) model.Outcome {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 202:
		return model.Outcome{
			Kind:       model.OutcomeSuccess,
			StatusCode: resp.StatusCode,
			Message:    "url submitted",
		}
	case resp.StatusCode == http.StatusBadRequest:
		return clientOutcome(resp, "invalid request format")
	case resp.StatusCode == http.StatusForbidden:
		return clientOutcome(resp, "key not valid")
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return clientOutcome(resp, "url does not belong to the key's host")
	case resp.StatusCode == http.StatusTooManyRequests:
		return throttledOutcome(resp)
	case resp.StatusCode >= 500:
		return serverOutcome(resp)
	default:
		return clientOutcome(resp, "unexpected response")
	}
}
