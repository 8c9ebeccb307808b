package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mihdan/recrawler/internal/domain/model"
)

const bingWebmasterEndpoint = "https://ssl.bing.com"

// BingWebmasterAdapter submits URLs through the Bing Webmaster SubmitUrl API,
// authenticated by an API key passed as a query parameter.
type BingWebmasterAdapter struct{}

var _ Adapter = (*BingWebmasterAdapter)(nil)

func NewBingWebmasterAdapter() *BingWebmasterAdapter {
	return &BingWebmasterAdapter{}
}

func (a *BingWebmasterAdapter) Slug() model.Slug { return model.SlugBingWebmaster }

func (a *BingWebmasterAdapter) Kind() model.Kind { return model.KindWebmaster }

func (a *BingWebmasterAdapter) BuildRequest(_ context.Context, e *model.ChangeEvent, cfg model.ProviderConfig) (*Request, error) {
	apiKey := cfg.Credential(model.CredentialAPIKey)
	if apiKey == "" {
		return nil, missingCredential(a.Slug(), model.CredentialAPIKey)
	}
	siteURL := cfg.Credential(model.CredentialSiteURL)
	if siteURL == "" {
		return nil, missingCredential(a.Slug(), model.CredentialSiteURL)
	}

	body, err := json.Marshal(map[string]string{
		"siteUrl": siteURL,
		"url":     e.URL,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: marshal payload: %w", a.Slug(), err)
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = bingWebmasterEndpoint
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json; charset=utf-8")

	return &Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/webmaster/api.svc/json/SubmitUrl?apikey=%s", endpoint, url.QueryEscape(apiKey)),
		Header: header,
		Body:   body,
	}, nil
}

func (a *BingWebmasterAdapter) ParseResponse(resp *Response) model.Outcome {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 202:
		return model.Outcome{
			Kind:       model.OutcomeSuccess,
			StatusCode: resp.StatusCode,
			Message:    "url submitted",
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		return throttledOutcome(resp)
	case resp.StatusCode >= 500:
		return serverOutcome(resp)
	default:
		return clientOutcome(resp, "submit rejected")
	}
}
