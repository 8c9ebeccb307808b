package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mihdan/recrawler/internal/auth"
	"github.com/mihdan/recrawler/internal/domain/model"
)

const googleIndexingEndpoint = "https://indexing.googleapis.com"

// GoogleWebmasterAdapter publishes URL notifications to the Google Indexing
// API. The bearer token comes from a TokenSource; building a request fails
// fast when no token can be produced, so no HTTP call is ever attempted for
// an unconfigured account.
type GoogleWebmasterAdapter struct {
	tokens auth.TokenSource
}

var _ Adapter = (*GoogleWebmasterAdapter)(nil)

func NewGoogleWebmasterAdapter(tokens auth.TokenSource) *GoogleWebmasterAdapter {
	return &GoogleWebmasterAdapter{tokens: tokens}
}

func (a *GoogleWebmasterAdapter) Slug() model.Slug { return model.SlugGoogleWebmaster }

func (a *GoogleWebmasterAdapter) Kind() model.Kind { return model.KindWebmaster }

func (a *GoogleWebmasterAdapter) BuildRequest(ctx context.Context, e *model.ChangeEvent, cfg model.ProviderConfig) (*Request, error) {
	token := cfg.Credential(model.CredentialToken)
	if token == "" && a.tokens != nil {
		minted, err := a.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: token unavailable: %w", a.Slug(), ErrMissingCredential)
		}
		token = minted
	}
	if token == "" {
		return nil, missingCredential(a.Slug(), model.CredentialToken)
	}

	notificationType := "URL_UPDATED"
	if e.Action == model.ActionDeleted {
		notificationType = "URL_DELETED"
	}

	body, err := json.Marshal(map[string]string{
		"url":  e.URL,
		"type": notificationType,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: marshal payload: %w", a.Slug(), err)
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = googleIndexingEndpoint
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("Authorization", "Bearer "+token)

	return &Request{
		Method: http.MethodPost,
		URL:    endpoint + "/v3/urlNotifications:publish",
		Header: header,
		Body:   body,
	}, nil
}

func (a *GoogleWebmasterAdapter) ParseResponse(resp *Response) model.Outcome {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 202:
		return model.Outcome{
			Kind:       model.OutcomeSuccess,
			StatusCode: resp.StatusCode,
			Message:    "url notification published",
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		return throttledOutcome(resp)
	case resp.StatusCode >= 500:
		return serverOutcome(resp)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return clientOutcome(resp, "token rejected")
	default:
		return clientOutcome(resp, "publish rejected")
	}
}
