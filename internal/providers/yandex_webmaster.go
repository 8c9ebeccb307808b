package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mihdan/recrawler/internal/domain/model"
)

const yandexWebmasterEndpoint = "https://api.webmaster.yandex.net"

// YandexWebmasterAdapter submits URLs to the Yandex Webmaster recrawl queue.
// It needs an OAuth token plus the numeric user and host identifiers of the
// site as registered in Webmaster.
type YandexWebmasterAdapter struct{}

var _ Adapter = (*YandexWebmasterAdapter)(nil)

func NewYandexWebmasterAdapter() *YandexWebmasterAdapter {
	return &YandexWebmasterAdapter{}
}

func (a *YandexWebmasterAdapter) Slug() model.Slug { return model.SlugYandexWebmaster }

func (a *YandexWebmasterAdapter) Kind() model.Kind { return model.KindWebmaster }

func (a *YandexWebmasterAdapter) BuildRequest(_ context.Context, e *model.ChangeEvent, cfg model.ProviderConfig) (*Request, error) {
	token := cfg.Credential(model.CredentialToken)
	if token == "" {
		return nil, missingCredential(a.Slug(), model.CredentialToken)
	}
	userID := cfg.Credential(model.CredentialUserID)
	if userID == "" {
		return nil, missingCredential(a.Slug(), model.CredentialUserID)
	}
	hostID := cfg.Credential(model.CredentialHostID)
	if hostID == "" {
		return nil, missingCredential(a.Slug(), model.CredentialHostID)
	}

	body, err := json.Marshal(map[string]string{"url": e.URL})
	if err != nil {
		return nil, fmt.Errorf("%s: marshal payload: %w", a.Slug(), err)
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = yandexWebmasterEndpoint
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("Authorization", "OAuth "+token)

	return &Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/v4/user/%s/hosts/%s/recrawl/queue/", endpoint, userID, hostID),
		Header: header,
		Body:   body,
	}, nil
}

func (a *YandexWebmasterAdapter) ParseResponse(resp *Response) model.Outcome {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 202:
		return model.Outcome{
			Kind:       model.OutcomeSuccess,
			StatusCode: resp.StatusCode,
			Message:    "recrawl queued",
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		return throttledOutcome(resp)
	case resp.StatusCode >= 500:
		return serverOutcome(resp)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return clientOutcome(resp, "token rejected")
	default:
		return clientOutcome(resp, "recrawl request rejected")
	}
}
