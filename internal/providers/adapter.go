// Package providers contains one adapter per search-engine API. All adapters
// share the Adapter interface so the dispatcher can fan out to any mix of
// IndexNow and webmaster providers without knowing their auth schemes.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mihdan/recrawler/internal/domain/model"
)

// ErrMissingCredential marks an adapter that cannot build its request because
// a required credential or token is absent. The dispatcher turns it into a
// configuration-error log row without attempting an HTTP call.
var ErrMissingCredential = errors.New("missing provider credential")

// Request is a fully built outbound provider call.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is the raw final answer of a provider, as seen by the notifier.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// ResponseParser classifies a raw provider response. Every adapter
// satisfies this; the notifier needs nothing more to interpret an answer.
type ResponseParser interface {
	ParseResponse(resp *Response) model.Outcome
}

// Adapter builds and interprets the protocol of one provider.
type Adapter interface {
	// Slug returns the provider identifier used in configuration and logs.
	Slug() model.Slug

	// Kind returns the protocol family of the provider.
	Kind() model.Kind

	// BuildRequest turns a change event into the provider-specific call.
	// It returns an error wrapping ErrMissingCredential when the provider
	// is not configured well enough to be called.
	BuildRequest(ctx context.Context, e *model.ChangeEvent, cfg model.ProviderConfig) (*Request, error)

	// ParseResponse classifies the provider's answer.
	ParseResponse(resp *Response) model.Outcome
}

// KeyChecker is implemented by adapters whose protocol proves site ownership
// through a fetchable key file.
type KeyChecker interface {
	// BuildKeyCheckRequest builds the GET the engine's crawler issues
	// against the key location.
	BuildKeyCheckRequest(host string, cfg model.ProviderConfig) (*Request, error)
}

func missingCredential(slug model.Slug, key string) error {
	return fmt.Errorf("%s: %q unavailable: %w", slug, key, ErrMissingCredential)
}
