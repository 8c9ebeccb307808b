package auth

import (
	"github.com/mihdan/recrawler/internal/config"
)

// NewTokenSource picks the token strategy from the Google provider settings:
// a pre-issued token wins, otherwise tokens are minted from the
// service-account key. With neither configured the source stays empty and
// the adapter reports a missing credential instead of calling out.
func NewTokenSource(cfg *config.Config) (TokenSource, error) {
	google := cfg.Providers.GoogleWebmaster

	if google.Token != "" {
		return NewStaticTokenSource(google.Token), nil
	}

	if google.ServiceAccountJSON != "" {
		return NewGoogleTokenSource(google.ServiceAccountJSON)
	}

	return NewStaticTokenSource(""), nil
}
