// Package auth supplies bearer tokens to the webmaster adapters. The
// dispatcher core only ever sees an opaque token string; everything about
// how the token is obtained lives here.
package auth

import "context"

// TokenSource produces a currently valid bearer token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns a fixed, pre-issued token.
type StaticTokenSource struct {
	token string
}

var _ TokenSource = (*StaticTokenSource)(nil)

func NewStaticTokenSource(token string) *StaticTokenSource {
	return &StaticTokenSource{token: token}
}

func (s *StaticTokenSource) Token(_ context.Context) (string, error) {
	return s.token, nil
}
