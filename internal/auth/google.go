package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	googleTokenURL      = "https://oauth2.googleapis.com/token"
	googleIndexingScope = "https://www.googleapis.com/auth/indexing"
	assertionGrantType  = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// tokens are refreshed slightly before Google's one hour expiry.
	tokenExpiryMargin = 2 * time.Minute
)

// ErrNoServiceAccount is returned when no service-account key was configured.
var ErrNoServiceAccount = errors.New("no service account key configured")

// serviceAccountKey is the subset of a Google service-account JSON key file
// needed to sign an assertion.
type serviceAccountKey struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// GoogleTokenSource mints Indexing API bearer tokens from a service-account
// key: it signs an RS256 assertion and exchanges it at the token endpoint.
// Tokens are cached until shortly before expiry; the source is safe for
// concurrent use.
type GoogleTokenSource struct {
	key        *serviceAccountKey
	privateKey *rsa.PrivateKey
	client     *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

var _ TokenSource = (*GoogleTokenSource)(nil)

// NewGoogleTokenSource parses the raw service-account key file contents.
func NewGoogleTokenSource(serviceAccountJSON string) (*GoogleTokenSource, error) {
	if strings.TrimSpace(serviceAccountJSON) == "" {
		return nil, ErrNoServiceAccount
	}

	var key serviceAccountKey
	if err := json.Unmarshal([]byte(serviceAccountJSON), &key); err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	if key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, errors.New("service account key missing client_email or private_key")
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(key.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parse service account private key: %w", err)
	}

	return &GoogleTokenSource{
		key:        &key,
		privateKey: privateKey,
		client:     &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Token returns a cached token or mints a fresh one.
func (s *GoogleTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.expiresAt.Add(-tokenExpiryMargin)) {
		return s.token, nil
	}

	token, expiresIn, err := s.mint(ctx)
	if err != nil {
		return "", err
	}

	s.token = token
	s.expiresAt = time.Now().Add(expiresIn)
	return token, nil
}

func (s *GoogleTokenSource) mint(ctx context.Context) (string, time.Duration, error) {
	tokenURL := s.key.TokenURI
	if tokenURL == "" {
		tokenURL = googleTokenURL
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   s.key.ClientEmail,
		"scope": googleIndexingScope,
		"aud":   tokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}

	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.privateKey)
	if err != nil {
		return "", 0, fmt.Errorf("sign assertion: %w", err)
	}

	form := url.Values{
		"grant_type": {assertionGrantType},
		"assertion":  {assertion},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("exchange assertion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", 0, fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", 0, errors.New("token endpoint returned empty access_token")
	}

	expiresIn := time.Duration(payload.ExpiresIn) * time.Second
	if expiresIn <= 0 {
		expiresIn = time.Hour
	}

	return payload.AccessToken, expiresIn, nil
}
