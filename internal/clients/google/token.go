package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/brightclass/brightclass-backend/internal/pkg/logger"
)

const (
	jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// Tokens with less remaining validity than this are treated as stale.
	tokenExpirySkew = 60 * time.Second

	// Cached lifetime is trimmed below the vendor-declared one so a token
	// handed out near the boundary cannot expire mid-flight.
	tokenLifetimeTrim = 5 * time.Minute
)

type accessToken struct {
	value  string
	expiry time.Time
}

// TokenSource exchanges signed assertions for access tokens and caches the
// result. Concurrent cold callers share a single exchange via singleflight.
type TokenSource struct {
	log        *logger.Logger
	signer     *AssertionSigner
	httpClient *http.Client
	now        func() time.Time

	mu    sync.Mutex
	tok   *accessToken
	group singleflight.Group
}

func NewTokenSource(log *logger.Logger, signer *AssertionSigner) *TokenSource {
	return &TokenSource{
		log:        log.With("service", "GoogleTokenSource"),
		signer:     signer,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
}

// Token returns the cached access token when it still has more than 60s of
// validity, otherwise performs one exchange on behalf of all waiting callers.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	if tok := ts.cached(); tok != "" {
		return tok, nil
	}

	v, err, _ := ts.group.Do("exchange", func() (interface{}, error) {
		// A caller that queued behind the winning exchange sees the fresh
		// token here and skips its own network call.
		if tok := ts.cached(); tok != "" {
			return tok, nil
		}
		tok, err := ts.exchange(ctx)
		if err != nil {
			return nil, err
		}
		ts.mu.Lock()
		ts.tok = tok
		ts.mu.Unlock()
		return tok.value, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (ts *TokenSource) cached() string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.tok == nil {
		return ""
	}
	if ts.now().Add(tokenExpirySkew).After(ts.tok.expiry) {
		return ""
	}
	return ts.tok.value
}

// Invalidate discards the cached token. Used when the upstream rejects it.
func (ts *TokenSource) Invalidate() {
	ts.mu.Lock()
	ts.tok = nil
	ts.mu.Unlock()
}

func (ts *TokenSource) exchange(ctx context.Context) (*accessToken, error) {
	now := ts.now()
	assertion, err := ts.signer.Sign(now)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("grant_type", jwtBearerGrant)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.signer.TokenURI(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Exchange failures are usually a bad or revoked key; the caller
		// decides whether to retry, we do not.
		return nil, fmt.Errorf("token exchange http %d: %s", resp.StatusCode, string(raw))
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("token exchange decode: %w", err)
	}
	if strings.TrimSpace(body.AccessToken) == "" {
		return nil, fmt.Errorf("token exchange response missing access_token")
	}

	lifetime := time.Hour
	if body.ExpiresIn > 0 {
		lifetime = time.Duration(body.ExpiresIn) * time.Second
	}
	if lifetime > tokenLifetimeTrim {
		lifetime -= tokenLifetimeTrim
	}

	ts.log.Debug("Access token refreshed", "expires_in", lifetime.String())
	return &accessToken{value: body.AccessToken, expiry: now.Add(lifetime)}, nil
}
