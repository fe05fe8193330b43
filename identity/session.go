package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-wallet/core"
)

const (
	defaultRequestTimeout   = 10 * time.Second
	maxSessionResponseBytes = 1 << 20
	sessionPath             = "/session"
)

var ErrSessionExpired = errors.New("identity: session expired")

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenStore keeps the provider session token across restarts.
type TokenStore interface {
	LoadToken(ctx context.Context) (SessionToken, bool, error)
	SaveToken(ctx context.Context, token SessionToken) error
	ClearToken(ctx context.Context) error
}

type SessionToken struct {
	ProviderURL string
	Token       string
	Principal   string
}

type MemoryTokenStore struct {
	mu    sync.Mutex
	token *SessionToken
}

func (s *MemoryTokenStore) LoadToken(context.Context) (SessionToken, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return SessionToken{}, false, nil
	}
	return *s.token, true, nil
}

func (s *MemoryTokenStore) SaveToken(_ context.Context, token SessionToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = &token
	return nil
}

func (s *MemoryTokenStore) ClearToken(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
	return nil
}

type Config struct {
	HTTPClient     HTTPDoer
	RequestTimeout time.Duration
	Tokens         TokenStore
}

// SessionAuthenticator drives an identity provider that exposes its session
// as a JSON resource: POST creates it, GET confirms it, DELETE ends it.
type SessionAuthenticator struct {
	httpClient     HTTPDoer
	requestTimeout time.Duration
	tokens         TokenStore
}

func NewSessionAuthenticator(cfg Config) *SessionAuthenticator {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	tokens := cfg.Tokens
	if tokens == nil {
		tokens = &MemoryTokenStore{}
	}
	return &SessionAuthenticator{
		httpClient:     httpClient,
		requestTimeout: requestTimeout,
		tokens:         tokens,
	}
}

func (a *SessionAuthenticator) Authenticate(ctx context.Context, providerURL string) (core.Identity, error) {
	providerURL = strings.TrimRight(strings.TrimSpace(providerURL), "/")
	if providerURL == "" {
		return nil, fmt.Errorf("identity: provider url is required")
	}
	status, payload, err := a.do(ctx, http.MethodPost, providerURL, "")
	if err != nil {
		return nil, err
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("identity: provider returned status %d", status)
	}

	principal := readPrincipal(payload)
	token := readString(payload["session_token"])
	if principal == "" || token == "" {
		return nil, fmt.Errorf("identity: provider response is missing principal or session_token")
	}
	if err := a.tokens.SaveToken(ctx, SessionToken{ProviderURL: providerURL, Token: token, Principal: principal}); err != nil {
		return nil, fmt.Errorf("identity: save session token: %w", err)
	}
	return core.PrincipalIdentity(principal), nil
}

// CurrentIdentity confirms a stored token with the provider. A rejected or
// missing token yields ok=false; transport failures are returned.
func (a *SessionAuthenticator) CurrentIdentity(ctx context.Context) (core.Identity, bool, error) {
	stored, ok, err := a.tokens.LoadToken(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("identity: load session token: %w", err)
	}
	if !ok || stored.Token == "" {
		return nil, false, nil
	}
	status, payload, err := a.do(ctx, http.MethodGet, stored.ProviderURL, stored.Token)
	if err != nil {
		return nil, false, err
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusNotFound:
		_ = a.tokens.ClearToken(ctx)
		return nil, false, nil
	case status < http.StatusOK || status >= http.StatusMultipleChoices:
		return nil, false, fmt.Errorf("identity: provider returned status %d", status)
	}
	principal := readPrincipal(payload)
	if principal == "" {
		return nil, false, ErrSessionExpired
	}
	return core.PrincipalIdentity(principal), true, nil
}

// EndSession forgets the local token even when the provider call fails.
func (a *SessionAuthenticator) EndSession(ctx context.Context) error {
	stored, ok, err := a.tokens.LoadToken(ctx)
	if clearErr := a.tokens.ClearToken(ctx); clearErr != nil {
		return fmt.Errorf("identity: clear session token: %w", clearErr)
	}
	if err != nil || !ok || stored.Token == "" {
		return err
	}
	status, _, err := a.do(ctx, http.MethodDelete, stored.ProviderURL, stored.Token)
	if err != nil {
		return err
	}
	if status >= http.StatusMultipleChoices && status != http.StatusNotFound && status != http.StatusUnauthorized {
		return fmt.Errorf("identity: provider returned status %d", status)
	}
	return nil
}

func (a *SessionAuthenticator) do(ctx context.Context, method string, providerURL string, token string) (int, map[string]any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	requestCtx := ctx
	cancel := func() {}
	if a.requestTimeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, a.requestTimeout)
	}
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, method, providerURL+sessionPath, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := a.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	body, readErr := io.ReadAll(io.LimitReader(res.Body, maxSessionResponseBytes+1))
	if readErr != nil {
		return 0, nil, fmt.Errorf("identity: read session response: %w", readErr)
	}
	if int64(len(body)) > maxSessionResponseBytes {
		return 0, nil, fmt.Errorf("identity: session response exceeds %d bytes", maxSessionResponseBytes)
	}
	payload := map[string]any{}
	if len(strings.TrimSpace(string(body))) > 0 && res.StatusCode < http.StatusMultipleChoices {
		if err := json.Unmarshal(body, &payload); err != nil {
			return 0, nil, fmt.Errorf("identity: decode session response: %w", err)
		}
	}
	return res.StatusCode, payload, nil
}

func readPrincipal(payload map[string]any) string {
	if principal := readString(payload["principal"]); principal != "" {
		return principal
	}
	return readString(payload["sub"])
}

func readString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return strings.TrimSpace(typed.String())
	case float64:
		return strconv.FormatInt(int64(typed), 10)
	default:
		if value == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

var _ core.Authenticator = (*SessionAuthenticator)(nil)
