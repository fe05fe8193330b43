package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-wallet/core"
)

const (
	DefaultPrincipalHeader = "X-Wallet-Principal"

	defaultClientTimeout           = 30 * time.Second
	defaultResponseBodyLimit int64 = 1 << 20
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Signer decorates outgoing requests with the caller identity. It does not
// sign anything; the ledger trusts the transport session.
type Signer interface {
	Sign(ctx context.Context, req *http.Request) error
}

type SignerFunc func(ctx context.Context, req *http.Request) error

func (f SignerFunc) Sign(ctx context.Context, req *http.Request) error {
	return f(ctx, req)
}

// PrincipalHeaderSigner forwards the principal returned by Principal in the
// configured header. An empty principal leaves the request untouched.
type PrincipalHeaderSigner struct {
	Header    string
	Principal func(ctx context.Context) string
}

func (s PrincipalHeaderSigner) Sign(ctx context.Context, req *http.Request) error {
	if s.Principal == nil {
		return nil
	}
	principal := strings.TrimSpace(s.Principal(ctx))
	if principal == "" {
		return nil
	}
	header := strings.TrimSpace(s.Header)
	if header == "" {
		header = DefaultPrincipalHeader
	}
	req.Header.Set(header, principal)
	return nil
}

// SessionSigner forwards the active principal of a session store.
func SessionSigner(sessions interface{ Current() core.Session }) Signer {
	return PrincipalHeaderSigner{
		Principal: func(context.Context) string {
			if sessions == nil {
				return ""
			}
			return sessions.Current().PrincipalID
		},
	}
}

// Client talks to the ledger service over JSON/HTTP. Every method performs
// exactly one request.
type Client struct {
	BaseURL              string
	HTTP                 HTTPDoer
	Signer               Signer
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
}

type Option func(*Client)

func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.HTTP = doer
		}
	}
}

func WithSigner(signer Signer) Option {
	return func(c *Client) {
		c.Signer = signer
	}
}

func WithHeader(key string, value string) Option {
	return func(c *Client) {
		if strings.TrimSpace(key) == "" {
			return
		}
		c.DefaultHeaders[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("ledger: base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("ledger: invalid base url: %w", err)
	}
	client := &Client{
		BaseURL:              baseURL,
		HTTP:                 &http.Client{Timeout: defaultClientTimeout},
		DefaultHeaders:       map[string]string{},
		MaxResponseBodyBytes: defaultResponseBodyLimit,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

func (c *Client) BalanceOf(ctx context.Context, principalID string) (uint64, error) {
	var balance uint64
	err := c.call(ctx, callSpec{
		operation: "balance_of",
		method:    http.MethodGet,
		path:      "/balance/" + url.PathEscape(strings.TrimSpace(principalID)),
		principal: principalID,
	}, func(raw json.RawMessage) error {
		value, err := decodeAmount(raw)
		balance = value
		return err
	})
	return balance, err
}

func (c *Client) CanMint(ctx context.Context, principalID string) (bool, error) {
	var canMint bool
	err := c.call(ctx, callSpec{
		operation: "can_mint",
		method:    http.MethodGet,
		path:      "/can-mint/" + url.PathEscape(strings.TrimSpace(principalID)),
		principal: principalID,
	}, func(raw json.RawMessage) error {
		return json.Unmarshal(raw, &canMint)
	})
	return canMint, err
}

func (c *Client) Mint(ctx context.Context) (uint64, error) {
	var minted uint64
	err := c.call(ctx, callSpec{
		operation: "mint",
		method:    http.MethodPost,
		path:      "/mint",
	}, func(raw json.RawMessage) error {
		value, err := decodeAmount(raw)
		minted = value
		return err
	})
	return minted, err
}

type transferBody struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (c *Client) Transfer(ctx context.Context, recipient string, amount uint64) error {
	body, err := json.Marshal(transferBody{
		To:     strings.TrimSpace(recipient),
		Amount: strconv.FormatUint(amount, 10),
	})
	if err != nil {
		return fmt.Errorf("ledger: encode transfer: %w", err)
	}
	return c.call(ctx, callSpec{
		operation: "transfer",
		method:    http.MethodPost,
		path:      "/transfer",
		body:      body,
	}, nil)
}

func (c *Client) TotalSupply(ctx context.Context) (uint64, error) {
	var supply uint64
	err := c.call(ctx, callSpec{
		operation: "total_supply",
		method:    http.MethodGet,
		path:      "/total-supply",
	}, func(raw json.RawMessage) error {
		value, err := decodeAmount(raw)
		supply = value
		return err
	})
	return supply, err
}

type callSpec struct {
	operation string
	method    string
	path      string
	body      []byte
	principal string
}

type envelope struct {
	OK  json.RawMessage `json:"ok"`
	Err *string         `json:"err"`
}

func (c *Client) call(ctx context.Context, spec callSpec, decode func(json.RawMessage) error) error {
	if c == nil || c.HTTP == nil {
		return core.RemoteUnavailable(spec.operation, fmt.Errorf("ledger client is not configured"))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var reader io.Reader
	if len(spec.body) > 0 {
		reader = bytes.NewReader(spec.body)
	}
	req, err := http.NewRequestWithContext(ctx, spec.method, c.BaseURL+spec.path, reader)
	if err != nil {
		return core.RemoteUnavailable(spec.operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if len(spec.body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range c.DefaultHeaders {
		req.Header.Set(key, value)
	}
	if c.Signer != nil {
		if err := c.Signer.Sign(ctx, req); err != nil {
			return core.RemoteUnavailable(spec.operation, fmt.Errorf("sign request: %w", err))
		}
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return core.RemoteUnavailable(spec.operation, err)
	}
	defer res.Body.Close()

	limit := c.MaxResponseBodyBytes
	if limit <= 0 {
		limit = defaultResponseBodyLimit
	}
	payload, err := io.ReadAll(io.LimitReader(res.Body, limit+1))
	if err != nil {
		return core.RemoteUnavailable(spec.operation, fmt.Errorf("read response: %w", err))
	}
	if int64(len(payload)) > limit {
		return core.RemoteUnavailable(spec.operation, fmt.Errorf("response body exceeds %d bytes", limit))
	}

	switch {
	case res.StatusCode == http.StatusBadRequest && spec.principal != "":
		return core.InvalidIdentity(spec.principal, responseReason(payload, "ledger rejected principal"))
	case res.StatusCode >= 500:
		return core.RemoteUnavailable(spec.operation, fmt.Errorf("status %d", res.StatusCode))
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return core.RemoteUnavailable(spec.operation, fmt.Errorf("decode response (status %d): %w", res.StatusCode, err))
	}
	if env.Err != nil {
		return core.NewLedgerError(spec.operation, *env.Err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return core.RemoteUnavailable(spec.operation, fmt.Errorf("status %d", res.StatusCode))
	}
	if env.OK == nil {
		return core.RemoteUnavailable(spec.operation, fmt.Errorf("response carries neither ok nor err"))
	}
	if decode == nil {
		return nil
	}
	if err := decode(env.OK); err != nil {
		return core.RemoteUnavailable(spec.operation, fmt.Errorf("decode result: %w", err))
	}
	return nil
}

// decodeAmount accepts a JSON number or a decimal string.
func decodeAmount(raw json.RawMessage) (uint64, error) {
	text := strings.TrimSpace(string(raw))
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = strings.TrimSpace(unquoted)
	}
	return strconv.ParseUint(text, 10, 64)
}

func responseReason(payload []byte, fallback string) string {
	var env envelope
	if err := json.Unmarshal(payload, &env); err == nil && env.Err != nil && strings.TrimSpace(*env.Err) != "" {
		return strings.TrimSpace(*env.Err)
	}
	return fallback
}

var _ core.Ledger = (*Client)(nil)
