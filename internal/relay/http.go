package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"cipherchat/internal/domain"
)

// Error codes carried in API error bodies.
const (
	codeInvalidCredentials = "invalid_credentials"
	codeUserExists         = "user_exists"
	codePublicKeyTaken     = "public_key_taken"
	codeNotFound           = "not_found"
	codeInvalidPayload     = "invalid_payload"
	codeInternal           = "internal"
)

var codeErrors = map[string]error{
	codeInvalidCredentials: domain.ErrInvalidCredentials,
	codeUserExists:         domain.ErrUserExists,
	codePublicKeyTaken:     domain.ErrPublicKeyTaken,
	codeNotFound:           domain.ErrNotFound,
	codeInvalidPayload:     domain.ErrInvalidPayload,
}

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPClient is the account API client.
type HTTPClient struct {
	Base string
	HTTP *http.Client
}

// NewHTTP returns a client for the server at base. A nil hc uses
// http.DefaultClient.
func NewHTTP(base string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPClient{Base: strings.TrimRight(base, "/"), HTTP: hc}
}

// Register posts a registration payload.
func (c *HTTPClient) Register(ctx context.Context, payload domain.RegistrationPayload) error {
	return c.post(ctx, "/register", payload, nil)
}

// Login posts credentials and returns the owner record.
func (c *HTTPClient) Login(ctx context.Context, payload domain.LoginPayload) (domain.OwnerRecord, error) {
	var out domain.OwnerRecord
	if err := c.post(ctx, "/login", payload, &out); err != nil {
		return domain.OwnerRecord{}, err
	}
	return out, nil
}

// PublicKeyByHash fetches a directory entry by public key hash.
func (c *HTTPClient) PublicKeyByHash(ctx context.Context, hash domain.PublicKeyHash) (domain.PublicKeyRecord, error) {
	var out domain.PublicKeyRecord
	if err := c.getJSON(ctx, "/keys/"+url.PathEscape(hash.String()), &out); err != nil {
		return domain.PublicKeyRecord{}, err
	}
	return out, nil
}

// PublicKeyByUsername fetches a directory entry by username.
func (c *HTTPClient) PublicKeyByUsername(ctx context.Context, username domain.Username) (domain.PublicKeyRecord, error) {
	var out domain.PublicKeyRecord
	if err := c.getJSON(ctx, "/users/"+url.PathEscape(username.String())+"/key", &out); err != nil {
		return domain.PublicKeyRecord{}, err
	}
	return out, nil
}

// WebSocketURL returns the relay endpoint derived from Base.
func (c *HTTPClient) WebSocketURL() (string, error) {
	u, err := url.Parse(c.Base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

func (c *HTTPClient) post(ctx context.Context, path string, in any, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return statusError(req, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, MaxFrameBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// statusError maps an API error body back to its domain sentinel.
func statusError(req *http.Request, resp *http.Response) error {
	var body apiError
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)
	if sentinel, ok := codeErrors[body.Code]; ok {
		if sentinel == domain.ErrInvalidPayload && body.Error != "" {
			return fmt.Errorf("%w: %s", sentinel, strings.TrimPrefix(body.Error, sentinel.Error()+": "))
		}
		return sentinel
	}
	return fmt.Errorf("relay %s %s: %s", req.Method, req.URL.Path, resp.Status)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{Error: err.Error(), Code: code})
}

// errorStatus picks the response for a service error.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, codeInvalidCredentials
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, codeUserExists
	case errors.Is(err, domain.ErrPublicKeyTaken):
		return http.StatusConflict, codePublicKeyTaken
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, domain.ErrInvalidPayload):
		return http.StatusBadRequest, codeInvalidPayload
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// Compile-time assertions for the client-facing interfaces.
var (
	_ domain.AccountClient = (*HTTPClient)(nil)
	_ domain.Directory     = (*HTTPClient)(nil)
)
