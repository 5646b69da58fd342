// Package rest is the authenticated transport every backend call goes through.
// It attaches the stored bearer token and silently refreshes it on 401.
package rest

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/4406arthur/copilot/domain"
	"github.com/4406arthur/copilot/session"
	"github.com/gojektech/heimdall/v6"
	"github.com/gojektech/heimdall/v6/httpclient"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/pquerna/ffjson/ffjson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultRefreshPath is the token refresh endpoint.
const DefaultRefreshPath = "/refresh-token"

var (
	tokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "copilot_token_refresh_total",
		Help: "Token refresh attempts by result",
	}, []string{"result"})
)

//Options tune the heimdall transport underneath the client
type Options struct {
	Timeout        time.Duration
	RetryCount     int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// NewHTTPClient builds a heimdall client that retries network errors and 5xx
// replies up to opts.RetryCount times with exponential backoff. A zero
// RetryCount sends every request exactly once.
func NewHTTPClient(opts Options) *httpclient.Client {
	if opts.RetryCount <= 0 {
		return httpclient.NewClient(httpclient.WithHTTPTimeout(opts.Timeout))
	}
	jitter := opts.BackoffInitial / 2
	if jitter < time.Millisecond {
		jitter = time.Millisecond
	}
	backoff := heimdall.NewExponentialBackoff(opts.BackoffInitial, opts.BackoffMax, 2.0, jitter)
	return httpclient.NewClient(
		httpclient.WithHTTPTimeout(opts.Timeout),
		httpclient.WithRetryCount(opts.RetryCount),
		httpclient.WithRetrier(heimdall.NewRetrier(backoff)),
	)
}

//Request is a replayable outbound call
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        []byte
	ContentType string
	Header      http.Header
	// Idempotent requests may be resent on network errors and 5xx replies.
	// Everything else goes out once.
	Idempotent bool

	// noRefresh marks the refresh call itself, which must never recurse.
	noRefresh bool
}

// NewJSONRequest encodes v as the request body. A nil v sends no body.
func NewJSONRequest(method, path string, v interface{}) (*Request, error) {
	r := &Request{Method: method, Path: path}
	if v == nil {
		return r, nil
	}
	body, err := ffjson.Marshal(v)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s %s", method, path)
	}
	r.Body = body
	r.ContentType = "application/json"
	return r, nil
}

type refreshResult struct {
	token string
	err   error
}

//Client attaches credentials to outbound calls and refreshes them on 401
type Client struct {
	doer        heimdall.Doer
	reads       heimdall.Doer
	baseURL     string
	refreshPath string
	session     *session.Session
	logger      *slog.Logger

	// OnSessionExpired runs after a failed refresh has wiped the session,
	// in place of sending the user back to the login screen.
	OnSessionExpired func()

	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshResult
}

// NewClient sends every request once through doer until SetIdempotentDoer
// installs a retrying doer for idempotent requests.
func NewClient(doer heimdall.Doer, baseURL string, sess *session.Session, logger *slog.Logger) *Client {
	return &Client{
		doer:        doer,
		reads:       doer,
		baseURL:     strings.TrimRight(baseURL, "/"),
		refreshPath: DefaultRefreshPath,
		session:     sess,
		logger:      logger,
	}
}

// SetRefreshPath overrides the refresh endpoint.
func (c *Client) SetRefreshPath(path string) {
	c.refreshPath = path
}

// SetIdempotentDoer routes requests marked Idempotent through d.
func (c *Client) SetIdempotentDoer(d heimdall.Doer) {
	c.reads = d
}

// Session returns the session the client reads credentials from.
func (c *Client) Session() *session.Session {
	return c.session
}

// Do sends r with the stored bearer token. A 401 triggers one token refresh
// shared by every caller that hit 401 meanwhile; r is then replayed once
// with the new token. Other statuses and network errors come back untouched.
func (c *Client) Do(ctx context.Context, r *Request) (*http.Response, error) {
	token, err := c.session.AccessToken(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "read access token")
	}

	resp, err := c.send(ctx, r, token)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || r.noRefresh {
		return resp, err
	}
	drain(resp)

	fresh, err := c.awaitToken(ctx, token)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("replaying request with refreshed token", "method", r.Method, "path", r.Path)
	return c.send(ctx, r, fresh)
}

// DoJSON sends r and decodes a successful JSON reply into out.
func (c *Client) DoJSON(ctx context.Context, r *Request, out interface{}) error {
	resp, err := c.Do(ctx, r)
	if err != nil {
		return err
	}
	return Decode(resp, out)
}

// awaitToken returns a token to replay with after stale was rejected.
func (c *Client) awaitToken(ctx context.Context, stale string) (string, error) {
	c.mu.Lock()
	if c.refreshing {
		wait := make(chan refreshResult, 1)
		c.waiters = append(c.waiters, wait)
		c.mu.Unlock()
		select {
		case res := <-wait:
			return res.token, res.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	// Another caller may have finished a refresh after our request left.
	current, err := c.session.AccessToken(ctx)
	if err == nil && current != "" && current != stale {
		c.mu.Unlock()
		return current, nil
	}
	c.refreshing = true
	c.mu.Unlock()

	token, err := c.refresh(context.WithoutCancel(ctx))

	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.refreshing = false
	c.mu.Unlock()

	for _, w := range waiters {
		w <- refreshResult{token: token, err: err}
	}
	return token, err
}

func (c *Client) refresh(ctx context.Context) (string, error) {
	refreshToken, err := c.session.RefreshToken(ctx)
	if err != nil {
		return "", c.expire(ctx, errors.Wrap(err, "read refresh token"))
	}
	if refreshToken == "" {
		return "", c.expire(ctx, errors.New("no refresh token stored"))
	}

	r, err := NewJSONRequest(http.MethodPost, c.refreshPath, map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return "", c.expire(ctx, err)
	}
	r.noRefresh = true

	resp, err := c.send(ctx, r, "")
	if err != nil {
		return "", c.expire(ctx, err)
	}
	var pair domain.TokenPair
	if err := Decode(resp, &pair); err != nil {
		return "", c.expire(ctx, err)
	}
	if pair.AccessToken == "" {
		return "", c.expire(ctx, errors.New("refresh reply carried no access token"))
	}
	if err := c.session.SetTokens(ctx, pair); err != nil {
		return "", c.expire(ctx, err)
	}

	tokenRefreshes.WithLabelValues("success").Inc()
	c.logger.Info("access token refreshed")
	return pair.AccessToken, nil
}

// expire wipes the session and reports ErrSessionExpired.
func (c *Client) expire(ctx context.Context, cause error) error {
	tokenRefreshes.WithLabelValues("failure").Inc()
	c.logger.Warn("token refresh failed, clearing session", "error", cause)
	if err := c.session.Clear(ctx); err != nil {
		c.logger.Error("failed to clear session", "error", err)
	}
	if c.OnSessionExpired != nil {
		c.OnSessionExpired()
	}
	return domain.ErrSessionExpired
}

func (c *Client) send(ctx context.Context, r *Request, token string) (*http.Response, error) {
	u := c.baseURL + r.Path
	if len(r.Query) > 0 {
		u += "?" + r.Query.Encode()
	}
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, u, body)
	if err != nil {
		return nil, errors.Wrapf(err, "build %s %s", r.Method, r.Path)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if r.Idempotent {
		return c.reads.Do(req)
	}
	return c.doer.Do(req)
}

// Decode closes resp and turns a status >= 400 into *domain.APIError.
// A nil out discards the body.
func Decode(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response body")
	}
	if resp.StatusCode >= 400 {
		return &domain.APIError{
			StatusCode: resp.StatusCode,
			Message:    NormalizeError(body, StatusFallback(resp.StatusCode)),
		}
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := ffjson.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "decode response body")
	}
	return nil
}

func drain(resp *http.Response) {
	io.Copy(ioutil.Discard, resp.Body)
	resp.Body.Close()
}
