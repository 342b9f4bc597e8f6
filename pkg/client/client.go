// Package client はTodo APIの認証付きフェッチヘルパーです。
// 保護されたエンドポイントへのリクエストにはセッションのBearerトークンを付け、
// 2xx以外のレスポンスは *APIError に変換します。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrNotAuthenticated はセッションのトークンが無いとき、通信の前に返されます。
var ErrNotAuthenticated = errors.New("not authenticated")

// TokenSource は現在のセッションのBearerトークンを返します。
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken は常に同じトークンを返す TokenSource です。
type StaticToken string

// Token は TokenSource を実装します。
func (s StaticToken) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNotAuthenticated
	}
	return string(s), nil
}

// APIError はサーバーからの2xx以外のレスポンスです。
type APIError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, e.Message)
}

// IsStatus は err が指定したステータスコードの *APIError かどうかを返します。
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Client はTodo APIサーバーと通信します。
type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
}

// Option は Client の設定です。
type Option func(*Client)

// WithHTTPClient は内部の http.Client を差し替えます。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New は baseURL 向けの Client を作成します。匿名で使う場合 tokens は nil で構いません。
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL は末尾のスラッシュを除いたサーバーURLを返します。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Fetch は認証付きリクエストを送り、レスポンスボディをそのまま返します。
// ヘッダーの優先順位は 既定値 < headers < Authorization です。
// 204 の場合はボディを読まずに nil を返します。
func (c *Client) Fetch(ctx context.Context, method, path string, body interface{}, headers http.Header) ([]byte, error) {
	if c.tokens == nil {
		return nil, ErrNotAuthenticated
	}
	token, err := c.tokens.Token(ctx)
	if err != nil || token == "" {
		if err != nil && !errors.Is(err, ErrNotAuthenticated) {
			return nil, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
		}
		return nil, ErrNotAuthenticated
	}
	return c.do(ctx, method, path, body, headers, token)
}

// fetchJSON は Fetch の後、ボディがあれば out にデコードします。
func (c *Client) fetchJSON(ctx context.Context, method, path string, body, out interface{}) error {
	data, err := c.Fetch(ctx, method, path, body, nil)
	if err != nil {
		return err
	}
	return decode(data, out)
}

// anonymousJSON はトークン無しでリクエストを送ります。
func (c *Client) anonymousJSON(ctx context.Context, method, path string, body, out interface{}) error {
	data, err := c.do(ctx, method, path, body, nil, "")
	if err != nil {
		return err
	}
	return decode(data, out)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, headers http.Header, token string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range headers {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp, data)
	}
	return data, nil
}

func newAPIError(resp *http.Response, data []byte) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		apiErr.Details = payload.Details
		return apiErr
	}
	apiErr.Message = http.StatusText(resp.StatusCode)
	if apiErr.Message == "" {
		apiErr.Message = resp.Status
	}
	return apiErr
}

func decode(data []byte, out interface{}) error {
	if out == nil || data == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
