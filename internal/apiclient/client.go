// Package apiclient はリモート商品APIへのHTTPクライアントを提供する。
// 認証ヘッダーの付与、エラーレスポンスの正規化、401検出時の
// セッション破棄の起動を一箇所で行う。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUnauthorized はリモートAPIが401を返したことを示すセンチネルエラー。
// 呼び出し元（ハンドラー）はこれを検出してログインページへ遷移させる。
var ErrUnauthorized = errors.New("unauthorized")

// accessHeaderName はアクセスレベルを伝えるリクエストヘッダー名。
const accessHeaderName = "X-Access-Token"

// Credentials はリクエストに付与する認証情報。
type Credentials struct {
	Token  string // Authorization: Bearer に載せる主トークン
	Access string // X-Access-Token に載せるアクセスレベル
}

// RequestError はリモートAPI呼び出しの失敗を表す。
// Messageは表示可能な正規化済みメッセージ、StatusはHTTPステータス
// （トランスポート失敗時は0）。
type RequestError struct {
	Message string
	Status  int
	Err     error
}

func (e *RequestError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("api request failed (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api request failed: %s", e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Invalidator は401検出時にセッションを破棄するインターフェース。
// auth.Service が実装する。
type Invalidator interface {
	Teardown(ctx context.Context, token string)
}

// MetricsRecorder はクライアントが記録するメトリクスのインターフェース。
// metrics.Collector の部分集合として定義する。
type MetricsRecorder interface {
	RecordUpstreamStatus(statusCode int)
	RecordUpstreamLatency(duration time.Duration)
	RecordUpstreamFailure()
}

// Client はリモート商品APIのクライアント。
type Client struct {
	baseURL     string
	httpClient  *http.Client
	logger      *slog.Logger
	metrics     MetricsRecorder
	invalidator Invalidator
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientにはSSRF対策済みのクライアントを注入する（テストでは素のClientで可）。
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger, metrics MetricsRecorder, invalidator Invalidator) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		httpClient:  httpClient,
		logger:      logger,
		metrics:     metrics,
		invalidator: invalidator,
	}
}

// SetInvalidator は401検出時に呼ぶInvalidatorを設定する。
// 認証サービスがこのクライアント自身に依存するため、生成後に注入する。
func (c *Client) SetInvalidator(inv Invalidator) {
	c.invalidator = inv
}

// upstreamError はリモートAPIのエラーレスポンスボディ。
type upstreamError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Do はリモートAPIへリクエストを送信し、成功時はoutへJSONデコードする。
// 認証情報が空でない場合のみ対応するヘッダーを付与する（重複付与しない）。
// 401を受け取った場合はInvalidatorでセッションを破棄し、ErrUnauthorizedを
// ラップしたRequestErrorを返す。
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any, out any, creds Credentials) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if creds.Token != "" {
		req.Header.Set("Authorization", "Bearer "+creds.Token)
	}
	if creds.Access != "" {
		req.Header.Set(accessHeaderName, creds.Access)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.metrics != nil {
		c.metrics.RecordUpstreamLatency(time.Since(start))
	}
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordUpstreamFailure()
		}
		c.logger.Error("upstream request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return &RequestError{
			Message: err.Error(),
			Status:  0,
			Err:     err,
		}
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordUpstreamStatus(resp.StatusCode)
	}

	// 401: セッションを破棄してセンチネルを返す
	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warn("upstream returned 401, tearing down session",
			slog.String("method", method),
			slog.String("path", path),
		)
		if c.invalidator != nil {
			c.invalidator.Teardown(ctx, creds.Token)
		}
		return &RequestError{
			Message: "認証が無効になりました。再度ログインしてください。",
			Status:  http.StatusUnauthorized,
			Err:     ErrUnauthorized,
		}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestError{
			Message: "レスポンスボディの読み取りに失敗しました",
			Status:  resp.StatusCode,
			Err:     err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RequestError{
			Message: normalizeErrorMessage(respBody, resp.StatusCode),
			Status:  resp.StatusCode,
		}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &RequestError{
				Message: "レスポンスJSONのパースに失敗しました",
				Status:  resp.StatusCode,
				Err:     err,
			}
		}
	}

	return nil
}

// Get はGETリクエストを送信する。
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any, creds Credentials) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out, creds)
}

// Post はPOSTリクエストを送信する。
func (c *Client) Post(ctx context.Context, path string, body any, out any, creds Credentials) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out, creds)
}

// Put はPUTリクエストを送信する。
func (c *Client) Put(ctx context.Context, path string, body any, out any, creds Credentials) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out, creds)
}

// Delete はDELETEリクエストを送信する。
func (c *Client) Delete(ctx context.Context, path string, out any, creds Credentials) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, out, creds)
}

// normalizeErrorMessage はエラーメッセージを正規化する。
// 優先順: サーバーレスポンスのmessage > error > ステータス別の既定メッセージ。
func normalizeErrorMessage(body []byte, statusCode int) string {
	var ue upstreamError
	if err := json.Unmarshal(body, &ue); err == nil {
		if ue.Message != "" {
			return ue.Message
		}
		if ue.Error != "" {
			return ue.Error
		}
	}

	switch {
	case statusCode == http.StatusNotFound:
		return "リソースが見つかりませんでした"
	case statusCode >= 500:
		return "リモートAPIでエラーが発生しました"
	default:
		return fmt.Sprintf("リモートAPIがステータス %d を返しました", statusCode)
	}
}
