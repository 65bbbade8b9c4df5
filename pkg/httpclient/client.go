package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nao1215/tradegate/pkg/failure"
	"github.com/nao1215/tradegate/pkg/netguard"
	"github.com/nao1215/tradegate/pkg/signer"
)

const (
	// DefaultTimeout は1回のリレー通信のタイムアウト。
	DefaultTimeout = 30 * time.Second
	// maxResponseBytes は読み込むレスポンスボディの上限。
	maxResponseBytes = 1 << 20
	// HeaderConsumerID は呼び出し元を示すヘッダー。認可には使用しない。
	HeaderConsumerID = "X-Consumer-ID"
	// ConsumerExternalAPI は公開ゲートウェイからの呼び出しを示す値。
	ConsumerExternalAPI = "external-rest-api"
)

// Response は内部サービスからのレスポンス。
type Response struct {
	// StatusCode はHTTPステータスコード。
	StatusCode int
	// Header はレスポンスヘッダー。
	Header http.Header
	// Body はレスポンスボディ。
	Body []byte
}

// StatusError は内部サービスが2xx以外を返したことを表す。
// errors.Is で failure.ErrUpstreamStatus と一致する。
type StatusError struct {
	// StatusCode はHTTPステータスコード。
	StatusCode int
	// Body はレスポンスボディ。
	Body []byte
}

// Error はエラーメッセージを返す。
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTPエラー: status=%d, body=%s", e.StatusCode, string(e.Body))
}

// Is は failure.ErrUpstreamStatus との比較を可能にする。
func (e *StatusError) Is(target error) bool {
	return target == failure.ErrUpstreamStatus
}

// Client は署名済みエンベロープを内部サービスへ送信するHTTPクライアント。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
}

// New は新しいリレー用HTTPクライアントを生成する。
// dialerを指定すると、その許可範囲内の宛先にのみ接続する。nilの場合は制限しない。
func New(dialer *netguard.Dialer) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if dialer != nil {
		transport.DialContext = dialer.DialContext
		// プロキシ経由では宛先の制限が効かないため使用しない
		transport.Proxy = nil
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: transport,
		},
	}
}

// Send は署名済みエンベロープを送信し、2xxのレスポンスを返す。
//
// ネットワーク層の失敗は failure.ErrTransport を、2xx以外のステータスは
// *StatusError（failure.ErrUpstreamStatus）を返す。
func (c *Client) Send(ctx context.Context, env *signer.Envelope) (*Response, error) {
	req, err := env.Request(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", failure.ErrTransport, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの送信に失敗: %w: %w", failure.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み込みに失敗: %w: %w", failure.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: body}
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// contextKey はコンテキストキーの型。
type contextKey string

// contextKeyConsumerID はコンテキストに呼び出し元IDを格納するためのキー。
const contextKeyConsumerID contextKey = "consumer_id"

// WithConsumerID はコンテキストに呼び出し元IDを設定する。
func WithConsumerID(ctx context.Context, consumerID string) context.Context {
	return context.WithValue(ctx, contextKeyConsumerID, consumerID)
}

// ConsumerHeader は署名前の送信ヘッダーを生成する。
// コンテキストに呼び出し元IDがあれば X-Consumer-ID として設定する。
func ConsumerHeader(ctx context.Context) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	if consumerID, ok := ctx.Value(contextKeyConsumerID).(string); ok && consumerID != "" {
		h.Set(HeaderConsumerID, consumerID)
	}
	return h
}
