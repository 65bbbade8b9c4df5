package signer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"

	"github.com/nao1215/tradegate/pkg/failure"
)

// Envelope は署名済みの送信リクエスト。送信ごとに生成し、永続化しない。
type Envelope struct {
	// Method はHTTPメソッド。
	Method string
	// URL は送信先URL。
	URL *url.URL
	// Host は署名に含めたホスト。
	Host string
	// Body はリクエストボディ。
	Body []byte
	// Header は署名ヘッダーを含む送信ヘッダー。
	Header http.Header
	// Timestamp は署名時刻。
	Timestamp time.Time
	// Scope は認証情報スコープ（日付/リージョン/サービス/aws4_request）。
	Scope string
}

// Request はエンベロープから送信用の *http.Request を生成する。
func (e *Envelope) Request(ctx context.Context) (*http.Request, error) {
	var body io.Reader = http.NoBody
	if len(e.Body) > 0 {
		body = bytes.NewReader(e.Body)
	}
	req, err := http.NewRequestWithContext(ctx, e.Method, e.URL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	req.Header = e.Header.Clone()
	req.Host = e.Host
	return req, nil
}

// Signer は送信リクエストに署名する。
// 状態は設定（リージョン・サービス・認証情報）のみで、複数の呼び出しで共有できる。
type Signer struct {
	// Region は認証情報スコープのリージョン。
	Region string
	// Service は認証情報スコープのサービス名。
	Service string
	// Credentials は署名に使う認証情報。
	Credentials Credentials
	// Now は現在時刻を返す。テストで差し替える。
	Now func() time.Time
}

// New は execute-api 向けのSignerを生成する。
func New(region string, creds Credentials) *Signer {
	return &Signer{
		Region:      region,
		Service:     DefaultService,
		Credentials: creds,
		Now:         time.Now,
	}
}

// Sign は送信リクエストの署名エンベロープを生成する。
//
// 認証情報が不足・不正な場合や宛先URLが不正な場合は failure.ErrSigning を
// ラップしたエラーを返し、エンベロープは生成しない。
// 同じ入力と同じ時刻に対しては常に同じ署名を返す。
func (s *Signer) Sign(method, rawURL string, body []byte, header http.Header) (*Envelope, error) {
	if err := s.Credentials.Validate(); err != nil {
		return nil, err
	}
	if s.Region == "" {
		return nil, fmt.Errorf("リージョンが設定されていません: %w", failure.ErrSigning)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("送信先URLが不正です: %v: %w", err, failure.ErrSigning)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("送信先URLにスキームとホストが必要です: %w", failure.ErrSigning)
	}

	service := s.Service
	if service == "" {
		service = DefaultService
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	ts := now().UTC()

	env := &Envelope{
		Method:    strings.ToUpper(method),
		URL:       u,
		Host:      u.Host,
		Body:      body,
		Header:    http.Header{},
		Timestamp: ts,
		Scope:     credentialScope(ts.Format(dateFormat), s.Region, service),
	}
	for k, vs := range header {
		for _, v := range vs {
			env.Header.Add(k, v)
		}
	}
	for _, k := range []string{HeaderAuthorization, HeaderDate, HeaderSecurityToken} {
		env.Header.Del(k)
	}
	payloadHash := hashHex(body)
	env.Header.Set(HeaderContentSHA256, payloadHash)

	// 署名対象はエンベロープから組み立てた送信リクエストそのもの。
	req, err := env.Request(context.Background())
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, failure.ErrSigning)
	}
	creds := aws.Credentials{
		AccessKeyID:     s.Credentials.AccessKeyID,
		SecretAccessKey: s.Credentials.SecretAccessKey,
		SessionToken:    s.Credentials.SessionToken,
	}
	if err := newSDKSigner().SignHTTP(req.Context(), creds, req, payloadHash, service, s.Region, ts); err != nil {
		return nil, fmt.Errorf("署名に失敗: %v: %w", err, failure.ErrSigning)
	}

	env.Header = req.Header
	env.Host = req.Host
	return env, nil
}

// newSDKSigner は内部APIのパスをそのまま正規化するSigV4署名器を生成する。
// 受信側の Verifier はエスケープ済みパスを一度だけ正規化するため、二重エスケープを無効にする。
func newSDKSigner() *v4.Signer {
	return v4.NewSigner(func(o *v4.SignerOptions) {
		o.DisableURIPathEscaping = true
	})
}
