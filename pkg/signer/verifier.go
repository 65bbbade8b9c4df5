package signer

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/tradegate/pkg/failure"
)

// DefaultWindow は署名エンベロープの有効期間。
const DefaultWindow = 5 * time.Minute

// Identity は署名検証で確定した呼び出し元。
type Identity struct {
	// AccessKeyID は署名に使われたアクセスキーID。
	AccessKeyID string
	// Principal は呼び出し元のアカウントID。
	Principal string
}

// CredentialResolver はアクセスキーIDから秘密鍵とプリンシパルを解決する。
type CredentialResolver interface {
	// Resolve はアクセスキーIDとセッショントークンに対応する秘密鍵とプリンシパルを返す。
	Resolve(ctx context.Context, accessKeyID, sessionToken string) (secret, principal string, err error)
}

// StaticCredential は StaticResolver に登録する認証情報。
type StaticCredential struct {
	// SecretAccessKey は秘密鍵。
	SecretAccessKey string
	// Principal は対応するアカウントID。
	Principal string
}

// StaticResolver はアクセスキーIDをキーとする固定の認証情報表。
type StaticResolver map[string]StaticCredential

// Resolve は登録済みの認証情報を返す。
func (r StaticResolver) Resolve(_ context.Context, accessKeyID, _ string) (string, string, error) {
	c, ok := r[accessKeyID]
	if !ok {
		return "", "", errors.New("未登録のアクセスキーです")
	}
	return c.SecretAccessKey, c.Principal, nil
}

// Verifier は内部サービスへの受信リクエストの署名を検証する。
type Verifier struct {
	// Region は受け付ける認証情報スコープのリージョン。
	Region string
	// Service は受け付ける認証情報スコープのサービス名。
	Service string
	// Resolver はアクセスキーIDを解決する。
	Resolver CredentialResolver
	// Window は署名タイムスタンプの許容幅。ゼロなら DefaultWindow。
	Window time.Duration
	// Now は現在時刻を返す。テストで差し替える。
	Now func() time.Time
}

// NewVerifier は execute-api 向けのVerifierを生成する。
func NewVerifier(region string, resolver CredentialResolver) *Verifier {
	return &Verifier{
		Region:   region,
		Service:  DefaultService,
		Resolver: resolver,
		Window:   DefaultWindow,
		Now:      time.Now,
	}
}

// authorization はAuthorizationヘッダーを分解したもの。
type authorization struct {
	accessKeyID   string
	date          string
	region        string
	service       string
	signedHeaders []string
	signature     string
}

// Verify はリクエストとボディの署名を検証し、呼び出し元を返す。
//
// 期限切れの場合は failure.ErrExpired、それ以外の検証失敗は
// failure.ErrAuthorization をラップしたエラーを返す。
func (v *Verifier) Verify(ctx context.Context, r *http.Request, body []byte) (Identity, error) {
	auth, err := parseAuthorization(r.Header.Get(HeaderAuthorization))
	if err != nil {
		return Identity{}, fmt.Errorf("%v: %w", err, failure.ErrAuthorization)
	}

	service := v.Service
	if service == "" {
		service = DefaultService
	}
	if auth.region != v.Region || auth.service != service {
		return Identity{}, fmt.Errorf("認証情報スコープが一致しません: %w", failure.ErrAuthorization)
	}
	for _, required := range []string{"host", "x-amz-date", "x-amz-content-sha256"} {
		if !slices.Contains(auth.signedHeaders, required) {
			return Identity{}, fmt.Errorf("%sが署名されていません: %w", required, failure.ErrAuthorization)
		}
	}

	if r.Header.Get(HeaderSecurityToken) != "" && !slices.Contains(auth.signedHeaders, "x-amz-security-token") {
		return Identity{}, fmt.Errorf("セッショントークンが署名されていません: %w", failure.ErrAuthorization)
	}

	amzDate := r.Header.Get(HeaderDate)
	ts, err := time.Parse(timeFormat, amzDate)
	if err != nil {
		return Identity{}, fmt.Errorf("署名タイムスタンプが不正です: %w", failure.ErrAuthorization)
	}
	if ts.Format(dateFormat) != auth.date {
		return Identity{}, fmt.Errorf("署名タイムスタンプとスコープの日付が一致しません: %w", failure.ErrAuthorization)
	}
	if err := v.checkWindow(ts); err != nil {
		return Identity{}, err
	}

	payloadHash := hashHex(body)
	if subtle.ConstantTimeCompare([]byte(payloadHash), []byte(r.Header.Get(HeaderContentSHA256))) != 1 {
		return Identity{}, fmt.Errorf("ボディのハッシュが一致しません: %w", failure.ErrAuthorization)
	}

	if v.Resolver == nil {
		return Identity{}, fmt.Errorf("認証情報リゾルバが設定されていません: %w", failure.ErrAuthorization)
	}
	secret, principal, err := v.Resolver.Resolve(ctx, auth.accessKeyID, r.Header.Get(HeaderSecurityToken))
	if err != nil {
		return Identity{}, fmt.Errorf("認証情報の解決に失敗: %v: %w", err, failure.ErrAuthorization)
	}

	canonical := canonicalRequest(r.Method, r.URL.EscapedPath(), r.URL.RawQuery, auth.signedHeaders, func(name string) []string {
		switch name {
		case "host":
			return []string{r.Host}
		case "content-length":
			return []string{strconv.FormatInt(r.ContentLength, 10)}
		}
		return r.Header.Values(name)
	}, payloadHash)
	scope := credentialScope(auth.date, auth.region, auth.service)
	expected := signature(secret, auth.date, auth.region, auth.service, stringToSign(amzDate, scope, canonical))

	if subtle.ConstantTimeCompare([]byte(expected), []byte(auth.signature)) != 1 {
		return Identity{}, fmt.Errorf("署名が一致しません: %w", failure.ErrAuthorization)
	}

	return Identity{AccessKeyID: auth.accessKeyID, Principal: principal}, nil
}

// checkWindow はタイムスタンプが有効期間内かを判定する。
func (v *Verifier) checkWindow(ts time.Time) error {
	window := v.Window
	if window <= 0 {
		window = DefaultWindow
	}
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	skew := now().Sub(ts)
	if skew > window || skew < -window {
		return fmt.Errorf("署名時刻 %s が有効期間外です: %w", ts.Format(time.RFC3339), failure.ErrExpired)
	}
	return nil
}

// parseAuthorization はAuthorizationヘッダーを分解する。
// 形式: AWS4-HMAC-SHA256 Credential=<id>/<date>/<region>/<service>/aws4_request, SignedHeaders=<a;b>, Signature=<hex>
func parseAuthorization(header string) (authorization, error) {
	rest, ok := strings.CutPrefix(header, Algorithm+" ")
	if !ok {
		return authorization{}, errors.New("署名アルゴリズムが不正です")
	}

	fields := map[string]string{}
	for _, part := range strings.Split(rest, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return authorization{}, errors.New("Authorizationヘッダーの形式が不正です")
		}
		fields[k] = v
	}

	credential := strings.Split(fields["Credential"], "/")
	if len(credential) != 5 || credential[4] != scopeTerminator || credential[0] == "" {
		return authorization{}, errors.New("認証情報スコープの形式が不正です")
	}
	if fields["SignedHeaders"] == "" || fields["Signature"] == "" {
		return authorization{}, errors.New("署名ヘッダーまたは署名がありません")
	}

	signed := strings.Split(fields["SignedHeaders"], ";")
	if !slices.IsSorted(signed) {
		return authorization{}, errors.New("署名ヘッダーの並びが不正です")
	}

	return authorization{
		accessKeyID:   credential[0],
		date:          credential[1],
		region:        credential[2],
		service:       credential[3],
		signedHeaders: signed,
		signature:     fields["Signature"],
	}, nil
}
