package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nao1215/tradegate/pkg/signer"
)

// issuer はセッショントークンの発行者名。
const issuer = "tradegate-identity"

// minRootKeyLength はルート鍵の最小長。
const minRootKeyLength = 32

// accessKeyPrefix は発行するアクセスキーIDの接頭辞。
const accessKeyPrefix = "AKIA"

// SessionClaims はセッショントークンのクレーム。
type SessionClaims struct {
	jwt.RegisteredClaims
	// AccessKeyID はトークンに結び付いたアクセスキーID。
	AccessKeyID string `json:"akid"`
	// Principal は呼び出し元のアカウントID。
	Principal string `json:"principal"`
}

// Authority はルート鍵を持ち、認証情報の発行と解決を行う。
type Authority struct {
	// rootKey はセッショントークン署名とシークレット導出に使う鍵。
	rootKey []byte
	// now は現在時刻を返す。
	now func() time.Time
}

// New はルート鍵からAuthorityを生成する。
func New(rootKey string) (*Authority, error) {
	if len(rootKey) < minRootKeyLength {
		return nil, fmt.Errorf("ルート鍵は%d文字以上必要です", minRootKeyLength)
	}
	return &Authority{rootKey: []byte(rootKey), now: time.Now}, nil
}

// WithClock は時刻取得関数を差し替えたAuthorityを返す。
func (a *Authority) WithClock(now func() time.Time) *Authority {
	return &Authority{rootKey: a.rootKey, now: now}
}

// Issue はプリンシパル用の一時認証情報を発行する。
func (a *Authority) Issue(principal string, ttl time.Duration) (signer.Credentials, error) {
	if strings.TrimSpace(principal) == "" {
		return signer.Credentials{}, errors.New("プリンシパルが指定されていません")
	}
	if ttl <= 0 {
		return signer.Credentials{}, errors.New("有効期間は正の値である必要があります")
	}

	accessKeyID := accessKeyPrefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:16]
	now := a.now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   principal,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		AccessKeyID: accessKeyID,
		Principal:   principal,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.rootKey)
	if err != nil {
		return signer.Credentials{}, fmt.Errorf("セッショントークンの署名に失敗: %w", err)
	}

	return signer.Credentials{
		AccessKeyID:     accessKeyID,
		SecretAccessKey: a.deriveSecret(accessKeyID),
		SessionToken:    token,
	}, nil
}

// Resolve はセッショントークンを検証し、シークレットとプリンシパルを返す。
// signer.CredentialResolver を実装する。
func (a *Authority) Resolve(_ context.Context, accessKeyID, sessionToken string) (string, string, error) {
	if sessionToken == "" {
		return "", "", errors.New("セッショントークンがありません")
	}

	claims := &SessionClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	token, err := parser.ParseWithClaims(sessionToken, claims, func(_ *jwt.Token) (any, error) {
		return a.rootKey, nil
	})
	if err != nil || !token.Valid {
		return "", "", fmt.Errorf("セッショントークンが無効です: %w", err)
	}
	if claims.AccessKeyID != accessKeyID {
		return "", "", errors.New("セッショントークンとアクセスキーIDが一致しません")
	}
	if claims.Principal == "" {
		return "", "", errors.New("セッショントークンにプリンシパルがありません")
	}

	return a.deriveSecret(accessKeyID), claims.Principal, nil
}

// deriveSecret はアクセスキーIDに対応するシークレットをルート鍵から導出する。
func (a *Authority) deriveSecret(accessKeyID string) string {
	mac := hmac.New(sha256.New, a.rootKey)
	mac.Write([]byte("secret/" + accessKeyID))
	return base64.RawStdEncoding.EncodeToString(mac.Sum(nil))
}
