package signer

import (
	"fmt"
	"regexp"

	"github.com/nao1215/tradegate/pkg/failure"
)

// accessKeyPattern はアクセスキーIDの形式。
var accessKeyPattern = regexp.MustCompile(`^[A-Z0-9]{16,128}$`)

// minSecretLength はシークレットアクセスキーの最小長。
const minSecretLength = 16

// Credentials は呼び出し元の長期認証情報。
type Credentials struct {
	// AccessKeyID は認証情報スコープに含まれる公開識別子。
	AccessKeyID string
	// SecretAccessKey は署名鍵の導出に使う秘密鍵。送信されることはない。
	SecretAccessKey string
	// SessionToken は一時認証情報のセッショントークン。任意。
	SessionToken string
}

// Validate は認証情報が署名に使える形式かを検証する。
// 不足または不正な場合は failure.ErrSigning をラップして返す。
func (c Credentials) Validate() error {
	if c.AccessKeyID == "" || c.SecretAccessKey == "" {
		return fmt.Errorf("認証情報が設定されていません: %w", failure.ErrSigning)
	}
	if !accessKeyPattern.MatchString(c.AccessKeyID) {
		return fmt.Errorf("アクセスキーIDの形式が不正です: %w", failure.ErrSigning)
	}
	if len(c.SecretAccessKey) < minSecretLength {
		return fmt.Errorf("シークレットアクセスキーが短すぎます: %w", failure.ErrSigning)
	}
	return nil
}
