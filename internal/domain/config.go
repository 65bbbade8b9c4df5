package domain

import (
	"errors"
	"fmt"
	"os"

	"github.com/nao1215/tradegate/pkg/middleware"
	"github.com/nao1215/tradegate/pkg/policy"
)

// Config は内部ドメインサービスの設定。
type Config struct {
	// Port はリッスンポート。
	Port string
	// Region はAPIのリージョン。署名スコープとポリシー評価に使う。
	Region string
	// Stage はデプロイステージ。ルートの先頭に付く。
	Stage string
	// AccountID はAPIを所有するアカウントID。
	AccountID string
	// RestAPIID はREST APIの識別子。
	RestAPIID string
	// AllowedPrincipal は呼び出しを許可するアカウントID。
	AllowedPrincipal string
	// TableName はドメインストアの論理テーブル名。
	TableName string
	// DatabasePath はSQLiteデータベースのパス。
	DatabasePath string
	// IdentityRootKey は呼び出し元の認証情報を検証するためのルートキー。
	IdentityRootKey string
	// PrivateNetworkCIDRs は接続を受け付けるネットワーク範囲（カンマ区切り）。
	PrivateNetworkCIDRs string
	// PolicyFile はリソースポリシーのYAMLファイル。空の場合は既定ポリシーを使う。
	PolicyFile string
}

// LoadConfig は環境変数から設定を読み込む。未設定の項目はdefaultsの値を使う。
func LoadConfig(defaults Config) Config {
	return Config{
		Port:                getEnvOr("PORT", defaults.Port),
		Region:              getEnvOr("REGION", defaults.Region),
		Stage:               getEnvOr("STAGE", defaults.Stage),
		AccountID:           getEnvOr("ACCOUNT_ID", defaults.AccountID),
		RestAPIID:           getEnvOr("REST_API_ID", defaults.RestAPIID),
		AllowedPrincipal:    getEnvOr("ALLOWED_PRINCIPAL", defaults.AllowedPrincipal),
		TableName:           getEnvOr("TABLE_NAME", defaults.TableName),
		DatabasePath:        getEnvOr("DATABASE_PATH", defaults.DatabasePath),
		IdentityRootKey:     getEnvOr("IDENTITY_ROOT_KEY", defaults.IdentityRootKey),
		PrivateNetworkCIDRs: getEnvOr("PRIVATE_NETWORK_CIDRS", defaults.PrivateNetworkCIDRs),
		PolicyFile:          getEnvOr("POLICY_FILE", defaults.PolicyFile),
	}
}

// Validate は起動に必要な設定が揃っているかを検証する。
func (c Config) Validate() error {
	var errs []error
	for name, v := range map[string]string{
		"PORT":                  c.Port,
		"REGION":                c.Region,
		"STAGE":                 c.Stage,
		"TABLE_NAME":            c.TableName,
		"IDENTITY_ROOT_KEY":     c.IdentityRootKey,
		"PRIVATE_NETWORK_CIDRS": c.PrivateNetworkCIDRs,
	} {
		if v == "" {
			errs = append(errs, fmt.Errorf("%sが未設定です", name))
		}
	}
	if c.PolicyFile == "" && (c.AccountID == "" || c.RestAPIID == "" || c.AllowedPrincipal == "") {
		errs = append(errs, errors.New("POLICY_FILEを指定しない場合はACCOUNT_ID、REST_API_ID、ALLOWED_PRINCIPALが必要です"))
	}
	return errors.Join(errs...)
}

// Scope はリソースポリシー評価に使うAPIの所在を返す。
func (c Config) Scope() middleware.Scope {
	return middleware.Scope{
		Region:  c.Region,
		Account: c.AccountID,
		APIID:   c.RestAPIID,
		Stage:   c.Stage,
	}
}

// Policy はリソースポリシーを返す。PolicyFileが指定されていればそれを読み込み、
// なければbasePathに対する既定ポリシーを生成する。
func (c Config) Policy(basePath string) (policy.Document, error) {
	if c.PolicyFile != "" {
		doc, err := policy.Load(c.PolicyFile)
		if err != nil {
			return policy.Document{}, fmt.Errorf("リソースポリシーの読み込みに失敗: %w", err)
		}
		return doc, nil
	}
	return policy.Default(policy.Grant{
		Region:    c.Region,
		Account:   c.AccountID,
		APIID:     c.RestAPIID,
		Stage:     c.Stage,
		BasePath:  basePath,
		Principal: c.AllowedPrincipal,
	}), nil
}

// getEnvOr は環境変数を取得し、未設定の場合はデフォルト値を返す。
func getEnvOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
