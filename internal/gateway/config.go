package gateway

import (
	"errors"
	"fmt"
	"os"

	"github.com/nao1215/tradegate/pkg/signer"
)

// Config は公開ゲートウェイの設定。
type Config struct {
	// Port は公開APIのリッスンポート。
	Port string
	// StockAPI は在庫サービスのベースURL（ステージとリソースパスを含む）。
	StockAPI string
	// OrdersAPI は注文サービスのベースURL（ステージとリソースパスを含む）。
	OrdersAPI string
	// Region は署名スコープのリージョン。
	Region string
	// Credentials はゲートウェイ自身の認証情報。
	Credentials signer.Credentials
	// PrivateNetworkCIDRs は中継先として許可するネットワーク範囲（カンマ区切り）。
	// 空の場合は中継先を制限しない。
	PrivateNetworkCIDRs string
	// FrontendURL はCORSで許可するオリジン。
	FrontendURL string
	// MetricsAddr はメトリクスを公開する管理用アドレス。空の場合は公開しない。
	MetricsAddr string
}

// LoadConfig は環境変数から設定を読み込む。
func LoadConfig() Config {
	return Config{
		Port:      getEnvOr("PORT", "8080"),
		StockAPI:  getEnvOr("STOCK_API", "http://localhost:8081/prod/stock"),
		OrdersAPI: getEnvOr("ORDERS_API", "http://localhost:8082/prod/orders"),
		Region:    getEnvOr("REGION", "eu-west-1"),
		Credentials: signer.Credentials{
			AccessKeyID:     os.Getenv("GATEWAY_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("GATEWAY_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("GATEWAY_SESSION_TOKEN"),
		},
		PrivateNetworkCIDRs: getEnvOr("PRIVATE_NETWORK_CIDRS", "10.0.0.0/8,127.0.0.1/32"),
		FrontendURL:         getEnvOr("FRONTEND_URL", "http://localhost:3000"),
		MetricsAddr:         os.Getenv("METRICS_ADDR"),
	}
}

// Validate は起動に必要な設定が揃っているかを検証する。
// 認証情報は検証しない。不足している場合は各リクエストの署名時に失敗する。
func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORTが未設定です"))
	}
	if c.StockAPI == "" {
		errs = append(errs, errors.New("STOCK_APIが未設定です"))
	}
	if c.OrdersAPI == "" {
		errs = append(errs, errors.New("ORDERS_APIが未設定です"))
	}
	if c.Region == "" {
		errs = append(errs, errors.New("REGIONが未設定です"))
	}
	if c.MetricsAddr != "" && c.MetricsAddr == ":"+c.Port {
		errs = append(errs, fmt.Errorf("METRICS_ADDRは公開ポートと別にする必要があります: %s", c.MetricsAddr))
	}
	return errors.Join(errs...)
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
