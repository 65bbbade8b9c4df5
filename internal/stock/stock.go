// Package stock は在庫ドメインの内部サービス定義を提供する。
package stock

import (
	"encoding/json"

	"github.com/nao1215/tradegate/internal/domain"
)

// Type は在庫エンティティの種別タグ。
const Type = "Stock"

// RetrievedStockItem は取得時に公開する在庫の射影。
// productId と quantity は作成時の値をそのまま返す。
type RetrievedStockItem struct {
	// ID は在庫の識別子。
	ID string `json:"id"`
	// Quantity は数量。
	Quantity json.RawMessage `json:"quantity"`
	// ProductID は商品ID。
	ProductID json.RawMessage `json:"productId"`
	// Created は作成日時。
	Created string `json:"created"`
	// Type は種別タグ。常に "Stock"。
	Type string `json:"type"`
}

// Kind は在庫ドメインの定義。
var Kind = domain.Kind{
	Type:       Type,
	BasePath:   "/stock",
	Required:   []string{"productId", "quantity"},
	Projection: func() any { return &RetrievedStockItem{} },
}

// Defaults は在庫サービスの既定設定。
var Defaults = domain.Config{
	Port:                "8081",
	Region:              "eu-west-1",
	Stage:               "prod",
	AccountID:           "11111111111",
	RestAPIID:           "0e1w4rds11",
	AllowedPrincipal:    "33333333333",
	TableName:           "Stock",
	DatabasePath:        "file:/data/stock.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
	PrivateNetworkCIDRs: "10.0.0.0/8,127.0.0.1/32",
}
