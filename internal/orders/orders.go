// Package orders は注文ドメインの内部サービス定義を提供する。
package orders

import (
	"encoding/json"

	"github.com/nao1215/tradegate/internal/domain"
)

// Type は注文エンティティの種別タグ。
const Type = "Orders"

// RetrievedOrder は取得時に公開する注文の射影。
// quantity・productId・storeId は作成時の値をそのまま返す。
type RetrievedOrder struct {
	// ID は注文の識別子。
	ID string `json:"id"`
	// Quantity は数量。
	Quantity json.RawMessage `json:"quantity"`
	// ProductID は商品ID。
	ProductID json.RawMessage `json:"productId"`
	// StoreID は店舗ID。
	StoreID json.RawMessage `json:"storeId"`
	// Created は作成日時。
	Created string `json:"created"`
	// Type は種別タグ。常に "Orders"。
	Type string `json:"type"`
}

// Kind は注文ドメインの定義。
var Kind = domain.Kind{
	Type:       Type,
	BasePath:   "/orders",
	Required:   []string{"productId", "quantity", "storeId"},
	Projection: func() any { return &RetrievedOrder{} },
}

// Defaults は注文サービスの既定設定。
var Defaults = domain.Config{
	Port:                "8082",
	Region:              "eu-west-1",
	Stage:               "prod",
	AccountID:           "22222222222",
	RestAPIID:           "8vkm34k946",
	AllowedPrincipal:    "33333333333",
	TableName:           "Orders",
	DatabasePath:        "file:/data/orders.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
	PrivateNetworkCIDRs: "10.0.0.0/8,127.0.0.1/32",
}
