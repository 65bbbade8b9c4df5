// 注文サービスのエントリポイント。
// プライベートネットワーク内でのみ待ち受け、署名とリソースポリシーを通過した
// リクエストに対して注文の作成と取得を行う。
package main

import (
	"context"
	"log"

	"github.com/nao1215/tradegate/internal/domain"
	"github.com/nao1215/tradegate/internal/orders"
)

func main() {
	cfg := domain.LoadConfig(orders.Defaults)

	server, err := domain.NewServer(context.Background(), cfg, orders.Kind)
	if err != nil {
		log.Fatalf("注文サーバーの初期化に失敗: %v", err)
	}

	log.Printf("注文サービスを起動します: :%s", cfg.Port)
	if err := server.Run(); err != nil {
		log.Fatalf("注文サービスの起動に失敗: %v", err)
	}
}
