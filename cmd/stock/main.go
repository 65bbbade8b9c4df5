// 在庫サービスのエントリポイント。
// プライベートネットワーク内でのみ待ち受け、署名とリソースポリシーを通過した
// リクエストに対して在庫の作成と取得を行う。
package main

import (
	"context"
	"log"

	"github.com/nao1215/tradegate/internal/domain"
	"github.com/nao1215/tradegate/internal/stock"
)

func main() {
	cfg := domain.LoadConfig(stock.Defaults)

	server, err := domain.NewServer(context.Background(), cfg, stock.Kind)
	if err != nil {
		log.Fatalf("在庫サーバーの初期化に失敗: %v", err)
	}

	log.Printf("在庫サービスを起動します: :%s", cfg.Port)
	if err := server.Run(); err != nil {
		log.Fatalf("在庫サービスの起動に失敗: %v", err)
	}
}
