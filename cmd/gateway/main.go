// 公開ゲートウェイのエントリポイント。
// 外部からアクセス可能な唯一のサービスであり、信頼境界の外側に立つ。
// 受け取ったリクエストに署名し、プライベートネットワーク内の内部サービスへ中継する。
package main

import (
	"log"

	"github.com/nao1215/tradegate/internal/gateway"
)

func main() {
	cfg := gateway.LoadConfig()

	server, err := gateway.NewServer(cfg)
	if err != nil {
		log.Fatalf("Gatewayサーバーの初期化に失敗: %v", err)
	}

	log.Printf("Gatewayサービスを起動します: :%s", cfg.Port)
	if err := server.Run(); err != nil {
		log.Fatalf("Gatewayサービスの起動に失敗: %v", err)
	}
}
