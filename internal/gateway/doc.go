// Package gateway は公開ゲートウェイの内部実装を提供する。
//
// 外部からアクセス可能な唯一のサービスであり、信頼境界の外側に立つ。
// 受け取ったリクエストを検証し、ゲートウェイ自身の認証情報で署名して
// プライベートネットワーク内の内部サービスへ中継する。
//
// 中継に失敗した場合、理由に関わらず呼び出し元には固定の500のみを返す。
// 失敗の詳細は相関IDとともにログとメトリクスにだけ残す。
package gateway
