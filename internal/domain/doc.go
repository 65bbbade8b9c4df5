// Package domain は内部ドメインサービス（在庫・注文）に共通するサーバー実装を提供する。
//
// 内部サービスはプライベートネットワーク内でのみ待ち受け、署名検証とリソースポリシーを
// 通過したリクエストだけを処理する。エンティティの作成と識別子による取得のみを提供し、
// 更新と削除は行わない。
//
// ハンドラ内で発生したエラーはローカルで回復せず、middleware.Propagate で上位に伝播する。
// 呼び出し元に返るのはプラットフォーム既定のエラーレスポンスのみである。
package domain
