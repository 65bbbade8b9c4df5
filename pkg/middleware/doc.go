// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// パニックリカバリ、CORS設定、相関IDの付与、署名検証とリソースポリシーによる認可、
// および2つのエラー処理戦略を含む。
//
//   - Mask: 公開境界で使用する。どのエラーも固定の500レスポンスに置き換え、詳細は外に出さない。
//   - Propagate: 内部サービスで使用する。エラーをコンテキストに記録して上位に任せ、
//     PlatformErrors がエンジン単位の既定レスポンスに変換する。
package middleware
