// Package signer は信頼境界をまたぐリクエストの署名と検証を提供する。
//
// ゲートウェイは Signer で送信リクエストごとに署名エンベロープを生成する。
// 署名は (メソッド, ホスト, パス, ボディのハッシュ, タイムスタンプ, 認証情報スコープ)
// の正規表現から、長期の秘密鍵ではなく日付・リージョン・サービスで導出した
// 鍵を用いて HMAC-SHA256 で計算する。計算は aws-sdk-go-v2 の Signature Version 4
// 署名器に任せる。
//
// SDKには検証APIがないため、内部サービスは Verifier で同じ正規化を再現して
// 署名を検証し、認証情報スコープから呼び出し元プリンシパルを確定する。タイムスタンプが有効期間（既定5分）を外れた
// エンベロープは期限切れとして拒否され、リプレイを防ぐ。
package signer
