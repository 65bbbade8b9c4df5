// Package identity は内部APIの呼び出し元認証情報の発行と解決を提供する。
//
// 発行される認証情報は、アクセスキーID、ルート鍵から導出したシークレット
// アクセスキー、アクセスキーIDとプリンシパルを結び付けたJWTセッショントークンの
// 3つ組である。内部サービスはルート鍵だけを持ち、セッショントークンを検証して
// プリンシパルを確定し、シークレットを再導出して署名を検証する。
package identity
