// Package store はドメインエンティティを保存するキーバリューストアを提供する。
//
// SQLite上の1つのitemsテーブルを論理テーブル名（TABLE_NAME）で区切って使用する。
// エンティティはJSONとして保存し、識別子で1件ずつ取得する。
// 保存はINSERTのみで、同じ識別子への上書きは行わない。
package store
