// Package netguard はプライベートネットワーク経路を提供する。
//
// 内部サービスは Listen で待ち受け、許可されたネットワーク外からの接続を
// リクエスト内容を読む前にトランスポート層で切断する。ゲートウェイは Dialer で
// 内部エンドポイントへ接続し、プライベートネットワーク外の宛先には接続しない。
// どちらも署名検証やポリシー評価とは独立した防御層である。
package netguard
