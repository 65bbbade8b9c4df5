// Package httpclient は公開ゲートウェイから内部サービスへのリレー通信を行うクライアントを提供する。
//
// 送信するのは signer が生成した署名済みエンベロープのみで、クライアント自身は
// リクエストを組み立て直さない。リトライは行わず、1回の呼び出しで1回だけ送信する。
// 送信先はプライベートネットワーク内に限定でき、範囲外の宛先には接続しない。
package httpclient
