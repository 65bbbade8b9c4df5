// Package policy は内部サービスのリソースポリシー評価を提供する。
//
// ポリシードキュメントは順序付きのステートメント集合で、呼び出し元プリンシパル、
// アクション、リソース（API ID・ステージ・メソッド・パス）の組に対して評価される。
// 評価は純粋関数 Evaluate で行い、HTTPライブラリには依存しない。
//
// 評価規則:
//   - どのステートメントにも一致しなければ拒否（デフォルト拒否）
//   - 一致した Deny ステートメントは一致した Allow より優先される
//   - パスパターン末尾の "*" は空でない1セグメントにのみ一致する
package policy
