// Package failure は信頼境界をまたぐリレー処理で発生するエラーの分類を提供する。
//
// 各コンポーネントは fmt.Errorf の %w でこれらの番兵エラーをラップして返し、
// 呼び出し側は errors.Is で分類する。外部の呼び出し元に詳細を返すかどうかは
// 境界側のエラー処理戦略（middleware.Mask / middleware.Propagate）が決める。
package failure

import "errors"

var (
	// ErrValidation は必須フィールドやパスパラメータが欠けていることを表す。
	ErrValidation = errors.New("入力検証エラー")
	// ErrNotFound は指定された識別子のエンティティが存在しないことを表す。
	ErrNotFound = errors.New("エンティティが見つかりません")
	// ErrSigning は署名時に認証情報が存在しないか不正であることを表す。
	// 署名に失敗したリクエストは送信されない。
	ErrSigning = errors.New("リクエスト署名エラー")
	// ErrExpired は署名エンベロープが有効期間外であることを表す。
	ErrExpired = errors.New("署名の有効期限切れ")
	// ErrAuthorization は署名検証またはリソースポリシー評価で拒否されたことを表す。
	ErrAuthorization = errors.New("認可エラー")
	// ErrTransport はネットワーク層での送信失敗を表す。
	ErrTransport = errors.New("通信エラー")
	// ErrUpstreamStatus は内部サービスが2xx以外のステータスを返したことを表す。
	ErrUpstreamStatus = errors.New("内部サービスがエラーを返しました")
)

// Kind はエラーの分類名を返す。ログやメトリクスのラベルに使用する。
// 分類できないエラーは "internal" を返す。
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrSigning):
		return "signing"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrAuthorization):
		return "authorization"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrUpstreamStatus):
		return "upstream_status"
	default:
		return "internal"
	}
}
