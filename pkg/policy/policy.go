package policy

import (
	"errors"
	"fmt"
	"strings"
)

// Effect はステートメントの効果を表す。
type Effect string

const (
	// EffectAllow は一致したリクエストを許可する。
	EffectAllow Effect = "Allow"
	// EffectDeny は一致したリクエストを拒否する。Allowより優先される。
	EffectDeny Effect = "Deny"
)

// ActionInvoke は内部APIの呼び出しアクション。
const ActionInvoke = "execute-api:Invoke"

// resourcePrefix はリソースARNの固定部分。
const resourcePrefix = "arn:aws:execute-api"

// Document はポリシードキュメント。ステートメントは記述順に評価される。
type Document struct {
	// Version はドキュメント形式のバージョン。
	Version string `yaml:"version" json:"version"`
	// Statements は評価対象のステートメント。
	Statements []Statement `yaml:"statements" json:"statements"`
}

// Statement は1つの許可または拒否ルール。
type Statement struct {
	// Sid はステートメントの識別子。ログ出力にのみ使用する。
	Sid string `yaml:"sid,omitempty" json:"sid,omitempty"`
	// Effect は Allow または Deny。
	Effect Effect `yaml:"effect" json:"effect"`
	// Principal は呼び出し元のアカウントID。
	// "arn:aws:iam::<account>:root" 形式でも指定できる。
	Principal string `yaml:"principal" json:"principal"`
	// Actions は対象アクション。通常は execute-api:Invoke のみ。
	Actions []string `yaml:"actions" json:"actions"`
	// Resources はリソースARNのパターン。
	Resources []string `yaml:"resources" json:"resources"`
}

// Resource はリソースARNを分解したもの。
// 形式: arn:aws:execute-api:<region>:<account>:<apiId>/<stage>/<METHOD>/<path>
type Resource struct {
	// Region はAPIのリージョン。"*" は任意に一致する。
	Region string
	// Account はAPIを所有するアカウントID。"*" は任意に一致する。
	Account string
	// APIID はREST APIの識別子。"*" は任意に一致する。
	APIID string
	// Stage はデプロイステージ。"*" は任意に一致する。
	Stage string
	// Method はHTTPメソッド。"*" は任意に一致する。
	Method string
	// Path は先頭が "/" のパスパターン。
	Path string
}

// ParseResource はリソースARN文字列を分解する。
func ParseResource(arn string) (Resource, error) {
	parts := strings.SplitN(arn, ":", 6)
	if len(parts) != 6 || strings.Join(parts[:3], ":") != resourcePrefix {
		return Resource{}, fmt.Errorf("リソースARNの形式が不正です: %q", arn)
	}

	segments := strings.SplitN(parts[5], "/", 4)
	if len(segments) < 3 {
		return Resource{}, fmt.Errorf("リソースARNにAPI ID・ステージ・メソッドが必要です: %q", arn)
	}

	r := Resource{
		Region:  parts[3],
		Account: parts[4],
		APIID:   segments[0],
		Stage:   segments[1],
		Method:  segments[2],
		Path:    "/",
	}
	if len(segments) == 4 {
		r.Path = "/" + segments[3]
	}
	if r.APIID == "" || r.Stage == "" || r.Method == "" {
		return Resource{}, fmt.Errorf("リソースARNに空の要素があります: %q", arn)
	}
	return r, nil
}

// String はリソースをARN文字列に戻す。
func (r Resource) String() string {
	return fmt.Sprintf("%s:%s:%s:%s/%s/%s/%s",
		resourcePrefix, r.Region, r.Account, r.APIID, r.Stage, r.Method, strings.TrimPrefix(r.Path, "/"))
}

// Validate はドキュメントの構造を検証する。
// 末尾以外に置かれたワイルドカードセグメントや未知の効果を拒否する。
func (d Document) Validate() error {
	if len(d.Statements) == 0 {
		return errors.New("ステートメントが1つもありません")
	}
	for i, st := range d.Statements {
		if err := st.validate(); err != nil {
			return fmt.Errorf("ステートメント[%d] %s: %w", i, st.Sid, err)
		}
	}
	return nil
}

func (s Statement) validate() error {
	if s.Effect != EffectAllow && s.Effect != EffectDeny {
		return fmt.Errorf("未知の効果です: %q", s.Effect)
	}
	if normalizePrincipal(s.Principal) == "" {
		return errors.New("プリンシパルが指定されていません")
	}
	if len(s.Actions) == 0 {
		return errors.New("アクションが指定されていません")
	}
	if len(s.Resources) == 0 {
		return errors.New("リソースが指定されていません")
	}
	for _, raw := range s.Resources {
		r, err := ParseResource(raw)
		if err != nil {
			return err
		}
		segments := splitPath(r.Path)
		for i, seg := range segments {
			if seg == "*" && i != len(segments)-1 {
				return fmt.Errorf("ワイルドカードはパスの末尾にのみ置けます: %q", raw)
			}
		}
	}
	return nil
}

// normalizePrincipal は "arn:aws:iam::<account>:root" 形式をアカウントIDに揃える。
func normalizePrincipal(p string) string {
	p = strings.TrimSpace(p)
	if account, ok := strings.CutPrefix(p, "arn:aws:iam::"); ok {
		return strings.TrimSuffix(account, ":root")
	}
	return p
}
