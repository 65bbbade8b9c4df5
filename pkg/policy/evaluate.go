package policy

import "strings"

// Decision は評価結果。
type Decision int

const (
	// Deny はリクエストを拒否する。
	Deny Decision = iota
	// Allow はリクエストを許可する。
	Allow
)

// String は "allow" または "deny" を返す。
func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Reason は拒否理由。ログ出力専用で、呼び出し元には返さない。
type Reason int

const (
	// ReasonNone は許可された場合の理由。
	ReasonNone Reason = iota
	// ReasonNoMatch はどのAllowステートメントにも一致しなかったことを表す。
	ReasonNoMatch
	// ReasonExplicitDeny は一致したDenyステートメントがあったことを表す。
	ReasonExplicitDeny
)

// String は理由の説明を返す。
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNoMatch:
		return "no matching allow statement"
	case ReasonExplicitDeny:
		return "explicit deny"
	default:
		return "unknown"
	}
}

// Request は評価対象のリクエスト。
type Request struct {
	// Principal は署名検証で確定した呼び出し元アカウントID。
	Principal string
	// Action は要求アクション。空の場合は execute-api:Invoke とみなす。
	Action string
	// Region は呼び出されたAPIのリージョン。
	Region string
	// Account は呼び出されたAPIを所有するアカウントID。
	Account string
	// APIID は呼び出されたREST APIの識別子。
	APIID string
	// Stage は呼び出されたステージ。
	Stage string
	// Method はHTTPメソッド。
	Method string
	// Path はステージを除いたリクエストパス（例: /orders/123）。
	Path string
}

// Result は評価結果とその根拠。
type Result struct {
	// Decision は Allow または Deny。
	Decision Decision
	// Reason は拒否理由。Allowの場合は ReasonNone。
	Reason Reason
	// MatchedSid は決定に使われたステートメントのSid。
	MatchedSid string
}

// Allowed はリクエストが許可されたかどうかを返す。
func (r Result) Allowed() bool {
	return r.Decision == Allow
}

// Evaluate はドキュメントをリクエストに対して評価する。
//
// ステートメントを記述順に走査し、一致したDenyがあれば即座に拒否する。
// Denyがなく、最初に一致したAllowがあれば許可する。どれにも一致しなければ拒否する。
func Evaluate(doc Document, req Request) Result {
	var allowed *Statement
	for i := range doc.Statements {
		st := &doc.Statements[i]
		if !statementMatches(st, req) {
			continue
		}
		if st.Effect == EffectDeny {
			return Result{Decision: Deny, Reason: ReasonExplicitDeny, MatchedSid: st.Sid}
		}
		if st.Effect == EffectAllow && allowed == nil {
			allowed = st
		}
	}

	if allowed == nil {
		return Result{Decision: Deny, Reason: ReasonNoMatch}
	}
	return Result{Decision: Allow, Reason: ReasonNone, MatchedSid: allowed.Sid}
}

// statementMatches はステートメントがリクエストに一致するかを判定する。
func statementMatches(st *Statement, req Request) bool {
	if req.Principal == "" || normalizePrincipal(st.Principal) != normalizePrincipal(req.Principal) {
		return false
	}
	if !matchAnyAction(st.Actions, req.Action) {
		return false
	}
	for _, raw := range st.Resources {
		r, err := ParseResource(raw)
		if err != nil {
			// Validateを通していないドキュメントでは一致させない
			continue
		}
		if resourceMatches(r, req) {
			return true
		}
	}
	return false
}

// matchAnyAction はアクションがいずれかのパターンに一致するかを判定する。
func matchAnyAction(patterns []string, action string) bool {
	if action == "" {
		action = ActionInvoke
	}
	for _, p := range patterns {
		switch {
		case p == "*", p == "execute-api:*":
			return true
		case strings.EqualFold(p, action):
			return true
		case strings.EqualFold(p, "invoke") && action == ActionInvoke:
			return true
		}
	}
	return false
}

// resourceMatches はリソースパターンがリクエストに一致するかを判定する。
func resourceMatches(r Resource, req Request) bool {
	return matchField(r.Region, req.Region) &&
		matchField(r.Account, req.Account) &&
		matchField(r.APIID, req.APIID) &&
		matchField(r.Stage, req.Stage) &&
		(r.Method == "*" || strings.EqualFold(r.Method, req.Method)) &&
		MatchPath(r.Path, req.Path)
}

func matchField(pattern, value string) bool {
	return pattern == "*" || pattern == value
}

// MatchPath はパスがパターンに一致するかを判定する。
//
// セグメント単位の完全一致で比較する。パターン末尾の "*" は空でない1セグメントに
// のみ一致し、複数セグメントや空セグメントには一致しない。先頭と末尾の "/" は無視する。
//
//	"/orders/*" は "/orders/123" に一致する
//	"/orders/*" は "/orders" や "/orders/1/2" に一致しない
func MatchPath(pattern, path string) bool {
	ps := splitPath(pattern)
	qs := splitPath(path)
	if len(ps) != len(qs) {
		return false
	}
	for i, p := range ps {
		if p == "*" && i == len(ps)-1 {
			if qs[i] == "" {
				return false
			}
			continue
		}
		if p != qs[i] {
			return false
		}
	}
	return true
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
