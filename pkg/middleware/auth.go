package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/tradegate/pkg/failure"
	"github.com/nao1215/tradegate/pkg/policy"
	"github.com/nao1215/tradegate/pkg/signer"
)

const (
	// contextKeyPrincipal はGinコンテキストに検証済みの呼び出し元を格納するキー。
	contextKeyPrincipal = "principal"
	// maxBodyBytes は署名検証で読み込むボディの上限。
	maxBodyBytes = 1 << 20
)

// SignatureAuth はリクエスト署名を検証するGinミドルウェアを返す。
// 検証に成功した場合、コンテキストに呼び出し元を設定する。
// 失敗した場合は理由をログに出し、詳細を含まない403を返す。
func SignatureAuth(v *signer.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := readBody(c.Request)
		if err != nil {
			Logf(c, "リクエストボディの読み込みに失敗: %v", err)
			c.AbortWithStatusJSON(http.StatusForbidden, ForbiddenBody)
			return
		}

		id, err := v.Verify(c.Request.Context(), c.Request, body)
		if err != nil {
			Logf(c, "署名検証で拒否: kind=%s: %v", failure.Kind(err), err)
			c.AbortWithStatusJSON(http.StatusForbidden, ForbiddenBody)
			return
		}

		c.Set(contextKeyPrincipal, id.Principal)
		c.Next()
	}
}

// readBody は署名検証のためにボディを読み込み、ハンドラー用に戻す。
// ボディのないリクエストは空のボディとして扱う。
func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		r.Body = http.NoBody
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// GetPrincipal はGinコンテキストから検証済みの呼び出し元を取得する。
// SignatureAuthミドルウェアが事前に適用されている必要がある。
func GetPrincipal(c *gin.Context) string {
	return c.GetString(contextKeyPrincipal)
}

// Scope はリソースポリシー評価で使うAPIの所在。
type Scope struct {
	// Region はAPIのリージョン。
	Region string
	// Account はAPIを所有するアカウントID。
	Account string
	// APIID はREST APIの識別子。
	APIID string
	// Stage はデプロイステージ。リクエストパスの先頭に付く。
	Stage string
}

// ResourcePolicy はリソースポリシーを評価するGinミドルウェアを返す。
// SignatureAuthの後に適用する。拒否した場合は理由をログに出し、詳細を含まない403を返す。
func ResourcePolicy(doc policy.Document, scope Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := policy.Request{
			Principal: GetPrincipal(c),
			Action:    policy.ActionInvoke,
			Region:    scope.Region,
			Account:   scope.Account,
			APIID:     scope.APIID,
			Stage:     scope.Stage,
			Method:    c.Request.Method,
			Path:      stagePath(c.Request.URL.Path, scope.Stage),
		}

		result := policy.Evaluate(doc, req)
		if !result.Allowed() {
			Logf(c, "リソースポリシーで拒否: reason=%s principal=%q path=%s", result.Reason, req.Principal, req.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, ForbiddenBody)
			return
		}
		c.Next()
	}
}

// stagePath はリクエストパスから先頭のステージを取り除く。
func stagePath(path, stage string) string {
	if stage == "" {
		return path
	}
	rest, ok := strings.CutPrefix(path, "/"+stage)
	if !ok || (rest != "" && !strings.HasPrefix(rest, "/")) {
		return path
	}
	if rest == "" {
		return "/"
	}
	return rest
}
