package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// corsMethods は公開ゲートウェイが受け付けるメソッド。
var corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}

// CORS は指定されたオリジンからのクロスオリジンリクエストを許可するGinミドルウェアを返す。
// 公開ゲートウェイで使用する。空文字列のオリジンは無視する。
func CORS(allowedOrigins []string) gin.HandlerFunc {
	originsSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			originsSet[o] = struct{}{}
		}
	}
	methods := strings.Join(corsMethods, ", ")

	return func(c *gin.Context) {
		c.Writer.Header().Add("Vary", "Origin")
		origin := c.GetHeader("Origin")
		if _, ok := originsSet[origin]; ok {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", "Content-Type")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
