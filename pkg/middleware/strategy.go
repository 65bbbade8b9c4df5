package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/tradegate/pkg/failure"
)

// HandlerFunc はエラーを返すハンドラ。エラー処理戦略で包んでルートに登録する。
type HandlerFunc func(c *gin.Context) error

var (
	// MaskedBody は公開境界で返す固定のエラーレスポンス。
	MaskedBody = gin.H{"message": "An error occurred"}
	// PlatformBody は内部サービスのプラットフォーム既定のエラーレスポンス。
	PlatformBody = gin.H{"message": "Internal server error"}
	// ForbiddenBody は認可に失敗した場合のレスポンス。
	ForbiddenBody = gin.H{"message": "Forbidden"}
)

// Mask は境界でエラーを正規化するハンドラを返す。
// hがエラーを返した場合、分類と詳細をログに出し、呼び出し元には固定の500のみを返す。
func Mask(h HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h(c); err != nil {
			Logf(c, "リクエスト処理に失敗: kind=%s: %v", failure.Kind(err), err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, MaskedBody)
		}
	}
}

// Propagate はエラーをそのまま上位に伝播するハンドラを返す。
// hがエラーを返した場合、Ginコンテキストに記録して処理を中断する。ローカルでは回復しない。
func Propagate(h HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h(c); err != nil {
			_ = c.Error(err)
			c.Abort()
		}
	}
}

// PlatformErrors はPropagateで伝播したエラーをプラットフォーム既定のレスポンスに変換する。
// エンジンに1度だけ登録する。ハンドラが既にレスポンスを書いている場合は何もしない。
func PlatformErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		for _, e := range c.Errors {
			Logf(c, "未処理のエラー: kind=%s: %v", failure.Kind(e.Err), e.Err)
		}
		c.JSON(http.StatusBadGateway, PlatformBody)
	}
}
