package middleware

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// contextKeyCorrelationID はGinコンテキストに相関IDを格納するキー。
const contextKeyCorrelationID = "correlation_id"

// CorrelationID はリクエストごとに相関IDを発行するGinミドルウェアを返す。
// genがnilの場合はUUIDを使用する。相関IDはログにのみ使用し、レスポンスには含めない。
func CorrelationID(gen func() string) gin.HandlerFunc {
	if gen == nil {
		gen = uuid.NewString
	}
	return func(c *gin.Context) {
		c.Set(contextKeyCorrelationID, gen())
		c.Next()
	}
}

// GetCorrelationID はGinコンテキストから相関IDを取得する。
// CorrelationIDミドルウェアが適用されていない場合は "-" を返す。
func GetCorrelationID(c *gin.Context) string {
	if id := c.GetString(contextKeyCorrelationID); id != "" {
		return id
	}
	return "-"
}

// Logf は相関IDとハンドラ名を前置してログを出力する。
func Logf(c *gin.Context, format string, args ...any) {
	log.Printf("%s %s", logPrefix(c), fmt.Sprintf(format, args...))
}

// logPrefix は "{相関ID} - {ハンドラ名}" 形式のログ前置詞を返す。
func logPrefix(c *gin.Context) string {
	return fmt.Sprintf("%s - %s", GetCorrelationID(c), handlerName(c))
}

// handlerName はログ用のハンドラ名を返す。ルートが未確定の場合はパスを使う。
func handlerName(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return c.Request.Method + " " + route
	}
	return c.Request.Method + " " + c.Request.URL.Path
}
