package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"sistema-notas/backend/pkg/response"
)

// BodyLimit 请求体大小限制中间件
// maxBytes 为默认上限；uploads 按路由模板单独放宽（如成绩表导入）
func BodyLimit(maxBytes int64, uploads map[string]int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := maxBytes
		if n, ok := uploads[c.FullPath()]; ok {
			limit = n
		}

		// 声明长度已超限时不读取请求体
		if c.Request.ContentLength > limit {
			rejectTooLarge(c, limit)
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}

		c.Next()

		if c.IsAborted() || c.Writer.Written() {
			return
		}
		for _, err := range c.Errors {
			var tooLarge *http.MaxBytesError
			if errors.As(err.Err, &tooLarge) {
				rejectTooLarge(c, limit)
				return
			}
		}
	}
}

func rejectTooLarge(c *gin.Context, limit int64) {
	response.ErrorWithDetails(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大",
		fmt.Sprintf("limit=%d request_id=%s", limit, c.GetString(requestIDKey)))
}
