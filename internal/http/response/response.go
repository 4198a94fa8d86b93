package response

import (
	"github.com/gin-gonic/gin"
)

const msgSuccess = "success"

// requestIDKey 与中间件写入的上下文键一致
const requestIDKey = "request_id"

// Response 统一信封
type Response struct {
	StatusCode int    `json:"status_code"`
	Msg        string `json:"msg"`
	Data       any    `json:"data"`
}

// PageResponse 带分页的信封
type PageResponse struct {
	Response
	Pagination Pagination `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"total_page"`
}

// Success 成功响应
func Success(c *gin.Context, data any) {
	c.JSON(HTTPStatus(CodeOK), Response{StatusCode: CodeOK, Msg: msgSuccess, Data: data})
}

// SuccessWithPage 列表接口的分页响应
func SuccessWithPage(c *gin.Context, data any, pagination Pagination) {
	c.JSON(HTTPStatus(CodeOK), PageResponse{
		Response:   Response{StatusCode: CodeOK, Msg: msgSuccess, Data: data},
		Pagination: pagination,
	})
}

// Error 错误响应，data 中附带 request_id 便于排查
func Error(c *gin.Context, code int, msg string) {
	var data any
	if id := requestID(c); id != "" {
		data = gin.H{requestIDKey: id}
	}
	c.JSON(HTTPStatus(code), Response{StatusCode: code, Msg: msg, Data: data})
}

func requestID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(requestIDKey)
}
