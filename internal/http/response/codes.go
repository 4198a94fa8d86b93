package response

// 业务状态码（>= 400 时同时作为 HTTP 状态码）
const (
	CodeOK                  = 0
	CodeBadRequest          = 400
	CodeUnauthorized        = 401
	CodeForbidden           = 403
	CodeNotFound            = 404
	CodeConflict            = 409
	CodeUnprocessableEntity = 422
	CodeTooManyRequests     = 429
	CodeInternal            = 500
)

// HTTPStatus 业务码对应的 HTTP 状态码
func HTTPStatus(code int) int {
	if code >= 400 && code <= 599 {
		return code
	}
	return 200
}
