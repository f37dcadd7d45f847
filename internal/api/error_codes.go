// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest        = "BAD_REQUEST"
	ErrorNotFound          = "NOT_FOUND"
	ErrorInternalError     = "INTERNAL_ERROR"
	ErrorRateLimitExceeded = "RATE_LIMIT_EXCEEDED"

	// 会话相关错误
	ErrorSessionNotFound = "SESSION_NOT_FOUND"

	// 场景相关错误
	ErrorInvalidField      = "INVALID_FIELD"
	ErrorInvalidFieldValue = "INVALID_FIELD_VALUE"

	// 导出相关错误
	ErrorExportFailed        = "EXPORT_FAILED"
	ErrorExportFormatInvalid = "EXPORT_FORMAT_INVALID"
	ErrorExportNotFound      = "EXPORT_NOT_FOUND"
)
