package notify

import (
	"errors"
	"fmt"
)

// ErrNotConfigured 表示缺少 service_id/template_id 等必要配置。
var ErrNotConfigured = errors.New("email relay not configured")

// Error 为邮件中继返回的非 2xx 响应。
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("email relay status %d: %s", e.Status, e.Reason())
}

// Reason 按状态码给出排查提示。
func (e *Error) Reason() string {
	switch e.Status {
	case 400:
		return "malformed request, check template params"
	case 401:
		return "authentication failed, check user_id"
	case 403:
		return "permission denied, check service and template permissions"
	case 404:
		return "service not found, check service_id"
	case 422:
		return "invalid template_params"
	default:
		return "unexpected response"
	}
}
