package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Category 是校验/执行错误的稳定分类，调用方依赖它区分
// “改参数重试”、“需要完成开通流程”、“等额度窗口刷新” 等情况
type Category string

const (
	CatStructural Category = "STRUCTURAL" // 输入缺失或超限，修正后可重试
	CatAuth       Category = "AUTH"       // 委托凭证缺失/过期/未激活，需要完成链下开通
	CatPolicy     Category = "POLICY"     // 策略限制（杠杆/额度/币种/回撤）
	CatSize       Category = "SIZE"       // 单腿名义金额低于交易所下限
	CatVenue      Category = "VENUE"      // 交易所下单失败或未成交，可能是瞬时的

	CatInvalidRequest Category = "INVALID_REQUEST"
	CatNotFound       Category = "NOT_FOUND"
	CatInternal       Category = "INTERNAL_ERROR"
)

// AppError is the standard error struct for the application
type AppError struct {
	Category   Category `json:"code"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
	HTTPStatus int      `json:"-"`
	Cause      error    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(cat Category, msg string, cause error) *AppError {
	return &AppError{
		Category:   cat,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapCategoryToStatus(cat),
		Suggestion: mapCategoryToSuggestion(cat),
	}
}

func Newf(cat Category, format string, args ...any) *AppError {
	return New(cat, fmt.Sprintf(format, args...), nil)
}

func NewNotFound(msg string) *AppError {
	return New(CatNotFound, msg, nil)
}

func NewInvalidRequest(msg string) *AppError {
	return New(CatInvalidRequest, msg, nil)
}

// IsReject reports whether err is a validation-stage rejection
// (as opposed to an internal or upstream failure).
func IsReject(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Category {
	case CatStructural, CatAuth, CatPolicy, CatSize:
		return true
	}
	return false
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(CatInternal, err.Error(), err)
}

func mapCategoryToStatus(cat Category) int {
	switch cat {
	case CatStructural, CatSize, CatInvalidRequest:
		return http.StatusBadRequest
	case CatAuth:
		return http.StatusUnauthorized
	case CatPolicy:
		return http.StatusForbidden
	case CatNotFound:
		return http.StatusNotFound
	case CatVenue:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func mapCategoryToSuggestion(cat Category) string {
	switch cat {
	case CatStructural:
		return "Fix the request parameters and retry."
	case CatAuth:
		return "Complete delegated-trading onboarding and activation for this account."
	case CatPolicy:
		return "Adjust the account risk policy or wait for the daily window to roll over."
	case CatSize:
		return "Increase the stake or reduce the number of assets."
	case CatVenue:
		return "The venue call failed; retrying is up to the caller."
	default:
		return ""
	}
}
