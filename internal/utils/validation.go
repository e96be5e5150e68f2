package utils

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

// 错误定义
var (
	ErrEmptyCode         = &ValidationError{Code: "EMPTY_CODE", Message: "batch code cannot be empty"}
	ErrInvalidCodeFormat = &ValidationError{Code: "INVALID_CODE_FORMAT", Message: "batch code contains invalid characters"}
	ErrCodeTooLong       = &ValidationError{Code: "CODE_TOO_LONG", Message: "batch code exceeds maximum length"}
	ErrEmptyID           = &ValidationError{Code: "EMPTY_ID", Message: "id cannot be empty"}
	ErrInvalidIDFormat   = &ValidationError{Code: "INVALID_ID_FORMAT", Message: "id contains invalid characters"}
	ErrIDTooLong         = &ValidationError{Code: "ID_TOO_LONG", Message: "id exceeds maximum length"}
)

// ValidationError 验证错误
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var batchCodePattern = regexp.MustCompile(`^[A-Z0-9-]+$`)

// ValidateBatchCode 验证批次编码格式,编码形如 IDM-F0012-20250301-001
func ValidateBatchCode(code string) error {
	if code == "" {
		return ErrEmptyCode
	}
	if len(code) > 50 {
		return ErrCodeTooLong
	}
	if !batchCodePattern.MatchString(code) {
		return ErrInvalidCodeFormat
	}
	return nil
}

// ValidateResourceID 验证资源 ID 格式(只允许字母、数字、连字符、下划线)
func ValidateResourceID(id string) error {
	if id == "" {
		return ErrEmptyID
	}
	matched, _ := regexp.MatchString(`^[a-zA-Z0-9_-]+$`, id)
	if !matched {
		return ErrInvalidIDFormat
	}
	if len(id) > 64 {
		return ErrIDTooLong
	}
	return nil
}

// SanitizeString 清理字符串,HTML 转义并移除控制字符
func SanitizeString(input string) string {
	sanitized := html.EscapeString(input)

	var result strings.Builder
	for _, r := range sanitized {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		result.WriteRune(r)
	}

	return result.String()
}
