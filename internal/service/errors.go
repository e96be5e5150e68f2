package service

import (
	"errors"

	"gorm.io/gorm"
)

// 业务错误分类:校验错误在任何持久化之前拒绝;冲突与不可出运错误
// 拒绝且不产生部分变更
var (
	// ErrNotFound 引用的养殖场/商品/批次不存在
	ErrNotFound = errors.New("resource not found")

	// ErrBatchAlreadyTested 批次已有检测记录,重复提交被拒绝
	ErrBatchAlreadyTested = errors.New("batch already has a lab test")

	// ErrNotEligible 批次当前出运状态不是 ELIGIBLE,不可出运
	ErrNotEligible = errors.New("batch is not eligible for shipment")

	// ErrAlreadyReceived 批次已有接收记录,重复接收被拒绝
	ErrAlreadyReceived = errors.New("batch has already been received")

	// ErrPermissionDenied 当前角色无权执行该操作
	ErrPermissionDenied = errors.New("permission denied")
)

// ValidationError 字段校验错误
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

// NewValidationError 创建字段校验错误
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsNotFound 判断是否为资源不存在错误
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// IsValidation 判断是否为校验错误
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
