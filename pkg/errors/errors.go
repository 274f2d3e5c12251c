package errors

import "errors"

// 跨模块通用的错误类别，业务错误通过 New 或 %w 归入其中之一，Handler 层据此映射 HTTP 状态码。
var (
	ErrNotFound        = errors.New("资源不存在")
	ErrConflict        = errors.New("资源冲突")
	ErrInvalidArgument = errors.New("参数无效")
	ErrForbidden       = errors.New("无权访问")
	// ErrUnavailable 外部依赖不可用（仅在内部吸收，不向调用方暴露）
	ErrUnavailable = errors.New("外部服务不可用")
)

var kinds = []error{ErrNotFound, ErrConflict, ErrInvalidArgument, ErrForbidden, ErrUnavailable}

// kindError 带类别的业务错误：Error() 只返回业务提示，errors.Is 可匹配类别
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// New 创建属于 kind 类别的业务错误
func New(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// Kind 返回 err 所属的通用类别；无法识别时返回 nil
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Message 返回 err 链上第一个业务错误的提示，适合直接返回给调用方；
// 不属于任何业务错误时返回空串
func Message(err error) string {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.msg
	}
	return ""
}
