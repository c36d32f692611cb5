// Package errors provides standardized error types for the storefront sync client.
// It defines common sentinel errors, the APIError returned for failed HTTP calls,
// and helper functions for classifying errors.
//
// Package errors 提供店面同步客户端的标准化错误类型。
// 它定义了常见的哨兵错误、HTTP调用失败时返回的APIError以及用于错误分类的辅助函数。
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard errors that can be returned by the client.
//
// 客户端可能返回的标准错误。
var (
	// ErrUnauthenticated is returned when a mutation is attempted without a session token.
	// No network request is made in that case.
	// 在没有会话令牌的情况下尝试修改操作时返回ErrUnauthenticated，此时不会发出网络请求。
	ErrUnauthenticated = errors.New("shopsync: please log in to manage products")

	// ErrNotFound is returned when the requested product does not exist.
	// 当请求的商品不存在时返回ErrNotFound。
	ErrNotFound = errors.New("shopsync: product not found")

	// ErrSerializationFailed is returned when a cache record cannot be encoded.
	// 当缓存记录无法编码时返回ErrSerializationFailed。
	ErrSerializationFailed = errors.New("shopsync: serialization failed")

	// ErrDeserializationFailed is returned when a cache record cannot be decoded.
	// 当缓存记录无法解码时返回ErrDeserializationFailed。
	ErrDeserializationFailed = errors.New("shopsync: deserialization failed")

	// ErrInvalidEvent is returned when a real-time frame carries an unusable payload.
	// 当实时消息帧携带无法使用的数据时返回ErrInvalidEvent。
	ErrInvalidEvent = errors.New("shopsync: invalid real-time event")

	// ErrClosed is returned when an operation is performed on a closed component.
	// 当对已关闭的组件执行操作时返回ErrClosed。
	ErrClosed = errors.New("shopsync: closed")
)

// APIError represents a failed call to the remote product API.
// It wraps the transport error or carries the status and message returned by the server.
//
// APIError 表示对远程商品API的失败调用。
// 它包装传输错误，或携带服务器返回的状态码和消息。
type APIError struct {
	Op        string // Operation name, e.g. "list page" / 操作名称
	Status    int    // HTTP status, 0 for transport failures / HTTP状态码，传输失败时为0
	Message   string // Server supplied message / 服务器返回的消息
	RequestID string // X-Request-ID sent with the request / 请求携带的X-Request-ID
	Err       error  // Underlying error / 底层错误
}

// Error returns the error message.
//
// Error 返回错误消息。
func (e *APIError) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("shopsync: %s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("shopsync: %s: %d %s", e.Op, e.Status, e.Message)
	default:
		return fmt.Sprintf("shopsync: %s: %d %s", e.Op, e.Status, http.StatusText(e.Status))
	}
}

// Unwrap returns the underlying error.
// A 404 unwraps to ErrNotFound and a 401 to ErrUnauthenticated so that errors.Is works.
//
// Unwrap 返回底层错误。
// 404会解包为ErrNotFound，401会解包为ErrUnauthenticated，以便errors.Is正常工作。
func (e *APIError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthenticated
	}
	return nil
}

// UserMessage returns the text shown to the user in a notification.
func (e *APIError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status == 0 {
		return "network error, please try again"
	}
	return http.StatusText(e.Status)
}

// NewAPIError creates a new APIError for a server response.
//
// NewAPIError 为服务器响应创建一个新的APIError。
//
// Parameters:
//   - op: The operation that failed
//   - status: The HTTP status code
//   - message: The message returned by the server
//
// Returns:
//   - *APIError: A new API error instance
func NewAPIError(op string, status int, message string) *APIError {
	return &APIError{Op: op, Status: status, Message: message}
}

// NewTransportError wraps an error that happened before a response was received.
//
// NewTransportError 包装在收到响应之前发生的错误。
func NewTransportError(op string, err error) *APIError {
	return &APIError{Op: op, Err: err}
}

// IsNotFound returns true if the error indicates that a product was not found.
//
// IsNotFound 如果错误表示未找到商品，则返回true。
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthenticated returns true if the error indicates a missing or rejected session.
//
// IsUnauthenticated 如果错误表示会话缺失或被拒绝，则返回true。
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

// IsRetryable returns true for transport failures and 5xx or 429 responses.
//
// IsRetryable 对于传输失败以及5xx或429响应返回true。
func IsRetryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == 0 || apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= 500
}

// IsSerializationError returns true if the error is related to serialization.
//
// IsSerializationError 如果错误与序列化相关，则返回true。
func IsSerializationError(err error) bool {
	return errors.Is(err, ErrSerializationFailed) || errors.Is(err, ErrDeserializationFailed)
}

// UserMessage extracts the text to show to the user for err.
//
// UserMessage 提取针对err向用户显示的文本。
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	if errors.Is(err, ErrUnauthenticated) {
		return "please log in to manage products"
	}
	return err.Error()
}
