package monitor

import (
	"context"
	"errors"
	"net"
	"syscall"

	"github.com/netscope/netscope/netinfo"
	"github.com/netscope/netscope/probe"
)

// ErrorCode classifies worker startup and runtime failures so the UI and
// the HTTP API can react without string matching.
type ErrorCode string

const (
	// ErrCodeDNS indicates a DNS resolution failure.
	ErrCodeDNS ErrorCode = "DNS"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeConnRefused indicates the target actively refused the connection.
	ErrCodeConnRefused ErrorCode = "CONNREFUSED"
	// ErrCodeHostUnreach indicates the target host is unreachable.
	ErrCodeHostUnreach ErrorCode = "HOSTUNREACH"
	// ErrCodeNetUnreach indicates the target network is unreachable.
	ErrCodeNetUnreach ErrorCode = "NETUNREACH"
	// ErrCodeDenied indicates missing privileges for raw sockets or capture.
	ErrCodeDenied ErrorCode = "DENIED"
	// ErrCodeNotFound indicates a named resource, such as a capture
	// interface, does not exist.
	ErrCodeNotFound ErrorCode = "NOTFOUND"
	// ErrCodeInvalidRequest indicates bad parameters from the caller.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	// ErrCodeUnknown is the catch-all for unclassified errors.
	ErrCodeUnknown ErrorCode = "UNKNOWN"
)

// ClassifiedError is an error tagged with its ErrorCode.
type ClassifiedError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *ClassifiedError) Error() string {
	return e.Message
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// ErrorResponse is the JSON body returned on error from the HTTP API.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ClassifyError inspects an error chain and returns a ClassifiedError with
// the appropriate code.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	// Our own typed errors first
	var dnsErr *probe.DNSError
	if errors.As(err, &dnsErr) {
		return &ClassifiedError{Code: ErrCodeDNS, Message: err.Error(), Err: err}
	}

	var notFoundErr *netinfo.NotFoundError
	if errors.As(err, &notFoundErr) {
		return &ClassifiedError{Code: ErrCodeNotFound, Message: err.Error(), Err: err}
	}

	// Context errors (timeout / cancellation)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &ClassifiedError{Code: ErrCodeTimeout, Message: err.Error(), Err: err}
	}

	// net.DNSError from standard library resolution
	var netDNSErr *net.DNSError
	if errors.As(err, &netDNSErr) {
		if netDNSErr.IsTimeout {
			return &ClassifiedError{Code: ErrCodeTimeout, Message: err.Error(), Err: err}
		}
		return &ClassifiedError{Code: ErrCodeDNS, Message: err.Error(), Err: err}
	}

	// net.OpError with syscall errors
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		var sysErr *syscall.Errno
		if errors.As(opErr.Err, &sysErr) {
			return classifySyscallError(*sysErr, err)
		}
		if opErr.Timeout() {
			return &ClassifiedError{Code: ErrCodeTimeout, Message: err.Error(), Err: err}
		}
	}

	// Raw syscall.Errno anywhere in the chain
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return classifySyscallError(errno, err)
	}

	return &ClassifiedError{Code: ErrCodeUnknown, Message: err.Error(), Err: err}
}

func classifySyscallError(errno syscall.Errno, original error) *ClassifiedError {
	switch errno {
	case syscall.ECONNREFUSED:
		return &ClassifiedError{Code: ErrCodeConnRefused, Message: original.Error(), Err: original}
	case syscall.EHOSTUNREACH:
		return &ClassifiedError{Code: ErrCodeHostUnreach, Message: original.Error(), Err: original}
	case syscall.ENETUNREACH:
		return &ClassifiedError{Code: ErrCodeNetUnreach, Message: original.Error(), Err: original}
	case syscall.EACCES, syscall.EPERM:
		return &ClassifiedError{Code: ErrCodeDenied, Message: original.Error(), Err: original}
	case syscall.ETIMEDOUT:
		return &ClassifiedError{Code: ErrCodeTimeout, Message: original.Error(), Err: original}
	default:
		return &ClassifiedError{Code: ErrCodeUnknown, Message: original.Error(), Err: original}
	}
}
