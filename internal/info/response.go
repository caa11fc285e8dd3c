package info

import (
	"context"
	"errors"
	"net"
	"os"
	"syscall"
)

// Per-node failure classes. Every transport error reaching the engine is one
// of these three.
var (
	ErrTimeout     = errors.New("info: node timeout")
	ErrConnRefused = errors.New("info: connection refused")
	ErrProtocol    = errors.New("info: protocol error")
)

// ErrorCode is the closed set of per-node failure kinds.
type ErrorCode int

const (
	CodeNone ErrorCode = iota
	CodeTimeout
	CodeConnRefused
	CodeProtocol
)

// String returns a stable label, used for metrics.
func (c ErrorCode) String() string {
	switch c {
	case CodeNone:
		return "none"
	case CodeTimeout:
		return "timeout"
	case CodeConnRefused:
		return "connection_refused"
	default:
		return "protocol_error"
	}
}

// Classify maps a transport error onto the closed ErrorCode set.
func Classify(err error) ErrorCode {
	switch {
	case err == nil:
		return CodeNone
	case errors.Is(err, ErrTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, os.ErrDeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, ErrConnRefused), errors.Is(err, syscall.ECONNREFUSED):
		return CodeConnRefused
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CodeTimeout
	}
	return CodeProtocol
}

// NodeResponse is one node's answer to a single broadcast query. When Err is
// set the Payload must be ignored.
type NodeResponse struct {
	NodeID  string
	Err     error
	Payload string
}

// OK reports whether the node answered successfully.
func (r NodeResponse) OK() bool {
	return r.Err == nil
}

// Code returns the failure class of the response.
func (r NodeResponse) Code() ErrorCode {
	return Classify(r.Err)
}

// Successful returns the responses that carry no error, in order.
func Successful(responses []NodeResponse) []NodeResponse {
	out := make([]NodeResponse, 0, len(responses))
	for _, r := range responses {
		if r.OK() {
			out = append(out, r)
		}
	}
	return out
}
