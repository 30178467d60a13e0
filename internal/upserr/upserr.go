// Package upserr defines the error categories shared by the UPS protocol
// clients. Callers distinguish them with errors.As.
//
//	TransportError   dial, read, write or timeout failure
//	ProtocolError    malformed or desynchronised daemon output
//	ApplicationError a well-formed ERR reply from the daemon
//	NotFoundError    the daemon does not support the requested variable
package upserr

import (
	"errors"
	"fmt"
	"strings"
)

// TransportError reports a network-level failure talking to addr.
type TransportError struct {
	Op   string // "dial", "read", "write"
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports daemon output that cannot be trusted. The connection
// that produced it must not be reused.
type ProtocolError struct {
	Msg  string
	Data string // raw offending line, frame or tokens; may be empty
}

func (e *ProtocolError) Error() string {
	if e.Data == "" {
		return "protocol error: " + e.Msg
	}
	return fmt.Sprintf("protocol error: %s: %q", e.Msg, e.Data)
}

// Protocolf builds a ProtocolError carrying the raw data that triggered it.
func Protocolf(data, format string, args ...any) *ProtocolError {
	return &ProtocolError{Msg: fmt.Sprintf(format, args...), Data: data}
}

// ApplicationError is a negative answer from the daemon, e.g.
// "ERR ACCESS-DENIED". The connection stays usable.
type ApplicationError struct {
	Code string
	Args []string
}

func (e *ApplicationError) Error() string {
	if len(e.Args) == 0 {
		return "daemon error: " + e.Code
	}
	return fmt.Sprintf("daemon error: %s %s", e.Code, strings.Join(e.Args, " "))
}

// NotFoundError means the daemon does not know the named variable.
type NotFoundError struct {
	Instance string
	Name     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("variable %q not supported by %q", e.Name, e.Instance)
}

// IsNotFound reports whether err (or anything it wraps) is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsProtocol reports whether err is a ProtocolError.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Poisoned reports whether err leaves the connection in an unknown state,
// i.e. whether the client must drop it before the next request.
func Poisoned(err error) bool {
	return IsProtocol(err) || IsTransport(err)
}
