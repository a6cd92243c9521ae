package web

import (
	"errors"
	"fmt"
)

// ErrorNetwork is the status code carried by a TransferError whose request
// never produced a response.
const ErrorNetwork = 1001

// Kind classifies a TransferError.
type Kind int

const (
	// KindNetwork means the request could not be established.
	KindNetwork Kind = iota + 1
	// KindProtocol means the server answered with an unaccepted status code.
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// TransferError is returned by Connection operations for failures the
// caller is expected to present to the user.
type TransferError struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *TransferError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error %d: %s: %v", e.Kind, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error %d: %s", e.Kind, e.StatusCode, e.Message)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

func networkError(err error) *TransferError {
	return &TransferError{
		Kind:       KindNetwork,
		StatusCode: ErrorNetwork,
		Message:    "Connection could not be established!",
		Err:        err,
	}
}

func protocolError(code int, message string) *TransferError {
	return &TransferError{
		Kind:       KindProtocol,
		StatusCode: code,
		Message:    message,
	}
}

// IsNetworkError reports whether err is a TransferError of kind KindNetwork.
func IsNetworkError(err error) bool {
	var te *TransferError
	return errors.As(err, &te) && te.Kind == KindNetwork
}

// IsProtocolError reports whether err is a TransferError of kind KindProtocol.
func IsProtocolError(err error) bool {
	var te *TransferError
	return errors.As(err, &te) && te.Kind == KindProtocol
}

// StatusCode returns the status code carried by err, or 0 when err is not
// a TransferError.
func StatusCode(err error) int {
	var te *TransferError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	return 0
}
