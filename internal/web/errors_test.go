package web

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTransferError_Classification(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	netErr := networkError(cause)
	protoErr := protocolError(500, "Error response code should be 200 or 201!")

	wrapped := fmt.Errorf("upload Pong: %w", netErr)
	if !IsNetworkError(wrapped) || IsProtocolError(wrapped) {
		t.Error("wrapped network error misclassified")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("network error should unwrap to its cause")
	}
	if !IsProtocolError(protoErr) || IsNetworkError(protoErr) {
		t.Error("protocol error misclassified")
	}
	if IsNetworkError(nil) || IsProtocolError(errors.New("other")) {
		t.Error("foreign errors must not be classified")
	}
	if StatusCode(errors.New("other")) != 0 {
		t.Error("StatusCode of a foreign error should be 0")
	}
}

func TestTransferError_Message(t *testing.T) {
	msg := protocolError(404, "not found").Error()
	if !strings.Contains(msg, "protocol") || !strings.Contains(msg, "404") {
		t.Errorf("unexpected message %q", msg)
	}
	msg = networkError(errors.New("boom")).Error()
	if !strings.Contains(msg, "Connection could not be established!") || !strings.Contains(msg, "boom") {
		t.Errorf("unexpected message %q", msg)
	}
}
