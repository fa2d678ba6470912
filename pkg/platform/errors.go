package platform

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeHandshake   = "RTM_HANDSHAKE_FAILED"
	TextCodeTransport   = "RTM_TRANSPORT_FAILED"
	TextCodeDecode      = "RTM_DECODE_FAILED"
	TextCodeApplication = "RTM_APPLICATION_FAILED"
)

// HandshakeFailure reports that the platform rejected a credential exchange.
// The message is exactly the platform's error string.
func HandshakeFailure(reason string) error {
	return goerrors.New(reason, goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(TextCodeHandshake)
}

// TransportFailure reports a network failure or an unusable HTTP/socket exchange.
func TransportFailure(source error, message string) error {
	return wrapFailure(source, goerrors.CategoryExternal, message, http.StatusBadGateway, TextCodeTransport)
}

// DecodeFailure reports a frame or response envelope that could not be decoded.
func DecodeFailure(source error, message string) error {
	return wrapFailure(source, goerrors.CategoryBadInput, message, http.StatusBadRequest, TextCodeDecode)
}

// ApplicationFailure reports an ok:false envelope returned for an API method call.
func ApplicationFailure(method string, reason string) error {
	return goerrors.New(reason, goerrors.CategoryOperation).
		WithCode(http.StatusUnprocessableEntity).
		WithTextCode(TextCodeApplication).
		WithMetadata(map[string]any{"method": method})
}

func wrapFailure(source error, category goerrors.Category, message string, code int, textCode string) error {
	if source == nil {
		return goerrors.New(message, category).
			WithCode(code).
			WithTextCode(textCode)
	}

	return goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCode)
}

func IsHandshakeFailure(err error) bool { return hasTextCode(err, TextCodeHandshake) }

func IsTransportFailure(err error) bool { return hasTextCode(err, TextCodeTransport) }

func IsDecodeFailure(err error) bool { return hasTextCode(err, TextCodeDecode) }

func IsApplicationFailure(err error) bool { return hasTextCode(err, TextCodeApplication) }

// Reason returns the failure message without wrapping context. For handshake
// and application failures this is the platform's error string.
func Reason(err error) string {
	if err == nil {
		return ""
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.Message
	}

	return err.Error()
}

func hasTextCode(err error, textCode string) bool {
	if err == nil {
		return false
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}

	return strings.EqualFold(strings.TrimSpace(rich.TextCode), textCode)
}
