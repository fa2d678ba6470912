package webapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Call is one pending API invocation: the method it targets and its JSON body.
type Call struct {
	Method string
	Body   []byte
}

// Request is a payload shape that knows its own fixed API method.
type Request interface {
	Method() string
}

// NewCall serializes payload for method.
func NewCall(method string, payload any) (Call, error) {
	method = strings.TrimSpace(method)
	if method == "" {
		return Call{}, errors.New("method is required")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Call{}, fmt.Errorf("encode %s payload: %w", method, err)
	}

	return Call{Method: method, Body: body}, nil
}

// Encode builds the Call for a request shape.
func Encode(req Request) (Call, error) {
	if req == nil {
		return Call{}, errors.New("request is required")
	}

	return NewCall(req.Method(), req)
}
