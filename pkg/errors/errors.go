// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

func New(code ErrorCode, details string) *NetfixError {
	domain, ok := errorDomains[code]
	if !ok {
		domain = DomainMisc
	}
	msg, ok := errorMessages[code]
	if !ok {
		msg = "Unknown error"
	}
	status, ok := errorHTTPStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &NetfixError{
		Code:       code,
		Domain:     domain,
		Message:    msg,
		Details:    details,
		HTTPStatus: status,
	}
}

// Wrap converts err into a NetfixError with the given code, keeping the
// original error text as details. An existing NetfixError passes through
// unchanged so codes assigned close to the failure win.
func Wrap(err error, code ErrorCode) *NetfixError {
	if err == nil {
		return New(code, "")
	}
	var ne *NetfixError
	if stderrors.As(err, &ne) {
		return ne
	}
	return New(code, err.Error())
}

func (e *NetfixError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s-%d] %s: %s", e.Domain, e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s-%d] %s", e.Domain, e.Code, e.Message)
}

func (e *NetfixError) WithMetadata(key, value string) *NetfixError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// IsNetfixError reports whether err is (or wraps) a NetfixError.
func IsNetfixError(err error) (*NetfixError, bool) {
	var ne *NetfixError
	if stderrors.As(err, &ne) {
		return ne, true
	}
	return nil, false
}

// HasCode reports whether err carries the given error code.
func HasCode(err error, code ErrorCode) bool {
	ne, ok := IsNetfixError(err)
	return ok && ne.Code == code
}
