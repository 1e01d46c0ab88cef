// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	openai "github.com/sashabaranov/go-openai"
)

// ErrRetriesExhausted wraps the last transport error after the gateway has
// used up its retry budget.
var ErrRetriesExhausted = errors.New("retries exhausted")

// ErrEmptyResponse is returned when the provider answers 200 with no usable
// content. Not retryable: a well-formed empty answer will not improve on
// resend.
var ErrEmptyResponse = errors.New("provider returned no content")

// statusError carries an HTTP status from the responses-protocol path so the
// retry classifier can inspect it. The chat path surfaces status through
// *openai.APIError instead.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.Status, e.Body)
}

// timeoutError marks a call that was aborted by its per-call deadline.
type timeoutError struct {
	timeout string
	wrapped error
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("call timed out after %s: %v", e.timeout, e.wrapped)
}

func (e *timeoutError) Unwrap() error { return e.wrapped }

// retryableStatus reports whether an HTTP status indicates a transient
// provider condition worth retrying.
func retryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// retryable classifies a transport error as worth retrying.
//
// Retryable: provider 429/5xx, per-call timeouts, transient network errors
// (reset/refused connections, net timeouts), and anything that self-reports
// as a rate limit in its message. Everything else fails immediately; a 400
// or an auth failure will not get better on the next attempt.
func retryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if retryableStatus(reqErr.HTTPStatusCode) {
			return true
		}
	}

	var stErr *statusError
	if errors.As(err, &stErr) {
		return retryableStatus(stErr.Status)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "rate limit")
}
