// Package result converts the response shapes returned by list and
// directory backends into a single success/failure envelope.
//
// Backends answer in one of two envelopes: the canonical
// {isSuccess, result, error} and the older {success, data, error}.
// Decode tries them in that order and reports anything else as an
// unknown format. It never panics and never returns an error value;
// every problem ends up in Result.Error.
package result

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// UnknownFormat is the error text for payloads that match neither envelope.
const UnknownFormat = "Unknown result format"

// ErrOperationFailed is wrapped by Result.Err for every failed result.
var ErrOperationFailed = errors.New("operation failed")

// Format identifies which envelope a raw payload was decoded from.
type Format int

const (
	FormatUnknown Format = iota
	FormatCanonical
	FormatLegacy
)

func (f Format) String() string {
	switch f {
	case FormatCanonical:
		return "canonical"
	case FormatLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// Result is the canonical envelope. IsSuccess is authoritative: Result is
// meaningful only when it is true, Error only when it is false.
type Result[T any] struct {
	IsSuccess bool   `json:"isSuccess"`
	Result    T      `json:"result"`
	Error     string `json:"error,omitempty"`
}

// Success builds a successful result.
func Success[T any](v T) Result[T] {
	return Result[T]{IsSuccess: true, Result: v}
}

// Failure builds a failed result with the given message.
func Failure[T any](msg string) Result[T] {
	return Result[T]{Error: msg}
}

// Err returns nil for a successful result and an error wrapping
// ErrOperationFailed otherwise.
func (r Result[T]) Err() error {
	if r.IsSuccess {
		return nil
	}
	if r.Error == "" {
		return ErrOperationFailed
	}
	return fmt.Errorf("%w: %s", ErrOperationFailed, r.Error)
}

// Normalize decodes raw into a Result, discarding the detected format.
func Normalize[T any](raw []byte) Result[T] {
	r, _ := Decode[T](raw)
	return r
}

// Decode decodes raw as a canonical envelope, then as a legacy envelope,
// and falls back to an unknown-format failure.
func Decode[T any](raw []byte) (Result[T], Format) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Failure[T](UnknownFormat), FormatUnknown
	}
	if _, ok := fields["isSuccess"]; ok {
		return decodeEnvelope[T](fields, "isSuccess", "result"), FormatCanonical
	}
	if _, ok := fields["success"]; ok {
		return decodeEnvelope[T](fields, "success", "data"), FormatLegacy
	}
	return Failure[T](UnknownFormat), FormatUnknown
}

func decodeEnvelope[T any](fields map[string]json.RawMessage, flagKey, dataKey string) Result[T] {
	var r Result[T]
	if err := json.Unmarshal(fields[flagKey], &r.IsSuccess); err != nil {
		return Failure[T](fmt.Sprintf("invalid %s field: %v", flagKey, err))
	}
	r.Error = errorText(fields["error"])
	if data, ok := fields[dataKey]; ok && !isNull(data) {
		if err := json.Unmarshal(data, &r.Result); err != nil {
			return Failure[T](fmt.Sprintf("decode %s: %v", dataKey, err))
		}
	}
	return r
}

// errorText keeps string errors as-is and renders anything else as
// compact JSON, so structured backend errors are not lost.
func errorText(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
