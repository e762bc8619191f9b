package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestUpstream_WrapsOnce(t *testing.T) {
	base := errors.New("connection refused")
	err := Upstream("llm", base)
	if !IsUpstream(err) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause to be reachable")
	}
	again := Upstream("embedder", fmt.Errorf("retrieve: %w", err))
	var ue *UpstreamError
	if !errors.As(again, &ue) || ue.Service != "llm" {
		t.Fatalf("expected original service to be preserved, got %v", again)
	}
	if Upstream("llm", nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestParseError_Message(t *testing.T) {
	err := &ParseError{Reason: "missing field options"}
	if err.Error() != "parse generated output: missing field options" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	cause := errors.New("unexpected end of JSON input")
	wrapped := &ParseError{Reason: "invalid json", Err: cause}
	if !errors.Is(wrapped, cause) {
		t.Fatalf("expected cause to unwrap")
	}
}
