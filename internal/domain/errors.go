package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfScope means the corpus holds nothing relevant enough to answer.
	ErrOutOfScope = errors.New("question is outside the course scope")
	// ErrNoCandidates means a topic selection resolved to no chunks.
	ErrNoCandidates = errors.New("no content found for selected topics")
	// ErrInsufficientContext means sampled material is too short to generate from.
	ErrInsufficientContext = errors.New("insufficient material for quiz generation")
)

// ParseError reports model output that does not conform to the requested shape.
type ParseError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse generated output: %s: %v", e.Reason, e.Err)
	}
	return "parse generated output: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// UpstreamError wraps a failure of the embedding, index or generative service.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string { return e.Service + ": " + e.Err.Error() }

func (e *UpstreamError) Unwrap() error { return e.Err }

// Upstream wraps err as an UpstreamError unless it is nil or already one.
func Upstream(service string, err error) error {
	if err == nil {
		return nil
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return err
	}
	return &UpstreamError{Service: service, Err: err}
}

// IsUpstream reports whether err originated in an external service.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
