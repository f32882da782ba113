// Package strategy extracts normalized file descriptors from inbound HTTP
// requests, independent of the body-parsing mechanism in use.
//
// Three interchangeable variants exist: stdform (net/http multipart parser
// with temp-file spill), fastform (fasthttp body parser) and streamform
// (part-by-part walk with early size rejection). All of them run the same
// prechecks and emit the same NormalizedFile shape, so the rest of the
// pipeline never sees parser-specific representations.
package strategy

import (
	"io"
	"mime"
	"strings"
	"time"

	"github.com/code19m/errx"
)

// Kind selects a parsing strategy.
type Kind string

const (
	KindStdForm    Kind = "stdform"
	KindFastForm   Kind = "fastform"
	KindStreamForm Kind = "streamform"
)

// NormalizedFile is the strategy-agnostic representation of one uploaded
// item. It is created at request-parse time, consumed synchronously during
// upload, and discarded after persistence or rejection.
type NormalizedFile struct {
	OriginalName string
	DeclaredMIME string
	DeclaredSize int64
	Data         []byte
	ReceivedAt   time.Time
}

// Request is the neutral view of an inbound upload request. The HTTP
// adapter builds one from the framework's context; tests build them
// directly.
type Request struct {
	ContentType   string
	ContentLength int64
	Body          io.Reader

	// form holds the parser-specific representation between Parse and
	// Extract; files holds already-normalized output for streaming
	// strategies that cannot defer the walk.
	form   any
	files  []NormalizedFile
	parsed bool
}

// Strategy parses a request body once and extracts its files.
type Strategy interface {
	// Parse consumes the request body and populates the parser's
	// representation of uploaded fields. A request without files is a
	// no-op, not an error, and Parse tolerates being called again.
	Parse(req *Request) error

	// Extract returns the flat list of normalized files, field-name
	// grouping already flattened. Any precheck violation aborts the
	// whole extraction: partial file lists would leave the caller with
	// an inconsistent count.
	Extract(req *Request) ([]NormalizedFile, error)
}

// New constructs the strategy registered for kind with the given precheck
// rules. The mapping is a compile-time switch rather than a dynamic lookup,
// so an unknown kind is caught at channel construction.
func New(kind Kind, rules Rules) (Strategy, error) {
	switch kind {
	case KindStdForm, "":
		return &stdForm{rules: rules}, nil
	case KindFastForm:
		return &fastForm{rules: rules}, nil
	case KindStreamForm:
		return &streamForm{rules: rules}, nil
	default:
		return nil, errx.New(
			"unknown upload strategy: "+string(kind),
			errx.WithCode(CodeUnknownStrategy),
			errx.WithType(errx.T_Internal),
		)
	}
}

// boundary pulls the multipart boundary out of a Content-Type header.
// Returns "" for non-multipart requests, which Parse treats as "no files".
func boundary(contentType string) string {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return ""
	}
	return params["boundary"]
}
