package strategy

import (
	"errors"
	"io"
	"mime/multipart"

	"github.com/code19m/errx"
)

// stdFormMemoryThreshold is how much of the form the net/http parser keeps
// in memory before spilling parts to temp files.
const stdFormMemoryThreshold = 16 << 20 // 16 MiB

// stdForm parses multipart bodies with the standard library's full-form
// parser. Oversized parts land in temp files, which Extract reads back and
// removes before returning — no temp files survive a call.
type stdForm struct {
	rules Rules
}

func (s *stdForm) Parse(req *Request) error {
	if req.parsed {
		return nil
	}
	req.parsed = true

	b := boundary(req.ContentType)
	if b == "" {
		return nil // not a multipart request: nothing to do
	}

	form, err := multipart.NewReader(req.Body, b).ReadForm(stdFormMemoryThreshold)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errx.Wrap(err, errx.WithCode(CodeExtractionFailed), errx.WithType(errx.T_Validation))
	}
	req.form = form
	return nil
}

func (s *stdForm) Extract(req *Request) ([]NormalizedFile, error) {
	form, ok := req.form.(*multipart.Form)
	if !ok || form == nil {
		return nil, nil
	}
	// Temp-file cleanup must happen whether or not extraction succeeds.
	defer func() {
		_ = form.RemoveAll()
		req.form = nil
	}()

	files, err := filesFromForm(form, s.rules)
	if err != nil {
		return nil, errx.Wrap(err)
	}
	return files, nil
}
