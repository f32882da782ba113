package strategy

import (
	"errors"
	"io"
	"mime/multipart"

	"github.com/code19m/errx"
	"github.com/valyala/fasthttp"
)

// fastForm parses multipart bodies through fasthttp's request parser, the
// same engine the fiber adapter runs on. The whole body is buffered in
// memory, so there are no temp files to clean up.
type fastForm struct {
	rules Rules
}

func (s *fastForm) Parse(req *Request) error {
	if req.parsed {
		return nil
	}
	req.parsed = true

	if boundary(req.ContentType) == "" {
		return nil
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return errx.Wrap(err, errx.WithCode(CodeExtractionFailed))
	}

	freq := fasthttp.AcquireRequest()
	freq.Header.SetContentType(req.ContentType)
	freq.SetBody(body)

	form, err := freq.MultipartForm()
	if err != nil {
		fasthttp.ReleaseRequest(freq)
		if errors.Is(err, fasthttp.ErrNoMultipartForm) {
			return nil
		}
		return errx.Wrap(err, errx.WithCode(CodeExtractionFailed), errx.WithType(errx.T_Validation))
	}

	req.form = &fastFormState{freq: freq, form: form}
	return nil
}

func (s *fastForm) Extract(req *Request) ([]NormalizedFile, error) {
	state, ok := req.form.(*fastFormState)
	if !ok || state == nil {
		return nil, nil
	}
	defer func() {
		state.release()
		req.form = nil
	}()

	files, err := filesFromForm(state.form, s.rules)
	if err != nil {
		return nil, errx.Wrap(err)
	}
	return files, nil
}

// fastFormState keeps the fasthttp request alive until its multipart form
// has been drained; the form's buffers belong to the request object.
type fastFormState struct {
	freq *fasthttp.Request
	form *multipart.Form
}

func (s *fastFormState) release() {
	_ = s.form.RemoveAll()
	fasthttp.ReleaseRequest(s.freq)
}
