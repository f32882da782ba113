package strategy

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"time"

	"github.com/code19m/errx"
)

// streamForm walks multipart parts one at a time without ever buffering
// more than the channel's size ceiling per part. A part that crosses the
// ceiling has its remaining bytes counted and discarded: the true size is
// recorded so the pipeline can reject that one file without failing the
// rest of the batch, and memory stays bounded either way.
type streamForm struct {
	rules Rules
}

func (s *streamForm) Parse(req *Request) error {
	if req.parsed {
		return nil
	}
	req.parsed = true

	b := boundary(req.ContentType)
	if b == "" {
		return nil
	}

	reader := multipart.NewReader(req.Body, b)
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errx.Wrap(err, errx.WithCode(CodeExtractionFailed), errx.WithType(errx.T_Validation))
		}

		if part.FileName() == "" {
			_ = part.Close() // value field, not a file
			continue
		}

		file, err := s.readPart(part)
		_ = part.Close()
		if err != nil {
			req.files = nil
			return errx.Wrap(err)
		}
		req.files = append(req.files, file)
	}
}

func (s *streamForm) Extract(req *Request) ([]NormalizedFile, error) {
	files := req.files
	req.files = nil
	return files, nil
}

func (s *streamForm) readPart(part *multipart.Part) (NormalizedFile, error) {
	declaredMIME := part.Header.Get("Content-Type")
	if err := s.rules.precheck(part.FileName(), declaredMIME); err != nil {
		return NormalizedFile{}, errx.Wrap(err)
	}

	limit := s.rules.MaxFileSize
	if limit <= 0 {
		limit = stdFormMemoryThreshold
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(part, limit+1))
	if err != nil {
		return NormalizedFile{}, errx.Wrap(err, errx.WithCode(CodeExtractionFailed))
	}

	total := n
	if n > limit {
		// Ceiling crossed: stop keeping bytes, keep counting.
		discarded, err := io.Copy(io.Discard, part)
		if err != nil {
			return NormalizedFile{}, errx.Wrap(err, errx.WithCode(CodeExtractionFailed))
		}
		total += discarded
	}

	return NormalizedFile{
		OriginalName: part.FileName(),
		DeclaredMIME: declaredMIME,
		DeclaredSize: total,
		Data:         buf.Bytes(),
		ReceivedAt:   time.Now(),
	}, nil
}
