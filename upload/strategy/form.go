package strategy

import (
	"io"
	"mime/multipart"
	"sort"
	"time"

	"github.com/code19m/errx"
)

// filesFromForm flattens a parsed multipart form into NormalizedFiles.
// multipart.Form keys files by field name and discards cross-field wire
// order, so field names are visited in sorted order to keep the output
// deterministic; files within one field keep their submitted order.
// Callers that need wire order across fields use the streamform strategy
// instead. Shared by the stdform and fastform strategies.
func filesFromForm(form *multipart.Form, rules Rules) ([]NormalizedFile, error) {
	if form == nil || len(form.File) == 0 {
		return nil, nil
	}

	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var files []NormalizedFile
	for _, field := range fields {
		for _, fh := range form.File[field] {
			declaredMIME := fh.Header.Get("Content-Type")
			if err := rules.precheck(fh.Filename, declaredMIME); err != nil {
				return nil, errx.Wrap(err)
			}

			data, err := readHeader(fh)
			if err != nil {
				return nil, errx.Wrap(err, errx.WithCode(CodeExtractionFailed))
			}

			files = append(files, NormalizedFile{
				OriginalName: fh.Filename,
				DeclaredMIME: declaredMIME,
				DeclaredSize: fh.Size,
				Data:         data,
				ReceivedAt:   time.Now(),
			})
		}
	}
	return files, nil
}

// readHeader buffers one file part fully into memory. Where the parser
// spilled the part to a temp file, this read is what pulls it back; the
// caller removes the temp files afterwards.
func readHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
