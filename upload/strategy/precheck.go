package strategy

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/code19m/errx"
	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
)

// Rules are the per-channel constraints a strategy enforces on every file
// before normalization. Deeper content inspection happens later in the
// security validator; these checks exist so obviously hostile requests die
// at the parsing boundary.
type Rules struct {
	// BlockedExtensions lists extensions (with leading dot) that abort
	// extraction.
	BlockedExtensions []string

	// AllowedMIMETypes restricts declared types; empty allows any.
	// Entries match exactly or by wildcard prefix ("image/*").
	AllowedMIMETypes []string

	// MaxFileSize is the channel's size ceiling. Streaming extraction
	// rejects a part as soon as the ceiling is crossed; buffered parsers
	// check after the fact.
	MaxFileSize int64
}

var reservedDeviceNames = map[string]struct{}{
	"con": {}, "prn": {}, "aux": {}, "nul": {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {},
}

// Check validates an already-buffered file against the rules, including the
// size ceiling. Streaming parsers enforce the ceiling while copying; buffered
// parsers and the upload pipeline call this after the fact.
func (r Rules) Check(f NormalizedFile) error {
	if err := r.precheck(f.OriginalName, f.DeclaredMIME); err != nil {
		return err
	}

	size := f.DeclaredSize
	if buffered := int64(len(f.Data)); buffered > size {
		size = buffered
	}
	if r.MaxFileSize > 0 && size > r.MaxFileSize {
		return errx.New(
			fmt.Sprintf("file exceeds size ceiling: %s > %s",
				humanize.IBytes(uint64(size)), humanize.IBytes(uint64(r.MaxFileSize))),
			errx.WithCode(CodeFileTooLarge),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{
				"filename": f.OriginalName,
				"size":     size,
				"limit":    r.MaxFileSize,
			}),
		)
	}
	return nil
}

// precheck validates one file's declared name and type against the rules.
func (r Rules) precheck(filename, declaredMIME string) error {
	if filename == "" {
		return extractionErr("upload part has no filename", CodeUnsafeFilename)
	}
	if strings.Contains(filename, "..") || strings.ContainsAny(filename, "\x00") ||
		strings.Contains(filename, "//") || strings.Contains(filename, `\\`) {
		return extractionErr("unsafe filename: "+filename, CodeUnsafeFilename)
	}

	stem := strings.ToLower(filename)
	if dot := strings.IndexByte(stem, '.'); dot >= 0 {
		stem = stem[:dot]
	}
	if _, ok := reservedDeviceNames[stem]; ok {
		return extractionErr("reserved device name: "+filename, CodeUnsafeFilename)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext != "" && lo.Contains(r.BlockedExtensions, ext) {
		return extractionErr("blocked extension: "+ext, CodeBlockedExtension)
	}

	if len(r.AllowedMIMETypes) > 0 && !mimeAllowed(declaredMIME, r.AllowedMIMETypes) {
		return extractionErr("declared type not allowed: "+declaredMIME, CodeMIMENotAllowed)
	}

	return nil
}

func mimeAllowed(declared string, allowed []string) bool {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}

	for _, entry := range allowed {
		entry = strings.ToLower(entry)
		if prefix, ok := strings.CutSuffix(entry, "/*"); ok {
			if strings.HasPrefix(declared, prefix+"/") {
				return true
			}
			continue
		}
		if declared == entry {
			return true
		}
	}
	return false
}

func extractionErr(msg, code string) error {
	return errx.New(msg, errx.WithCode(code), errx.WithType(errx.T_Validation))
}
