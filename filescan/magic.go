package filescan

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// mimeExceptions tolerates known benign declared/actual mismatches.
// Keyed by declared type, values are accepted sniffed types.
var mimeExceptions = map[string][]string{
	"image/jpg":                    {"image/jpeg"},
	"image/pjpeg":                  {"image/jpeg"},
	"text/xml":                     {"application/xml"},
	"application/xml":              {"text/xml"},
	"application/x-zip-compressed": {"application/zip"},
	// OOXML formats are ZIP containers; shallow sniffers report them as such.
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {"application/zip"},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       {"application/zip"},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {"application/zip"},
	// Browsers fall back to octet-stream for anything they cannot name.
	"application/octet-stream": {"*"},
}

// extensionExpectedTypes maps trusted extensions to the sniffed types they
// may legitimately carry. OOXML formats sniff as zip on minimal detectors,
// so zip stays in their accepted set; the content analyzer still inspects
// the archive for macros.
var extensionExpectedTypes = map[string][]string{
	".jpg":  {"image/jpeg"},
	".jpeg": {"image/jpeg"},
	".png":  {"image/png"},
	".gif":  {"image/gif"},
	".webp": {"image/webp"},
	".bmp":  {"image/bmp", "image/x-ms-bmp"},
	".pdf":  {"application/pdf"},
	".zip":  {"application/zip"},
	".doc":  {"application/msword", "application/x-ole-storage"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
	".xls":  {"application/vnd.ms-excel", "application/x-ole-storage"},
	".xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "application/zip"},
	// Plain-text uploads legitimately sniff as richer text subtypes
	// (html, csv, source code), so the whole text family is accepted.
	".txt": {"text/*"},
	".csv": {"text/*"},
}

// checkMagic sniffs the real content type and compares it against the
// declared MIME and the extension's expected-type table.
func checkMagic(f File) string {
	if len(f.Data) == 0 {
		return "content type undetectable: empty content"
	}

	detected := mimetype.Detect(f.Data)
	sniffed := baseMIME(detected.String())

	declared := baseMIME(f.DeclaredMIME)
	if declared != "" && !typesMatch(declared, sniffed, detected) {
		return fmt.Sprintf("declared type %s conflicts with detected type %s", declared, sniffed)
	}

	ext := strings.ToLower(filepath.Ext(f.Name))
	if expected, ok := extensionExpectedTypes[ext]; ok {
		if !sniffedInSet(sniffed, detected, expected) {
			return fmt.Sprintf("extension %s expects %s but content is %s", ext, expected[0], sniffed)
		}
	}

	return ""
}

func typesMatch(declared, sniffed string, detected *mimetype.MIME) bool {
	if declared == sniffed || detected.Is(declared) {
		return true
	}
	// Text subtypes are interchangeable enough for a declared-type check;
	// the content analyzer handles what is actually inside.
	if strings.HasPrefix(declared, "text/") && strings.HasPrefix(sniffed, "text/") {
		return true
	}
	for _, accepted := range mimeExceptions[declared] {
		if accepted == "*" || accepted == sniffed {
			return true
		}
	}
	return false
}

func sniffedInSet(sniffed string, detected *mimetype.MIME, set []string) bool {
	for _, want := range set {
		if prefix, ok := strings.CutSuffix(want, "/*"); ok {
			if strings.HasPrefix(sniffed, prefix+"/") {
				return true
			}
			continue
		}
		if sniffed == want || detected.Is(want) {
			return true
		}
	}
	return false
}

// baseMIME strips parameters such as "; charset=utf-8" and lowercases.
func baseMIME(mime string) string {
	mime = strings.TrimSpace(strings.ToLower(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return mime
}
