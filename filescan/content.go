package filescan

import (
	"bytes"
	"strings"
)

const textSampleSize = 512

// dangerousTextPatterns is the fixed catalogue of payload fragments that are
// never legitimate inside an uploaded document. Matching is done on a
// lowercased view of the content.
var dangerousTextPatterns = []struct {
	pattern string
	label   string
}{
	// Server-side script execution.
	{"<?php", "PHP opening tag"},
	{"<%", "server-side template tag"},
	{"shell_exec", "shell execution call"},
	{"passthru(", "shell execution call"},
	{"proc_open(", "process spawn call"},
	{"base64_decode(", "obfuscated payload decoder"},

	// Inline script injection.
	{"<script", "inline script tag"},
	{"javascript:", "javascript URI"},
	{"onerror=", "inline event handler"},
	{"onload=", "inline event handler"},

	// SQL injection fragments.
	{"union select", "SQL injection keyword"},
	{"drop table", "SQL injection keyword"},
	{"insert into", "SQL injection keyword"},
	{"'; --", "SQL injection terminator"},

	// XML external entities and server-side includes.
	{"<!entity", "XML external entity declaration"},
	{"<!--#exec", "server-side include directive"},
	{"<!--#include", "server-side include directive"},
}

// base64Signatures are encoded leading bytes of executable and container
// formats smuggled inside text payloads.
var base64Signatures = []struct {
	pattern string
	label   string
}{
	{"tvqq", "base64-encoded Windows executable"},
	{"tvpq", "base64-encoded Windows executable"},
	{"f0vmr", "base64-encoded ELF executable"},
	{"uesdbbq", "base64-encoded ZIP container"},
}

var (
	pdfHeader = []byte("%PDF")
	zipHeader = []byte("PK\x03\x04")
)

// checkContent analyzes the payload according to its real shape: text-like
// content is scanned against the pattern catalogue, PDFs and ZIP-based
// office documents get format-specific structural checks. Soft findings are
// recorded on r; a non-empty return is a hard rejection reason.
func checkContent(f File, r *Result) string {
	switch {
	case bytes.HasPrefix(f.Data, pdfHeader):
		return checkPDF(f.Data, r)
	case bytes.HasPrefix(f.Data, zipHeader):
		return checkZipDocument(f.Data)
	case isTextLike(f):
		return checkText(f.Data)
	}
	return ""
}

func checkText(data []byte) string {
	lower := strings.ToLower(string(data))

	for _, p := range dangerousTextPatterns {
		if strings.Contains(lower, p.pattern) {
			return "dangerous content: " + p.label
		}
	}
	for _, p := range base64Signatures {
		if strings.Contains(lower, p.pattern) {
			return "dangerous content: " + p.label
		}
	}
	return ""
}

// checkPDF rejects embedded scripting and warns on features that merely
// deserve review (forms, attachments, auto-open actions).
func checkPDF(data []byte, r *Result) string {
	if bytes.Contains(data, []byte("/JavaScript")) || bytes.Contains(data, []byte("/JS")) {
		return "PDF contains embedded JavaScript"
	}
	if bytes.Contains(data, []byte("/Launch")) {
		return "PDF contains launch action"
	}

	for _, soft := range []struct {
		token []byte
		msg   string
	}{
		{[]byte("/AcroForm"), "PDF contains interactive form"},
		{[]byte("/EmbeddedFile"), "PDF contains embedded file attachment"},
		{[]byte("/OpenAction"), "PDF contains auto-open action"},
		{[]byte("/AA"), "PDF contains additional-actions dictionary"},
	} {
		if bytes.Contains(data, soft.token) {
			r.warn(soft.msg, penaltyDocWarning)
		}
	}
	return ""
}

// checkZipDocument inspects ZIP-based office formats for macro projects and
// external object references. The entry names appear as plain bytes in the
// central directory, so a byte scan is sufficient without unpacking.
func checkZipDocument(data []byte) string {
	if bytes.Contains(data, []byte("vbaProject.bin")) {
		return "office document contains embedded macro project"
	}
	if bytes.Contains(data, []byte("oleObject")) && bytes.Contains(data, []byte(`TargetMode="External"`)) {
		return "office document references external OLE object"
	}
	return ""
}

// isTextLike decides whether content should go through the text scanner:
// either the declared MIME says so, or a sample of the head bytes is mostly
// printable and free of embedded NULs.
func isTextLike(f File) bool {
	declared := baseMIME(f.DeclaredMIME)
	if strings.HasPrefix(declared, "text/") ||
		declared == "application/json" ||
		declared == "application/xml" ||
		declared == "application/javascript" ||
		declared == "image/svg+xml" {
		return true
	}

	sample := f.Data
	if len(sample) > textSampleSize {
		sample = sample[:textSampleSize]
	}
	if len(sample) == 0 {
		return false
	}

	printable := 0
	for _, b := range sample {
		if b == 0 {
			return false
		}
		if b == '\n' || b == '\r' || b == '\t' || (b >= 0x20 && b < 0x7F) {
			printable++
		}
	}
	return float64(printable)/float64(len(sample)) > 0.85
}
