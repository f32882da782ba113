package upload

import (
	"strings"

	"github.com/spf13/cast"
)

// Hints are the optional routing values that ride alongside the file parts
// of a request: which channel handles the upload, where the bytes land, and
// which domain record they belong to.
type Hints struct {
	Channel           string
	Directory         string
	RelatedEntityType string
	RelatedEntityID   string
	DocumentType      string
	UploaderID        string
}

// Hint source keys. Each hint reads, in precedence order, the query
// parameter, the X-Upload-* header, then the body form field; the channel
// default applies when all three are empty.
const (
	HintChannel      = "channel"
	HintDirectory    = "directory"
	HintEntityType   = "related_entity_type"
	HintEntityID     = "related_entity_id"
	HintDocumentType = "document_type"

	headerPrefix = "X-Upload-"
)

// HeaderFor maps a hint key to its header form: related_entity_id becomes
// X-Upload-Related-Entity-Id.
func HeaderFor(hint string) string {
	parts := strings.Split(hint, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return headerPrefix + strings.Join(parts, "-")
}

// firstHint returns the first non-empty value in precedence order. Values
// arrive as whatever the transport hands over; cast normalizes them.
func firstHint(values ...any) string {
	for _, v := range values {
		if s := strings.TrimSpace(cast.ToString(v)); s != "" {
			return s
		}
	}
	return ""
}

// ReadHints assembles Hints from three lookup functions ordered by
// precedence: query, header, body form field. Transport adapters supply
// the lookups; tests pass plain map getters.
func ReadHints(query, header, form func(key string) string) Hints {
	read := func(hint string) string {
		return firstHint(query(hint), header(HeaderFor(hint)), form(hint))
	}
	return Hints{
		Channel:           read(HintChannel),
		Directory:         read(HintDirectory),
		RelatedEntityType: read(HintEntityType),
		RelatedEntityID:   read(HintEntityID),
		DocumentType:      read(HintDocumentType),
	}
}
