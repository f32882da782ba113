package strategy_test

import (
	"bytes"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deedvault/fileguard/upload/strategy"
)

type partSpec struct {
	field    string
	filename string
	mime     string
	content  string
}

func buildMultipart(t *testing.T, parts []partSpec) (string, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{
			`form-data; name="` + p.field + `"; filename="` + p.filename + `"`,
		}
		header["Content-Type"] = []string{p.mime}
		pw, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = pw.Write([]byte(p.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return w.FormDataContentType(), &buf
}

func newRequest(contentType string, body *bytes.Buffer) *strategy.Request {
	return &strategy.Request{
		ContentType:   contentType,
		ContentLength: int64(body.Len()),
		Body:          body,
	}
}

func allKinds() []strategy.Kind {
	return []strategy.Kind{strategy.KindStdForm, strategy.KindFastForm, strategy.KindStreamForm}
}

func TestExtract_AllStrategiesNormalizeEqually(t *testing.T) {
	parts := []partSpec{
		{field: "documents", filename: "deed.pdf", mime: "application/pdf", content: "%PDF-1.7 deed"},
		{field: "documents", filename: "survey.pdf", mime: "application/pdf", content: "%PDF-1.7 survey"},
		{field: "cover", filename: "front.jpg", mime: "image/jpeg", content: "jpegbytes"},
	}

	for _, kind := range allKinds() {
		t.Run(string(kind), func(t *testing.T) {
			s, err := strategy.New(kind, strategy.Rules{MaxFileSize: 1 << 20})
			require.NoError(t, err)

			ct, body := buildMultipart(t, parts)
			req := newRequest(ct, body)

			require.NoError(t, s.Parse(req))
			files, err := s.Extract(req)
			require.NoError(t, err)
			require.Len(t, files, 3)

			names := make([]string, 0, len(files))
			for _, f := range files {
				names = append(names, f.OriginalName)
				assert.NotEmpty(t, f.Data)
				assert.False(t, f.ReceivedAt.IsZero())
			}
			assert.ElementsMatch(t, []string{"deed.pdf", "survey.pdf", "front.jpg"}, names)

			// Files within one field keep submission order.
			assert.Less(t,
				indexOf(names, "deed.pdf"), indexOf(names, "survey.pdf"))
		})
	}
}

func indexOf(list []string, want string) int {
	for i, s := range list {
		if s == want {
			return i
		}
	}
	return -1
}

func TestExtract_CrossFieldOrdering(t *testing.T) {
	// Submission order interleaves two field names; "zeta" parts arrive
	// before the "alpha" part.
	parts := []partSpec{
		{field: "zeta", filename: "first.pdf", mime: "application/pdf", content: "%PDF-1.7 first"},
		{field: "alpha", filename: "second.jpg", mime: "image/jpeg", content: "jpegbytes"},
		{field: "zeta", filename: "third.pdf", mime: "application/pdf", content: "%PDF-1.7 third"},
	}

	extract := func(t *testing.T, kind strategy.Kind) []string {
		t.Helper()
		s, err := strategy.New(kind, strategy.Rules{MaxFileSize: 1 << 20})
		require.NoError(t, err)

		ct, body := buildMultipart(t, parts)
		req := newRequest(ct, body)

		require.NoError(t, s.Parse(req))
		files, err := s.Extract(req)
		require.NoError(t, err)

		names := make([]string, 0, len(files))
		for _, f := range files {
			names = append(names, f.OriginalName)
		}
		return names
	}

	// Streamform walks parts in wire order, so submission order survives
	// across field names.
	t.Run(string(strategy.KindStreamForm), func(t *testing.T) {
		assert.Equal(t,
			[]string{"first.pdf", "second.jpg", "third.pdf"},
			extract(t, strategy.KindStreamForm))
	})

	// Form-based strategies group by field name in sorted order and keep
	// submission order only within each field.
	for _, kind := range []strategy.Kind{strategy.KindStdForm, strategy.KindFastForm} {
		t.Run(string(kind), func(t *testing.T) {
			assert.Equal(t,
				[]string{"second.jpg", "first.pdf", "third.pdf"},
				extract(t, kind))
		})
	}
}

func TestParse_NonMultipartIsNoOp(t *testing.T) {
	for _, kind := range allKinds() {
		t.Run(string(kind), func(t *testing.T) {
			s, err := strategy.New(kind, strategy.Rules{})
			require.NoError(t, err)

			req := newRequest("application/json", bytes.NewBufferString(`{"a":1}`))
			require.NoError(t, s.Parse(req))
			require.NoError(t, s.Parse(req)) // repeated parse stays a no-op

			files, err := s.Extract(req)
			require.NoError(t, err)
			assert.Empty(t, files)
		})
	}
}

func TestExtract_PrecheckFailsWholeRequest(t *testing.T) {
	tests := []struct {
		name  string
		rules strategy.Rules
		parts []partSpec
	}{
		{
			name:  "path traversal filename",
			rules: strategy.Rules{},
			parts: []partSpec{
				{field: "f", filename: "ok.txt", mime: "text/plain", content: "fine"},
				{field: "f", filename: "../../etc/cron.txt", mime: "text/plain", content: "bad"},
			},
		},
		{
			name:  "blocked extension",
			rules: strategy.Rules{BlockedExtensions: []string{".exe"}},
			parts: []partSpec{
				{field: "f", filename: "setup.exe", mime: "application/octet-stream", content: "MZ"},
			},
		},
		{
			name:  "mime outside allow list",
			rules: strategy.Rules{AllowedMIMETypes: []string{"image/*"}},
			parts: []partSpec{
				{field: "f", filename: "notes.txt", mime: "text/plain", content: "hello"},
			},
		},
		{
			name:  "reserved device name",
			rules: strategy.Rules{},
			parts: []partSpec{
				{field: "f", filename: "con.txt", mime: "text/plain", content: "x"},
			},
		},
	}

	for _, tt := range tests {
		for _, kind := range allKinds() {
			t.Run(tt.name+"/"+string(kind), func(t *testing.T) {
				s, err := strategy.New(kind, tt.rules)
				require.NoError(t, err)

				ct, body := buildMultipart(t, tt.parts)
				req := newRequest(ct, body)

				parseErr := s.Parse(req)
				var files []strategy.NormalizedFile
				var extractErr error
				if parseErr == nil {
					files, extractErr = s.Extract(req)
				}

				// No partial extraction: the request fails as a whole.
				assert.True(t, parseErr != nil || extractErr != nil)
				assert.Empty(t, files)
			})
		}
	}
}

func TestExtract_WildcardMIMEAllowed(t *testing.T) {
	s, err := strategy.New(strategy.KindStdForm, strategy.Rules{AllowedMIMETypes: []string{"image/*", "application/pdf"}})
	require.NoError(t, err)

	ct, body := buildMultipart(t, []partSpec{
		{field: "f", filename: "a.png", mime: "image/png", content: "png"},
		{field: "f", filename: "b.pdf", mime: "application/pdf", content: "%PDF"},
	})
	req := newRequest(ct, body)

	require.NoError(t, s.Parse(req))
	files, err := s.Extract(req)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestStreamForm_OversizedPartIsCountedNotBuffered(t *testing.T) {
	const ceiling = 64

	s, err := strategy.New(strategy.KindStreamForm, strategy.Rules{MaxFileSize: ceiling})
	require.NoError(t, err)

	big := strings.Repeat("x", 10*ceiling)
	ct, body := buildMultipart(t, []partSpec{
		{field: "f", filename: "big.txt", mime: "text/plain", content: big},
	})
	req := newRequest(ct, body)

	require.NoError(t, s.Parse(req))
	files, err := s.Extract(req)
	require.NoError(t, err)
	require.Len(t, files, 1)

	// True size is recorded, buffered bytes stay bounded by the ceiling.
	assert.Equal(t, int64(len(big)), files[0].DeclaredSize)
	assert.LessOrEqual(t, len(files[0].Data), ceiling+1)
}
