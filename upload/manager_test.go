package upload_test

import (
	"bytes"
	"context"
	"image/color"
	"testing"
	"time"

	"github.com/code19m/errx"
	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deedvault/fileguard/hasher"
	"github.com/deedvault/fileguard/logger"
	"github.com/deedvault/fileguard/quarantine"
	"github.com/deedvault/fileguard/storage"
	"github.com/deedvault/fileguard/storage/localwr"
	"github.com/deedvault/fileguard/upload"
	"github.com/deedvault/fileguard/upload/strategy"
)

type fixture struct {
	manager    *upload.Manager
	provider   storage.Provider
	quarantine *quarantine.Store
}

func newFixture(t *testing.T, channels map[string]upload.ChannelConfig, opts ...upload.Option) *fixture {
	t.Helper()

	log, err := logger.New(logger.Config{Level: "error", Encoding: "json"})
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	provider, err := localwr.NewWithFs(localwr.Config{RootDir: "/uploads", BaseURL: "/uploads"}, fs)
	require.NoError(t, err)

	q, err := quarantine.NewWithFs("/quarantine", fs)
	require.NoError(t, err)

	m, err := upload.New(log,
		map[string]storage.Provider{"local": provider},
		q, channels, opts...)
	require.NoError(t, err)

	return &fixture{manager: m, provider: provider, quarantine: q}
}

func jpegFile(t *testing.T, name string, width, height int) strategy.NormalizedFile {
	t.Helper()
	img := imaging.New(width, height, color.NRGBA{R: 120, G: 160, B: 90, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	return strategy.NormalizedFile{
		OriginalName: name,
		DeclaredMIME: "image/jpeg",
		DeclaredSize: int64(buf.Len()),
		Data:         buf.Bytes(),
		ReceivedAt:   time.Now(),
	}
}

func pdfFile(name string) strategy.NormalizedFile {
	data := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")
	return strategy.NormalizedFile{
		OriginalName: name,
		DeclaredMIME: "application/pdf",
		DeclaredSize: int64(len(data)),
		Data:         data,
		ReceivedAt:   time.Now(),
	}
}

func TestUpload_AcceptedJPEG(t *testing.T) {
	fx := newFixture(t, upload.BuiltinChannels())

	file := jpegFile(t, "villa front.jpg", 300, 200)
	desc, err := fx.manager.Upload(context.Background(), "image", file, upload.Hints{})
	require.NoError(t, err)

	assert.NotEmpty(t, desc.ID)
	assert.Equal(t, "villa front.jpg", desc.OriginalName)
	assert.NotEqual(t, desc.OriginalName, desc.StorageName)
	assert.Equal(t, storage.DirImages, desc.Directory)
	assert.Equal(t, "image/jpeg", desc.ContentType)
	assert.Equal(t, 300, desc.Metadata.Width)
	assert.Equal(t, 200, desc.Metadata.Height)
	assert.NotEmpty(t, desc.Metadata.Hash)

	stored, err := fx.provider.Get(context.Background(), desc.StorageName, desc.Directory)
	require.NoError(t, err)
	assert.Equal(t, desc.Size, int64(len(stored)))

	// 300px wide source gets only the 150px thumbnail.
	require.Len(t, desc.Thumbnails, 1)
	assert.Equal(t, 150, desc.Thumbnails[0].Width)
	ok, err := fx.provider.Exists(context.Background(), desc.Thumbnails[0].StorageName, desc.Directory)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpload_OversizedImageIsDownscaled(t *testing.T) {
	channels := upload.BuiltinChannels()
	ch := channels["image"]
	ch.MaxImageWidth = 200
	ch.GenerateThumbnails = false
	ch.MaxFileSize = 20 << 20
	channels["image"] = ch
	fx := newFixture(t, channels)

	desc, err := fx.manager.Upload(context.Background(), "image", jpegFile(t, "wide.jpg", 600, 300), upload.Hints{})
	require.NoError(t, err)
	assert.Equal(t, 200, desc.Metadata.Width)
	assert.Equal(t, 100, desc.Metadata.Height)
}

func TestUpload_MismatchedTypeIsQuarantined(t *testing.T) {
	fx := newFixture(t, upload.BuiltinChannels())

	zipBytes := append([]byte("PK\x03\x04"), bytes.Repeat([]byte{0x20}, 64)...)
	file := strategy.NormalizedFile{
		OriginalName: "invoice.pdf",
		DeclaredMIME: "application/pdf",
		DeclaredSize: int64(len(zipBytes)),
		Data:         zipBytes,
		ReceivedAt:   time.Now(),
	}

	_, err := fx.manager.Upload(context.Background(), "document", file, upload.Hints{})
	require.Error(t, err)
	assert.Equal(t, upload.CodeSecurityRejected, errx.AsErrorX(err).Code())

	records, err := fx.quarantine.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "invoice.pdf", records[0].OriginalName)
	assert.NotEmpty(t, records[0].Reason)

	// Rejected bytes never reach a real directory.
	for _, dir := range []string{storage.DirDocuments, storage.DirGeneral} {
		objects, err := fx.provider.List(context.Background(), dir)
		require.NoError(t, err)
		assert.Empty(t, objects)
	}
}

func TestUpload_SizeCeilingRejectsBeforeValidation(t *testing.T) {
	channels := upload.BuiltinChannels()
	ch := channels["document"]
	ch.MaxFileSize = 16
	channels["document"] = ch
	fx := newFixture(t, channels)

	_, err := fx.manager.Upload(context.Background(), "document", pdfFile("contract.pdf"), upload.Hints{})
	require.Error(t, err)
	assert.Equal(t, strategy.CodeFileTooLarge, errx.AsErrorX(err).Code())

	// Too-large is a plain rejection, not a quarantine case.
	records, err := fx.quarantine.Records(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestUpload_UnknownChannel(t *testing.T) {
	fx := newFixture(t, upload.BuiltinChannels())

	_, err := fx.manager.Upload(context.Background(), "nope", pdfFile("a.pdf"), upload.Hints{})
	require.Error(t, err)
	assert.Equal(t, upload.CodeUnknownChannel, errx.AsErrorX(err).Code())
}

func TestUpload_VirusScanHookRejects(t *testing.T) {
	channels := upload.BuiltinChannels()
	ch := channels["document"]
	ch.VirusScan = func(_ context.Context, f *strategy.NormalizedFile) error {
		return errx.New("signature match: eicar")
	}
	channels["document"] = ch
	fx := newFixture(t, channels)

	_, err := fx.manager.Upload(context.Background(), "document", pdfFile("infected.pdf"), upload.Hints{})
	require.Error(t, err)
	assert.Equal(t, upload.CodeVirusDetected, errx.AsErrorX(err).Code())

	records, err := fx.quarantine.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestUpload_AfterPersistFailureKeepsBytes(t *testing.T) {
	var persisted *upload.PersistedFileDescriptor
	hook := func(_ context.Context, d *upload.PersistedFileDescriptor) error {
		persisted = d
		return errx.New("registry unavailable")
	}
	fx := newFixture(t, upload.BuiltinChannels(), upload.WithAfterPersist(hook))

	_, err := fx.manager.Upload(context.Background(), "document", pdfFile("deed.pdf"), upload.Hints{})
	require.Error(t, err)
	assert.Equal(t, upload.CodePersistHookFailed, errx.AsErrorX(err).Code())

	// No compensating delete: the object stays for out-of-band reconciliation.
	require.NotNil(t, persisted)
	ok, existsErr := fx.provider.Exists(context.Background(), persisted.StorageName, persisted.Directory)
	require.NoError(t, existsErr)
	assert.True(t, ok)
}

func TestUpload_BlockedHashZeroesTrust(t *testing.T) {
	file := pdfFile("blocked.pdf")

	digest := mustSHA256(t, file.Data)
	fx := newFixture(t, upload.BuiltinChannels(), upload.WithBlockedHashes([]string{digest}))

	_, err := fx.manager.Upload(context.Background(), "document", file, upload.Hints{})
	require.Error(t, err)
	assert.Equal(t, upload.CodeSecurityRejected, errx.AsErrorX(err).Code())
}

func TestUpload_DirectoryHintWins(t *testing.T) {
	fx := newFixture(t, upload.BuiltinChannels())

	desc, err := fx.manager.Upload(context.Background(), "document", pdfFile("plan.pdf"), upload.Hints{
		Directory:         storage.DirProperties,
		RelatedEntityType: "property",
		RelatedEntityID:   "prop-42",
	})
	require.NoError(t, err)
	assert.Equal(t, storage.DirProperties, desc.Directory)
	assert.Equal(t, "prop-42", desc.RelatedEntityID)
}

func TestUploadBatch_PartialSuccessKeepsOrder(t *testing.T) {
	channels := upload.BuiltinChannels()
	ch := channels["document"]
	ch.MaxFileSize = 1 << 10
	channels["document"] = ch
	fx := newFixture(t, channels)

	big := pdfFile("big.pdf")
	big.Data = append(big.Data, bytes.Repeat([]byte{' '}, 2<<10)...)
	big.DeclaredSize = int64(len(big.Data))

	files := []strategy.NormalizedFile{pdfFile("one.pdf"), big, pdfFile("three.pdf")}

	results, err := fx.manager.UploadBatch(context.Background(), "document", files, upload.Hints{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "one.pdf", results[0].OriginalName)
	assert.True(t, results[0].OK)
	assert.Equal(t, "big.pdf", results[1].OriginalName)
	assert.False(t, results[1].OK)
	assert.Equal(t, strategy.CodeFileTooLarge, results[1].Code)
	assert.Equal(t, "three.pdf", results[2].OriginalName)
	assert.True(t, results[2].OK)
}

func TestSwitchStrategy_ReplacesOnlyTargetChannel(t *testing.T) {
	fx := newFixture(t, upload.BuiltinChannels())

	require.NoError(t, fx.manager.SwitchStrategy("image", strategy.KindStreamForm))

	// Swapped channel still uploads.
	_, err := fx.manager.Upload(context.Background(), "image", jpegFile(t, "after.jpg", 120, 80), upload.Hints{})
	require.NoError(t, err)

	// Unknown channel or strategy is refused.
	err = fx.manager.SwitchStrategy("nope", strategy.KindStreamForm)
	require.Error(t, err)
	err = fx.manager.SwitchStrategy("image", strategy.Kind("bogus"))
	require.Error(t, err)
}

func TestNew_UnknownBackendFailsConstruction(t *testing.T) {
	log, err := logger.New(logger.Config{Level: "error", Encoding: "json"})
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	q, err := quarantine.NewWithFs("/quarantine", fs)
	require.NoError(t, err)

	_, err = upload.New(log, map[string]storage.Provider{}, q, map[string]upload.ChannelConfig{
		"broken": {StorageBackend: "missing", MaxFileSize: 1},
	})
	require.Error(t, err)
	assert.Equal(t, upload.CodeChannelConfig, errx.AsErrorX(err).Code())
}

func TestHints_Precedence(t *testing.T) {
	query := map[string]string{"channel": "image"}
	header := map[string]string{
		"X-Upload-Channel":   "document",
		"X-Upload-Directory": "documents",
	}
	form := map[string]string{
		"channel":           "general",
		"directory":         "general",
		"document_type":     "title_deed",
		"related_entity_id": "inv-7",
	}

	h := upload.ReadHints(
		func(k string) string { return query[k] },
		func(k string) string { return header[k] },
		func(k string) string { return form[k] },
	)

	assert.Equal(t, "image", h.Channel)           // query beats header
	assert.Equal(t, "documents", h.Directory)     // header beats form
	assert.Equal(t, "title_deed", h.DocumentType) // form as last source
	assert.Equal(t, "inv-7", h.RelatedEntityID)
}

func mustSHA256(t *testing.T, data []byte) string {
	t.Helper()
	return hasher.MustSum(hasher.SHA256, data)
}
