// Package upload orchestrates the file ingestion pipeline: per-channel
// request parsing, security validation, quarantine of rejected input,
// best-effort image processing and delegation to a storage backend.
//
// A Manager owns a table of named channels. Each channel binds one parsing
// strategy, one validator configuration and one storage provider; the table
// is replaced atomically on strategy hot-swap so in-flight uploads keep the
// entry they resolved.
package upload

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/code19m/errx"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/deedvault/fileguard/events"
	"github.com/deedvault/fileguard/filescan"
	"github.com/deedvault/fileguard/hasher"
	"github.com/deedvault/fileguard/logger"
	"github.com/deedvault/fileguard/quarantine"
	"github.com/deedvault/fileguard/storage"
	"github.com/deedvault/fileguard/upload/strategy"
)

// channel is one immutable entry in the manager's channel table.
type channel struct {
	name     string
	cfg      ChannelConfig
	strategy strategy.Strategy
	scanner  *filescan.Validator
	provider storage.Provider
}

// Manager is the orchestration point for all upload channels.
type Manager struct {
	log        logger.Logger
	providers  map[string]storage.Provider
	quarantine *quarantine.Store

	events        *events.Publisher
	afterPersist  PersistHook
	blockedHashes []string

	// channels holds the active table snapshot. SwitchStrategy builds a
	// new map and swaps the pointer; readers never see a partial update.
	channels atomic.Pointer[map[string]*channel]
	swapMu   sync.Mutex
}

// Option configures optional manager collaborators.
type Option func(*Manager)

// WithEvents attaches an audit-event publisher. Publish failures are
// logged at warn and never fail an upload.
func WithEvents(p *events.Publisher) Option {
	return func(m *Manager) { m.events = p }
}

// WithAfterPersist sets the post-persist hook, typically the file-registry
// writer.
func WithAfterPersist(hook PersistHook) Option {
	return func(m *Manager) { m.afterPersist = hook }
}

// WithBlockedHashes injects the known-malicious content digest set shared
// by every channel's validator.
func WithBlockedHashes(hashes []string) Option {
	return func(m *Manager) { m.blockedHashes = hashes }
}

// New builds a Manager from a channel table and the providers it refers
// to. Channel definitions are validated eagerly: an unknown storage
// backend or strategy kind fails construction, not the first upload.
func New(
	log logger.Logger,
	providers map[string]storage.Provider,
	quarantineStore *quarantine.Store,
	channels map[string]ChannelConfig,
	opts ...Option,
) (*Manager, error) {
	m := &Manager{
		log:        log.Named("upload"),
		providers:  providers,
		quarantine: quarantineStore,
	}
	for _, opt := range opts {
		opt(m)
	}

	table := make(map[string]*channel, len(channels))
	for name, cfg := range channels {
		ch, err := m.buildChannel(name, cfg)
		if err != nil {
			return nil, errx.Wrap(err, errx.WithDetails(errx.D{"channel": name}))
		}
		table[name] = ch
	}
	m.channels.Store(&table)

	return m, nil
}

func (m *Manager) buildChannel(name string, cfg ChannelConfig) (*channel, error) {
	provider, ok := m.providers[cfg.StorageBackend]
	if !ok {
		return nil, errx.New(
			"channel refers to unknown storage backend: "+cfg.StorageBackend,
			errx.WithCode(CodeChannelConfig),
			errx.WithType(errx.T_Internal),
		)
	}

	strat, err := strategy.New(cfg.Strategy, cfg.rules())
	if err != nil {
		return nil, errx.Wrap(err, errx.WithCode(CodeChannelConfig))
	}

	if cfg.HashAlgorithm == "" {
		cfg.HashAlgorithm = hasher.Default
	}
	if !hasher.Valid(cfg.HashAlgorithm) {
		return nil, errx.New(
			"channel refers to unknown hash algorithm: "+string(cfg.HashAlgorithm),
			errx.WithCode(CodeChannelConfig),
			errx.WithType(errx.T_Internal),
		)
	}

	return &channel{
		name:     name,
		cfg:      cfg,
		strategy: strat,
		scanner: filescan.New(filescan.Config{
			HashAlgorithm:    cfg.HashAlgorithm,
			BlockedHashes:    m.blockedHashes,
			SkipMagicCheck:   !cfg.CheckMagicNumber,
			SkipContentCheck: !cfg.ValidateContent,
		}),
		provider: provider,
	}, nil
}

// Channel resolves a channel by name. An empty name resolves "general".
func (m *Manager) channel(name string) (*channel, error) {
	if name == "" {
		name = "general"
	}
	table := *m.channels.Load()
	ch, ok := table[name]
	if !ok {
		return nil, errx.New(
			"unknown upload channel: "+name,
			errx.WithCode(CodeUnknownChannel),
			errx.WithType(errx.T_Validation),
		)
	}
	return ch, nil
}

// SwitchStrategy hot-swaps the parsing strategy for one channel. The
// channel entry is rebuilt with a fresh strategy instance and the table
// pointer is replaced; uploads already bound to the old entry finish
// against it undisturbed.
func (m *Manager) SwitchStrategy(channelName string, kind strategy.Kind) error {
	m.swapMu.Lock()
	defer m.swapMu.Unlock()

	old, err := m.channel(channelName)
	if err != nil {
		return errx.Wrap(err)
	}

	cfg := old.cfg
	cfg.Strategy = kind
	replacement, err := m.buildChannel(old.name, cfg)
	if err != nil {
		return errx.Wrap(err)
	}

	current := *m.channels.Load()
	next := make(map[string]*channel, len(current))
	for k, v := range current {
		next[k] = v
	}
	next[old.name] = replacement
	m.channels.Store(&next)

	m.log.Infow("upload strategy switched",
		"channel", old.name,
		"from", string(old.cfg.Strategy),
		"to", string(kind),
	)
	return nil
}

// Upload runs the full pipeline for one file and returns its descriptor.
//
// Pipeline: pre-validation (name, extension, size) → security validation
// (rejection quarantines the bytes) → virus-scan hook → structural
// validation → best-effort image processing → metadata → provider write →
// post-persist hook. A failure before the provider write leaves no
// artifact outside quarantine; a failure after it surfaces the error with
// the bytes left in place.
func (m *Manager) Upload(
	ctx context.Context,
	channelName string,
	file strategy.NormalizedFile,
	hints Hints,
) (*PersistedFileDescriptor, error) {
	ch, err := m.channel(channelName)
	if err != nil {
		return nil, errx.Wrap(err)
	}
	return m.uploadTo(ctx, ch, file, hints)
}

func (m *Manager) uploadTo(
	ctx context.Context,
	ch *channel,
	file strategy.NormalizedFile,
	hints Hints,
) (*PersistedFileDescriptor, error) {
	if err := ch.cfg.rules().Check(file); err != nil {
		return nil, errx.Wrap(err)
	}

	verdict := ch.scanner.Validate(filescan.File{
		Name:         file.OriginalName,
		DeclaredMIME: file.DeclaredMIME,
		DeclaredSize: file.DeclaredSize,
		Data:         file.Data,
	})
	if !verdict.Safe {
		return nil, m.reject(ctx, ch, &file, verdict.Reason, CodeSecurityRejected, errx.D{
			"score":  verdict.Score,
			"errors": verdict.Errors,
		})
	}

	if ch.cfg.VirusScan != nil {
		if err := ch.cfg.VirusScan(ctx, &file); err != nil {
			return nil, m.reject(ctx, ch, &file, "virus scan: "+err.Error(), CodeVirusDetected, nil)
		}
	}

	sniffed := mimetype.Detect(file.Data).String()

	if ch.cfg.ValidateContent {
		if err := checkStructure(&file, sniffed); err != nil {
			return nil, errx.Wrap(err)
		}
	}

	// Processing is best-effort: a decode or resize failure keeps the
	// original bytes and costs only the thumbnails.
	proc, err := processImage(ch.cfg, &file, sniffed)
	if err != nil {
		m.log.With("channel", ch.name, "filename", file.OriginalName).Warnx(err)
		proc = nil
	}

	data := file.Data
	meta := Metadata{HashAlgorithm: ch.cfg.HashAlgorithm, SniffedMIME: sniffed}
	if proc != nil {
		data = proc.data
		meta.Width = proc.width
		meta.Height = proc.height
	}
	meta.Hash, err = hasher.Sum(ch.cfg.HashAlgorithm, data)
	if err != nil {
		return nil, errx.Wrap(err)
	}

	directory := hints.Directory
	if directory == "" {
		directory = ch.cfg.DefaultDirectory
	}

	obj, err := ch.provider.Put(ctx, data, storage.PutMeta{
		OriginalName:      file.OriginalName,
		ContentType:       sniffed,
		ContentHash:       meta.Hash,
		Directory:         directory,
		RelatedEntityType: hints.RelatedEntityType,
	})
	if err != nil {
		return nil, errx.Wrap(err)
	}

	desc := &PersistedFileDescriptor{
		ID:                uuid.NewString(),
		OriginalName:      file.OriginalName,
		StorageName:       obj.Filename,
		Directory:         obj.Directory,
		URL:               obj.URL,
		Size:              obj.Size,
		ContentType:       sniffed,
		Channel:           ch.name,
		Metadata:          meta,
		UploadedAt:        file.ReceivedAt,
		RelatedEntityType: hints.RelatedEntityType,
		RelatedEntityID:   hints.RelatedEntityID,
		DocumentType:      hints.DocumentType,
		UploaderID:        hints.UploaderID,
	}

	if proc != nil {
		desc.Thumbnails = m.storeThumbs(ctx, ch, proc.thumbs, obj.Directory)
	}

	if m.afterPersist != nil {
		if err := m.afterPersist(ctx, desc); err != nil {
			// The stored object is NOT deleted here. Metadata and bytes
			// reconcile out of band; see the registry package.
			return nil, errx.Wrap(err, errx.WithCode(CodePersistHookFailed), errx.WithDetails(errx.D{
				"storage_name": desc.StorageName,
				"directory":    desc.Directory,
			}))
		}
	}

	m.publishUploaded(ctx, desc)

	return desc, nil
}

// storeThumbs persists derived thumbnails next to the main object.
// Best-effort: a failed thumbnail is logged and skipped.
func (m *Manager) storeThumbs(ctx context.Context, ch *channel, thumbs []derivedThumb, directory string) []Thumbnail {
	var out []Thumbnail
	for _, t := range thumbs {
		obj, err := ch.provider.Put(ctx, t.data, storage.PutMeta{
			OriginalName: t.name,
			ContentType:  "image/jpeg",
			Directory:    directory,
		})
		if err != nil {
			m.log.With("channel", ch.name, "thumbnail", t.name).Warnx(err)
			continue
		}
		out = append(out, Thumbnail{
			Width:       t.width,
			StorageName: obj.Filename,
			URL:         obj.URL,
			Size:        obj.Size,
		})
	}
	return out
}

// reject confines a failed file's bytes and returns the caller-facing
// validation error. Quarantine failures are logged, not propagated: the
// client still gets its rejection.
func (m *Manager) reject(
	ctx context.Context,
	ch *channel,
	file *strategy.NormalizedFile,
	reason, code string,
	details errx.D,
) error {
	var storedPath string
	rec, err := m.quarantine.Confine(ctx, file.OriginalName, file.DeclaredMIME, file.DeclaredSize, file.Data, reason)
	if err != nil {
		m.log.With("channel", ch.name, "filename", file.OriginalName).Errorx(err)
	} else {
		storedPath = rec.StoredPath
	}

	if m.events != nil {
		if err := m.events.FileQuarantined(ctx, events.FileQuarantined{
			OriginalName: file.OriginalName,
			DeclaredMIME: file.DeclaredMIME,
			DeclaredSize: file.DeclaredSize,
			Reason:       reason,
			StoredPath:   storedPath,
			Channel:      ch.name,
			ConfinedAt:   file.ReceivedAt,
		}); err != nil {
			m.log.With("channel", ch.name).Warnx(err)
		}
	}

	if details == nil {
		details = errx.D{}
	}
	details["filename"] = file.OriginalName

	return errx.New(
		reason,
		errx.WithCode(code),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(details),
	)
}

func (m *Manager) publishUploaded(ctx context.Context, desc *PersistedFileDescriptor) {
	if m.events == nil {
		return
	}
	err := m.events.FileUploaded(ctx, events.FileUploaded{
		FileID:       desc.ID,
		OriginalName: desc.OriginalName,
		StorageName:  desc.StorageName,
		Directory:    desc.Directory,
		URL:          desc.URL,
		Size:         desc.Size,
		ContentType:  desc.ContentType,
		ContentHash:  desc.Metadata.Hash,
		Channel:      desc.Channel,
		UploadedAt:   desc.UploadedAt,
	})
	if err != nil {
		m.log.With("file_id", desc.ID).Warnx(err)
	}
}

// UploadBatch uploads every file independently and reports per-file
// outcomes in submission order. One file's rejection never aborts the
// others.
func (m *Manager) UploadBatch(
	ctx context.Context,
	channelName string,
	files []strategy.NormalizedFile,
	hints Hints,
) ([]Result, error) {
	ch, err := m.channel(channelName)
	if err != nil {
		return nil, errx.Wrap(err)
	}
	return m.uploadAll(ctx, ch, files, hints)
}
