// Package events publishes audit events for the upload pipeline.
//
// The publisher is a thin facade over a watermill message.Publisher, so the
// transport is swappable: the in-process gochannel bus for single-binary
// deployments and tests, or a Kafka-backed publisher (see kafkawr) when the
// audit trail feeds external consumers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/code19m/errx"
	"github.com/google/uuid"
)

const (
	TopicFileUploaded    = "fileguard.file.uploaded"
	TopicFileQuarantined = "fileguard.file.quarantined"
)

// FileUploaded is emitted after a file has been persisted to storage.
type FileUploaded struct {
	FileID       string    `json:"file_id"`
	OriginalName string    `json:"original_name"`
	StorageName  string    `json:"storage_name"`
	Directory    string    `json:"directory"`
	URL          string    `json:"url"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	ContentHash  string    `json:"content_hash"`
	Channel      string    `json:"channel"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// FileQuarantined is emitted when a file fails security validation and its
// bytes are confined for forensics.
type FileQuarantined struct {
	OriginalName string    `json:"original_name"`
	DeclaredMIME string    `json:"declared_mime"`
	DeclaredSize int64     `json:"declared_size"`
	Reason       string    `json:"reason"`
	StoredPath   string    `json:"stored_path"`
	Channel      string    `json:"channel"`
	ConfinedAt   time.Time `json:"confined_at"`
}

// Publisher emits upload audit events. Publish failures are returned to the
// caller; the upload pipeline treats them as non-fatal and logs them.
type Publisher struct {
	pub message.Publisher
}

// New wraps an existing watermill publisher.
func New(pub message.Publisher) *Publisher {
	return &Publisher{pub: pub}
}

// NewInProcess builds a publisher backed by the in-process gochannel bus and
// returns the bus so callers can subscribe to the topics.
func NewInProcess() (*Publisher, *gochannel.GoChannel) {
	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	return New(bus), bus
}

// FileUploaded publishes an upload audit event.
func (p *Publisher) FileUploaded(ctx context.Context, e FileUploaded) error {
	return p.publish(ctx, TopicFileUploaded, e)
}

// FileQuarantined publishes a quarantine audit event.
func (p *Publisher) FileQuarantined(ctx context.Context, e FileQuarantined) error {
	return p.publish(ctx, TopicFileQuarantined, e)
}

func (p *Publisher) publish(_ context.Context, topic string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return errx.Wrap(err)
	}

	msg := message.NewMessage(uuid.NewString(), value)
	msg.Metadata.Set("published_at", time.Now().UTC().Format(time.RFC3339))

	if err := p.pub.Publish(topic, msg); err != nil {
		return errx.Wrap(err, errx.WithDetails(errx.D{
			"topic": topic,
		}))
	}
	return nil
}

// Close closes the underlying transport.
func (p *Publisher) Close() error {
	return errx.Wrap(p.pub.Close())
}
