package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deedvault/fileguard/events"
)

func TestPublisher_FileUploadedRoundTrip(t *testing.T) {
	pub, bus := events.NewInProcess()
	defer pub.Close()

	ctx := context.Background()
	msgs, err := bus.Subscribe(ctx, events.TopicFileUploaded)
	require.NoError(t, err)

	sent := events.FileUploaded{
		FileID:      "f-1",
		StorageName: "deed_3a91bc04_1.pdf",
		Directory:   "documents",
		Size:        1024,
		ContentType: "application/pdf",
		Channel:     "document",
		UploadedAt:  time.Now().UTC(),
	}
	require.NoError(t, pub.FileUploaded(ctx, sent))

	select {
	case msg := <-msgs:
		var got events.FileUploaded
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, sent.FileID, got.FileID)
		assert.Equal(t, sent.StorageName, got.StorageName)
		assert.NotEmpty(t, msg.Metadata.Get("published_at"))
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestPublisher_FileQuarantined(t *testing.T) {
	pub, bus := events.NewInProcess()
	defer pub.Close()

	ctx := context.Background()
	msgs, err := bus.Subscribe(ctx, events.TopicFileQuarantined)
	require.NoError(t, err)

	require.NoError(t, pub.FileQuarantined(ctx, events.FileQuarantined{
		OriginalName: "invoice.pdf",
		Reason:       "declared type does not match content",
		Channel:      "document",
	}))

	select {
	case msg := <-msgs:
		var got events.FileQuarantined
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, "invoice.pdf", got.OriginalName)
		assert.NotEmpty(t, got.Reason)
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}
