package logger_test

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/code19m/errx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deedvault/fileguard/logger"
)

// captureStdout swaps os.Stdout for a pipe around fn. The logger must be
// constructed inside fn so zap binds to the pipe.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	orig := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	os.Stdout = orig
	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestNew_Encodings(t *testing.T) {
	tests := []struct {
		encoding string
		contains string
	}{
		{encoding: logger.EncodingJSON, contains: `"msg":"pipeline ready"`},
		{encoding: logger.EncodingConsole, contains: "pipeline ready"},
		{encoding: logger.EncodingPretty, contains: "pipeline ready"},
	}

	for _, tt := range tests {
		t.Run(tt.encoding, func(t *testing.T) {
			out := captureStdout(t, func() {
				log, err := logger.New(logger.Config{Level: "debug", Encoding: tt.encoding})
				require.NoError(t, err)
				log.Infow("pipeline ready", "channel", "general")
				_ = log.Sync()
			})
			assert.Contains(t, out, tt.contains)
			assert.Contains(t, out, "general")
		})
	}
}

func TestWarnx_EmitsErrxFields(t *testing.T) {
	rejection := errx.New(
		"declared type does not match content",
		errx.WithCode("SECURITY_REJECTED"),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(errx.D{"filename": "invoice.pdf"}),
	)

	out := captureStdout(t, func() {
		log, err := logger.New(logger.Config{Level: "debug", Encoding: logger.EncodingJSON})
		require.NoError(t, err)
		log.With("channel", "document").Warnx(rejection)
		_ = log.Sync()
	})

	assert.Contains(t, out, `"error_code":"SECURITY_REJECTED"`)
	assert.Contains(t, out, "invoice.pdf")
	assert.Contains(t, out, "declared type does not match content")
	assert.Contains(t, out, `"channel":"document"`)
}

func TestErrorx_PlainErrorKeepsMessage(t *testing.T) {
	out := captureStdout(t, func() {
		log, err := logger.New(logger.Config{Level: "debug", Encoding: logger.EncodingJSON})
		require.NoError(t, err)
		log.Errorx(errors.New("disk full"))
		_ = log.Sync()
	})

	assert.Contains(t, out, "disk full")
	assert.NotContains(t, out, "error_code")
}
