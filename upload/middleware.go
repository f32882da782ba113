package upload

import (
	"bytes"
	"context"
	"sync"

	"github.com/code19m/errx"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"github.com/deedvault/fileguard/upload/strategy"
)

// ResultsKey is the fiber locals key under which the middleware stores the
// per-file []Result for downstream handlers.
const ResultsKey = "upload_results"

// HintsFromFiber reads the routing hints off a fiber request with the
// query → header → body-field precedence. The uploader identity comes from
// the auth middleware's locals, never from client-controlled hints.
func HintsFromFiber(c *fiber.Ctx) Hints {
	h := ReadHints(
		func(key string) string { return c.Query(key) },
		func(key string) string { return c.Get(key) },
		func(key string) string { return c.FormValue(key) },
	)
	if uid, ok := c.Locals("user_id").(string); ok {
		h.UploaderID = uid
	}
	return h
}

// Middleware adapts the pipeline into a fiber handler bound to a default
// channel. The channel hint may redirect a request to another configured
// channel. Extraction failures abort the request with a 4xx; individual
// file failures do not, each file reports its own Result.
//
// The handler stores []Result under ResultsKey and calls Next so the route
// handler decides the response shape; BatchResponse is the stock choice.
//
// Result order follows the channel's parsing strategy. The streamform
// strategy walks parts in wire order, so results match submission order
// even across field names. The stdform and fastform strategies recover
// files from a parsed form whose field map loses cross-field ordering;
// they group files by field name in sorted order, keeping submission
// order only within each field. Channels whose clients rely on
// cross-field ordering should use the streamform strategy.
func (m *Manager) Middleware(defaultChannel string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		hints := HintsFromFiber(c)

		channelName := hints.Channel
		if channelName == "" {
			channelName = defaultChannel
		}
		ch, err := m.channel(channelName)
		if err != nil {
			return writeError(c, err)
		}

		body := c.Body()
		req := &strategy.Request{
			ContentType:   c.Get(fiber.HeaderContentType),
			ContentLength: int64(len(body)),
			Body:          bytes.NewReader(body),
		}

		if err := ch.strategy.Parse(req); err != nil {
			return writeError(c, err)
		}
		files, err := ch.strategy.Extract(req)
		if err != nil {
			return writeError(c, err)
		}
		if len(files) == 0 {
			c.Locals(ResultsKey, []Result{})
			return c.Next()
		}

		results, err := m.uploadAll(c.UserContext(), ch, files, hints)
		if err != nil {
			return writeError(c, err)
		}

		c.Locals(ResultsKey, results)
		return c.Next()
	}
}

// uploadAll runs the batch against an already-resolved channel so the
// whole request sticks to one table snapshot.
func (m *Manager) uploadAll(ctx context.Context, ch *channel, files []strategy.NormalizedFile, hints Hints) ([]Result, error) {
	results := make([]Result, len(files))
	var wg sync.WaitGroup
	for i := range files {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			desc, err := m.uploadTo(ctx, ch, files[i], hints)
			if err != nil {
				results[i] = Result{
					OriginalName: files[i].OriginalName,
					Error:        err.Error(),
					Code:         errx.AsErrorX(err).Code(),
				}
				return
			}
			results[i] = Result{OriginalName: files[i].OriginalName, OK: true, File: desc}
		}(i)
	}
	wg.Wait()
	return results, nil
}

// ResultsFrom returns the middleware's per-file outcomes for the current
// request, or nil when no upload middleware ran.
func ResultsFrom(c *fiber.Ctx) []Result {
	results, _ := c.Locals(ResultsKey).([]Result)
	return results
}

// BatchResponse is a stock route handler that reports the middleware's
// outcomes: 200 when every file succeeded, 207 on partial success and 422
// when all files failed.
func BatchResponse(c *fiber.Ctx) error {
	results := ResultsFrom(c)

	succeeded := lo.CountBy(results, func(r Result) bool { return r.OK })
	status := fiber.StatusOK
	switch {
	case len(results) > 0 && succeeded == 0:
		status = fiber.StatusUnprocessableEntity
	case succeeded < len(results):
		status = fiber.StatusMultiStatus
	}

	return c.Status(status).JSON(fiber.Map{
		"total":     len(results),
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
		"results":   results,
	})
}

// writeError renders an errx error with the taxonomy's HTTP mapping:
// validation 400, not-found 404, everything else 500.
func writeError(c *fiber.Ctx, err error) error {
	e := errx.AsErrorX(err)

	status := fiber.StatusInternalServerError
	switch e.Type() {
	case errx.T_Validation:
		status = fiber.StatusBadRequest
	case errx.T_NotFound:
		status = fiber.StatusNotFound
	}

	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    e.Code(),
			"message": e.Error(),
			"details": e.Details(),
		},
	})
}
