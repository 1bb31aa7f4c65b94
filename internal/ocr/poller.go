package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
)

// ErrTimeout is returned when the operation does not finish within the
// configured number of polls.
var ErrTimeout = errors.New("ocr operation timed out")

// ErrFailed is returned when the service reports the operation failed.
var ErrFailed = errors.New("ocr operation failed")

var errStillRunning = errors.New("operation still running")

// Poller drives a submitted operation to completion with fixed-interval
// polling and a hard attempt cap.
type Poller struct {
	client   Client
	interval time.Duration
	attempts uint
	logger   *slog.Logger
}

func NewPoller(client Client, interval time.Duration, attempts uint, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = time.Second
	}
	if attempts == 0 {
		attempts = 60
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{client: client, interval: interval, attempts: attempts, logger: logger}
}

// Recognize submits the document and waits for the recognized text.
func (p *Poller) Recognize(ctx context.Context, content []byte, mimeType string) (string, error) {
	op, err := p.client.Submit(ctx, content, mimeType)
	if err != nil {
		return "", err
	}
	return p.Wait(ctx, op)
}

// Wait polls until the operation succeeds, fails, or the attempt cap is
// reached. A failed operation is terminal and never retried.
func (p *Poller) Wait(ctx context.Context, op OperationHandle) (string, error) {
	var text string
	poll := 0
	err := retry.Do(
		func() error {
			poll++
			res, err := p.client.Poll(ctx, op)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			switch res.State {
			case StateSucceeded:
				text = res.Text
				return nil
			case StateFailed:
				p.logger.Error("ocr.operation_failed", "detail", res.Error, "polls", poll)
				return retry.Unrecoverable(fmt.Errorf("%w: %s", ErrFailed, res.Error))
			default:
				return errStillRunning
			}
		},
		retry.Attempts(p.attempts),
		retry.Delay(p.interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		if errors.Is(err, errStillRunning) {
			p.logger.Error("ocr.poll_exhausted", "polls", poll)
			return "", ErrTimeout
		}
		return "", err
	}
	p.logger.Info("ocr.recognized", "polls", poll, "chars", len(text))
	return text, nil
}
