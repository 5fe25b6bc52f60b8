package feed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/verte-zerg/strafeval/internal/logger"
)

const maxLineSize = 64 * 1024

// Reader reads JSON lines from R until EOF.
type Reader struct {
	R   io.Reader
	Now func() time.Time
}

// Run decodes each line and forwards it. Malformed lines are logged and
// skipped. It returns nil at EOF.
func (r *Reader) Run(ctx context.Context, out chan<- Message) error {
	now := clock(r.Now)
	scanner := bufio.NewScanner(r.R)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := Decode(scanner.Bytes(), now())
		if err != nil {
			if !errors.Is(err, ErrEmpty) {
				logger.Warn("skipping feed line", "line", line, "error", err)
			}
			continue
		}
		if err := send(ctx, out, msg); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read feed: %w", err)
	}
	return nil
}
