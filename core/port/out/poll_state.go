package out

import (
	"context"
	"time"
)

// PollStateStore persists the poller's checkpoint so a restart does not
// re-process the message seen before shutdown. Implementations must treat
// a missing checkpoint as ("", zero time, nil).
type PollStateStore interface {
	LoadCheckpoint(ctx context.Context) (lastMessageID string, lastCheck time.Time, err error)
	SaveCheckpoint(ctx context.Context, lastMessageID string, lastCheck time.Time) error
}
