package persistence

import (
	"context"
	"errors"
	"time"

	"smartmail_server/core/port/out"
	"smartmail_server/pkg/apperr"

	"github.com/redis/go-redis/v9"
)

const (
	pollLastIDKey    = "poller:last_message_id"
	pollLastCheckKey = "poller:last_check"
)

// PollStateRedis persists the poller checkpoint in Redis so a restart
// resumes from the last seen message id.
type PollStateRedis struct {
	client *redis.Client
}

func NewPollStateRedis(client *redis.Client) *PollStateRedis {
	return &PollStateRedis{client: client}
}

// LoadCheckpoint returns the stored checkpoint; a missing key yields the
// zero checkpoint without error.
func (s *PollStateRedis) LoadCheckpoint(ctx context.Context) (string, time.Time, error) {
	id, err := s.client.Get(ctx, pollLastIDKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", time.Time{}, nil
		}
		return "", time.Time{}, apperr.DatabaseError("load poll checkpoint", err)
	}

	var at time.Time
	raw, err := s.client.Get(ctx, pollLastCheckKey).Result()
	if err == nil {
		if t, perr := time.Parse(time.RFC3339Nano, raw); perr == nil {
			at = t
		}
	} else if !errors.Is(err, redis.Nil) {
		return "", time.Time{}, apperr.DatabaseError("load poll checkpoint", err)
	}

	return id, at, nil
}

// SaveCheckpoint stores the checkpoint without expiry.
func (s *PollStateRedis) SaveCheckpoint(ctx context.Context, lastMessageID string, lastCheck time.Time) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, pollLastIDKey, lastMessageID, 0)
	pipe.Set(ctx, pollLastCheckKey, lastCheck.UTC().Format(time.RFC3339Nano), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperr.DatabaseError("save poll checkpoint", err)
	}
	return nil
}

var _ out.PollStateStore = (*PollStateRedis)(nil)
