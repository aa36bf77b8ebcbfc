package prefs

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/2beens/fitlog/internal/telemetry/tracing"
)

const autoSyncKeyPrefix = "fitlog-prefs||autosync||"

// Store keeps per-user preference flags in redis.
type Store struct {
	redisClient *redis.Client
}

func NewStore(redisClient *redis.Client) *Store {
	return &Store{
		redisClient: redisClient,
	}
}

// GetAutoSync returns the auto-sync flag of the user, false when never set.
func (s *Store) GetAutoSync(ctx context.Context, userID int) (_ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "prefs.autosync.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	val, err := s.redisClient.Get(ctx, autoSyncKey(userID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get auto-sync flag: %w", err)
	}

	autoSync, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("parse auto-sync flag: %w", err)
	}
	return autoSync, nil
}

func (s *Store) SetAutoSync(ctx context.Context, userID int, autoSync bool) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "prefs.autosync.set")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := s.redisClient.Set(ctx, autoSyncKey(userID), strconv.FormatBool(autoSync), 0).Err(); err != nil {
		return fmt.Errorf("set auto-sync flag: %w", err)
	}
	return nil
}

func autoSyncKey(userID int) string {
	return fmt.Sprintf("%s%d", autoSyncKeyPrefix, userID)
}
