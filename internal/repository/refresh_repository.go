package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable marks an unreachable token store. Callers must treat it
// as an outage, never as "record absent".
var ErrStoreUnavailable = errors.New("auth store unavailable")

var (
	// ErrRefreshNotFound: no live refresh record for the subject.
	ErrRefreshNotFound = errors.New("no refresh record for subject")
	// ErrRefreshMismatch: the presented value is not the current record,
	// typically a replay of a rotated-out token or a lost rotation race.
	ErrRefreshMismatch = errors.New("refresh token does not match current record")
)

const refreshKeyPrefix = "auth:refresh:"

// rotateRefreshScript compares the stored value with the presented one and
// installs the next value in a single script execution, so two concurrent
// rotations cannot both win.
const rotateRefreshScript = `
local current = redis.call("GET", KEYS[1])
if not current then
  return 0
end
if current ~= ARGV[1] then
  return 1
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 2
`

var rotateRefreshLua = redis.NewScript(rotateRefreshScript)

const (
	rotateStatusNotFound int64 = 0
	rotateStatusMismatch int64 = 1
	rotateStatusRotated  int64 = 2
)

// RefreshRepository persists the single live refresh record per subject.
type RefreshRepository interface {
	Upsert(ctx context.Context, subjectID, tokenValue string, ttl time.Duration) error
	Get(ctx context.Context, subjectID string) (string, error)
	Rotate(ctx context.Context, subjectID, currentValue, nextValue string, ttl time.Duration) error
	Delete(ctx context.Context, subjectID string) error
}

type refreshRepository struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRefreshRepository returns a Redis-backed implementation with bounded
// per-operation timeouts.
func NewRefreshRepository(client *redis.Client, timeout time.Duration) RefreshRepository {
	return &refreshRepository{client: client, timeout: timeout}
}

func (r *refreshRepository) Upsert(ctx context.Context, subjectID, tokenValue string, ttl time.Duration) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	if err := r.client.Set(ctx, refreshKey(subjectID), tokenValue, ttl).Err(); err != nil {
		return storeErr(err)
	}
	return nil
}

func (r *refreshRepository) Get(ctx context.Context, subjectID string) (string, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	value, err := r.client.Get(ctx, refreshKey(subjectID)).Result()
	if err == redis.Nil {
		return "", ErrRefreshNotFound
	}
	if err != nil {
		return "", storeErr(err)
	}
	return value, nil
}

func (r *refreshRepository) Rotate(ctx context.Context, subjectID, currentValue, nextValue string, ttl time.Duration) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	status, err := rotateRefreshLua.Run(ctx, r.client,
		[]string{refreshKey(subjectID)},
		currentValue, nextValue, ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return storeErr(err)
	}

	switch status {
	case rotateStatusRotated:
		return nil
	case rotateStatusNotFound:
		return ErrRefreshNotFound
	case rotateStatusMismatch:
		return ErrRefreshMismatch
	default:
		return fmt.Errorf("unexpected rotate status %d", status)
	}
}

func (r *refreshRepository) Delete(ctx context.Context, subjectID string) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	if err := r.client.Del(ctx, refreshKey(subjectID)).Err(); err != nil {
		return storeErr(err)
	}
	return nil
}

func (r *refreshRepository) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

func refreshKey(subjectID string) string {
	return refreshKeyPrefix + subjectID
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
