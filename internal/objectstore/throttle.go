package objectstore

import (
	"context"

	"golang.org/x/time/rate"
)

// throttledStore wraps a Store and caps Put throughput, so a continuous
// backup agent sharing an uplink with other traffic doesn't saturate it
// during a large initial scan.
type throttledStore struct {
	Store
	limiter *rate.Limiter
}

// RateLimited wraps store so Put calls are throttled to kbPerSecond
// kilobytes per second. kbPerSecond <= 0 returns store unchanged.
func RateLimited(store Store, kbPerSecond int) Store {
	if kbPerSecond <= 0 {
		return store
	}
	bytesPerSecond := kbPerSecond * 1024
	return &throttledStore{
		Store:   store,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), bytesPerSecond),
	}
}

func (s *throttledStore) Put(ctx context.Context, key string, data []byte, meta Metadata, overwrite bool) error {
	for remaining := len(data); remaining > 0; {
		n := clampBurst(remaining, s.limiter.Burst())
		if err := s.limiter.WaitN(ctx, n); err != nil {
			return err
		}
		remaining -= n
	}
	return s.Store.Put(ctx, key, data, meta, overwrite)
}

// clampBurst keeps WaitN's request within the limiter's burst size;
// larger payloads simply wait for the bucket to refill in chunks rather
// than requesting more tokens than the bucket can ever hold.
func clampBurst(n, burst int) int {
	if n > burst {
		return burst
	}
	if n <= 0 {
		return 0
	}
	return n
}
