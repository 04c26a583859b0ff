package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/guardian/internal/adapters/redis"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	locker := redis.NewLocker(client, "test:lock:")
	ctx := context.Background()
	key := "session1"

	unlock, err := locker.Lock(ctx, key, 5*time.Second)
	assert.NoError(t, err)
	assert.NotNil(t, unlock)

	assert.True(t, mr.Exists("test:lock:lock:session1"), "Lock key should be set in Redis")

	err = unlock(ctx)
	assert.NoError(t, err)

	assert.False(t, mr.Exists("test:lock:lock:session1"), "Lock key should be removed after unlock")
}

func TestStoreLocker_SharesClientAndPrefix(t *testing.T) {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	store := redis.NewFromClient(client, redis.WithPrefix("guardian:session:"))
	ctx := context.Background()

	unlock, err := store.Locker().Lock(ctx, "session1", 5*time.Second)
	assert.NoError(t, err)

	assert.True(t, mr.Exists("guardian:session:lock:session1"), "lock keys live under the store's prefix")

	assert.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("guardian:session:lock:session1"))
}

func TestRedisLocker_Contention(t *testing.T) {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	locker1 := redis.NewLocker(client, "test:lock:")
	locker2 := redis.NewLocker(client, "test:lock:") // Same prefix -> contention
	ctx := context.Background()
	key := "shared-session"

	unlock1, err := locker1.Lock(ctx, key, 5*time.Second)
	assert.NoError(t, err)
	assert.NotNil(t, unlock1)

	// Second client blocks until its context times out while the first holds
	// the lock.
	ctxTimeout, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	_, err = locker2.Lock(ctxTimeout, key, 5*time.Second)
	assert.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	err = unlock1(ctx)
	assert.NoError(t, err)

	unlock2, err := locker2.Lock(ctx, key, 5*time.Second)
	assert.NoError(t, err)
	defer unlock2(ctx)

	assert.True(t, mr.Exists("test:lock:lock:shared-session"))
}
