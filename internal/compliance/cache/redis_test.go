package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ascent/internal/compliance/models"
	"ascent/pkg/domain"
)

func newCache(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, WithTTL(time.Minute)), mr
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	c, mr := newCache(t)
	userID := domain.UserID(uuid.New())

	_, gen, ok, err := c.Get(ctx, userID, "focus_rooms")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, gen)

	gate := &models.Gate{ID: domain.NewGateID(), UserID: userID, Feature: "focus_rooms", FulfillingAction: "rest_plan_acknowledged"}
	require.NoError(t, c.Set(ctx, userID, gen, models.Access{Feature: "focus_rooms", Gate: gate}))

	got, _, ok, err := c.Get(ctx, userID, "focus_rooms")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, got.Allowed)
	require.NotNil(t, got.Gate)
	assert.Equal(t, gate.ID, got.Gate.ID)

	t.Run("each feature expires on its own", func(t *testing.T) {
		mr.FastForward(40 * time.Second)
		require.NoError(t, c.Set(ctx, userID, gen, models.Access{Feature: "meal_log", Allowed: true}))
		assert.Equal(t, time.Minute, mr.TTL(entryKey(userID, "meal_log")))

		mr.FastForward(30 * time.Second)
		_, _, ok, err := c.Get(ctx, userID, "focus_rooms")
		require.NoError(t, err)
		assert.False(t, ok, "an older entry is not kept alive by later writes")
		_, _, ok, err = c.Get(ctx, userID, "meal_log")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("corrupt entry is an error", func(t *testing.T) {
		require.NoError(t, mr.Set(entryKey(userID, "sleep_diary"), "{"))
		_, _, _, err := c.Get(ctx, userID, "sleep_diary")
		assert.Error(t, err)
	})
}

func TestRedisCacheGenerations(t *testing.T) {
	ctx := context.Background()
	userID := domain.UserID(uuid.New())
	allowed := models.Access{Feature: "community_posting", Allowed: true}

	t.Run("hold retires cached answers", func(t *testing.T) {
		c, _ := newCache(t)
		require.NoError(t, c.Set(ctx, userID, 0, allowed))
		require.NoError(t, c.Hold(ctx, userID))

		_, gen, ok, err := c.Get(ctx, userID, allowed.Feature)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.EqualValues(t, 1, gen)
	})

	t.Run("writes are refused while held", func(t *testing.T) {
		c, _ := newCache(t)
		require.NoError(t, c.Hold(ctx, userID))
		_, gen, _, err := c.Get(ctx, userID, allowed.Feature)
		require.NoError(t, err)

		require.NoError(t, c.Set(ctx, userID, gen, allowed))
		_, _, ok, err := c.Get(ctx, userID, allowed.Feature)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("an answer looked up before a change is not written after it", func(t *testing.T) {
		c, _ := newCache(t)
		_, gen, _, err := c.Get(ctx, userID, allowed.Feature)
		require.NoError(t, err)

		require.NoError(t, c.Hold(ctx, userID))
		require.NoError(t, c.Release(ctx, userID))

		require.NoError(t, c.Set(ctx, userID, gen, allowed))
		_, current, ok, err := c.Get(ctx, userID, allowed.Feature)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.EqualValues(t, 2, current)
	})

	t.Run("a hold that is never released expires", func(t *testing.T) {
		c, mr := newCache(t)
		require.NoError(t, c.Hold(ctx, userID))
		mr.FastForward(2 * time.Minute)

		_, gen, _, err := c.Get(ctx, userID, allowed.Feature)
		require.NoError(t, err)
		require.NoError(t, c.Set(ctx, userID, gen, allowed))
		_, _, ok, err := c.Get(ctx, userID, allowed.Feature)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
