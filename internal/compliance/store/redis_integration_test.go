//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"aurum/internal/compliance/models"
	"aurum/internal/compliance/store"
	"aurum/pkg/testutil/containers"
)

type RedisCooldownSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisCooldowns
}

func TestRedisCooldownSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCooldownSuite))
}

func (s *RedisCooldownSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = store.NewRedisCooldowns(s.redis.Client.Client)
}

func (s *RedisCooldownSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCooldownSuite) TestRecordAndRead() {
	ctx := context.Background()
	holder := "0x0000000000000000000000000000000000000031"
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	_, ok, err := s.store.LastAction(ctx, holder, models.ActionSubscribe)
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.store.RecordAction(ctx, holder, models.ActionSubscribe, at, time.Hour))

	last, ok, err := s.store.LastAction(ctx, holder, models.ActionSubscribe)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(at, last)

	ttl, err := s.redis.Client.TTL(ctx, "aurum:cooldown:SUBSCRIBE:"+holder).Result()
	s.Require().NoError(err)
	s.Greater(ttl, 59*time.Minute)

	_, ok, err = s.store.LastAction(ctx, holder, models.ActionClaim)
	s.Require().NoError(err)
	s.False(ok, "cooldowns are tracked per action")
}

func (s *RedisCooldownSuite) TestZeroTTLSkipsWrite() {
	ctx := context.Background()
	holder := "0x0000000000000000000000000000000000000032"

	s.Require().NoError(s.store.RecordAction(ctx, holder, models.ActionTransfer, time.Now(), 0))
	_, ok, err := s.store.LastAction(ctx, holder, models.ActionTransfer)
	s.Require().NoError(err)
	s.False(ok)
}
