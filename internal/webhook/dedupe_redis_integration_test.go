//go:build integration

package webhook

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"freightdesk/pkg/testutil/containers"
)

type RedisDeduperSuite struct {
	suite.Suite
	redis   *containers.RedisContainer
	deduper *RedisDeduper
}

func TestRedisDeduperSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisDeduperSuite))
}

func (s *RedisDeduperSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.deduper = NewRedisDeduper(s.redis.Client)
}

func (s *RedisDeduperSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisDeduperSuite) TestClaimOnce() {
	ctx := context.Background()
	first, err := s.deduper.Claim(ctx, "msg_1", time.Minute)
	s.Require().NoError(err)
	s.True(first)

	again, err := s.deduper.Claim(ctx, "msg_1", time.Minute)
	s.Require().NoError(err)
	s.False(again)
}

func (s *RedisDeduperSuite) TestReleaseAllowsRetry() {
	ctx := context.Background()
	_, err := s.deduper.Claim(ctx, "msg_2", time.Minute)
	s.Require().NoError(err)
	s.Require().NoError(s.deduper.Release(ctx, "msg_2"))

	claimed, err := s.deduper.Claim(ctx, "msg_2", time.Minute)
	s.Require().NoError(err)
	s.True(claimed)
}

func (s *RedisDeduperSuite) TestClaimExpires() {
	ctx := context.Background()
	_, err := s.deduper.Claim(ctx, "msg_3", time.Second)
	s.Require().NoError(err)

	ttl, err := s.redis.Client.TTL(ctx, "webhook:seen:msg_3").Result()
	s.Require().NoError(err)
	s.Positive(ttl)
	s.LessOrEqual(ttl, time.Second)
}
