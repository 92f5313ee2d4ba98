//go:build integration

package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"freightdesk/internal/identity/revocation"
	"freightdesk/pkg/testutil/containers"
)

type RedisListSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	list  *revocation.RedisList
}

func TestRedisListSuite(t *testing.T) {
	suite.Run(t, new(RedisListSuite))
}

func (s *RedisListSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.list = revocation.NewRedisList(s.redis.Client)
}

func (s *RedisListSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisListSuite) TestRevokeThenCheck() {
	ctx := context.Background()
	s.Require().NoError(s.list.Revoke(ctx, "jti-abc", time.Minute))

	revoked, err := s.list.IsRevoked(ctx, "jti-abc")
	s.Require().NoError(err)
	s.True(revoked)

	revoked, err = s.list.IsRevoked(ctx, "jti-other")
	s.Require().NoError(err)
	s.False(revoked)
}

func (s *RedisListSuite) TestKeyExpiresWithToken() {
	ctx := context.Background()
	s.Require().NoError(s.list.Revoke(ctx, "jti-short", time.Second))

	ttl, err := s.redis.Client.TTL(ctx, "revoked:jti:jti-short").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
	s.LessOrEqual(ttl, time.Second)
}
