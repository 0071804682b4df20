package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"clearing/pkg/platform/sentinel"
)

type MemorySuite struct {
	suite.Suite
	now   time.Time
	cache *Memory
}

func TestMemorySuite(t *testing.T) {
	suite.Run(t, new(MemorySuite))
}

func (s *MemorySuite) SetupTest() {
	s.now = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	s.cache = NewMemory(WithClock(func() time.Time { return s.now }))
}

func (s *MemorySuite) TestExpiry() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := s.cache.Get(ctx, "k")
	s.Require().NoError(err)
	s.Equal([]byte("v"), got)

	s.now = s.now.Add(time.Minute)
	_, err = s.cache.Get(ctx, "k")
	s.True(errors.Is(err, sentinel.ErrCacheMiss))
	s.Equal(0, s.cache.Len())
}

func (s *MemorySuite) TestZeroTTLNeverExpires() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Set(ctx, "k", []byte("v"), 0))
	s.now = s.now.Add(24 * time.Hour)
	_, err := s.cache.Get(ctx, "k")
	s.NoError(err)
}

func (s *MemorySuite) TestDeleteByPrefix() {
	ctx := context.Background()
	for _, k := range []string{"adapter:t:A1", "adapter:t:A1:endpoint", "adapter:t:A2"} {
		s.Require().NoError(s.cache.Set(ctx, k, []byte("x"), time.Minute))
	}
	s.Require().NoError(s.cache.DeleteByPrefix(ctx, "adapter:t:A1:"))
	s.Require().NoError(s.cache.Delete(ctx, "adapter:t:A1"))

	_, err := s.cache.Get(ctx, "adapter:t:A1:endpoint")
	s.True(errors.Is(err, sentinel.ErrCacheMiss))
	_, err = s.cache.Get(ctx, "adapter:t:A2")
	s.NoError(err)
}

func (s *MemorySuite) TestReturnedBytesAreCopies() {
	ctx := context.Background()
	buf := []byte("abc")
	s.Require().NoError(s.cache.Set(ctx, "k", buf, 0))
	buf[0] = 'z'

	got, err := s.cache.Get(ctx, "k")
	s.Require().NoError(err)
	got[1] = 'z'

	again, err := s.cache.Get(ctx, "k")
	s.Require().NoError(err)
	s.Equal([]byte("abc"), again)
}

func TestNoopAlwaysMisses(t *testing.T) {
	var c Noop
	ctx := context.Background()
	_ = c.Set(ctx, "k", []byte("v"), time.Minute)
	if _, err := c.Get(ctx, "k"); !errors.Is(err, sentinel.ErrCacheMiss) {
		t.Fatalf("expected cache miss, got %v", err)
	}
	if !c.Ping(ctx) {
		t.Fatal("noop cache should report healthy")
	}
}
