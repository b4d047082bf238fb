package cache

import (
	"testing"
	"time"

	"github.com/smallbiznis/studiobook/internal/config"
	gamificationdomain "github.com/smallbiznis/studiobook/internal/gamification/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCacheRoundTrip(t *testing.T) {
	c := NewRecordCache(config.Config{})
	subject := gamificationdomain.Subject{ID: 42, Role: gamificationdomain.SubjectRoleStudio}

	_, ok := c.Get(subject)
	assert.False(t, ok)

	c.Set(gamificationdomain.GamificationRecord{SubjectID: 42, SubjectRole: gamificationdomain.SubjectRoleStudio, Level: 3})
	got, ok := c.Get(subject)
	require.True(t, ok)
	assert.Equal(t, 3, got.Level)

	_, ok = c.Get(gamificationdomain.Subject{ID: 42, Role: gamificationdomain.SubjectRoleArtist})
	assert.False(t, ok)

	c.Invalidate(subject)
	_, ok = c.Get(subject)
	assert.False(t, ok)
}

func TestTTLCacheExpires(t *testing.T) {
	c := NewTTLCache[int](time.Minute, time.Minute)
	c.Set("k", 1, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Set("k", 2, 0)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	c.Flush()
	_, ok = c.Get("k")
	assert.False(t, ok)
}
