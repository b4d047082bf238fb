package cache

import (
	"time"

	"github.com/smallbiznis/studiobook/internal/config"
	gamificationdomain "github.com/smallbiznis/studiobook/internal/gamification/domain"
)

const (
	defaultRecordTTL     = 30 * time.Second
	defaultRecordCleanup = time.Minute
)

// RecordCache holds gamification records for the read endpoints. Evaluations
// invalidate the subject's entry after commit.
type RecordCache interface {
	Get(subject gamificationdomain.Subject) (gamificationdomain.GamificationRecord, bool)
	Set(record gamificationdomain.GamificationRecord)
	Invalidate(subject gamificationdomain.Subject)
}

type recordCache struct {
	records Cache[gamificationdomain.GamificationRecord]
	ttl     time.Duration
}

func NewRecordCache(cfg config.Config) RecordCache {
	ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultRecordTTL
	}
	cleanup := time.Duration(cfg.Cache.CleanupSeconds) * time.Second
	if cleanup <= 0 {
		cleanup = defaultRecordCleanup
	}
	return &recordCache{
		records: NewTTLCache[gamificationdomain.GamificationRecord](ttl, cleanup),
		ttl:     ttl,
	}
}

func (c *recordCache) Get(subject gamificationdomain.Subject) (gamificationdomain.GamificationRecord, bool) {
	return c.records.Get(subject.String())
}

func (c *recordCache) Set(record gamificationdomain.GamificationRecord) {
	subject := gamificationdomain.Subject{ID: record.SubjectID, Role: record.SubjectRole}
	c.records.Set(subject.String(), record, c.ttl)
}

func (c *recordCache) Invalidate(subject gamificationdomain.Subject) {
	c.records.Delete(subject.String())
}
