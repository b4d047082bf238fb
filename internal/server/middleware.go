package server

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/studiobook/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/studiobook/internal/observability/metrics"
	"go.uber.org/zap"
)

const rateLimitReasonManualEvaluate = "manual-evaluate"

// ManualEvaluateRateLimit throttles on-demand evaluations per subject. Malformed
// subjects pass through so the handler reports the validation error.
func (s *Server) ManualEvaluateRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.evaluateLimiter.Enabled() {
			c.Next()
			return
		}

		role := strings.ToLower(strings.TrimSpace(c.Param("subjectRole")))
		subjectID, err := strconv.ParseInt(strings.TrimSpace(c.Param("subjectId")), 10, 64)
		if err != nil || subjectID <= 0 || role == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		res := s.evaluateLimiter.Allow(ctx, role, subjectID)
		if res.Allowed {
			c.Next()
			return
		}

		logger.FromContext(ctx).Warn("manual evaluate rate limit exceeded",
			zap.String("reason", rateLimitReasonManualEvaluate),
			zap.String("subject_role", role),
			zap.Int64("subject_id", subjectID),
		)
		s.levelingMetrics.IncTriggerFailure(obsmetrics.TriggerManual, role)

		c.Header("Retry-After", retryAfterSeconds(res.RetryAfter))
		c.Header("X-Rate-Limited-Reason", rateLimitReasonManualEvaluate)
		AbortWithError(c, ErrRateLimited)
	}
}

func retryAfterSeconds(d time.Duration) string {
	seconds := int64(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.FormatInt(seconds, 10)
}
