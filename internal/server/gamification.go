package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gamificationdomain "github.com/smallbiznis/studiobook/internal/gamification/domain"
)

func (s *Server) GetSubjectGamification(role gamificationdomain.SubjectRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parsePathID(c.Param("id"))
		if !ok {
			AbortWithError(c, gamificationdomain.ErrInvalidSubjectID)
			return
		}

		resp, err := s.gamificationSvc.Get(c.Request.Context(), gamificationdomain.GetRequest{
			SubjectID:   id,
			SubjectRole: role,
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": resp})
	}
}

// EvaluateSubject runs the leveling engine on demand and returns the outcome.
func (s *Server) EvaluateSubject(c *gin.Context) {
	role, err := gamificationdomain.ParseSubjectRole(c.Param("subjectRole"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	id, ok := parsePathID(c.Param("subjectId"))
	if !ok {
		AbortWithError(c, gamificationdomain.ErrInvalidSubjectID)
		return
	}

	resp, err := s.gamificationSvc.Evaluate(c.Request.Context(), gamificationdomain.EvaluateRequest{
		SubjectID:   id,
		SubjectRole: role,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetLevelRequirements(c *gin.Context) {
	resp, err := s.gamificationSvc.Requirements(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetGamificationStats(c *gin.Context) {
	resp, err := s.gamificationSvc.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
