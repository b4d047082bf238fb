package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	reviewdomain "github.com/smallbiznis/studiobook/internal/review/domain"
)

type createReviewRequest struct {
	ArtistID   int64  `json:"artist_id"`
	StudioID   int64  `json:"studio_id"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
	ReviewDate string `json:"review_date"`
}

func (s *Server) CreateReview(c *gin.Context) {
	var req createReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	reviewDate, err := parseOptionalTime(req.ReviewDate)
	if err != nil {
		AbortWithError(c, newValidationError("review_date", "invalid_review_date", "invalid review_date"))
		return
	}

	resp, err := s.reviewSvc.Create(c.Request.Context(), reviewdomain.CreateReviewRequest{
		ArtistID:   req.ArtistID,
		StudioID:   req.StudioID,
		Rating:     req.Rating,
		Comment:    req.Comment,
		ReviewDate: reviewDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
