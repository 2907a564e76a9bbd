package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	reviewdomain "github.com/openpress/peerflow/internal/review/domain"
)

type assignReviewersRequest struct {
	ReviewerIDs []string `json:"reviewer_ids"`
}

func (s *Server) AssignReviewers(c *gin.Context) {
	manuscriptID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req assignReviewersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	reviewerIDs := make([]snowflake.ID, 0, len(req.ReviewerIDs))
	for _, raw := range req.ReviewerIDs {
		id, err := snowflake.ParseString(strings.TrimSpace(raw))
		if err != nil {
			AbortWithError(c, reviewdomain.ErrInvalidReviewerSet)
			return
		}
		reviewerIDs = append(reviewerIDs, id)
	}

	reviews, err := s.reviewSvc.Assign(c.Request.Context(), manuscriptID, reviewerIDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": reviews})
}

type autoAssignRequest struct {
	Exclude []string `json:"exclude"`
}

func (s *Server) AutoAssignReviewers(c *gin.Context) {
	manuscriptID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req autoAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	exclude := make([]snowflake.ID, 0, len(req.Exclude))
	for _, raw := range req.Exclude {
		id, err := snowflake.ParseString(strings.TrimSpace(raw))
		if err != nil {
			AbortWithError(c, newValidationError("exclude", "invalid_id", "invalid identifier"))
			return
		}
		exclude = append(exclude, id)
	}

	reviews, err := s.reviewSvc.AutoAssign(c.Request.Context(), manuscriptID, exclude)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": reviews})
}

func (s *Server) ListReviews(c *gin.Context) {
	var reviews []*reviewdomain.Review
	var err error
	if strings.EqualFold(c.Query("completed"), "true") {
		reviews, err = s.reviewSvc.ListCompleted(c.Request.Context(), caller(c).ID)
	} else {
		reviews, err = s.reviewSvc.ListAssignments(c.Request.Context(), caller(c).ID)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": reviews})
}

func (s *Server) GetReview(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	review, err := s.reviewSvc.GetReview(c.Request.Context(), id, caller(c).ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": review})
}

func (s *Server) StartReview(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	review, err := s.reviewSvc.StartReview(c.Request.Context(), id, caller(c).ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": review})
}

type submitDecisionRequest struct {
	ManuscriptID     string `json:"manuscript_id"`
	Decision         string `json:"decision"`
	CommentsToAuthor string `json:"comments_to_author"`
	CommentsToEditor string `json:"comments_to_editor"`
}

func (s *Server) SubmitDecision(c *gin.Context) {
	reviewID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req submitDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	manuscriptID, err := snowflake.ParseString(strings.TrimSpace(req.ManuscriptID))
	if err != nil {
		AbortWithError(c, newValidationError("manuscript_id", "invalid_id", "invalid identifier"))
		return
	}

	review, err := s.reviewSvc.SubmitDecision(c.Request.Context(), reviewdomain.SubmitDecisionRequest{
		ManuscriptID:     manuscriptID,
		ReviewID:         reviewID,
		ReviewerID:       caller(c).ID,
		Decision:         reviewdomain.Decision(strings.ToLower(strings.TrimSpace(req.Decision))),
		CommentsToAuthor: req.CommentsToAuthor,
		CommentsToEditor: req.CommentsToEditor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": review})
}

func (s *Server) ReviewCertificate(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	doc, err := s.reviewSvc.Certificate(c.Request.Context(), id, caller(c).ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="review-certificate.pdf"`)
	c.Data(http.StatusOK, "application/pdf", doc)
}
