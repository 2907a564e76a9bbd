package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	identitydomain "github.com/openpress/peerflow/internal/identity/domain"
	manuscriptdomain "github.com/openpress/peerflow/internal/manuscript/domain"
	"github.com/openpress/peerflow/pkg/db/pagination"
)

type submitManuscriptRequest struct {
	JournalID string   `json:"journal_id"`
	Title     string   `json:"title"`
	Abstract  string   `json:"abstract"`
	Keywords  []string `json:"keywords"`
}

func (s *Server) SubmitManuscript(c *gin.Context) {
	var req submitManuscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	journalID, err := snowflake.ParseString(strings.TrimSpace(req.JournalID))
	if err != nil {
		AbortWithError(c, newValidationError("journal_id", "invalid_journal", "invalid journal id"))
		return
	}

	manuscript, err := s.manuscriptSvc.Submit(c.Request.Context(), manuscriptdomain.SubmitRequest{
		JournalID: journalID,
		AuthorID:  caller(c).ID,
		Title:     req.Title,
		Abstract:  req.Abstract,
		Keywords:  req.Keywords,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": manuscript})
}

func (s *Server) ListManuscripts(c *gin.Context) {
	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	manuscripts, pageInfo, err := s.manuscriptSvc.ListByAuthor(c.Request.Context(), caller(c).ID, query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": manuscripts, "page_info": pageInfo})
}

func (s *Server) GetManuscript(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	manuscript, err := s.manuscriptSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// Authors only see their own manuscripts; editorial roles see all.
	user := caller(c)
	if user.Role == identitydomain.RoleAuthor && manuscript.AuthorID != user.ID {
		AbortWithError(c, manuscriptdomain.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": manuscript})
}

func (s *Server) WithdrawManuscript(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := s.manuscriptSvc.Withdraw(c.Request.Context(), id, caller(c).ID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": manuscriptdomain.StatusWithdrawn}})
}

func (s *Server) ManuscriptReviewStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	progress, err := s.reviewSvc.ManuscriptStatus(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": progress})
}
