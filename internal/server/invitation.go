package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type inviteReviewerRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (s *Server) InviteReviewer(c *gin.Context) {
	manuscriptID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req inviteReviewerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.reviewSvc.Invite(c.Request.Context(), manuscriptID, req.Email, req.Name)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if result.Invited {
		c.JSON(http.StatusOK, gin.H{"data": gin.H{
			"mode":  "invited",
			"token": result.Token,
		}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"mode":   "assign_existing",
		"review": result.Review,
	}})
}

func (s *Server) AcceptInvitation(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		AbortWithError(c, newValidationError("token", "invalid_token", "invalid token"))
		return
	}

	review, err := s.reviewSvc.AcceptInvitation(c.Request.Context(), token, caller(c).ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": review})
}
