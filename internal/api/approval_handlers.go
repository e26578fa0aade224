package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type submitApprovalRequest struct {
	WorkflowID int64  `json:"workflow_id" binding:"required"`
	Notes      string `json:"notes"`
}

func (s *Server) submitForApproval(c *gin.Context) {
	invoiceID, ok := s.pathID(c)
	if !ok {
		return
	}

	var req submitApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	record, err := s.engine.SubmitForApproval(c.Request.Context(), invoiceID, userID(c), req.WorkflowID, req.Notes)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

type approvalActionRequest struct {
	Action  string `json:"action" binding:"required"`
	Comment string `json:"comment"`
}

func (s *Server) processApproval(c *gin.Context) {
	approvalID, ok := s.pathID(c)
	if !ok {
		return
	}

	var req approvalActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	record, err := s.engine.ProcessApproval(c.Request.Context(), approvalID, userID(c), req.Action, req.Comment)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) getPendingApprovals(c *gin.Context) {
	records, err := s.engine.GetPendingApprovals(userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"approvals": records})
}

func (s *Server) getApprovalHistory(c *gin.Context) {
	invoiceID, ok := s.pathID(c)
	if !ok {
		return
	}

	records, err := s.engine.GetApprovalHistory(invoiceID, userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"approvals": records})
}

// getApprovalStats returns counts and average approval latency for the
// caller's invoices. Defaults to the trailing 30 days.
func (s *Server) getApprovalStats(c *gin.Context) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -30)

	if v := c.Query("start"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start date"})
			return
		}
		start = parsed
	}
	if v := c.Query("end"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end date"})
			return
		}
		end = parsed.AddDate(0, 0, 1)
	}

	stats := s.engine.GetApprovalStats(userID(c), start, end)
	c.JSON(http.StatusOK, stats)
}
