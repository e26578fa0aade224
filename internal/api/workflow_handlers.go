package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/invopilot/invopilot/internal/models"
)

func (s *Server) createWorkflow(c *gin.Context) {
	var w models.Workflow
	if err := c.ShouldBindJSON(&w); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	created, err := s.engine.CreateWorkflow(userID(c), &w)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) listWorkflows(c *gin.Context) {
	workflows, err := s.engine.ListWorkflows(userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workflows": workflows})
}

func (s *Server) getWorkflow(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}

	w, err := s.engine.GetWorkflow(id, userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (s *Server) updateWorkflow(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}

	var patch models.WorkflowPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	updated, err := s.engine.UpdateWorkflow(id, userID(c), &patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteWorkflow(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}

	if err := s.engine.DeleteWorkflow(id, userID(c)); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
