package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/invopilot/invopilot/internal/models"
)

func (s *Server) createClient(c *gin.Context) {
	var cl models.Client
	if err := c.ShouldBindJSON(&cl); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	created, err := s.clients.Create(userID(c), &cl)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) listClients(c *gin.Context) {
	clients, err := s.clients.List(userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clients": clients})
}

func (s *Server) getClient(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}

	cl, err := s.clients.Get(id, userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cl)
}

func (s *Server) updateClient(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}

	var patch models.Client
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	updated, err := s.clients.Update(id, userID(c), &patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteClient(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}

	if err := s.clients.Delete(id, userID(c)); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getBranding(c *gin.Context) {
	b, err := s.invoices.GetBranding(userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) updateBranding(c *gin.Context) {
	var b models.Branding
	if err := c.ShouldBindJSON(&b); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	updated, err := s.invoices.UpdateBranding(userID(c), &b)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
