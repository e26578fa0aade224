package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/invopilot/invopilot/internal/export"
	"github.com/invopilot/invopilot/internal/models"
)

func (s *Server) createInvoice(c *gin.Context) {
	var inv models.Invoice
	if err := c.ShouldBindJSON(&inv); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	created, err := s.invoices.Create(userID(c), &inv)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) listInvoices(c *gin.Context) {
	invoices, err := s.invoices.List(userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

func (s *Server) getInvoice(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}

	inv, err := s.invoices.Get(id, userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) updateInvoice(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}

	var patch models.Invoice
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	updated, err := s.invoices.Update(id, userID(c), &patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteInvoice(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}

	if err := s.invoices.Delete(id, userID(c)); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) sendInvoice(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}

	inv, err := s.invoices.Send(c.Request.Context(), id, userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) cancelInvoice(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}

	inv, err := s.invoices.Cancel(id, userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) markInvoicePaid(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}

	inv, err := s.invoices.MarkPaid(id, userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// exportInvoices streams the caller's invoices as a workbook or CSV,
// selected by the format query parameter.
func (s *Server) exportInvoices(c *gin.Context) {
	uid := userID(c)
	invoices, err := s.invoices.List(uid)
	if err != nil {
		s.respondError(c, err)
		return
	}

	rows := make([]export.Row, 0, len(invoices))
	for _, inv := range invoices {
		name := ""
		if cl, err := s.clients.Get(inv.ClientID, uid); err == nil {
			name = cl.Name
		}
		rows = append(rows, export.Row{Invoice: inv, Client: name})
	}

	filename := fmt.Sprintf("invoices-%s", time.Now().UTC().Format("2006-01-02"))
	switch c.DefaultQuery("format", "xlsx") {
	case "csv":
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", filename))
		c.Header("Content-Type", "text/csv")
		if err := export.WriteCSV(c.Writer, rows); err != nil {
			s.respondError(c, err)
		}
	case "xlsx":
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", filename))
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := s.exporter.Write(c.Writer, rows); err != nil {
			s.respondError(c, err)
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported format"})
	}
}
