package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/invopilot/invopilot/internal/approval"
	"github.com/invopilot/invopilot/internal/client"
	"github.com/invopilot/invopilot/internal/export"
	"github.com/invopilot/invopilot/internal/invoice"
	"github.com/invopilot/invopilot/internal/models"
	"github.com/invopilot/invopilot/internal/notification"
	"github.com/invopilot/invopilot/internal/repository"
	"github.com/invopilot/invopilot/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "api_test.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).Run())

	workflowRepo := repository.NewWorkflowRepository(db.DB, logger)
	approvalRepo := repository.NewApprovalRepository(db.DB, logger)
	invoiceRepo := repository.NewInvoiceRepository(db.DB, logger)
	clientRepo := repository.NewClientRepository(db.DB, logger)
	brandingRepo := repository.NewBrandingRepository(db.DB, logger)

	dispatcher := notification.NewLogDispatcher(logger)
	engine := approval.NewEngine(db, workflowRepo, approvalRepo, invoiceRepo, dispatcher, logger)

	renderer, err := invoice.NewTextRenderer()
	require.NoError(t, err)
	invoiceSvc := invoice.NewService(invoiceRepo, clientRepo, brandingRepo, renderer, dispatcher, logger)
	clientSvc := client.NewService(clientRepo, logger)

	srv := NewServer(engine, invoiceSvc, clientSvc, export.NewExcelExporter(logger), logger)
	return srv.Router()
}

func doJSON(t *testing.T, router *gin.Engine, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func TestIdentityRequired(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/invoices", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestApprovalLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/clients", "owner", map[string]any{
		"name": "Acme Corp", "email": "billing@acme.test",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var cl models.Client
	decode(t, w, &cl)

	w = doJSON(t, router, http.MethodPost, "/api/v1/invoices", "owner", map[string]any{
		"client_id": cl.ID,
		"line_items": []map[string]any{
			{"description": "Consulting", "quantity": 8, "unit_price": 250},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var inv models.Invoice
	decode(t, w, &inv)
	assert.Equal(t, models.InvoiceStatusDraft, inv.Status)
	assert.Equal(t, 2000.0, inv.Amount)

	w = doJSON(t, router, http.MethodPost, "/api/v1/workflows", "owner", map[string]any{
		"name": "Standard Approval",
		"approval_steps": []map[string]any{
			{"name": "Manager Review", "approvers": []string{"manager"}},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var wf models.Workflow
	decode(t, w, &wf)

	w = doJSON(t, router, http.MethodPost,
		"/api/v1/invoices/"+itoa(inv.ID)+"/submit-approval", "owner",
		map[string]any{"workflow_id": wf.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	var record models.ApprovalRecord
	decode(t, w, &record)
	assert.Equal(t, models.ApprovalStatusPending, record.Status)

	// The approver sees it in their queue; the owner does not.
	w = doJSON(t, router, http.MethodGet, "/api/v1/approvals/pending", "manager", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pending struct {
		Approvals []models.ApprovalRecord `json:"approvals"`
	}
	decode(t, w, &pending)
	require.Len(t, pending.Approvals, 1)

	w = doJSON(t, router, http.MethodGet, "/api/v1/approvals/pending", "owner", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &pending)
	assert.Empty(t, pending.Approvals)

	// A non-approver is rejected with 403.
	w = doJSON(t, router, http.MethodPost,
		"/api/v1/approvals/"+itoa(record.ID)+"/action", "intruder",
		map[string]any{"action": "approve"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, router, http.MethodPost,
		"/api/v1/approvals/"+itoa(record.ID)+"/action", "manager",
		map[string]any{"action": "approve", "comment": "looks good"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &record)
	assert.Equal(t, models.ApprovalStatusApproved, record.Status)

	// Acting again on the terminal record conflicts.
	w = doJSON(t, router, http.MethodPost,
		"/api/v1/approvals/"+itoa(record.ID)+"/action", "manager",
		map[string]any{"action": "approve"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodGet,
		"/api/v1/invoices/"+itoa(inv.ID)+"/approvals", "owner", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Approvals []models.ApprovalRecord `json:"approvals"`
	}
	decode(t, w, &history)
	require.Len(t, history.Approvals, 1)

	// History is owner-scoped; other users get 404, not 403.
	w = doJSON(t, router, http.MethodGet,
		"/api/v1/invoices/"+itoa(inv.ID)+"/approvals", "manager", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/approvals/stats", "owner", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats models.ApprovalStats
	decode(t, w, &stats)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Approved)
}

func TestInvoiceSendAndExportOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/clients", "owner", map[string]any{
		"name": "Globex", "email": "ap@globex.test",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var cl models.Client
	decode(t, w, &cl)

	threshold := 5000.0
	w = doJSON(t, router, http.MethodPost, "/api/v1/workflows", "owner", map[string]any{
		"name":                   "Auto Approve Small",
		"auto_approve_threshold": threshold,
		"approval_steps": []map[string]any{
			{"name": "Finance", "approvers": []string{"finance"}},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var wf models.Workflow
	decode(t, w, &wf)

	w = doJSON(t, router, http.MethodPost, "/api/v1/invoices", "owner", map[string]any{
		"client_id": cl.ID,
		"line_items": []map[string]any{
			{"description": "Hosting", "quantity": 1, "unit_price": 300},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var inv models.Invoice
	decode(t, w, &inv)

	// Below threshold: submission auto-approves the invoice.
	w = doJSON(t, router, http.MethodPost,
		"/api/v1/invoices/"+itoa(inv.ID)+"/submit-approval", "owner",
		map[string]any{"workflow_id": wf.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	var record models.ApprovalRecord
	decode(t, w, &record)
	assert.Equal(t, models.ApprovalStatusApproved, record.Status)
	assert.Equal(t, models.AutoApprovedStep, record.CurrentStep)

	w = doJSON(t, router, http.MethodPost,
		"/api/v1/invoices/"+itoa(inv.ID)+"/send", "owner", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &inv)
	assert.Equal(t, models.InvoiceStatusSent, inv.Status)

	w = doJSON(t, router, http.MethodPost,
		"/api/v1/invoices/"+itoa(inv.ID)+"/paid", "owner", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &inv)
	assert.Equal(t, models.InvoiceStatusPaid, inv.Status)

	w = doJSON(t, router, http.MethodGet, "/api/v1/invoices/export?format=csv", "owner", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), inv.InvoiceNumber)
	assert.Contains(t, w.Body.String(), "Globex")

	w = doJSON(t, router, http.MethodGet, "/api/v1/invoices/export?format=tsv", "owner", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBrandingRoundTripOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/branding", "owner", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var b models.Branding
	decode(t, w, &b)
	assert.Empty(t, b.CompanyName)

	w = doJSON(t, router, http.MethodPut, "/api/v1/branding", "owner", map[string]any{
		"company_name": "Invopilot LLC",
		"footer_note":  "Thanks for your business.",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/branding", "owner", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &b)
	assert.Equal(t, "Invopilot LLC", b.CompanyName)
}

func TestMalformedRequests(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/invoices/abc", "owner", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/workflows", "owner", map[string]any{
		"name": "No Steps",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/workflows/999", "owner", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
