package approval

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/invopilot/invopilot/internal/models"
	"github.com/invopilot/invopilot/internal/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockTxRunner runs the transaction body against a nil tx.
type mockTxRunner struct{}

func (m *mockTxRunner) WithTransaction(fn func(*sql.Tx) error) error {
	return fn(nil)
}

// mockWorkflowStore implements WorkflowStore in memory.
type mockWorkflowStore struct {
	workflows map[int64]*models.Workflow
	nextID    int64
}

func newMockWorkflowStore() *mockWorkflowStore {
	return &mockWorkflowStore{workflows: make(map[int64]*models.Workflow), nextID: 1}
}

func (m *mockWorkflowStore) Create(_ *sql.Tx, w *models.Workflow) error {
	w.ID = m.nextID
	m.nextID++
	cp := *w
	m.workflows[w.ID] = &cp
	return nil
}

func (m *mockWorkflowStore) GetByID(id int64, userID string) (*models.Workflow, error) {
	w, ok := m.workflows[id]
	if !ok || w.UserID != userID {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (m *mockWorkflowStore) GetAnyByID(id int64) (*models.Workflow, error) {
	w, ok := m.workflows[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (m *mockWorkflowStore) ListByUser(userID string) ([]*models.Workflow, error) {
	var out []*models.Workflow
	for _, w := range m.workflows {
		if w.UserID == userID {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockWorkflowStore) ListActive() ([]*models.Workflow, error) {
	var out []*models.Workflow
	for _, w := range m.workflows {
		if w.IsActive {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockWorkflowStore) Update(_ *sql.Tx, w *models.Workflow) error {
	cp := *w
	m.workflows[w.ID] = &cp
	return nil
}

func (m *mockWorkflowStore) Delete(_ *sql.Tx, id int64, userID string) (int64, error) {
	w, ok := m.workflows[id]
	if !ok || w.UserID != userID {
		return 0, nil
	}
	delete(m.workflows, id)
	return 1, nil
}

// mockApprovalStore implements ApprovalStore in memory. The conditional
// update honors the expected-status check the same way the SQL layer does.
type mockApprovalStore struct {
	records   map[int64]*models.ApprovalRecord
	nextID    int64
	forceRows *int64
	statsErr  error
	stats     *models.ApprovalStats
}

func newMockApprovalStore() *mockApprovalStore {
	return &mockApprovalStore{records: make(map[int64]*models.ApprovalRecord), nextID: 1}
}

func (m *mockApprovalStore) Create(_ *sql.Tx, a *models.ApprovalRecord) error {
	a.ID = m.nextID
	m.nextID++
	cp := *a
	m.records[a.ID] = &cp
	return nil
}

func (m *mockApprovalStore) GetByID(id int64) (*models.ApprovalRecord, error) {
	a, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *mockApprovalStore) UpdateWhereStatus(_ *sql.Tx, id int64, expectedStatus string, a *models.ApprovalRecord) (int64, error) {
	if m.forceRows != nil {
		return *m.forceRows, nil
	}
	stored, ok := m.records[id]
	if !ok || stored.Status != expectedStatus {
		return 0, nil
	}
	cp := *a
	m.records[id] = &cp
	return 1, nil
}

func (m *mockApprovalStore) CountPendingByWorkflow(workflowID int64) (int, error) {
	count := 0
	for _, a := range m.records {
		if a.WorkflowID == workflowID && a.Status == models.ApprovalStatusPending {
			count++
		}
	}
	return count, nil
}

func (m *mockApprovalStore) ListPendingByWorkflows(workflowIDs []int64) ([]*models.ApprovalRecord, error) {
	var out []*models.ApprovalRecord
	for _, a := range m.records {
		if a.Status != models.ApprovalStatusPending {
			continue
		}
		for _, id := range workflowIDs {
			if a.WorkflowID == id {
				cp := *a
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

func (m *mockApprovalStore) ListByInvoice(invoiceID int64) ([]*models.ApprovalRecord, error) {
	var out []*models.ApprovalRecord
	for _, a := range m.records {
		if a.InvoiceID == invoiceID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockApprovalStore) Stats(string, time.Time, time.Time) (*models.ApprovalStats, error) {
	if m.statsErr != nil {
		return nil, m.statsErr
	}
	return m.stats, nil
}

// mockInvoiceStore implements InvoiceStore in memory.
type mockInvoiceStore struct {
	invoices map[int64]*models.Invoice
}

func newMockInvoiceStore() *mockInvoiceStore {
	return &mockInvoiceStore{invoices: make(map[int64]*models.Invoice)}
}

func (m *mockInvoiceStore) GetByID(id int64, userID string) (*models.Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok || inv.UserID != userID {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (m *mockInvoiceStore) GetAnyByID(id int64) (*models.Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (m *mockInvoiceStore) UpdateStatus(_ *sql.Tx, id int64, status string) error {
	if inv, ok := m.invoices[id]; ok {
		inv.Status = status
	}
	return nil
}

// mockDispatcher records deliveries and can fail per recipient.
type mockDispatcher struct {
	mu      sync.Mutex
	sent    []string
	failFor map[string]bool
}

func newMockDispatcher() *mockDispatcher {
	return &mockDispatcher{failFor: make(map[string]bool)}
}

func (m *mockDispatcher) Send(_ context.Context, recipient string, _ notification.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, recipient)
	if m.failFor[recipient] {
		return assert.AnError
	}
	return nil
}

func (m *mockDispatcher) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

type fixture struct {
	engine     *Engine
	workflows  *mockWorkflowStore
	approvals  *mockApprovalStore
	invoices   *mockInvoiceStore
	dispatcher *mockDispatcher
}

func newFixture() *fixture {
	f := &fixture{
		workflows:  newMockWorkflowStore(),
		approvals:  newMockApprovalStore(),
		invoices:   newMockInvoiceStore(),
		dispatcher: newMockDispatcher(),
	}
	f.engine = NewEngine(&mockTxRunner{}, f.workflows, f.approvals, f.invoices, f.dispatcher, zap.NewNop())
	return f
}

func (f *fixture) addInvoice(id int64, userID string, amount float64) {
	f.invoices.invoices[id] = &models.Invoice{
		ID:            id,
		UserID:        userID,
		InvoiceNumber: "INV-2026-0001",
		Status:        models.InvoiceStatusDraft,
		Currency:      "USD",
		Amount:        amount,
	}
}

func floatPtr(v float64) *float64 { return &v }

func twoStepWorkflow(requireAll bool) *models.Workflow {
	return &models.Workflow{
		Name: "Finance sign-off",
		Steps: []models.ApprovalStep{
			{Name: "Manager review", Approvers: models.ApproverSet{"alice"}, Required: true},
			{Name: "Finance review", Approvers: models.ApproverSet{"bob"}, Required: true},
		},
		RequireAllApprovers: requireAll,
	}
}

func TestCreateWorkflowValidation(t *testing.T) {
	tests := []struct {
		name     string
		workflow *models.Workflow
		wantErr  bool
	}{
		{
			name:     "empty steps rejected",
			workflow: &models.Workflow{Name: "w", Steps: []models.ApprovalStep{}},
			wantErr:  true,
		},
		{
			name:     "missing name rejected",
			workflow: twoStepWorkflowNamed(""),
			wantErr:  true,
		},
		{
			name: "step without approvers rejected",
			workflow: &models.Workflow{
				Name:  "w",
				Steps: []models.ApprovalStep{{Name: "review", Approvers: models.ApproverSet{}}},
			},
			wantErr: true,
		},
		{
			name: "step without name rejected",
			workflow: &models.Workflow{
				Name:  "w",
				Steps: []models.ApprovalStep{{Approvers: models.ApproverSet{"alice"}}},
			},
			wantErr: true,
		},
		{
			name:     "valid workflow accepted",
			workflow: twoStepWorkflow(true),
			wantErr:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			created, err := f.engine.CreateWorkflow("owner", tt.workflow)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.True(t, created.IsActive)
			assert.Equal(t, "owner", created.UserID)
			assert.NotZero(t, created.ID)
		})
	}
}

func twoStepWorkflowNamed(name string) *models.Workflow {
	w := twoStepWorkflow(true)
	w.Name = name
	return w
}

func TestSubmitAutoApproval(t *testing.T) {
	f := newFixture()
	w := twoStepWorkflow(true)
	w.AutoApproveThreshold = floatPtr(1000)
	_, err := f.engine.CreateWorkflow("owner", w)
	require.NoError(t, err)

	f.addInvoice(1, "owner", 500)

	record, err := f.engine.SubmitForApproval(context.Background(), 1, "owner", w.ID, "rush job")
	require.NoError(t, err)

	assert.Equal(t, models.ApprovalStatusApproved, record.Status)
	assert.Equal(t, models.AutoApprovedStep, record.CurrentStep)
	assert.Equal(t, models.SystemActor, record.ApprovedBy)
	require.NotNil(t, record.ApprovedAt)
	require.Len(t, record.Data.History, 1)
	assert.Equal(t, models.ActionAutoApproved, record.Data.History[0].Action)

	assert.Equal(t, models.InvoiceStatusApproved, f.invoices.invoices[1].Status)
	assert.Empty(t, f.dispatcher.recipients(), "auto-approval must not notify anyone")
}

func TestSubmitAboveThresholdRoutesNormally(t *testing.T) {
	f := newFixture()
	w := twoStepWorkflow(true)
	w.AutoApproveThreshold = floatPtr(100)
	_, err := f.engine.CreateWorkflow("owner", w)
	require.NoError(t, err)

	f.addInvoice(1, "owner", 500)

	record, err := f.engine.SubmitForApproval(context.Background(), 1, "owner", w.ID, "")
	require.NoError(t, err)

	assert.Equal(t, models.ApprovalStatusPending, record.Status)
	assert.Equal(t, 0, record.CurrentStep)
	assert.Empty(t, record.Data.History)
	assert.Equal(t, models.InvoiceStatusPendingApproval, f.invoices.invoices[1].Status)
	assert.Equal(t, []string{"alice"}, f.dispatcher.recipients())
}

func TestSubmitErrors(t *testing.T) {
	f := newFixture()
	w := twoStepWorkflow(true)
	_, err := f.engine.CreateWorkflow("owner", w)
	require.NoError(t, err)
	f.addInvoice(1, "owner", 500)

	t.Run("unknown workflow", func(t *testing.T) {
		_, err := f.engine.SubmitForApproval(context.Background(), 1, "owner", 999, "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("workflow owned by someone else", func(t *testing.T) {
		_, err := f.engine.SubmitForApproval(context.Background(), 1, "intruder", w.ID, "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("inactive workflow", func(t *testing.T) {
		inactive := false
		_, err := f.engine.UpdateWorkflow(w.ID, "owner", &models.WorkflowPatch{IsActive: &inactive})
		require.NoError(t, err)
		_, err = f.engine.SubmitForApproval(context.Background(), 1, "owner", w.ID, "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown invoice", func(t *testing.T) {
		active := true
		_, err := f.engine.UpdateWorkflow(w.ID, "owner", &models.WorkflowPatch{IsActive: &active})
		require.NoError(t, err)
		_, err = f.engine.SubmitForApproval(context.Background(), 42, "owner", w.ID, "")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestProcessRejectIsTerminal(t *testing.T) {
	for _, requireAll := range []bool{true, false} {
		f := newFixture()
		w := twoStepWorkflow(requireAll)
		_, err := f.engine.CreateWorkflow("owner", w)
		require.NoError(t, err)
		f.addInvoice(1, "owner", 500)

		record, err := f.engine.SubmitForApproval(context.Background(), 1, "owner", w.ID, "")
		require.NoError(t, err)

		rejected, err := f.engine.ProcessApproval(context.Background(), record.ID, "alice", models.ActionReject, "numbers look off")
		require.NoError(t, err)

		assert.Equal(t, models.ApprovalStatusRejected, rejected.Status)
		assert.Equal(t, models.InvoiceStatusDraft, f.invoices.invoices[1].Status)
		require.Len(t, rejected.Data.History, 1)
		assert.Equal(t, models.ActionReject, rejected.Data.History[0].Action)
		assert.Equal(t, "numbers look off", rejected.Data.History[0].Comment)
	}
}

func TestSingleApproverPolicyFinalizesOnFirstStep(t *testing.T) {
	f := newFixture()
	w := &models.Workflow{
		Name: "Three stage",
		Steps: []models.ApprovalStep{
			{Name: "s0", Approvers: models.ApproverSet{"alice"}},
			{Name: "s1", Approvers: models.ApproverSet{"bob"}},
			{Name: "s2", Approvers: models.ApproverSet{"carol"}},
		},
		RequireAllApprovers: false,
	}
	_, err := f.engine.CreateWorkflow("owner", w)
	require.NoError(t, err)
	f.addInvoice(1, "owner", 500)

	record, err := f.engine.SubmitForApproval(context.Background(), 1, "owner", w.ID, "")
	require.NoError(t, err)

	approved, err := f.engine.ProcessApproval(context.Background(), record.ID, "alice", models.ActionApprove, "")
	require.NoError(t, err)

	assert.Equal(t, models.ApprovalStatusApproved, approved.Status)
	assert.Equal(t, []int{0}, approved.Data.StepsCompleted)
	assert.Equal(t, "alice", approved.ApprovedBy)
	assert.Equal(t, models.InvoiceStatusApproved, f.invoices.invoices[1].Status)

	// Later steps were never visited, so bob and carol were never notified.
	for _, r := range f.dispatcher.recipients() {
		assert.NotContains(t, []string{"bob", "carol"}, r)
	}
}

func TestAllApproversPolicy(t *testing.T) {
	f := newFixture()
	w := twoStepWorkflow(true)
	_, err := f.engine.CreateWorkflow("owner", w)
	require.NoError(t, err)
	f.addInvoice(1, "owner", 500)

	record, err := f.engine.SubmitForApproval(context.Background(), 1, "owner", w.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 0, record.CurrentStep)

	afterAlice, err := f.engine.ProcessApproval(context.Background(), record.ID, "alice", models.ActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusPending, afterAlice.Status)
	assert.Equal(t, 1, afterAlice.CurrentStep)
	assert.Equal(t, []int{0}, afterAlice.Data.StepsCompleted)
	assert.Nil(t, afterAlice.ApprovedAt)
	assert.Contains(t, f.dispatcher.recipients(), "bob", "step-1 approver notified on advance")

	afterBob, err := f.engine.ProcessApproval(context.Background(), record.ID, "bob", models.ActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusApproved, afterBob.Status)
	assert.Equal(t, 1, afterBob.CurrentStep)
	assert.ElementsMatch(t, []int{0, 1}, afterBob.Data.StepsCompleted)
	assert.Equal(t, "bob", afterBob.ApprovedBy)
	assert.Equal(t, models.InvoiceStatusApproved, f.invoices.invoices[1].Status)
}

func TestProcessApprovalAuthorization(t *testing.T) {
	f := newFixture()
	w := twoStepWorkflow(true)
	_, err := f.engine.CreateWorkflow("owner", w)
	require.NoError(t, err)
	f.addInvoice(1, "owner", 500)

	record, err := f.engine.SubmitForApproval(context.Background(), 1, "owner", w.ID, "")
	require.NoError(t, err)

	// bob approves step 1, not step 0.
	_, err = f.engine.ProcessApproval(context.Background(), record.ID, "bob", models.ActionApprove, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.engine.ProcessApproval(context.Background(), record.ID, "mallory", models.ActionApprove, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	stored, err := f.approvals.GetByID(record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusPending, stored.Status)
	assert.Equal(t, 0, stored.CurrentStep)
	assert.Empty(t, stored.Data.History, "failed authorization must not mutate the record")
}

func TestTerminalRecordRejectsFurtherActions(t *testing.T) {
	f := newFixture()
	w := twoStepWorkflow(false)
	_, err := f.engine.CreateWorkflow("owner", w)
	require.NoError(t, err)
	f.addInvoice(1, "owner", 500)

	record, err := f.engine.SubmitForApproval(context.Background(), 1, "owner", w.ID, "")
	require.NoError(t, err)

	approved, err := f.engine.ProcessApproval(context.Background(), record.ID, "alice", models.ActionApprove, "")
	require.NoError(t, err)
	historyLen := len(approved.Data.History)

	_, err = f.engine.ProcessApproval(context.Background(), record.ID, "alice", models.ActionApprove, "again")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.engine.ProcessApproval(context.Background(), record.ID, "bob", models.ActionReject, "")
	assert.ErrorIs(t, err, ErrConflict)

	stored, err := f.approvals.GetByID(record.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Data.History, historyLen, "terminal record history must not grow")
}

func TestConcurrentActionSurfacesConflict(t *testing.T) {
	f := newFixture()
	w := twoStepWorkflow(true)
	_, err := f.engine.CreateWorkflow("owner", w)
	require.NoError(t, err)
	f.addInvoice(1, "owner", 500)

	record, err := f.engine.SubmitForApproval(context.Background(), 1, "owner", w.ID, "")
	require.NoError(t, err)

	// Another replica wins the conditional update between our read and write.
	var zero int64
	f.approvals.forceRows = &zero

	_, err = f.engine.ProcessApproval(context.Background(), record.ID, "alice", models.ActionApprove, "")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestProcessApprovalInvalidAction(t *testing.T) {
	f := newFixture()
	_, err := f.engine.ProcessApproval(context.Background(), 1, "alice", "defer", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestProcessApprovalUnknownRecord(t *testing.T) {
	f := newFixture()
	_, err := f.engine.ProcessApproval(context.Background(), 404, "alice", models.ActionApprove, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteWorkflow(t *testing.T) {
	f := newFixture()
	w := twoStepWorkflow(true)
	_, err := f.engine.CreateWorkflow("owner", w)
	require.NoError(t, err)
	f.addInvoice(1, "owner", 500)

	_, err = f.engine.SubmitForApproval(context.Background(), 1, "owner", w.ID, "")
	require.NoError(t, err)

	err = f.engine.DeleteWorkflow(w.ID, "owner")
	assert.ErrorIs(t, err, ErrConflict, "pending approvals block deletion")

	record, err := f.engine.GetPendingApprovals("alice")
	require.NoError(t, err)
	require.Len(t, record, 1)
	_, err = f.engine.ProcessApproval(context.Background(), record[0].ID, "alice", models.ActionReject, "")
	require.NoError(t, err)

	require.NoError(t, f.engine.DeleteWorkflow(w.ID, "owner"))
	assert.ErrorIs(t, f.engine.DeleteWorkflow(w.ID, "owner"), ErrNotFound)
}

func TestUpdateWorkflowPartial(t *testing.T) {
	f := newFixture()
	w := twoStepWorkflow(true)
	_, err := f.engine.CreateWorkflow("owner", w)
	require.NoError(t, err)

	name := "Renamed"
	updated, err := f.engine.UpdateWorkflow(w.ID, "owner", &models.WorkflowPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Len(t, updated.Steps, 2, "steps untouched by partial update")

	empty := []models.ApprovalStep{}
	_, err = f.engine.UpdateWorkflow(w.ID, "owner", &models.WorkflowPatch{Steps: &empty})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetPendingApprovalsTwoPhaseFilter(t *testing.T) {
	f := newFixture()
	w := twoStepWorkflow(true)
	_, err := f.engine.CreateWorkflow("owner", w)
	require.NoError(t, err)
	f.addInvoice(1, "owner", 500)

	record, err := f.engine.SubmitForApproval(context.Background(), 1, "owner", w.ID, "")
	require.NoError(t, err)

	// bob is in the workflow but the current step is alice's.
	pendingForBob, err := f.engine.GetPendingApprovals("bob")
	require.NoError(t, err)
	assert.Empty(t, pendingForBob)

	pendingForAlice, err := f.engine.GetPendingApprovals("alice")
	require.NoError(t, err)
	require.Len(t, pendingForAlice, 1)
	assert.Equal(t, record.ID, pendingForAlice[0].ID)

	// carol is in no workflow at all.
	pendingForCarol, err := f.engine.GetPendingApprovals("carol")
	require.NoError(t, err)
	assert.Empty(t, pendingForCarol)
}

func TestGetApprovalHistoryOwnership(t *testing.T) {
	f := newFixture()
	w := twoStepWorkflow(true)
	_, err := f.engine.CreateWorkflow("owner", w)
	require.NoError(t, err)
	f.addInvoice(1, "owner", 500)

	_, err = f.engine.SubmitForApproval(context.Background(), 1, "owner", w.ID, "")
	require.NoError(t, err)

	history, err := f.engine.GetApprovalHistory(1, "owner")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = f.engine.GetApprovalHistory(1, "intruder")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetApprovalStatsDegradesToZero(t *testing.T) {
	f := newFixture()
	f.approvals.statsErr = assert.AnError

	stats := f.engine.GetApprovalStats("owner", time.Now().Add(-24*time.Hour), time.Now())
	require.NotNil(t, stats)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.AvgApprovalHours)
}

func TestNotificationFailureDoesNotFailSubmission(t *testing.T) {
	f := newFixture()
	w := &models.Workflow{
		Name: "Wide step",
		Steps: []models.ApprovalStep{
			{Name: "review", Approvers: models.ApproverSet{"alice", "bob", "carol"}},
		},
	}
	_, err := f.engine.CreateWorkflow("owner", w)
	require.NoError(t, err)
	f.addInvoice(1, "owner", 500)

	f.dispatcher.failFor["bob"] = true

	record, err := f.engine.SubmitForApproval(context.Background(), 1, "owner", w.ID, "")
	require.NoError(t, err, "delivery failure must not fail the submission")
	assert.Equal(t, models.ApprovalStatusPending, record.Status)
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, f.dispatcher.recipients(),
		"one failing recipient must not block the others")
}

func TestExampleScenario(t *testing.T) {
	// Two steps, alice then bob, requireAllApprovers, no threshold,
	// invoice amount 500.
	f := newFixture()
	w := twoStepWorkflow(true)
	_, err := f.engine.CreateWorkflow("owner", w)
	require.NoError(t, err)
	f.addInvoice(1, "owner", 500)

	record, err := f.engine.SubmitForApproval(context.Background(), 1, "owner", w.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusPending, record.Status)
	assert.Equal(t, 0, record.CurrentStep)

	record, err = f.engine.ProcessApproval(context.Background(), record.ID, "alice", models.ActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusPending, record.Status)
	assert.Equal(t, 1, record.CurrentStep)
	assert.Equal(t, []int{0}, record.Data.StepsCompleted)

	record, err = f.engine.ProcessApproval(context.Background(), record.ID, "bob", models.ActionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusApproved, record.Status)
	assert.Equal(t, 1, record.CurrentStep)
	assert.ElementsMatch(t, []int{0, 1}, record.Data.StepsCompleted)
	assert.Equal(t, models.InvoiceStatusApproved, f.invoices.invoices[1].Status)
}
