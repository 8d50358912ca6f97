package service

import (
	"context"
	"errors"
	"time"

	"sav-service/internal/apperr"
	"sav-service/internal/gateway"
	"sav-service/internal/models"
)

// fakeStore is an in-memory InterventionStore.
type fakeStore struct {
	interventions map[int64]*models.Intervention
	parts         map[int64]*models.PartUsed
	labors        map[int64]*models.Labor
	nextID        int64

	createPartErr error
	updateErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		interventions: make(map[int64]*models.Intervention),
		parts:         make(map[int64]*models.PartUsed),
		labors:        make(map[int64]*models.Labor),
	}
}

func (f *fakeStore) seedIntervention(iv *models.Intervention) *models.Intervention {
	if iv.ID == 0 {
		f.nextID++
		iv.ID = f.nextID
	}
	f.interventions[iv.ID] = iv
	return iv
}

func (f *fakeStore) CreateIntervention(ctx context.Context, iv *models.Intervention) error {
	f.nextID++
	iv.ID = f.nextID
	iv.CreatedAt = time.Now()
	iv.UpdatedAt = iv.CreatedAt
	f.interventions[iv.ID] = iv
	return nil
}

func (f *fakeStore) GetInterventionByID(ctx context.Context, id int64) (*models.Intervention, error) {
	iv, ok := f.interventions[id]
	if !ok || iv.Deleted {
		return nil, apperr.NotFound("intervention not found: %d", id)
	}
	cp := *iv
	return &cp, nil
}

func (f *fakeStore) GetInterventionIncludingDeleted(ctx context.Context, id int64) (*models.Intervention, error) {
	iv, ok := f.interventions[id]
	if !ok {
		return nil, apperr.NotFound("intervention not found: %d", id)
	}
	cp := *iv
	return &cp, nil
}

func (f *fakeStore) UpdateIntervention(ctx context.Context, iv *models.Intervention) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.interventions[iv.ID]; !ok {
		return apperr.NotFound("intervention not found: %d", iv.ID)
	}
	cp := *iv
	f.interventions[iv.ID] = &cp
	return nil
}

func (f *fakeStore) SetInterventionDeleted(ctx context.Context, id int64, deleted bool) error {
	iv, ok := f.interventions[id]
	if !ok {
		return apperr.NotFound("intervention not found: %d", id)
	}
	iv.Deleted = deleted
	return nil
}

func (f *fakeStore) ListInterventionsByReclamation(ctx context.Context, reclamationID int64) ([]models.Intervention, error) {
	var out []models.Intervention
	for _, iv := range f.interventions {
		if iv.ReclamationID == reclamationID && !iv.Deleted {
			out = append(out, *iv)
		}
	}
	return out, nil
}

func (f *fakeStore) ListInterventionsByTechnician(ctx context.Context, technicianID int64) ([]models.Intervention, error) {
	var out []models.Intervention
	for _, iv := range f.interventions {
		if iv.TechnicianID != nil && *iv.TechnicianID == technicianID && !iv.Deleted {
			out = append(out, *iv)
		}
	}
	return out, nil
}

func (f *fakeStore) CreatePartUsed(ctx context.Context, part *models.PartUsed) error {
	if f.createPartErr != nil {
		return f.createPartErr
	}
	f.nextID++
	part.ID = f.nextID
	part.CreatedAt = time.Now()
	cp := *part
	f.parts[part.ID] = &cp
	return nil
}

func (f *fakeStore) GetPartUsed(ctx context.Context, interventionID, partUsedID int64) (*models.PartUsed, error) {
	p, ok := f.parts[partUsedID]
	if !ok || p.InterventionID != interventionID {
		return nil, apperr.NotFound("part usage not found: %d", partUsedID)
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) ListPartsUsed(ctx context.Context, interventionID int64) ([]models.PartUsed, error) {
	var out []models.PartUsed
	for _, p := range f.parts {
		if p.InterventionID == interventionID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) DeletePartUsed(ctx context.Context, partUsedID int64) error {
	if _, ok := f.parts[partUsedID]; !ok {
		return apperr.NotFound("part usage not found: %d", partUsedID)
	}
	delete(f.parts, partUsedID)
	return nil
}

func (f *fakeStore) GetLabor(ctx context.Context, interventionID int64) (*models.Labor, error) {
	l, ok := f.labors[interventionID]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (f *fakeStore) UpsertLabor(ctx context.Context, labor *models.Labor) error {
	if labor.ID == 0 {
		f.nextID++
		labor.ID = f.nextID
	}
	cp := *labor
	f.labors[labor.InterventionID] = &cp
	return nil
}

func (f *fakeStore) DeleteLabor(ctx context.Context, interventionID int64) error {
	if _, ok := f.labors[interventionID]; !ok {
		return apperr.NotFound("no labor for intervention %d", interventionID)
	}
	delete(f.labors, interventionID)
	return nil
}

// fakeInvoices is an in-memory InvoiceStore. conflictsLeft simulates
// concurrent number allocation: the first N creates fail with the unique
// constraint error the real store maps.
type fakeInvoices struct {
	byID           map[int64]*models.Invoice
	nextID         int64
	monthCount     int
	conflictsLeft  int
	conflictErr    error
	pdfPathUpdates map[int64]string
}

func newFakeInvoices() *fakeInvoices {
	return &fakeInvoices{
		byID:           make(map[int64]*models.Invoice),
		pdfPathUpdates: make(map[int64]string),
	}
}

func (f *fakeInvoices) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		f.monthCount++
		return f.conflictErr
	}
	f.nextID++
	inv.ID = f.nextID
	inv.CreatedAt = time.Now()
	cp := *inv
	f.byID[inv.ID] = &cp
	f.monthCount++
	return nil
}

func (f *fakeInvoices) GetInvoiceByID(ctx context.Context, id int64) (*models.Invoice, error) {
	inv, ok := f.byID[id]
	if !ok {
		return nil, apperr.NotFound("invoice not found: %d", id)
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeInvoices) GetInvoiceByInterventionID(ctx context.Context, interventionID int64) (*models.Invoice, error) {
	for _, inv := range f.byID {
		if inv.InterventionID != nil && *inv.InterventionID == interventionID {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeInvoices) GetInvoiceByOrderID(ctx context.Context, orderID int64) (*models.Invoice, error) {
	for _, inv := range f.byID {
		if inv.OrderID != nil && *inv.OrderID == orderID {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeInvoices) CountInvoicesInMonth(ctx context.Context, year int, month int) (int, error) {
	return f.monthCount, nil
}

func (f *fakeInvoices) UpdateInvoicePDFPath(ctx context.Context, invoiceID int64, path string) error {
	f.pdfPathUpdates[invoiceID] = path
	if inv, ok := f.byID[invoiceID]; ok {
		inv.PDFPath = path
	}
	return nil
}

// fakeComp records compensation intents in memory.
type fakeComp struct {
	intents   map[int64]*models.CompensationIntent
	nextID    int64
	createErr error
}

func newFakeComp() *fakeComp {
	return &fakeComp{intents: make(map[int64]*models.CompensationIntent)}
}

func (f *fakeComp) CreateCompensationIntent(ctx context.Context, intent *models.CompensationIntent) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	intent.ID = f.nextID
	intent.Status = models.CompensationStatusPending
	cp := *intent
	f.intents[intent.ID] = &cp
	return nil
}

func (f *fakeComp) ResolveCompensationIntent(ctx context.Context, intentID int64) error {
	intent, ok := f.intents[intentID]
	if !ok {
		return apperr.NotFound("intent not found: %d", intentID)
	}
	intent.Status = models.CompensationStatusResolved
	return nil
}

func (f *fakeComp) RecordCompensationAttempt(ctx context.Context, intentID int64, lastError string) error {
	intent, ok := f.intents[intentID]
	if !ok {
		return apperr.NotFound("intent not found: %d", intentID)
	}
	intent.Attempts++
	intent.LastError = lastError
	return nil
}

func (f *fakeComp) ListPendingCompensations(ctx context.Context, limit int) ([]models.CompensationIntent, error) {
	var out []models.CompensationIntent
	for _, intent := range f.intents {
		if intent.Status == models.CompensationStatusPending {
			out = append(out, *intent)
		}
	}
	return out, nil
}

type stockCall struct {
	partID        int64
	quantity      int
	correlationID string
}

// fakeInventory is a scriptable InventoryAPI.
type fakeInventory struct {
	parts      map[int64]*gateway.Part
	deductErr  error
	restoreErr error

	deducts  []stockCall
	restores []stockCall
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{parts: make(map[int64]*gateway.Part)}
}

func (f *fakeInventory) GetPart(ctx context.Context, partID int64) (*gateway.Part, error) {
	p, ok := f.parts[partID]
	if !ok {
		return nil, apperr.NotFound("part not found: %d", partID)
	}
	cp := *p
	return &cp, nil
}

func (f *fakeInventory) DeductStock(ctx context.Context, partID int64, quantity int, correlationID string) error {
	if f.deductErr != nil {
		return f.deductErr
	}
	f.deducts = append(f.deducts, stockCall{partID, quantity, correlationID})
	return nil
}

func (f *fakeInventory) RestoreStock(ctx context.Context, partID int64, quantity int, correlationID string) error {
	if f.restoreErr != nil {
		return f.restoreErr
	}
	f.restores = append(f.restores, stockCall{partID, quantity, correlationID})
	return nil
}

// fakeReclamations serves one reclamation by id.
type fakeReclamations struct {
	recs map[int64]*gateway.Reclamation
	err  error
}

func newFakeReclamations(recs ...*gateway.Reclamation) *fakeReclamations {
	f := &fakeReclamations{recs: make(map[int64]*gateway.Reclamation)}
	for _, r := range recs {
		f.recs[r.ID] = r
	}
	return f
}

func (f *fakeReclamations) GetReclamation(ctx context.Context, id int64) (*gateway.Reclamation, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.recs[id]
	if !ok {
		return nil, apperr.NotFound("reclamation not found: %d", id)
	}
	cp := *r
	return &cp, nil
}

// fakeDirectory maps client ids and user ids to client records.
type fakeDirectory struct {
	byID   map[int64]*gateway.ClientRecord
	byUser map[int64]*gateway.ClientRecord
}

func newFakeDirectory(clients ...*gateway.ClientRecord) *fakeDirectory {
	f := &fakeDirectory{
		byID:   make(map[int64]*gateway.ClientRecord),
		byUser: make(map[int64]*gateway.ClientRecord),
	}
	for _, c := range clients {
		f.byID[c.ID] = c
		if c.UserID != 0 {
			f.byUser[c.UserID] = c
		}
	}
	return f
}

func (f *fakeDirectory) GetClientByID(ctx context.Context, id int64) (*gateway.ClientRecord, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeDirectory) GetClientByUserID(ctx context.Context, userID int64) (*gateway.ClientRecord, error) {
	c, ok := f.byUser[userID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

// fakePDF returns canned bytes.
type fakePDF struct {
	data []byte
	err  error
	last *gateway.InvoiceRenderData
}

func (f *fakePDF) Render(ctx context.Context, data gateway.InvoiceRenderData) ([]byte, error) {
	f.last = &data
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

// fakePublisher records everything the services emit.
type fakePublisher struct {
	created       []*models.InterventionCreatedEvent
	statuses      []*models.InterventionStatusEvent
	assignments   []*models.TechnicianAssignedEvent
	partsAdded    []*models.PartAddedEvent
	partsRemoved  []*models.PartRemovedEvent
	invoices      []*models.InvoiceGeneratedEvent
	notifications []*models.NotificationCommand
	emails        []*models.EmailCommand
}

func (f *fakePublisher) PublishInterventionCreated(ctx context.Context, e *models.InterventionCreatedEvent) error {
	f.created = append(f.created, e)
	return nil
}

func (f *fakePublisher) PublishInterventionStatus(ctx context.Context, e *models.InterventionStatusEvent) error {
	f.statuses = append(f.statuses, e)
	return nil
}

func (f *fakePublisher) PublishTechnicianAssigned(ctx context.Context, e *models.TechnicianAssignedEvent) error {
	f.assignments = append(f.assignments, e)
	return nil
}

func (f *fakePublisher) PublishPartAdded(ctx context.Context, e *models.PartAddedEvent) error {
	f.partsAdded = append(f.partsAdded, e)
	return nil
}

func (f *fakePublisher) PublishPartRemoved(ctx context.Context, e *models.PartRemovedEvent) error {
	f.partsRemoved = append(f.partsRemoved, e)
	return nil
}

func (f *fakePublisher) PublishInvoiceGenerated(ctx context.Context, e *models.InvoiceGeneratedEvent) error {
	f.invoices = append(f.invoices, e)
	return nil
}

func (f *fakePublisher) EnqueueNotification(ctx context.Context, cmd *models.NotificationCommand) error {
	f.notifications = append(f.notifications, cmd)
	return nil
}

func (f *fakePublisher) EnqueueEmail(ctx context.Context, cmd *models.EmailCommand) error {
	f.emails = append(f.emails, cmd)
	return nil
}

// fakeLocker counts acquisitions; held simulates a concurrent holder.
type fakeLocker struct {
	held       bool
	acquireErr error
	acquired   int
	released   int
}

func (f *fakeLocker) AcquireInterventionLock(ctx context.Context, interventionID int64, ttl time.Duration) (string, error) {
	if f.acquireErr != nil {
		return "", f.acquireErr
	}
	if f.held {
		return "", nil
	}
	f.acquired++
	return "token", nil
}

func (f *fakeLocker) ReleaseInterventionLock(ctx context.Context, interventionID int64, token string) error {
	f.released++
	return nil
}

var errBoom = errors.New("boom")
