package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/bigkaa/certstore/internal/domain/model"
	"github.com/bigkaa/certstore/internal/notify"
	"github.com/bigkaa/certstore/internal/repository"
	"github.com/bigkaa/certstore/internal/sheetclient"
)

// fakeSheet — табличное API в памяти для тестов сервисов.
type fakeSheet struct {
	mu   sync.Mutex
	rows []model.SheetRow
	// записанные вызовы
	batchUpdates [][]model.RowUpdate
	addedRows    []model.SheetFields
	singleUpdate []model.RowUpdate
	deleted      []string
	// настройка поведения
	getErr      error
	batchErr    error
	failColumns map[string]bool // SearchValue → ошибка в BatchUpdateRows
}

func newFakeSheet(rows ...model.SheetRow) *fakeSheet {
	return &fakeSheet{rows: rows, failColumns: map[string]bool{}}
}

func (f *fakeSheet) GetAllRows(ctx context.Context) ([]model.SheetRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := make([]model.SheetRow, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

func (f *fakeSheet) UpdateRow(ctx context.Context, searchColumn, searchValue string, fields model.SheetFields) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.singleUpdate = append(f.singleUpdate, model.RowUpdate{
		SearchColumn: searchColumn,
		SearchValue:  searchValue,
		Fields:       fields,
	})
	return 1, nil
}

func (f *fakeSheet) BatchUpdateRows(ctx context.Context, updates []model.RowUpdate) (*sheetclient.BatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	batch := make([]model.RowUpdate, len(updates))
	copy(batch, updates)
	f.batchUpdates = append(f.batchUpdates, batch)

	result := &sheetclient.BatchResult{}
	for _, u := range updates {
		if f.failColumns[u.SearchValue] {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Errorf("%s=%s: not found", u.SearchColumn, u.SearchValue))
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

func (f *fakeSheet) AddRow(ctx context.Context, fields model.SheetFields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addedRows = append(f.addedRows, fields)
	return nil
}

func (f *fakeSheet) AddRows(ctx context.Context, rows []model.SheetFields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addedRows = append(f.addedRows, rows...)
	return nil
}

func (f *fakeSheet) DeleteRow(ctx context.Context, searchColumn, searchValue string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, searchValue)
	return nil
}

// allUpdates возвращает все пакетные обновления одним списком.
func (f *fakeSheet) allUpdates() []model.RowUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.RowUpdate
	for _, batch := range f.batchUpdates {
		out = append(out, batch...)
	}
	return out
}

// fakeCertRepo — репозиторий сертификатов в памяти.
type fakeCertRepo struct {
	mu    sync.Mutex
	certs map[string]*model.Certificate // по UUID
	// настройка поведения
	createErr error
	takenIDs  map[string]bool // занятые публичные идентификаторы
}

func newFakeCertRepo() *fakeCertRepo {
	return &fakeCertRepo{
		certs:    map[string]*model.Certificate{},
		takenIDs: map[string]bool{},
	}
}

func (f *fakeCertRepo) Create(ctx context.Context, c *model.Certificate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	cp := *c
	f.certs[c.ID] = &cp
	return nil
}

func (f *fakeCertRepo) GetByID(ctx context.Context, id string) (*model.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.certs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCertRepo) GetByCertificateID(ctx context.Context, certificateID string) (*model.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.certs {
		if c.CertificateID == certificateID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCertRepo) ExistsByCertificateID(ctx context.Context, certificateID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.takenIDs[certificateID] {
		return true, nil
	}
	for _, c := range f.certs {
		if c.CertificateID == certificateID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCertRepo) List(ctx context.Context, filter repository.CertificateFilter, limit, offset int) ([]*model.Certificate, error) {
	return f.ListWithMetadata(ctx, filter, limit, offset)
}

func (f *fakeCertRepo) ListWithMetadata(ctx context.Context, filter repository.CertificateFilter, limit, offset int) ([]*model.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Certificate
	for _, c := range f.certs {
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeCertRepo) Count(ctx context.Context, filter repository.CertificateFilter) (int, error) {
	certs, _ := f.ListWithMetadata(ctx, filter, 0, 0)
	return len(certs), nil
}

func (f *fakeCertRepo) Update(ctx context.Context, c *model.Certificate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.certs[c.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *c
	f.certs[c.ID] = &cp
	return nil
}

func (f *fakeCertRepo) Revoke(ctx context.Context, id, revokedBy, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.certs[id]
	if !ok || c.Status != model.StatusActive {
		return repository.ErrNotFound
	}
	c.Status = model.StatusRevoked
	c.RevokedBy = &revokedBy
	c.RevokedReason = &reason
	return nil
}

func (f *fakeCertRepo) Restore(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.certs[id]
	if !ok || c.Status != model.StatusRevoked {
		return repository.ErrNotFound
	}
	c.Status = model.StatusActive
	c.RevokedBy = nil
	c.RevokedReason = nil
	return nil
}

func (f *fakeCertRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.certs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.certs, id)
	return nil
}

func (f *fakeCertRepo) StatusCounts(ctx context.Context) (int, int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total, active, revoked int
	for _, c := range f.certs {
		total++
		switch c.Status {
		case model.StatusActive:
			active++
		case model.StatusRevoked:
			revoked++
		}
	}
	return total, active, revoked, nil
}

func (f *fakeCertRepo) TotalVerifications(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, c := range f.certs {
		sum += int64(c.VerificationCount)
	}
	return sum, nil
}

// byParticipant возвращает сертификат по имени участника без копии.
func (f *fakeCertRepo) byParticipant(name string) *model.Certificate {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.certs {
		if c.ParticipantName == name {
			return c
		}
	}
	return nil
}

// fakeEventRepo — репозиторий событий в памяти.
type fakeEventRepo struct {
	mu     sync.Mutex
	events map[string]*model.Event // по коду
}

func newFakeEventRepo(events ...*model.Event) *fakeEventRepo {
	f := &fakeEventRepo{events: map[string]*model.Event{}}
	for _, e := range events {
		f.events[e.EventCode] = e
	}
	return f
}

func (f *fakeEventRepo) Create(ctx context.Context, e *model.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[e.EventCode]; ok {
		return repository.ErrConflict
	}
	f.events[e.EventCode] = e
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeEventRepo) GetByCode(ctx context.Context, code string) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return e, nil
}

func (f *fakeEventRepo) List(ctx context.Context) ([]*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Event
	for _, e := range f.events {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeEventRepo) Count(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events), nil
}

// fakeNotifier — накапливает уведомления для проверок.
type fakeNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (f *fakeNotifier) Notify(e notify.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakeNotifier) titles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.Title
	}
	return out
}
