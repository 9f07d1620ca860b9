package mocks

import (
	"context"
	"slices"
	"sync"
	"time"

	"order-lifecycle-service/internal/model"
	"order-lifecycle-service/internal/repository"
)

// MockOrderRepository es una implementación en memoria del repositorio de órdenes
type MockOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*model.Order

	// Para inspeccionar llamadas en tests
	CreateCalls        []string
	UpdateStatusCalls  []UpdateStatusCall
	UpdatePaymentCalls []UpdatePaymentCall
}

type UpdateStatusCall struct {
	OrderID string
	Version int64
	Record  model.StatusRecord
}

type UpdatePaymentCall struct {
	OrderID string
	Version int64
	Update  repository.PaymentUpdate
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{orders: make(map[string]*model.Order)}
}

// Seed carga una orden tal cual, sin tocar versión ni historial.
func (m *MockOrderRepository) Seed(o *model.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = clone(o)
}

func (m *MockOrderRepository) Create(_ context.Context, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls = append(m.CreateCalls, o.ID)

	if _, ok := m.orders[o.ID]; ok {
		return repository.ErrOrderAlreadyExists
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt, o.Version = now, now, 1
	o.History = []model.StatusRecord{{To: o.Status, UserID: o.UserID, Timestamp: now, Current: true}}
	if o.ReceiptImages == nil {
		o.ReceiptImages = []string{}
	}
	m.orders[o.ID] = clone(o)
	return nil
}

func (m *MockOrderRepository) FindByOrderID(_ context.Context, orderID string) (*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(o), nil
}

func (m *MockOrderRepository) UpdateStatus(_ context.Context, orderID string, version int64, record model.StatusRecord) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateStatusCalls = append(m.UpdateStatusCalls, UpdateStatusCall{OrderID: orderID, Version: version, Record: record})

	o, ok := m.orders[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if o.Version != version || o.Status != record.From {
		return nil, repository.ErrVersionConflict
	}
	for i := range o.History {
		o.History[i].Current = false
	}
	o.History = append(o.History, record)
	o.Status = record.To
	o.UpdatedAt = record.Timestamp
	o.Version++
	return clone(o), nil
}

func (m *MockOrderRepository) UpdatePayment(_ context.Context, orderID string, version int64, p repository.PaymentUpdate) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdatePaymentCalls = append(m.UpdatePaymentCalls, UpdatePaymentCall{OrderID: orderID, Version: version, Update: p})

	o, ok := m.orders[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if o.Version != version {
		return nil, repository.ErrVersionConflict
	}
	now := time.Now().UTC()
	o.PaymentStatus = p.PaymentStatus
	o.PaidAmount = p.Amount
	o.PaymentNote = p.Note
	if p.ReceiptImages != nil {
		o.ReceiptImages = slices.Clone(p.ReceiptImages)
	}
	o.PaymentUpdatedAt = &now
	o.UpdatedAt = now
	o.Version++
	return clone(o), nil
}

func (m *MockOrderRepository) FindAll(_ context.Context) ([]*model.Order, error) {
	return m.filter(func(*model.Order) bool { return true }), nil
}

func (m *MockOrderRepository) FindByStatus(_ context.Context, status model.Status) ([]*model.Order, error) {
	return m.filter(func(o *model.Order) bool { return o.Status == status }), nil
}

func (m *MockOrderRepository) FindByUserID(_ context.Context, userID string) ([]*model.Order, error) {
	return m.filter(func(o *model.Order) bool { return o.UserID == userID }), nil
}

func (m *MockOrderRepository) filter(keep func(*model.Order) bool) []*model.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*model.Order{}
	for _, o := range m.orders {
		if keep(o) {
			out = append(out, clone(o))
		}
	}
	slices.SortFunc(out, func(a, b *model.Order) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

func clone(o *model.Order) *model.Order {
	cp := *o
	cp.Items = slices.Clone(o.Items)
	cp.History = slices.Clone(o.History)
	cp.ReceiptImages = slices.Clone(o.ReceiptImages)
	return &cp
}
