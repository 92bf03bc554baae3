// Package mocks provides test doubles for the store package.
package mocks

import (
	"context"

	model "github.com/sells-group/entry-report/internal/model"
	store "github.com/sells-group/entry-report/internal/store"
	mock "github.com/stretchr/testify/mock"
)

// MockStore is a mock type for the Store interface.
type MockStore struct {
	mock.Mock
}

// GetIntake provides a mock function with given fields: ctx, id
func (_m *MockStore) GetIntake(ctx context.Context, id string) (*model.IntakeRecord, error) {
	ret := _m.Called(ctx, id)

	if len(ret) == 0 {
		panic("no return value specified for GetIntake")
	}

	var r0 *model.IntakeRecord
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.IntakeRecord, error)); ok {
		return rf(ctx, id)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.IntakeRecord)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// CreateIntake provides a mock function with given fields: ctx, rec
func (_m *MockStore) CreateIntake(ctx context.Context, rec *model.IntakeRecord) error {
	ret := _m.Called(ctx, rec)

	if len(ret) == 0 {
		panic("no return value specified for CreateIntake")
	}

	if rf, ok := ret.Get(0).(func(context.Context, *model.IntakeRecord) error); ok {
		return rf(ctx, rec)
	}
	return ret.Error(0)
}

// UpdateIntakeStatus provides a mock function with given fields: ctx, id, status
func (_m *MockStore) UpdateIntakeStatus(ctx context.Context, id string, status model.IntakeStatus) error {
	ret := _m.Called(ctx, id, status)

	if len(ret) == 0 {
		panic("no return value specified for UpdateIntakeStatus")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string, model.IntakeStatus) error); ok {
		return rf(ctx, id, status)
	}
	return ret.Error(0)
}

// SaveEnrichment provides a mock function with given fields: ctx, id, summary
func (_m *MockStore) SaveEnrichment(ctx context.Context, id string, summary *model.EnrichedSummary) error {
	ret := _m.Called(ctx, id, summary)

	if len(ret) == 0 {
		panic("no return value specified for SaveEnrichment")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string, *model.EnrichedSummary) error); ok {
		return rf(ctx, id, summary)
	}
	return ret.Error(0)
}

// GetActiveTier provides a mock function with given fields: ctx, userID
func (_m *MockStore) GetActiveTier(ctx context.Context, userID string) (string, error) {
	ret := _m.Called(ctx, userID)

	if len(ret) == 0 {
		panic("no return value specified for GetActiveTier")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string) (string, error)); ok {
		return rf(ctx, userID)
	}
	return ret.String(0), ret.Error(1)
}

// ListTemplates provides a mock function with given fields: ctx
func (_m *MockStore) ListTemplates(ctx context.Context) ([]model.SectionTemplate, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for ListTemplates")
	}

	var r0 []model.SectionTemplate
	if rf, ok := ret.Get(0).(func(context.Context) ([]model.SectionTemplate, error)); ok {
		return rf(ctx)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.SectionTemplate)
	}
	return r0, ret.Error(1)
}

// UpsertTemplates provides a mock function with given fields: ctx, templates
func (_m *MockStore) UpsertTemplates(ctx context.Context, templates []model.SectionTemplate) (int, error) {
	ret := _m.Called(ctx, templates)

	if len(ret) == 0 {
		panic("no return value specified for UpsertTemplates")
	}

	if rf, ok := ret.Get(0).(func(context.Context, []model.SectionTemplate) (int, error)); ok {
		return rf(ctx, templates)
	}
	return ret.Int(0), ret.Error(1)
}

// CreateReport provides a mock function with given fields: ctx, report
func (_m *MockStore) CreateReport(ctx context.Context, report *model.Report) error {
	ret := _m.Called(ctx, report)

	if len(ret) == 0 {
		panic("no return value specified for CreateReport")
	}

	if rf, ok := ret.Get(0).(func(context.Context, *model.Report) error); ok {
		return rf(ctx, report)
	}
	return ret.Error(0)
}

// GetReport provides a mock function with given fields: ctx, id
func (_m *MockStore) GetReport(ctx context.Context, id string) (*model.Report, error) {
	ret := _m.Called(ctx, id)

	if len(ret) == 0 {
		panic("no return value specified for GetReport")
	}

	var r0 *model.Report
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.Report, error)); ok {
		return rf(ctx, id)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Report)
	}
	return r0, ret.Error(1)
}

// FindMatches provides a mock function with given fields: ctx, cat, q
func (_m *MockStore) FindMatches(ctx context.Context, cat model.MatchCategory, q store.MatchQuery) ([]model.MatchRecord, error) {
	ret := _m.Called(ctx, cat, q)

	if len(ret) == 0 {
		panic("no return value specified for FindMatches")
	}

	var r0 []model.MatchRecord
	if rf, ok := ret.Get(0).(func(context.Context, model.MatchCategory, store.MatchQuery) ([]model.MatchRecord, error)); ok {
		return rf(ctx, cat, q)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.MatchRecord)
	}
	return r0, ret.Error(1)
}

// Ping provides a mock function with given fields: ctx
func (_m *MockStore) Ping(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Ping")
	}
	return ret.Error(0)
}

// Migrate provides a mock function with given fields: ctx
func (_m *MockStore) Migrate(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Migrate")
	}
	return ret.Error(0)
}

// Close provides a mock function with no fields
func (_m *MockStore) Close() error {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Close")
	}
	return ret.Error(0)
}

// NewMockStore creates a new instance of MockStore.
func NewMockStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStore {
	mock := &MockStore{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

var _ store.Store = (*MockStore)(nil)
