package controller

import (
	"context"

	"github.com/bassista/go_microassur/internal/query"
	"github.com/bassista/go_microassur/internal/resources"
	"github.com/bassista/go_microassur/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func record(args mock.Arguments) resources.Record {
	if r, ok := args.Get(0).(resources.Record); ok {
		return r
	}
	return nil
}

func page(args mock.Arguments) resources.List {
	if l, ok := args.Get(0).(resources.List); ok {
		return l
	}
	return resources.List{}
}

// MockContractUnits is a mock implementation of the ContractUnits interface
type MockContractUnits struct {
	mock.Mock
}

func (m *MockContractUnits) List(ctx context.Context, scope resources.Scope, f resources.Filter) (resources.List, error) {
	args := m.Called(ctx, scope, f)
	return page(args), args.Error(1)
}

func (m *MockContractUnits) Get(ctx context.Context, scope resources.Scope, id string) (resources.Record, error) {
	args := m.Called(ctx, scope, id)
	return record(args), args.Error(1)
}

func (m *MockContractUnits) Create(ctx context.Context, in resources.ContractInput) (resources.Record, error) {
	args := m.Called(ctx, in)
	return record(args), args.Error(1)
}

func (m *MockContractUnits) Update(ctx context.Context, in resources.ContractInput) (resources.Record, error) {
	args := m.Called(ctx, in)
	return record(args), args.Error(1)
}

func (m *MockContractUnits) Delete(ctx context.Context, scope resources.Scope, id string) error {
	args := m.Called(ctx, scope, id)
	return args.Error(0)
}

// MockClaimUnits is a mock implementation of the ClaimUnits interface
type MockClaimUnits struct {
	mock.Mock
}

func (m *MockClaimUnits) List(ctx context.Context, scope resources.Scope, f resources.Filter) (resources.List, error) {
	args := m.Called(ctx, scope, f)
	return page(args), args.Error(1)
}

func (m *MockClaimUnits) Get(ctx context.Context, scope resources.Scope, id string) (resources.Record, error) {
	args := m.Called(ctx, scope, id)
	return record(args), args.Error(1)
}

func (m *MockClaimUnits) Create(ctx context.Context, in resources.ClaimInput) (resources.Record, error) {
	args := m.Called(ctx, in)
	return record(args), args.Error(1)
}

func (m *MockClaimUnits) Validate(ctx context.Context, in resources.ClaimInput) (resources.Record, error) {
	args := m.Called(ctx, in)
	return record(args), args.Error(1)
}

func (m *MockClaimUnits) Close(ctx context.Context, in resources.ClaimInput) (resources.Record, error) {
	args := m.Called(ctx, in)
	return record(args), args.Error(1)
}

func (m *MockClaimUnits) ChangeStatus(ctx context.Context, in resources.StatusChange) (resources.Record, error) {
	args := m.Called(ctx, in)
	return record(args), args.Error(1)
}

// MockAccountingUnits is a mock implementation of the AccountingUnits interface
type MockAccountingUnits struct {
	mock.Mock
}

func (m *MockAccountingUnits) Queue(ctx context.Context, status string, pageNum int) (resources.List, error) {
	args := m.Called(ctx, status, pageNum)
	return page(args), args.Error(1)
}

func (m *MockAccountingUnits) ValidateInstallment(ctx context.Context, in resources.InstallmentInput) (resources.Record, error) {
	args := m.Called(ctx, in)
	return record(args), args.Error(1)
}

func (m *MockAccountingUnits) Pay(ctx context.Context, in resources.InstallmentInput) (resources.Record, error) {
	args := m.Called(ctx, in)
	return record(args), args.Error(1)
}

// MockUserUnits is a mock implementation of the UserUnits interface
type MockUserUnits struct {
	mock.Mock
}

func (m *MockUserUnits) List(ctx context.Context, f resources.Filter) (resources.List, error) {
	args := m.Called(ctx, f)
	return page(args), args.Error(1)
}

func (m *MockUserUnits) Create(ctx context.Context, body resources.Record) (resources.Record, error) {
	args := m.Called(ctx, body)
	return record(args), args.Error(1)
}

func (m *MockUserUnits) Update(ctx context.Context, id string, body resources.Record) (resources.Record, error) {
	args := m.Called(ctx, id, body)
	return record(args), args.Error(1)
}

func (m *MockUserUnits) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockPartnerUnits is a mock implementation of the PartnerUnits and DashboardUnits interfaces
type MockPartnerUnits struct {
	mock.Mock
}

func (m *MockPartnerUnits) List(ctx context.Context) (resources.List, error) {
	args := m.Called(ctx)
	return page(args), args.Error(1)
}

func (m *MockPartnerUnits) Get(ctx context.Context, id int64) (resources.Record, error) {
	args := m.Called(ctx, id)
	return record(args), args.Error(1)
}

func (m *MockPartnerUnits) Stats(ctx context.Context, scope resources.Scope) (resources.Record, error) {
	args := m.Called(ctx, scope)
	return record(args), args.Error(1)
}

// MockSessions is a mock implementation of the Sessions and Focuser interfaces
type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) Login(ctx context.Context, creds session.Credentials) (session.Principal, error) {
	args := m.Called(ctx, creds)
	return args.Get(0).(session.Principal), args.Error(1)
}

func (m *MockSessions) Logout(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockSessions) Current() (session.Principal, bool) {
	args := m.Called()
	return args.Get(0).(session.Principal), args.Bool(1)
}

func (m *MockSessions) Focus(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockWatchers mocks every watch unit and the session events in one struct.
type MockWatchers struct {
	mock.Mock
}

func subscription(args mock.Arguments) *query.Subscription {
	if s, ok := args.Get(0).(*query.Subscription); ok {
		return s
	}
	return nil
}

func (m *MockWatchers) WatchList(scope resources.Scope, f resources.Filter, listener func(query.State)) (*query.Subscription, error) {
	args := m.Called(scope, f, listener)
	return subscription(args), args.Error(1)
}

func (m *MockWatchers) WatchQueue(status string, page int, listener func(query.State)) (*query.Subscription, error) {
	args := m.Called(status, page, listener)
	return subscription(args), args.Error(1)
}

func (m *MockWatchers) WatchStats(scope resources.Scope, listener func(query.State)) (*query.Subscription, error) {
	args := m.Called(scope, listener)
	return subscription(args), args.Error(1)
}

func (m *MockWatchers) OnChange(fn func(session.Change)) func() {
	m.Called(fn)
	return func() {}
}
