package handlers_test

import (
	"context"
	"io"

	"github.com/ShakilAhmedRego/VMV5/models"
	servermodels "github.com/ShakilAhmedRego/VMV5/server/internal/models"
	"github.com/ShakilAhmedRego/VMV5/server/internal/services"
	"github.com/ShakilAhmedRego/VMV5/server/internal/verticals"
	"github.com/stretchr/testify/mock"
)

// --- Моки сервисов --- //

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, username, password string) (*models.User, error) {
	args := m.Called(ctx, username, password)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	args := m.Called(ctx, username, password)
	resp, _ := args.Get(0).(*models.LoginResponse)
	return resp, args.Error(1)
}

type MockRecordsService struct {
	mock.Mock
}

func (m *MockRecordsService) List(ctx context.Context, v verticals.Vertical) ([]models.Record, error) {
	args := m.Called(ctx, v)
	records, _ := args.Get(0).([]models.Record)
	return records, args.Error(1)
}

type MockAccessService struct {
	mock.Mock
}

func (m *MockAccessService) Granted(ctx context.Context, v verticals.Vertical, userID string) (map[string]struct{}, error) {
	args := m.Called(ctx, v, userID)
	set, _ := args.Get(0).(map[string]struct{})
	return set, args.Error(1)
}

type MockUnlockService struct {
	mock.Mock
}

func (m *MockUnlockService) Unlock(ctx context.Context, v verticals.Vertical, userID string, ids []string) (*services.UnlockResult, error) {
	args := m.Called(ctx, v, userID, ids)
	res, _ := args.Get(0).(*services.UnlockResult)
	return res, args.Error(1)
}

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) Balance(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerService) Entries(ctx context.Context, userID string, limit int) ([]servermodels.LedgerEntry, error) {
	args := m.Called(ctx, userID, limit)
	entries, _ := args.Get(0).([]servermodels.LedgerEntry)
	return entries, args.Error(1)
}

type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) Check(ctx context.Context, userID string) (*models.AuditReport, error) {
	args := m.Called(ctx, userID)
	report, _ := args.Get(0).(*models.AuditReport)
	return report, args.Error(1)
}

type MockStatementService struct {
	mock.Mock
}

func (m *MockStatementService) Create(ctx context.Context, userID string) (*models.StatementResponse, error) {
	args := m.Called(ctx, userID)
	resp, _ := args.Get(0).(*models.StatementResponse)
	return resp, args.Error(1)
}

func (m *MockStatementService) Open(ctx context.Context, userID, id string) (io.ReadCloser, error) {
	args := m.Called(ctx, userID, id)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}
