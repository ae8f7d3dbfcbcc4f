package services_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ShakilAhmedRego/VMV5/server/internal/models"
	"github.com/ShakilAhmedRego/VMV5/server/internal/services"
	"github.com/ShakilAhmedRego/VMV5/server/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementService(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	db, mock := newMockDB(t)
	mock.ExpectQuery(qLedgerList).WithArgs("u-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(ledgerColumns).
			AddRow(int64(2), "u-1", int64(-3), models.ReasonUnlock, "dealflow", created.Add(time.Hour)).
			AddRow(int64(1), "u-1", int64(10), models.ReasonSignupBonus, nil, created))

	store := storage.NewMemoryStore()
	svc := services.NewStatementService(db, testManager, store)

	resp, err := svc.Create(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Entries)
	assert.Equal(t, int64(7), resp.Balance)
	_, err = uuid.Parse(resp.ID)
	require.NoError(t, err)

	rc, err := svc.Open(ctx, "u-1", resp.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t,
		"id,created_at,delta,reason,vertical,balance\n"+
			"1,2026-03-01T12:00:00Z,10,signup_bonus,,10\n"+
			"2,2026-03-01T13:00:00Z,-3,unlock,dealflow,7\n",
		string(data))

	t.Run("Чужая выписка недоступна", func(t *testing.T) {
		_, err := svc.Open(ctx, "u-2", resp.ID)
		require.ErrorIs(t, err, services.ErrStatementNotFound)
	})

	t.Run("Некорректный ID", func(t *testing.T) {
		_, err := svc.Open(ctx, "u-1", "../u-2/x")
		require.ErrorIs(t, err, services.ErrStatementNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatementService_Disabled(t *testing.T) {
	db, _ := newMockDB(t)
	svc := services.NewStatementService(db, testManager, nil)

	_, err := svc.Create(context.Background(), "u-1")
	require.ErrorIs(t, err, services.ErrStatementsDisabled)
	_, err = svc.Open(context.Background(), "u-1", uuid.NewString())
	require.ErrorIs(t, err, services.ErrStatementsDisabled)
}
