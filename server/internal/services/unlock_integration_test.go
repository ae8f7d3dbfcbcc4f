//go:build integration

package services_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/ShakilAhmedRego/VMV5/server/internal/models"
	"github.com/ShakilAhmedRego/VMV5/server/internal/repository"
	"github.com/ShakilAhmedRego/VMV5/server/internal/services"
	"github.com/ShakilAhmedRego/VMV5/server/internal/tokens"
	"github.com/ShakilAhmedRego/VMV5/server/internal/verticals"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Запуск: go test -tags=integration -timeout 180s -run Integration ./server/internal/services/...
func startPostgres(t *testing.T) *sqlx.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("пропуск интеграционного теста")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("vmv"),
		postgres.WithUsername("vmv"),
		postgres.WithPassword("secret"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Printf("не удалось остановить контейнер postgres: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := repository.NewPostgresDB(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, repository.Migrate(ctx, db.DB))
	return db
}

type integrationEnv struct {
	db       *sqlx.DB
	registry *verticals.Registry
	auth     *services.AuthService
	ledger   *services.LedgerService
	access   *services.AccessService
	unlock   *services.UnlockService
	audit    *services.AuditService
}

func newIntegrationEnv(t *testing.T, bonus int64) *integrationEnv {
	db := startPostgres(t)
	repos := repository.NewPostgresManager()
	registry := verticals.Default()
	tm, err := tokens.NewManager("integration-secret", time.Hour)
	require.NoError(t, err)

	env := &integrationEnv{
		db:       db,
		registry: registry,
		ledger:   services.NewLedgerService(db, repos),
		access:   services.NewAccessService(db, repos),
		unlock:   services.NewUnlockService(db, repos),
		audit:    services.NewAuditService(db, repos, registry),
	}
	env.auth = services.NewAuthService(db, repos, env.ledger, tm, bonus)
	require.NoError(t, env.access.EnsureTables(context.Background(), registry))
	return env
}

func TestIntegration_UnlockScenarios(t *testing.T) {
	env := newIntegrationEnv(t, 5)
	ctx := context.Background()
	v, err := env.registry.Get("dealflow")
	require.NoError(t, err)

	user, err := env.auth.Register(ctx, "alice", "password123")
	require.NoError(t, err)

	res, err := env.unlock.Unlock(ctx, v, user.ID, []string{"r1", "r2", "r3"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Charged)
	assert.Equal(t, int64(2), res.Balance)
	assert.True(t, res.BalanceKnown)

	// Повторный выбор открытых записей бесплатен.
	res, err = env.unlock.Unlock(ctx, v, user.ID, []string{"r1", "r3"})
	require.NoError(t, err)
	assert.Zero(t, res.Charged)
	assert.Equal(t, int64(2), res.Balance)

	_, err = env.unlock.Unlock(ctx, v, user.ID, []string{"r4", "r5", "r6"})
	var insufficient *services.InsufficientCreditsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(1), insufficient.Shortfall())

	granted, err := env.access.Granted(ctx, v, user.ID)
	require.NoError(t, err)
	assert.Len(t, granted, 3)

	// Журнал нельзя изменить задним числом.
	_, err = env.db.ExecContext(ctx, `UPDATE credit_ledger SET delta = 100 WHERE user_id = $1`, user.ID)
	require.Error(t, err)

	report, err := env.audit.Check(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, report.OK(), "%+v", report.Findings)
}

func TestIntegration_NoDoubleSpend(t *testing.T) {
	env := newIntegrationEnv(t, 1)
	ctx := context.Background()
	dealflow, err := env.registry.Get("dealflow")
	require.NoError(t, err)
	cyber, err := env.registry.Get("cyberintel")
	require.NoError(t, err)

	t.Run("Две разблокировки при балансе 1", func(t *testing.T) {
		user, err := env.auth.Register(ctx, "bob", "password123")
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, v := range []verticals.Vertical{dealflow, cyber} {
			wg.Add(1)
			go func(i int, v verticals.Vertical) {
				defer wg.Done()
				_, errs[i] = env.unlock.Unlock(ctx, v, user.ID, []string{fmt.Sprintf("x%d", i)})
			}(i, v)
		}
		wg.Wait()

		failed := 0
		for _, err := range errs {
			if err != nil {
				require.ErrorIs(t, err, services.ErrInsufficientCredits)
				failed++
			}
		}
		assert.Equal(t, 1, failed)

		balance, err := env.ledger.Balance(ctx, user.ID)
		require.NoError(t, err)
		assert.Zero(t, balance)
	})

	t.Run("Много пересекающихся разблокировок", func(t *testing.T) {
		user, err := env.auth.Register(ctx, "carol", "password123")
		require.NoError(t, err)
		_, err = env.ledger.Credit(ctx, user.ID, 9, models.ReasonAdminGrant)
		require.NoError(t, err)

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			charged  int64
			unionIDs = map[string]struct{}{}
		)
		for i := 0; i < 12; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ids := []string{fmt.Sprintf("r%d", i%6), fmt.Sprintf("r%d", (i+1)%6), fmt.Sprintf("r%d", (i+3)%8)}
				res, err := env.unlock.Unlock(ctx, dealflow, user.ID, ids)
				if err != nil {
					if !errors.Is(err, services.ErrInsufficientCredits) {
						t.Errorf("неожиданная ошибка: %v", err)
					}
					return
				}
				mu.Lock()
				defer mu.Unlock()
				charged += res.Charged
				for _, id := range res.Granted {
					unionIDs[id] = struct{}{}
				}
			}(i)
		}

		// Аудит во время разблокировок видит согласованное состояние.
		done := make(chan struct{})
		audits := make(chan error, 1)
		go func() {
			defer close(audits)
			for {
				select {
				case <-done:
					return
				default:
				}
				report, err := env.audit.Check(ctx, user.ID)
				if err != nil {
					audits <- err
					return
				}
				if !report.OK() {
					audits <- fmt.Errorf("нарушения во время разблокировок: %+v", report.Findings)
					return
				}
			}
		}()
		wg.Wait()
		close(done)
		require.NoError(t, <-audits)

		assert.Equal(t, int64(len(unionIDs)), charged)
		balance, err := env.ledger.Balance(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(10)-charged, balance)
		assert.GreaterOrEqual(t, balance, int64(0))

		report, err := env.audit.Check(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, report.OK(), "%+v", report.Findings)
	})
}
