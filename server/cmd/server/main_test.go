package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShakilAhmedRego/VMV5/server/internal/handlers"
	appmiddleware "github.com/ShakilAhmedRego/VMV5/server/internal/middleware"
	"github.com/ShakilAhmedRego/VMV5/server/internal/ratelimit"
	"github.com/ShakilAhmedRego/VMV5/server/internal/storage"
	"github.com/ShakilAhmedRego/VMV5/server/internal/tokens"
	"github.com/ShakilAhmedRego/VMV5/server/internal/verticals"
)

// testRoutes собирает роутер с обработчиками без сервисов: проверяется только маршрутизация.
func testRoutes(t *testing.T, unlockLimit int) (routes, *tokens.Manager) {
	t.Helper()
	tm, err := tokens.NewManager("test-secret", time.Hour)
	require.NoError(t, err)
	return routes{
		auth:          handlers.NewAuthHandler(nil),
		verticals:     handlers.NewVerticalsHandler(verticals.Default(), nil, nil, nil),
		credits:       handlers.NewCreditsHandler(nil),
		account:       handlers.NewAccountHandler(nil, nil),
		authenticator: appmiddleware.NewAuthenticator(tm),
		limiter:       ratelimit.NewInMemory(time.Minute),
		unlockLimit:   unlockLimit,
	}, tm
}

func TestSetupRouter(t *testing.T) {
	rt, tm := testRoutes(t, 1)
	r := setupRouter(rt)
	require.NotNil(t, r)

	t.Run("Маршруты зарегистрированы", func(t *testing.T) {
		for _, route := range []struct{ method, pattern string }{
			{http.MethodGet, "/ping"},
			{http.MethodPost, "/api/register"},
			{http.MethodPost, "/api/login"},
			{http.MethodGet, "/api/verticals"},
			{http.MethodGet, "/api/verticals/{key}/records"},
			{http.MethodGet, "/api/verticals/{key}/grants"},
			{http.MethodPost, "/api/verticals/{key}/unlock"},
			{http.MethodPost, "/api/rpc/{procedure}"},
			{http.MethodGet, "/api/credits/balance"},
			{http.MethodGet, "/api/credits/ledger"},
			{http.MethodGet, "/api/account/audit"},
			{http.MethodPost, "/api/account/statements"},
			{http.MethodGet, "/api/account/statements/{id}"},
		} {
			assert.True(t, hasRoute(r, route.method, route.pattern), "%s %s", route.method, route.pattern)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "pong\n", rec.Body.String())
	})

	t.Run("Каталог вертикалей доступен без токена", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/verticals", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"dealflow"`)
	})

	t.Run("Приватные маршруты требуют токен", func(t *testing.T) {
		for _, path := range []string{"/api/credits/balance", "/api/account/audit", "/api/verticals/dealflow/grants"} {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		}
	})

	t.Run("Лимит разблокировок", func(t *testing.T) {
		token, err := tm.Issue("user-1", "user")
		require.NoError(t, err)

		send := func() *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/api/verticals/nope/unlock", strings.NewReader(`{"ids":["a"]}`))
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			return rec
		}

		first := send()
		assert.Equal(t, http.StatusNotFound, first.Code)
		assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))

		second := send()
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
		assert.NotEmpty(t, second.Header().Get("Retry-After"))
	})
}

// Вспомогательная функция для проверки наличия маршрута.
func hasRoute(r chi.Router, method, pattern string) bool {
	found := false
	// Ошибка от chi.Walk используется только для прерывания обхода
	_ = chi.Walk(r, func(m, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if m == method && route == pattern {
			found = true
			return errors.New("found")
		}
		return nil
	})
	return found
}

// mockPostgres подменяет подключение к БД на sqlmock и ожидает создание таблиц доступов.
func mockPostgres(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	for range verticals.Default().Len() {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	newPostgresDB = func(_ string) (*sqlx.DB, error) {
		return sqlx.NewDb(mockDB, "postgres"), nil
	}
	return mock
}

func TestSetupDependencies(t *testing.T) {
	originalNewPostgresDB := newPostgresDB
	originalNewMinioClient := newMinioClient
	t.Cleanup(func() {
		newPostgresDB = originalNewPostgresDB
		newMinioClient = originalNewMinioClient
	})

	baseConfig := func() *config {
		return &config{
			DatabaseDSN:     "dummy-dsn-for-mock",
			JWTSecret:       "secret",
			TokenTTL:        time.Hour,
			UnlockRateLimit: 5,
			AutoMigrate:     false,
		}
	}

	t.Run("Ошибка: Некорректный DatabaseDSN", func(t *testing.T) {
		newPostgresDB = originalNewPostgresDB
		cfg := baseConfig()
		cfg.DatabaseDSN = "невалидный dsn"

		_, err := setupDependencies(context.Background(), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ошибка инициализации БД")
	})

	t.Run("Ошибка: Нет файла вертикалей", func(t *testing.T) {
		mockDB, _, err := sqlmock.New()
		require.NoError(t, err)
		newPostgresDB = func(_ string) (*sqlx.DB, error) { return sqlx.NewDb(mockDB, "postgres"), nil }

		cfg := baseConfig()
		cfg.VerticalsFile = "/nonexistent/verticals.yaml"

		_, err = setupDependencies(context.Background(), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ошибка загрузки вертикалей")
	})

	t.Run("Ошибка: MinIO недоступен", func(t *testing.T) {
		mockPostgres(t)
		newMinioClient = func(_ context.Context, _ storage.MinioConfig) (storage.ObjectStore, error) {
			return nil, errors.New("connection refused")
		}
		cfg := baseConfig()
		cfg.MinioEndpoint = "localhost:9000"

		_, err := setupDependencies(context.Background(), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ошибка инициализации клиента MinIO")
	})

	t.Run("Успешное выполнение с MinIO и Redis", func(t *testing.T) {
		mock := mockPostgres(t)
		var gotBucket string
		newMinioClient = func(_ context.Context, cfg storage.MinioConfig) (storage.ObjectStore, error) {
			gotBucket = cfg.BucketName
			return storage.NewMemoryStore(), nil
		}
		mr := miniredis.RunT(t)

		cfg := baseConfig()
		cfg.MinioEndpoint = "localhost:9000"
		cfg.MinioBucket = "statements"
		cfg.RedisAddr = mr.Addr()

		deps, err := setupDependencies(context.Background(), cfg)
		require.NoError(t, err)
		require.NotNil(t, deps)
		t.Cleanup(deps.Close)

		assert.Equal(t, "statements", gotBucket)
		assert.NotNil(t, deps.db)
		assert.NotNil(t, deps.redis)
		assert.IsType(t, &ratelimit.RedisLimiter{}, deps.routes.limiter)
		assert.NotNil(t, deps.routes.auth)
		assert.NotNil(t, deps.routes.verticals)
		assert.NotNil(t, deps.routes.credits)
		assert.NotNil(t, deps.routes.account)
		assert.Equal(t, 5, deps.routes.unlockLimit)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Без MinIO и Redis", func(t *testing.T) {
		mockPostgres(t)
		newMinioClient = func(_ context.Context, _ storage.MinioConfig) (storage.ObjectStore, error) {
			t.Fatal("MinIO не должен инициализироваться без эндпоинта")
			return nil, nil
		}

		deps, err := setupDependencies(context.Background(), baseConfig())
		require.NoError(t, err)
		t.Cleanup(deps.Close)

		assert.Nil(t, deps.redis)
		assert.IsType(t, &ratelimit.InMemoryLimiter{}, deps.routes.limiter)
	})

	t.Run("Ошибка: Пустой секрет JWT", func(t *testing.T) {
		mockPostgres(t)
		cfg := baseConfig()
		cfg.JWTSecret = ""

		_, err := setupDependencies(context.Background(), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ошибка инициализации токенов")
	})
}
