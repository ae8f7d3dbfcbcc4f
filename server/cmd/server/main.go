package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/ShakilAhmedRego/VMV5/server/internal/handlers"
	appmiddleware "github.com/ShakilAhmedRego/VMV5/server/internal/middleware"
	"github.com/ShakilAhmedRego/VMV5/server/internal/ratelimit"
	"github.com/ShakilAhmedRego/VMV5/server/internal/repository"
	"github.com/ShakilAhmedRego/VMV5/server/internal/services"
	"github.com/ShakilAhmedRego/VMV5/server/internal/storage"
	"github.com/ShakilAhmedRego/VMV5/server/internal/tokens"
	"github.com/ShakilAhmedRego/VMV5/server/internal/verticals"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 15 * time.Second
	rateLimitWindow        = time.Minute
	redisPingTimeout       = 3 * time.Second
)

// Переменные для подмены в тестах.
var (
	newPostgresDB  = repository.NewPostgresDB
	newMinioClient = func(ctx context.Context, cfg storage.MinioConfig) (storage.ObjectStore, error) {
		return storage.NewMinioClient(ctx, cfg)
	}
)

// Структура для хранения инициализированных зависимостей.
type dependencies struct {
	db      *sqlx.DB
	redis   *redis.Client
	routes  routes
	closers []func() error
}

// routes содержит все, что нужно роутеру.
type routes struct {
	auth          *handlers.AuthHandler
	verticals     *handlers.VerticalsHandler
	credits       *handlers.CreditsHandler
	account       *handlers.AccountHandler
	authenticator func(http.Handler) http.Handler
	limiter       ratelimit.Limiter
	unlockLimit   int
}

// main - точка входа. Вызывает run и обрабатывает ошибку.
func main() {
	if err := run(); err != nil {
		log.Printf("Ошибка выполнения сервера: %v", err)
		os.Exit(1)
	}
}

// run содержит основную логику запуска сервера и возвращает ошибку.
func run() error {
	log.Println("Запуск сервера VMV...")

	cfg, err := parseFlags()
	if err != nil {
		return fmt.Errorf("ошибка конфигурации: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := setupDependencies(ctx, cfg)
	if err != nil {
		return fmt.Errorf("ошибка инициализации зависимостей: %w", err)
	}
	defer deps.Close()

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      setupRouter(deps.routes),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if cfg.TLSEnabled() {
			log.Printf("Запуск HTTPS-сервера на порту %s (сертификат: %s)", cfg.Port, cfg.CertFile)
			errCh <- server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
			return
		}
		log.Printf("Запуск HTTP-сервера на порту %s", cfg.Port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err = <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ошибка запуска сервера: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Println("Получен сигнал завершения, останавливаем сервер...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err = server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка остановки сервера: %w", err)
	}
	log.Println("Сервер остановлен.")
	return nil
}

// setupDependencies инициализирует и возвращает все необходимые зависимости сервера.
func setupDependencies(ctx context.Context, cfg *config) (*dependencies, error) {
	deps := &dependencies{}
	fail := func(format string, err error) (*dependencies, error) {
		deps.Close()
		return nil, fmt.Errorf(format, err)
	}

	// 1. Подключение к БД
	db, err := newPostgresDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации БД: %w", err)
	}
	deps.db = db
	deps.closers = append(deps.closers, db.Close)
	log.Println("Соединение с БД успешно установлено.")

	if cfg.AutoMigrate {
		if err = repository.Migrate(ctx, db.DB); err != nil {
			return fail("ошибка применения миграций: %w", err)
		}
	}

	// 2. Реестр вертикалей и таблицы разблокировок
	registry, err := verticals.LoadFile(cfg.VerticalsFile)
	if err != nil {
		return fail("ошибка загрузки вертикалей: %w", err)
	}
	repos := repository.NewPostgresManager()
	access := services.NewAccessService(db, repos)
	if err = access.EnsureTables(ctx, registry); err != nil {
		return fail("ошибка подготовки таблиц разблокировок: %w", err)
	}

	// 3. Хранилище выписок (необязательно)
	var store storage.ObjectStore
	if cfg.MinioEndpoint != "" {
		store, err = newMinioClient(ctx, storage.MinioConfig{
			Endpoint:        cfg.MinioEndpoint,
			AccessKeyID:     cfg.MinioUser,
			SecretAccessKey: cfg.MinioPassword,
			UseSSL:          cfg.MinioUseSSL,
			BucketName:      cfg.MinioBucket,
		})
		if err != nil {
			return fail("ошибка инициализации клиента MinIO: %w", err)
		}
	} else {
		log.Println("MinIO не настроен, выписки отключены.")
	}

	// 4. Лимитер запросов
	var limiter ratelimit.Limiter = ratelimit.NewInMemory(rateLimitWindow)
	if cfg.RedisAddr != "" {
		deps.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		deps.closers = append(deps.closers, deps.redis.Close)
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		if pingErr := deps.redis.Ping(pingCtx).Err(); pingErr != nil {
			log.Printf("Redis '%s' недоступен, лимиты будут считаться локально до восстановления: %v",
				cfg.RedisAddr, pingErr)
		}
		cancel()
		limiter = ratelimit.NewRedis(deps.redis, rateLimitWindow)
	}

	// 5. Сервисы
	tm, err := tokens.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fail("ошибка инициализации токенов: %w", err)
	}
	ledger := services.NewLedgerService(db, repos)
	authService := services.NewAuthService(db, repos, ledger, tm, cfg.SignupBonus)
	records := services.NewRecordsService(db, repos)
	unlock := services.NewUnlockService(db, repos)
	audit := services.NewAuditService(db, repos, registry)
	statements := services.NewStatementService(db, repos, store)

	// 6. Обработчики
	deps.routes = routes{
		auth:          handlers.NewAuthHandler(authService),
		verticals:     handlers.NewVerticalsHandler(registry, records, access, unlock),
		credits:       handlers.NewCreditsHandler(ledger),
		account:       handlers.NewAccountHandler(audit, statements),
		authenticator: appmiddleware.NewAuthenticator(tm),
		limiter:       limiter,
		unlockLimit:   cfg.UnlockRateLimit,
	}

	return deps, nil
}

// Close освобождает ресурсы в обратном порядке.
func (d *dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			log.Printf("Ошибка освобождения ресурса: %v", err)
		}
	}
	d.closers = nil
}

// setupRouter настраивает и возвращает роутер chi.
func setupRouter(rt routes) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// --- Маршруты --- //
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong\n"))
	})

	unlockLimit := appmiddleware.RateLimit(rt.limiter, "unlock", rt.unlockLimit)

	r.Route("/api", func(r chi.Router) {
		// Публичные маршруты
		r.Post("/register", rt.auth.Register)
		r.Post("/login", rt.auth.Login)
		r.Get("/verticals", rt.verticals.List)
		r.Get("/verticals/{key}/records", rt.verticals.Records)

		// Приватные маршруты (требуют аутентификации)
		r.Group(func(r chi.Router) {
			r.Use(rt.authenticator)

			r.Get("/verticals/{key}/grants", rt.verticals.Grants)
			r.With(unlockLimit).Post("/verticals/{key}/unlock", rt.verticals.Unlock)
			r.With(unlockLimit).Post("/rpc/{procedure}", rt.verticals.Procedure)

			r.Route("/credits", func(r chi.Router) {
				r.Get("/balance", rt.credits.Balance)
				r.Get("/ledger", rt.credits.Ledger)
			})

			r.Route("/account", func(r chi.Router) {
				r.Get("/audit", rt.account.Audit)
				r.Post("/statements", rt.account.CreateStatement)
				r.Get("/statements/{id}", rt.account.GetStatement)
			})
		})
	})
	return r
}
