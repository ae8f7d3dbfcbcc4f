package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	// Порт по умолчанию (непривилегированный).
	defaultServerPort      = "8443"
	defaultTokenTTL        = 24 * time.Hour
	defaultSignupBonus     = 10
	defaultUnlockRateLimit = 30
	defaultMinioBucket     = "vmv-statements"

	// Переменные окружения.
	envServerPort      = "SERVER_PORT"
	envTLSCertFile     = "TLS_CERT_FILE"
	envTLSKeyFile      = "TLS_KEY_FILE"
	envDatabaseDSN     = "DATABASE_DSN"
	envJWTSecret       = "JWT_SECRET" //nolint:gosec // Имя переменной окружения, а не секрет
	envTokenTTL        = "TOKEN_TTL"
	envVerticalsFile   = "VERTICALS_FILE"
	envSignupBonus     = "SIGNUP_BONUS"
	envAutoMigrate     = "AUTO_MIGRATE"
	envRedisAddr       = "REDIS_ADDR"
	envUnlockRateLimit = "UNLOCK_RATE_LIMIT"
	envMinioEndpoint   = "MINIO_ENDPOINT"
	envMinioUser       = "MINIO_USER"
	envMinioPassword   = "MINIO_PASSWORD" //nolint:gosec // Имя переменной окружения, а не секрет
	envMinioBucket     = "MINIO_BUCKET"
	envMinioUseSSL     = "MINIO_USE_SSL"
)

// config хранит конфигурацию сервера.
type config struct {
	Port        string
	CertFile    string
	KeyFile     string
	DatabaseDSN string
	JWTSecret   string
	TokenTTL    time.Duration

	VerticalsFile string
	SignupBonus   int64
	AutoMigrate   bool

	// Пустой адрес - лимит считается в памяти процесса.
	RedisAddr       string
	UnlockRateLimit int

	// Пустой эндпоинт - выписки отключены.
	MinioEndpoint string
	MinioUser     string
	MinioPassword string
	MinioBucket   string
	MinioUseSSL   bool
}

// TLSEnabled сообщает, заданы ли сертификат и ключ.
func (c *config) TLSEnabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

// parseFlags разбирает флаги и переменные окружения, возвращает config или ошибку.
// Флаг важнее переменной окружения, переменная важнее значения по умолчанию.
func parseFlags() (*config, error) {
	cfg := &config{}
	var tokenTTL, signupBonus, autoMigrate, unlockRateLimit, minioUseSSL string

	flag.StringVar(&cfg.Port, "port", "",
		fmt.Sprintf("Порт сервера (env: %s, default: %s)", envServerPort, defaultServerPort))
	flag.StringVar(&cfg.CertFile, "cert-file", "",
		fmt.Sprintf("Путь к файлу TLS-сертификата (env: %s)", envTLSCertFile))
	flag.StringVar(&cfg.KeyFile, "key-file", "",
		fmt.Sprintf("Путь к файлу TLS-ключа (env: %s)", envTLSKeyFile))
	flag.StringVar(&cfg.DatabaseDSN, "database-dsn", "",
		fmt.Sprintf("Строка подключения к базе данных (env: %s)", envDatabaseDSN))
	flag.StringVar(&cfg.JWTSecret, "jwt-secret", "",
		fmt.Sprintf("Секрет подписи JWT (env: %s)", envJWTSecret))
	flag.StringVar(&tokenTTL, "token-ttl", "",
		fmt.Sprintf("Время жизни токена (env: %s, default: %s)", envTokenTTL, defaultTokenTTL))
	flag.StringVar(&cfg.VerticalsFile, "verticals", "",
		fmt.Sprintf("YAML-файл с описанием вертикалей (env: %s)", envVerticalsFile))
	flag.StringVar(&signupBonus, "signup-bonus", "",
		fmt.Sprintf("Кредиты при регистрации (env: %s, default: %d)", envSignupBonus, defaultSignupBonus))
	flag.StringVar(&autoMigrate, "auto-migrate", "",
		fmt.Sprintf("Применять миграции при старте (env: %s, default: true)", envAutoMigrate))
	flag.StringVar(&cfg.RedisAddr, "redis-addr", "",
		fmt.Sprintf("Адрес Redis для лимитов (env: %s)", envRedisAddr))
	flag.StringVar(&unlockRateLimit, "unlock-rate-limit", "",
		fmt.Sprintf("Разблокировок в минуту на пользователя (env: %s, default: %d)",
			envUnlockRateLimit, defaultUnlockRateLimit))
	flag.StringVar(&cfg.MinioEndpoint, "minio-endpoint", "",
		fmt.Sprintf("Адрес MinIO для выписок (env: %s)", envMinioEndpoint))
	flag.StringVar(&cfg.MinioUser, "minio-user", "", fmt.Sprintf("Логин MinIO (env: %s)", envMinioUser))
	flag.StringVar(&cfg.MinioPassword, "minio-password", "", fmt.Sprintf("Пароль MinIO (env: %s)", envMinioPassword))
	flag.StringVar(&cfg.MinioBucket, "minio-bucket", "",
		fmt.Sprintf("Бакет MinIO (env: %s, default: %s)", envMinioBucket, defaultMinioBucket))
	flag.StringVar(&minioUseSSL, "minio-ssl", "", fmt.Sprintf("SSL для MinIO (env: %s)", envMinioUseSSL))

	flag.Parse()

	// Применяем переменные окружения, если флаги не заданы
	cfg.Port = fromEnv(cfg.Port, envServerPort, defaultServerPort)
	cfg.CertFile = fromEnv(cfg.CertFile, envTLSCertFile, "")
	cfg.KeyFile = fromEnv(cfg.KeyFile, envTLSKeyFile, "")
	cfg.DatabaseDSN = fromEnv(cfg.DatabaseDSN, envDatabaseDSN, "")
	cfg.JWTSecret = fromEnv(cfg.JWTSecret, envJWTSecret, "")
	cfg.VerticalsFile = fromEnv(cfg.VerticalsFile, envVerticalsFile, "")
	cfg.RedisAddr = fromEnv(cfg.RedisAddr, envRedisAddr, "")
	cfg.MinioEndpoint = fromEnv(cfg.MinioEndpoint, envMinioEndpoint, "")
	cfg.MinioUser = fromEnv(cfg.MinioUser, envMinioUser, "")
	cfg.MinioPassword = fromEnv(cfg.MinioPassword, envMinioPassword, "")
	cfg.MinioBucket = fromEnv(cfg.MinioBucket, envMinioBucket, defaultMinioBucket)

	var err error
	if cfg.TokenTTL, err = time.ParseDuration(fromEnv(tokenTTL, envTokenTTL, defaultTokenTTL.String())); err != nil {
		return nil, fmt.Errorf("некорректное время жизни токена: %w", err)
	}
	if cfg.SignupBonus, err = strconv.ParseInt(
		fromEnv(signupBonus, envSignupBonus, strconv.Itoa(defaultSignupBonus)), 10, 64); err != nil {
		return nil, fmt.Errorf("некорректный бонус при регистрации: %w", err)
	}
	if cfg.AutoMigrate, err = strconv.ParseBool(fromEnv(autoMigrate, envAutoMigrate, "true")); err != nil {
		return nil, fmt.Errorf("некорректное значение auto-migrate: %w", err)
	}
	if cfg.UnlockRateLimit, err = strconv.Atoi(
		fromEnv(unlockRateLimit, envUnlockRateLimit, strconv.Itoa(defaultUnlockRateLimit))); err != nil {
		return nil, fmt.Errorf("некорректный лимит разблокировок: %w", err)
	}
	if cfg.MinioUseSSL, err = strconv.ParseBool(fromEnv(minioUseSSL, envMinioUseSSL, "false")); err != nil {
		return nil, fmt.Errorf("некорректное значение minio-ssl: %w", err)
	}

	// Проверяем обязательные параметры
	if cfg.DatabaseDSN == "" {
		return nil, errors.New("не указана строка подключения к БД (--database-dsn или " + envDatabaseDSN + ")")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("не указан секрет JWT (--jwt-secret или " + envJWTSecret + ")")
	}
	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		return nil, errors.New("сертификат и ключ TLS задаются только вместе")
	}
	if cfg.SignupBonus < 0 {
		return nil, errors.New("бонус при регистрации не может быть отрицательным")
	}

	return cfg, nil
}

// fromEnv возвращает value, если оно задано, иначе значение переменной окружения или fallback.
func fromEnv(value, key, fallback string) string {
	if value != "" {
		return value
	}
	if env, ok := os.LookupEnv(key); ok {
		return env
	}
	return fallback
}
