package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ShakilAhmedRego/VMV5/client/internal/api"
	"github.com/ShakilAhmedRego/VMV5/client/internal/session"
	"github.com/ShakilAhmedRego/VMV5/client/internal/tui"
)

const (
	logDir             = "logs"
	logFileName        = "client.log"
	logFilePermissions = 0o666

	serverURLEnvVar   = "VMV_SERVER_URL"
	sessionFileEnvVar = "VMV_SESSION_FILE"
	defaultServerURL  = "http://localhost:8443"
	defaultVertical   = "dealflow"
)

// Переменные для версии и даты сборки, устанавливаются через ldflags.
var (
	version    = "dev"
	buildDate  = "unknown"
	commitHash = "N/A"
)

// config - параметры запуска клиента.
type config struct {
	ServerURL   string
	SessionFile string
	Vertical    string
	ShowVersion bool
}

// parseConfig разбирает флаги. Флаг важнее переменной окружения.
func parseConfig(fs *flag.FlagSet, args []string, getenv func(string) string) (*config, error) {
	cfg := &config{}
	fs.StringVar(&cfg.ServerURL, "server-url", "", "URL сервера VMV (env: "+serverURLEnvVar+")")
	fs.StringVar(&cfg.SessionFile, "session-file", "", "Файл сессии (env: "+sessionFileEnvVar+")")
	fs.StringVar(&cfg.Vertical, "vertical", defaultVertical, "Вертикаль, открываемая при запуске")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Показать версию и дату сборки")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.ServerURL == "" {
		cfg.ServerURL = getenv(serverURLEnvVar)
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = defaultServerURL
	}
	if cfg.SessionFile == "" {
		cfg.SessionFile = getenv(sessionFileEnvVar)
	}
	if cfg.SessionFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("не удалось определить домашний каталог: %w", err)
		}
		cfg.SessionFile = filepath.Join(home, ".vmv", "session.json")
	}
	if cfg.Vertical == "" {
		return nil, errors.New("вертикаль не может быть пустой")
	}
	return cfg, nil
}

// setupLogging настраивает логирование в файл logs/client.log.
func setupLogging() (*os.File, error) {
	if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию для логов: %w", err)
	}
	logPath := filepath.Join(logDir, logFileName)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть лог-файл: %w", err)
	}
	logHandler := slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(logHandler))
	slog.Info("Логгер инициализирован", "path", logPath)
	return logFile, nil
}

// restoreSession восстанавливает сессию того же сервера и передает токен клиенту.
func restoreSession(sessions *session.Manager, client api.Client, serverURL string) {
	s, err := sessions.Restore()
	if err != nil {
		slog.Warn("Не удалось восстановить сессию", "error", err)
		return
	}
	if s == nil {
		return
	}
	if s.ServerURL != "" && s.ServerURL != serverURL {
		slog.Info("Сессия относится к другому серверу, требуется вход", "saved", s.ServerURL, "current", serverURL)
		_ = sessions.SignOut()
		return
	}
	client.SetAuthToken(s.Token)
}

func main() {
	cfg, err := parseConfig(flag.CommandLine, os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if cfg.ShowVersion {
		// slog пишет в файл, версию печатаем в консоль
		log.SetOutput(os.Stdout)
		log.SetFlags(0)
		log.Println("VMV Client")
		log.Printf("Version: %s", version)
		log.Printf("Build Date: %s", buildDate)
		log.Printf("Commit Hash: %s", commitHash)
		return
	}

	logFile, err := setupLogging()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logFile.Close()

	slog.Info("Запуск VMV", "server_url", cfg.ServerURL, "session_file", cfg.SessionFile, "vertical", cfg.Vertical)

	client := api.NewHTTPClient(cfg.ServerURL)
	sessions := session.NewManager(session.NewFileStore(cfg.SessionFile))
	restoreSession(sessions, client, cfg.ServerURL)

	if err = tui.Start(tui.Options{
		ServerURL: cfg.ServerURL,
		Vertical:  cfg.Vertical,
		Client:    client,
		Sessions:  sessions,
	}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
