package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/ShakilAhmedRego/VMV5/models"
)

const defaultTimeout = 30 * time.Second

// Client определяет интерфейс для взаимодействия с API сервера VMV.
type Client interface {
	// Register регистрирует нового пользователя.
	Register(ctx context.Context, username, password string) (*models.User, error)
	// Login аутентифицирует пользователя и запоминает токен.
	Login(ctx context.Context, username, password string) (*models.LoginResponse, error)
	// SetAuthToken устанавливает JWT токен для аутентифицированных запросов.
	SetAuthToken(token string)

	// Verticals возвращает каталог вертикалей.
	Verticals(ctx context.Context) ([]models.VerticalInfo, error)
	// Records возвращает первые записи вертикали по убыванию идентификатора.
	Records(ctx context.Context, vertical string) (*models.RecordsResponse, error)
	// Grants возвращает разблокированные идентификаторы вертикали.
	Grants(ctx context.Context, vertical string) ([]string, error)
	// Unlock разблокирует записи. Кредиты списываются только за новые идентификаторы.
	Unlock(ctx context.Context, vertical string, ids []string) (*models.UnlockResponse, error)

	// Balance возвращает текущий баланс кредитов.
	Balance(ctx context.Context) (int64, error)
	// Ledger возвращает последние записи журнала кредитов.
	Ledger(ctx context.Context, limit int) ([]models.LedgerEntry, error)

	// Audit проверяет журнал и доступы текущего пользователя.
	Audit(ctx context.Context) (*models.AuditReport, error)
	// CreateStatement формирует CSV-выписку по журналу.
	CreateStatement(ctx context.Context) (*models.StatementResponse, error)
	// DownloadStatement скачивает выписку. Вызывающий закрывает поток.
	DownloadStatement(ctx context.Context, id string) (io.ReadCloser, error)
}

// httpClient реализует интерфейс Client для взаимодействия с сервером по HTTP.
type httpClient struct {
	baseURL    string
	httpClient *http.Client

	mu        sync.RWMutex
	authToken string
}

// NewHTTPClient создает новый экземпляр API клиента.
func NewHTTPClient(baseURL string) Client {
	return &httpClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

func (c *httpClient) SetAuthToken(token string) {
	c.mu.Lock()
	c.authToken = token
	c.mu.Unlock()
}

func (c *httpClient) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authToken
}

// Register отправляет запрос на регистрацию на сервер.
func (c *httpClient) Register(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	req := models.RegisterRequest{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/register", nil, req, false, http.StatusCreated, &user); err != nil {
		return nil, fmt.Errorf("ошибка регистрации: %w", err)
	}
	return &user, nil
}

// Login отправляет запрос на вход на сервер и сохраняет токен.
func (c *httpClient) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	req := models.LoginRequest{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/login", nil, req, false, http.StatusOK, &resp); err != nil {
		return nil, fmt.Errorf("ошибка входа: %w", err)
	}
	if resp.Token == "" {
		return nil, errors.New("сервер вернул пустой токен")
	}
	c.SetAuthToken(resp.Token)
	return &resp, nil
}

func (c *httpClient) Verticals(ctx context.Context) ([]models.VerticalInfo, error) {
	var list []models.VerticalInfo
	if err := c.do(ctx, http.MethodGet, "/api/verticals", nil, nil, false, http.StatusOK, &list); err != nil {
		return nil, fmt.Errorf("ошибка получения вертикалей: %w", err)
	}
	return list, nil
}

func (c *httpClient) Records(ctx context.Context, vertical string) (*models.RecordsResponse, error) {
	var resp models.RecordsResponse
	path := "/api/verticals/" + url.PathEscape(vertical) + "/records"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, false, http.StatusOK, &resp); err != nil {
		return nil, fmt.Errorf("ошибка получения записей %s: %w", vertical, err)
	}
	return &resp, nil
}

func (c *httpClient) Grants(ctx context.Context, vertical string) ([]string, error) {
	var resp models.GrantsResponse
	path := "/api/verticals/" + url.PathEscape(vertical) + "/grants"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, true, http.StatusOK, &resp); err != nil {
		return nil, fmt.Errorf("ошибка получения доступов %s: %w", vertical, err)
	}
	return resp.IDs, nil
}

func (c *httpClient) Unlock(ctx context.Context, vertical string, ids []string) (*models.UnlockResponse, error) {
	var resp models.UnlockResponse
	path := "/api/verticals/" + url.PathEscape(vertical) + "/unlock"
	err := c.do(ctx, http.MethodPost, path, nil, models.UnlockRequest{IDs: ids}, true, http.StatusOK, &resp)
	if err != nil {
		slog.Warn("Разблокировка не выполнена", "vertical", vertical, "ids", len(ids), "error", err)
		return nil, fmt.Errorf("ошибка разблокировки %s: %w", vertical, err)
	}
	slog.Info("Разблокировка выполнена",
		"vertical", vertical, "granted", len(resp.Granted), "charged", resp.Charged, "balance_known", resp.Balance != nil)
	return &resp, nil
}

func (c *httpClient) Balance(ctx context.Context) (int64, error) {
	var resp models.BalanceResponse
	if err := c.do(ctx, http.MethodGet, "/api/credits/balance", nil, nil, true, http.StatusOK, &resp); err != nil {
		return 0, fmt.Errorf("ошибка получения баланса: %w", err)
	}
	return resp.Balance, nil
}

func (c *httpClient) Ledger(ctx context.Context, limit int) ([]models.LedgerEntry, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var resp models.LedgerResponse
	if err := c.do(ctx, http.MethodGet, "/api/credits/ledger", query, nil, true, http.StatusOK, &resp); err != nil {
		return nil, fmt.Errorf("ошибка получения журнала: %w", err)
	}
	return resp.Entries, nil
}

func (c *httpClient) Audit(ctx context.Context) (*models.AuditReport, error) {
	var report models.AuditReport
	if err := c.do(ctx, http.MethodGet, "/api/account/audit", nil, nil, true, http.StatusOK, &report); err != nil {
		return nil, fmt.Errorf("ошибка аудита: %w", err)
	}
	return &report, nil
}

func (c *httpClient) CreateStatement(ctx context.Context) (*models.StatementResponse, error) {
	var resp models.StatementResponse
	err := c.do(ctx, http.MethodPost, "/api/account/statements", nil, nil, true, http.StatusCreated, &resp)
	if err != nil {
		return nil, fmt.Errorf("ошибка формирования выписки: %w", err)
	}
	return &resp, nil
}

func (c *httpClient) DownloadStatement(ctx context.Context, id string) (io.ReadCloser, error) {
	resp, err := c.send(ctx, http.MethodGet, "/api/account/statements/"+url.PathEscape(id), nil, nil, true)
	if err != nil {
		return nil, fmt.Errorf("ошибка скачивания выписки: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, fmt.Errorf("ошибка скачивания выписки: %w", decodeError(resp))
	}
	return resp.Body, nil
}

// do выполняет запрос и декодирует JSON-ответ в out при ожидаемом статусе.
func (c *httpClient) do(
	ctx context.Context,
	method, path string,
	query url.Values,
	body any,
	auth bool,
	wantStatus int,
	out any,
) error {
	resp, err := c.send(ctx, method, path, query, body, auth)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ошибка декодирования ответа: %w", err)
	}
	return nil
}

// send формирует и отправляет запрос. Сетевые ошибки и таймауты сводятся к ErrStorageUnavailable.
func (c *httpClient) send(
	ctx context.Context,
	method, path string,
	query url.Values,
	body any,
	auth bool,
) (*http.Response, error) {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("ошибка формирования URL: %w", err)
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return nil, fmt.Errorf("ошибка кодирования запроса: %w", marshalErr)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		token := c.token()
		if token == "" {
			return nil, fmt.Errorf("%w: токен аутентификации отсутствует", ErrAuthorization)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("Сервер недоступен", "method", method, "path", path, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return resp, nil
}
