package services

import (
	"context"
	"errors"
	"log"

	apimodels "github.com/ShakilAhmedRego/VMV5/models"
	"github.com/ShakilAhmedRego/VMV5/server/internal/models"
	"github.com/ShakilAhmedRego/VMV5/server/internal/repository"
	"github.com/ShakilAhmedRego/VMV5/server/internal/tokens"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// AuthService регистрирует пользователей и выдает токены.
type AuthService struct {
	db          *sqlx.DB
	repos       repository.Manager
	ledger      *LedgerService
	tokens      *tokens.Manager
	signupBonus int64
}

// NewAuthService создает сервис аутентификации.
// signupBonus начисляется при регистрации, если он положителен.
func NewAuthService(
	db *sqlx.DB,
	repos repository.Manager,
	ledger *LedgerService,
	tm *tokens.Manager,
	signupBonus int64,
) *AuthService {
	return &AuthService{db: db, repos: repos, ledger: ledger, tokens: tm, signupBonus: signupBonus}
}

// Register создает пользователя и начисляет приветственный бонус одной транзакцией.
func (s *AuthService) Register(ctx context.Context, username, password string) (*apimodels.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[AuthService:Register] Ошибка хеширования пароля для '%s': %v", username, err)
		return nil, errors.New("внутренняя ошибка сервера при хешировании пароля")
	}

	user := &apimodels.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hashedPassword),
		Role:         apimodels.RoleUser,
	}

	err = repository.WithTx(ctx, s.db, func(ctx context.Context, tx repository.Querier) error {
		if err := s.repos.Users(tx).CreateUser(ctx, user); err != nil {
			return err
		}
		if s.signupBonus <= 0 {
			return nil
		}
		return s.ledger.CreditTx(ctx, tx, user.ID, s.signupBonus, models.ReasonSignupBonus)
	})
	if err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			log.Printf("[AuthService:Register] Попытка регистрации с занятым именем: %s", username)
			return nil, ErrUsernameTaken
		}
		log.Printf("[AuthService:Register] Ошибка регистрации '%s': %v", username, err)
		return nil, storageErr(err)
	}

	log.Printf("[AuthService:Register] Пользователь '%s' зарегистрирован с ID %s, бонус %d",
		username, user.ID, s.signupBonus)
	return user, nil
}

// Login проверяет пароль и выдает JWT токен.
func (s *AuthService) Login(ctx context.Context, username, password string) (*apimodels.LoginResponse, error) {
	user, err := s.repos.Users(s.db).GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			log.Printf("[AuthService:Login] Попытка входа несуществующего пользователя: %s", username)
			return nil, ErrInvalidCredentials // Общая ошибка для несуществующего пользователя и неверного пароля
		}
		return nil, storageErr(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Printf("[AuthService:Login] Неверный пароль для пользователя: %s", username)
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		log.Printf("[AuthService:Login] Ошибка генерации JWT для '%s': %v", username, err)
		return nil, errors.New("внутренняя ошибка сервера при генерации токена")
	}

	log.Printf("[AuthService:Login] Пользователь '%s' успешно аутентифицирован", username)
	return &apimodels.LoginResponse{Token: token, UserID: user.ID}, nil
}
