package tokens_test

import (
	"testing"
	"time"

	"github.com/ShakilAhmedRego/VMV5/server/internal/tokens"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager(t *testing.T) {
	_, err := tokens.NewManager("", time.Hour)
	require.Error(t, err)

	_, err = tokens.NewManager("secret", 0)
	require.Error(t, err)

	m, err := tokens.NewManager("secret", time.Hour)
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestIssueAndParse(t *testing.T) {
	m, err := tokens.NewManager("secret", time.Hour)
	require.NoError(t, err)

	token, err := m.Issue("u-1", "admin")
	require.NoError(t, err)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "u-1", claims.Subject)
}

func TestParse_Invalid(t *testing.T) {
	m, err := tokens.NewManager("secret", time.Hour)
	require.NoError(t, err)
	other, err := tokens.NewManager("other-secret", time.Hour)
	require.NoError(t, err)

	foreign, err := other.Issue("u-1", "user")
	require.NoError(t, err)

	expiredClaims := tokens.Claims{
		UserID: "u-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			Issuer:    "vmv-server",
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, expiredClaims).SignedString([]byte("secret"))
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, tokens.Claims{UserID: "u-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"Чужой секрет", foreign},
		{"Истекший токен", expired},
		{"Метод none", noneToken},
		{"Мусор", "not.a.token"},
		{"Пустая строка", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Parse(tt.token)
			require.ErrorIs(t, err, tokens.ErrInvalidToken)
		})
	}
}
