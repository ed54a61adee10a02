package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/atelierhq/atelier/guard"
)

func TestAuthService_TokenRoundTrip(t *testing.T) {
	svc := NewAuthService(nil, "test-secret")

	token, err := svc.SignToken("acc-1", "ada@example.org")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.Subject)
	assert.Equal(t, "ada@example.org", claims.Email)
}

func TestAuthService_RejectsForeignSignature(t *testing.T) {
	issuer := NewAuthService(nil, "secret-a")
	verifier := NewAuthService(nil, "secret-b")

	token, err := issuer.SignToken("acc-1", "ada@example.org")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestAuthService_ExtractTokenFromHeader(t *testing.T) {
	svc := NewAuthService(nil, "test-secret")

	token, err := svc.ExtractTokenFromHeader("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	for _, header := range []string{"", "abc.def.ghi", "Basic abc", "Bearer "} {
		_, err := svc.ExtractTokenFromHeader(header)
		assert.Error(t, err, "header %q should be rejected", header)
	}
}

func TestAuthService_Login(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	cols := []string{"id", "email", "username", "password_hash", "firstname", "lastname", "created_at"}

	svc := NewAuthService(db, "test-secret")

	t.Run("valid credentials", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs("ada@example.org").
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("acc-1", "ada@example.org", "ada", string(hash), "Ada", "Lovelace", time.Now()))

		token, account, err := svc.Login("ada@example.org", "hunter2")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, "acc-1", account.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs("ada@example.org").
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("acc-1", "ada@example.org", "ada", string(hash), "Ada", "Lovelace", time.Now()))

		_, _, err := svc.Login("ada@example.org", "wrong")
		assert.ErrorIs(t, err, guard.ErrUnauthorized)
	})

	t.Run("unknown email", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM accounts").
			WithArgs("ghost@example.org").
			WillReturnRows(sqlmock.NewRows(cols))

		_, _, err := svc.Login("ghost@example.org", "hunter2")
		assert.ErrorIs(t, err, guard.ErrUnauthorized)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
