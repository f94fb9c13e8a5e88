package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bottle-tracking-backend/internal/errs"
	"bottle-tracking-backend/internal/model"
)

var testUser = model.User{ID: 3, Name: "Lia", Email: "lia@example.com", RoleID: model.RoleIDProducer, Account: "0xfeed"}

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken("test-secret", time.Hour, testUser)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken("test-secret", token)
	require.NoError(t, err)
	assert.Equal(t, int64(3), claims.UserID)
	assert.Equal(t, "lia@example.com", claims.Email)
	assert.Equal(t, model.RoleIDProducer, claims.RoleID)
	assert.Equal(t, "0xfeed", claims.Account)
	assert.NotEmpty(t, claims.ID)
}

func TestGenerateToken_UniqueJTI(t *testing.T) {
	a, err := GenerateToken("s", time.Hour, testUser)
	require.NoError(t, err)
	b, err := GenerateToken("s", time.Hour, testUser)
	require.NoError(t, err)

	ca, _ := ValidateToken("s", a)
	cb, _ := ValidateToken("s", b)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestValidateToken_Rejects(t *testing.T) {
	token, err := GenerateToken("secret1", time.Hour, testUser)
	require.NoError(t, err)

	_, err = ValidateToken("secret2", token)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	expired, err := GenerateToken("secret1", -time.Minute, testUser)
	require.NoError(t, err)
	_, err = ValidateToken("secret1", expired)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	_, err = ValidateToken("secret1", "not-a-token")
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.NoError(t, CheckPassword(hash, "hunter2"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong"), errs.ErrUnauthorized)
}
