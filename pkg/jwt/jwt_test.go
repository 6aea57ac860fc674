package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RoundTrip(t *testing.T) {
	m := NewManager("secret", "voucherhub", time.Minute)
	user, biz := uuid.New(), uuid.New()

	token, err := m.GenerateAccessToken(user, RoleBusiness, &biz)
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)

	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, user, got)

	gotBiz, ok := claims.Business()
	require.True(t, ok)
	assert.Equal(t, biz, gotBiz)
}

func TestManager_CustomerHasNoBusiness(t *testing.T) {
	m := NewManager("secret", "voucherhub", time.Minute)
	biz := uuid.New()

	token, err := m.GenerateAccessToken(uuid.New(), RoleCustomer, &biz)
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	_, ok := claims.Business()
	assert.False(t, ok)
}

func TestManager_Rejects(t *testing.T) {
	m := NewManager("secret", "voucherhub", time.Minute)

	other, err := NewManager("other", "voucherhub", time.Minute).GenerateAccessToken(uuid.New(), RoleCustomer, nil)
	require.NoError(t, err)
	_, err = m.Validate(other)
	assert.Error(t, err, "wrong key")

	wrongIssuer, err := NewManager("secret", "elsewhere", time.Minute).GenerateAccessToken(uuid.New(), RoleCustomer, nil)
	require.NoError(t, err)
	_, err = m.Validate(wrongIssuer)
	assert.Error(t, err, "wrong issuer")

	expired, err := NewManager("secret", "voucherhub", -time.Minute).GenerateAccessToken(uuid.New(), RoleCustomer, nil)
	require.NoError(t, err)
	_, err = m.Validate(expired)
	assert.Error(t, err, "expired")
}
