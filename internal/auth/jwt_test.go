package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-operator-secret-at-least-32-chars"

func TestOperatorToken_roundTrip(t *testing.T) {
	svc := NewJWTService(testSecret)

	token, err := svc.SignOperatorToken(7489815425, time.Hour)
	require.NoError(t, err)

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7489815425), claims.OperatorID)
	assert.Equal(t, operatorIssuer, claims.Issuer)
}

func TestOperatorToken_wrongSecret(t *testing.T) {
	token, err := NewJWTService(testSecret).SignOperatorToken(1, time.Hour)
	require.NoError(t, err)

	_, err = NewJWTService("another-secret-that-is-also-32-chars!").VerifyToken(token)
	assert.Error(t, err)
}

func TestOperatorToken_expired(t *testing.T) {
	svc := NewJWTService(testSecret)
	claims := &OperatorClaims{
		OperatorID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    operatorIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	assert.Error(t, err)
}

func TestOperatorToken_rejectsNoneAlgorithm(t *testing.T) {
	claims := &OperatorClaims{OperatorID: 1, RegisteredClaims: jwt.RegisteredClaims{Issuer: operatorIssuer}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTService(testSecret).VerifyToken(token)
	assert.Error(t, err)
}
