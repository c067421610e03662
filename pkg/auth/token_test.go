package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/quoteflow-backend/pkg/config"
	"github.com/angelmondragon/quoteflow-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "quoteflow"}

func signClaims(t *testing.T, claims AccessTokenClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(testJWT.Secret))
	require.NoError(t, err)
	return signed
}

func TestMintAndParseAccessToken(t *testing.T) {
	userID := uuid.New()
	token, err := MintAccessToken(testJWT, time.Now(), 30*time.Minute, AccessTokenPayload{UserID: userID, Role: enums.UserRoleVPP})
	require.NoError(t, err)

	claims, err := ParseAccessToken(testJWT, token)
	require.NoError(t, err)
	require.Equal(t, userID, claims.UserID)
	require.Equal(t, enums.UserRoleVPP, claims.Role)
	require.Equal(t, testJWT.Issuer, claims.Issuer)
	require.Equal(t, userID.String(), claims.Subject)
	require.NotEmpty(t, claims.ID)
}

func TestParseAccessTokenReportsExpiry(t *testing.T) {
	token, err := MintAccessToken(testJWT, time.Now().Add(-2*time.Hour), time.Minute, AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleSales})
	require.NoError(t, err)
	_, err = ParseAccessToken(testJWT, token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestParseAccessTokenToleratesClockSkew(t *testing.T) {
	token, err := MintAccessToken(testJWT, time.Now().Add(-time.Minute-10*time.Second), time.Minute, AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleSales})
	require.NoError(t, err)
	_, err = ParseAccessToken(testJWT, token)
	require.NoError(t, err)
}

func TestParseAccessTokenRejectsWrongIssuerAndSecret(t *testing.T) {
	token, err := MintAccessToken(testJWT, time.Now(), time.Minute, AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleAdmin})
	require.NoError(t, err)

	_, err = ParseAccessToken(config.JWTConfig{Secret: testJWT.Secret, Issuer: "someone-else"}, token)
	require.Error(t, err)
	_, err = ParseAccessToken(config.JWTConfig{Secret: "other", Issuer: testJWT.Issuer}, token)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsBadClaims(t *testing.T) {
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))
	userID := uuid.New()

	_, err := ParseAccessToken(testJWT, signClaims(t, AccessTokenClaims{
		UserID:           userID,
		Role:             enums.UserRole("OWNER"),
		RegisteredClaims: jwt.RegisteredClaims{Issuer: testJWT.Issuer, ExpiresAt: exp},
	}))
	require.ErrorContains(t, err, "unknown role")

	_, err = ParseAccessToken(testJWT, signClaims(t, AccessTokenClaims{
		UserID:           userID,
		Role:             enums.UserRoleSales,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: testJWT.Issuer, ExpiresAt: exp, Subject: uuid.NewString()},
	}))
	require.ErrorIs(t, err, ErrTokenMismatch)

	_, err = ParseAccessToken(testJWT, signClaims(t, AccessTokenClaims{
		Role:             enums.UserRoleSales,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: testJWT.Issuer, ExpiresAt: exp},
	}))
	require.ErrorContains(t, err, "missing user id")

	_, err = ParseAccessToken(testJWT, signClaims(t, AccessTokenClaims{
		UserID:           userID,
		Role:             enums.UserRoleSales,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: testJWT.Issuer},
	}))
	require.Error(t, err, "exp is required")
}

func TestMintAccessTokenValidatesInput(t *testing.T) {
	payload := AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	_, err := MintAccessToken(config.JWTConfig{Issuer: "x"}, time.Now(), time.Minute, payload)
	require.Error(t, err)
	_, err = MintAccessToken(testJWT, time.Now(), 0, payload)
	require.Error(t, err)
	_, err = MintAccessToken(testJWT, time.Now(), time.Minute, AccessTokenPayload{Role: "OWNER"})
	require.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	for header, want := range map[string]string{
		"Bearer abc.def":   "abc.def",
		"bearer  abc.def ": "abc.def",
		"abc.def":          "abc.def",
	} {
		got, err := BearerToken(header)
		require.NoError(t, err, header)
		require.Equal(t, want, got, header)
	}
	for _, header := range []string{"", "  ", "Bearer "} {
		_, err := BearerToken(header)
		require.ErrorIs(t, err, ErrMissingToken, header)
	}
}
