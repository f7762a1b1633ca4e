package auth

import (
	"fmt"
	"testing"
	"time"

	"github.com/avelychko/rolodex/server/auth/key"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pearson-hardman")
	assert.Nil(t, err)
	assert.NotEqual(t, "pearson-hardman", hash)

	assert.True(t, CheckPasswordHash("pearson-hardman", hash))
	assert.False(t, CheckPasswordHash("wrong-password", hash))
}

func TestEncodeAndDecodeJWT(t *testing.T) {
	keyPair, err := key.NewRandomKeyPair()
	assert.Nil(t, err)

	tokenString, err := EncodeJWT(TokenClaims{
		Username:  "harvey",
		TokenType: AccessTokenType,
		StandardClaims: jwt.StandardClaims{
			Subject:   "1",
			ExpiresAt: time.Now().Add(15 * time.Minute).Unix(),
		},
	}, keyPair)
	assert.Nil(t, err)

	claims, err := DecodeJWT(tokenString, AccessTokenType, keyPair)
	assert.Nil(t, err)
	assert.Equal(t, "harvey", claims.Username)
	assert.Equal(t, "1", claims.Subject)

	// an access token can never pass as a refresh token
	_, err = DecodeJWT(tokenString, RefreshTokenType, keyPair)
	assert.NotNil(t, err)
}

func TestDecodeJWTRejectsExpiredToken(t *testing.T) {
	keyPair, err := key.NewRandomKeyPair()
	assert.Nil(t, err)

	tokenString, err := EncodeJWT(TokenClaims{
		TokenType: AccessTokenType,
		StandardClaims: jwt.StandardClaims{
			Subject:   "1",
			ExpiresAt: time.Now().Add(-1 * time.Minute).Unix(),
		},
	}, keyPair)
	assert.Nil(t, err)

	_, err = DecodeJWT(tokenString, AccessTokenType, keyPair)
	assert.NotNil(t, err)
}

func TestDecodeJWTRejectsForeignSignature(t *testing.T) {
	keyPair, err := key.NewRandomKeyPair()
	assert.Nil(t, err)
	otherKeyPair, err := key.NewRandomKeyPair()
	assert.Nil(t, err)

	tokenString, err := EncodeJWT(TokenClaims{
		TokenType: AccessTokenType,
		StandardClaims: jwt.StandardClaims{
			Subject:   "1",
			ExpiresAt: time.Now().Add(15 * time.Minute).Unix(),
		},
	}, otherKeyPair)
	assert.Nil(t, err)

	_, err = DecodeJWT(tokenString, AccessTokenType, keyPair)
	assert.NotNil(t, err)
}

func TestDecodeJWTRejectsNonRSATokens(t *testing.T) {
	keyPair, err := key.NewRandomKeyPair()
	assert.Nil(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		TokenType: AccessTokenType,
		StandardClaims: jwt.StandardClaims{
			Subject:   "1",
			ExpiresAt: time.Now().Add(15 * time.Minute).Unix(),
		},
	})
	tokenString, err := token.SignedString([]byte("shared-secret"))
	assert.Nil(t, err)

	_, err = DecodeJWT(tokenString, AccessTokenType, keyPair)
	assert.NotNil(t, err)
	assert.Contains(t, fmt.Sprint(err), "unexpected signing method")
}
