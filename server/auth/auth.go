package auth

import (
	"fmt"

	"github.com/avelychko/rolodex/server/auth/key"
	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"
)

const (
	AccessTokenType  = "access"
	RefreshTokenType = "refresh"
)

// TokenClaims is the payload carried by every rolodex JWT. TokenType
// distinguishes short-lived access tokens from the stored refresh token.
type TokenClaims struct {
	Username  string `json:"username,omitempty"`
	TokenType string `json:"token_type"`
	jwt.StandardClaims
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func EncodeJWT(claims TokenClaims, keyPair *key.KeyPair) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod("RS256"), claims)

	tokenString, err := token.SignedString(keyPair.PrivateKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// DecodeJWT verifies the signature & expiry of the token & asserts it is
// of 'expectedTokenType' - a refresh token can never pass as an access
// token or vice versa.
func DecodeJWT(tokenString, expectedTokenType string, keyPair *key.KeyPair) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return keyPair.PublicKey, nil
	})

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid jwt: %v", err)
	}

	tokenClaims, ok := token.Claims.(*TokenClaims)
	if !ok {
		return nil, fmt.Errorf("unable to assert token.Claims to TokenClaims")
	}

	if tokenClaims.TokenType != expectedTokenType {
		return nil, fmt.Errorf("expected %v token, got %v", expectedTokenType, tokenClaims.TokenType)
	}

	return tokenClaims, nil
}
