package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avelychko/rolodex/server/auth"
	"github.com/avelychko/rolodex/server/auth/key"
	"github.com/avelychko/rolodex/server/models"
	"github.com/golang-jwt/jwt"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const (
	accessTokenDuration  = 15 * time.Minute
	refreshTokenDuration = 7 * 24 * time.Hour
)

func (h *APIHandler) healthCheck(rw http.ResponseWriter, r *http.Request) {
	writeResponse(rw, ResponsePayload{Success: true}, http.StatusOK)
}

func (h *APIHandler) jwks(rw http.ResponseWriter, r *http.Request) {
	keyPairJWK, err := h.keyPair.JWK()
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	rw.Header().Set("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(key.ExportJWKAsJWKS(keyPairJWK))
}

// ---------------------------------------------------------------------------------//
// Auth handlers
// --------------------------------------------------------------------------------//

func (h *APIHandler) signUp(rw http.ResponseWriter, r *http.Request) {
	user := models.User{}

	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	if errs := validate.Struct(user); errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return
	}

	_, err := h.datastore.FindUserBy("email", user.Email)
	if err == nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"account already exists"}}, http.StatusConflict)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	if err := h.datastore.CreateUser(&user); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	user.Password = ""
	writeResponse(rw, ResponsePayload{Success: true, Data: user}, http.StatusCreated)
}

func (h *APIHandler) logIn(rw http.ResponseWriter, r *http.Request) {
	data := make(map[string]string)
	json.NewDecoder(r.Body).Decode(&data)

	passwordHash, err := h.datastore.FindUserPassword(data["email"])
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	if !auth.CheckPasswordHash(data["password"], passwordHash) {
		writeResponse(rw, ResponsePayload{Errors: []string{"email/password is invalid"}}, http.StatusUnauthorized)
		return
	}

	user, err := h.datastore.FindUserBy("email", data["email"])
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	tokens, err := h.issueTokenPair(user)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: tokens}, http.StatusOK)
}

// refreshToken swaps a valid refresh token for a new token pair. The
// presented token must match the one stored for the account; on mismatch
// the stored token is cleared, forcing a fresh login.
func (h *APIHandler) refreshToken(rw http.ResponseWriter, r *http.Request) {
	tokenString, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		writeResponse(rw, ResponsePayload{Errors: []string{"no token provided"}}, http.StatusUnauthorized)
		return
	}

	claims, err := auth.DecodeJWT(tokenString, auth.RefreshTokenType, h.keyPair)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"invalid refresh token"}}, http.StatusUnauthorized)
		return
	}

	userID, err := pathParamAsUint(claims.Subject)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"invalid refresh token"}}, http.StatusUnauthorized)
		return
	}

	storedToken, err := h.datastore.FindUserRefreshToken(userID)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"invalid refresh token"}}, http.StatusUnauthorized)
		return
	}

	if storedToken != tokenString {
		h.datastore.UpdateRefreshToken(userID, "")
		writeResponse(rw, ResponsePayload{Errors: []string{"invalid refresh token"}}, http.StatusUnauthorized)
		return
	}

	user, err := h.datastore.FindUserBy("id", userID)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	tokens, err := h.issueTokenPair(user)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: tokens}, http.StatusOK)
}

func (h *APIHandler) currentUser(rw http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r.Context())
	if !ok {
		writeResponse(rw, ResponsePayload{Errors: []string{"invalid token provided"}}, http.StatusUnauthorized)
		return
	}

	user, err := h.datastore.FindUserBy("id", userID)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: user}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Contact handlers
// --------------------------------------------------------------------------------//

func (h *APIHandler) listContacts(rw http.ResponseWriter, r *http.Request) {
	userID, _ := requestUserID(r.Context())

	skip, err := queryParamAsInt(r, "skip", 0)
	if err != nil || skip < 0 {
		writeResponse(rw, ResponsePayload{Errors: []string{"'skip' must be a non-negative integer"}}, http.StatusBadRequest)
		return
	}

	limit, err := queryParamAsInt(r, "limit", models.DEFAULT_PAGE_SIZE)
	if err != nil || limit < 0 {
		writeResponse(rw, ResponsePayload{Errors: []string{"'limit' must be a non-negative integer"}}, http.StatusBadRequest)
		return
	}

	contacts, err := h.datastore.ListContacts(userID, skip, limit)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: contactSummaries(contacts)}, http.StatusOK)
}

func (h *APIHandler) findContact(rw http.ResponseWriter, r *http.Request) {
	userID, _ := requestUserID(r.Context())

	filter := models.ContactFilter{
		FirstName: r.URL.Query().Get("first_name"),
		LastName:  r.URL.Query().Get("last_name"),
		Email:     r.URL.Query().Get("email"),
	}

	contact, err := h.datastore.FindContact(userID, filter)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"contact not found"}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: contact}, http.StatusOK)
}

func (h *APIHandler) createContact(rw http.ResponseWriter, r *http.Request) {
	userID, _ := requestUserID(r.Context())
	contact := models.Contact{}

	if err := json.NewDecoder(r.Body).Decode(&contact); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	if errs := validate.Struct(contact); errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return
	}

	if err := h.datastore.CreateContact(&contact, userID); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: contact}, http.StatusCreated)
}

func (h *APIHandler) updateContact(rw http.ResponseWriter, r *http.Request) {
	userID, _ := requestUserID(r.Context())

	contactID, err := pathParamAsUint(mux.Vars(r)["id"])
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"invalid contact id"}}, http.StatusBadRequest)
		return
	}

	fields := models.Contact{}
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusBadRequest)
		return
	}

	if errs := validate.Struct(fields); errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return
	}

	contact, err := h.datastore.UpdateContact(contactID, userID, &fields)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"contact not found"}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: contact}, http.StatusOK)
}

func (h *APIHandler) deleteContact(rw http.ResponseWriter, r *http.Request) {
	userID, _ := requestUserID(r.Context())

	contactID, err := pathParamAsUint(mux.Vars(r)["id"])
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"invalid contact id"}}, http.StatusBadRequest)
		return
	}

	contact, err := h.datastore.DeleteContact(contactID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeResponse(rw, ResponsePayload{Errors: []string{"contact not found"}}, http.StatusNotFound)
		return
	}
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: contact}, http.StatusOK)
}

func (h *APIHandler) upcomingBirthdays(rw http.ResponseWriter, r *http.Request) {
	userID, _ := requestUserID(r.Context())

	contacts, err := h.datastore.UpcomingBirthdays(userID, time.Now())
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{err.Error()}}, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, ResponsePayload{Success: true, Data: contactSummaries(contacts)}, http.StatusOK)
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func (h *APIHandler) issueTokenPair(user *models.User) (*TokenData, error) {
	now := time.Now()

	accessToken, err := auth.EncodeJWT(auth.TokenClaims{
		Username:  user.Username,
		TokenType: auth.AccessTokenType,
		StandardClaims: jwt.StandardClaims{
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(accessTokenDuration).Unix(),
		},
	}, h.keyPair)
	if err != nil {
		return nil, err
	}

	refreshToken, err := auth.EncodeJWT(auth.TokenClaims{
		TokenType: auth.RefreshTokenType,
		StandardClaims: jwt.StandardClaims{
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(refreshTokenDuration).Unix(),
		},
	}, h.keyPair)
	if err != nil {
		return nil, err
	}

	if err := h.datastore.UpdateRefreshToken(user.ID, refreshToken); err != nil {
		return nil, err
	}

	return &TokenData{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, nil
}
