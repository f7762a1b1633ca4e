package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avelychko/rolodex/server/auth/key"
	"github.com/avelychko/rolodex/server/models"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

type testPayload struct {
	Errors  []string        `json:"errors"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) *mux.Router {
	keyPair, err := key.NewRandomKeyPair()
	assert.Nil(t, err)

	return newRouter(&APIHandler{
		datastore: models.InitializeTestDb(),
		keyPair:   keyPair,
	})
}

func performRequest(router *mux.Router, method, target, token string, body interface{}) (*httptest.ResponseRecorder, testPayload) {
	var reqBody bytes.Buffer
	if body != nil {
		json.NewEncoder(&reqBody).Encode(body)
	}

	request := httptest.NewRequest(method, target, &reqBody)
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	payload := testPayload{}
	json.Unmarshal(recorder.Body.Bytes(), &payload)

	return recorder, payload
}

func signUpAndLogIn(t *testing.T, router *mux.Router, email string) *TokenData {
	recorder, _ := performRequest(router, "POST", "/api/auth/signup", "", map[string]string{
		"username": "harvey",
		"email":    email,
		"password": "pearson-hardman",
	})
	assert.Equal(t, http.StatusCreated, recorder.Code)

	recorder, payload := performRequest(router, "POST", "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": "pearson-hardman",
	})
	assert.Equal(t, http.StatusOK, recorder.Code)

	tokens := TokenData{}
	assert.Nil(t, json.Unmarshal(payload.Data, &tokens))
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, "bearer", tokens.TokenType)

	return &tokens
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t)

	recorder, payload := performRequest(router, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, payload.Success)
}

func TestJWKS(t *testing.T) {
	router := newTestRouter(t)

	request := httptest.NewRequest("GET", "/.well-known/jwks.json", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)

	jwks := struct {
		Keys []map[string]interface{} `json:"keys"`
	}{}
	assert.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &jwks))
	assert.Len(t, jwks.Keys, 1)
	assert.Equal(t, "rolodex-key-id", jwks.Keys[0]["kid"])
}

func TestSignUp(t *testing.T) {
	router := newTestRouter(t)

	recorder, payload := performRequest(router, "POST", "/api/auth/signup", "", map[string]string{
		"username": "harvey",
		"email":    "harvey@example.com",
		"password": "pearson-hardman",
	})
	assert.Equal(t, http.StatusCreated, recorder.Code)

	user := models.User{}
	assert.Nil(t, json.Unmarshal(payload.Data, &user))
	assert.Equal(t, "harvey@example.com", user.Email)
	assert.Empty(t, user.Password, "Password should never be echoed back")

	// same email again is a conflict
	recorder, _ = performRequest(router, "POST", "/api/auth/signup", "", map[string]string{
		"username": "harvey",
		"email":    "harvey@example.com",
		"password": "pearson-hardman",
	})
	assert.Equal(t, http.StatusConflict, recorder.Code)

	// validation failures are a bad request
	recorder, _ = performRequest(router, "POST", "/api/auth/signup", "", map[string]string{
		"username": "h",
		"email":    "not-an-email",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestLogIn(t *testing.T) {
	router := newTestRouter(t)
	signUpAndLogIn(t, router, "harvey@example.com")

	recorder, _ := performRequest(router, "POST", "/api/auth/login", "", map[string]string{
		"email":    "harvey@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder, _ = performRequest(router, "POST", "/api/auth/login", "", map[string]string{
		"email":    "nobody@example.com",
		"password": "pearson-hardman",
	})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestRefreshToken(t *testing.T) {
	router := newTestRouter(t)
	tokens := signUpAndLogIn(t, router, "harvey@example.com")

	recorder, payload := performRequest(router, "GET", "/api/auth/refresh_token", tokens.RefreshToken, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	rotated := TokenData{}
	assert.Nil(t, json.Unmarshal(payload.Data, &rotated))
	assert.NotEmpty(t, rotated.AccessToken)

	// the old refresh token died with the rotation
	recorder, _ = performRequest(router, "GET", "/api/auth/refresh_token", tokens.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	// an access token can't be used to refresh
	recorder, _ = performRequest(router, "GET", "/api/auth/refresh_token", rotated.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestCurrentUser(t *testing.T) {
	router := newTestRouter(t)
	tokens := signUpAndLogIn(t, router, "harvey@example.com")

	recorder, _ := performRequest(router, "GET", "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder, payload := performRequest(router, "GET", "/api/users/me", tokens.AccessToken, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	user := models.User{}
	assert.Nil(t, json.Unmarshal(payload.Data, &user))
	assert.Equal(t, "harvey@example.com", user.Email)
}

func TestContactCRUD(t *testing.T) {
	router := newTestRouter(t)
	tokens := signUpAndLogIn(t, router, "harvey@example.com")

	newContact := map[string]string{
		"first_name":    "Mike",
		"last_name":     "Ross",
		"email":         "mike@example.com",
		"mobile_number": "+15550001111",
		"date_of_birth": "1990-06-05",
	}

	// every contact route requires a token
	recorder, _ := performRequest(router, "POST", "/api/contacts", "", newContact)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder, payload := performRequest(router, "POST", "/api/contacts", tokens.AccessToken, newContact)
	assert.Equal(t, http.StatusCreated, recorder.Code)

	created := models.Contact{}
	assert.Nil(t, json.Unmarshal(payload.Data, &created))
	assert.Equal(t, "Mike", created.FirstName)
	assert.NotZero(t, created.ID)

	// list returns the summary shape
	recorder, payload = performRequest(router, "GET", "/api/contacts/all", tokens.AccessToken, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	summaries := []ContactSummary{}
	assert.Nil(t, json.Unmarshal(payload.Data, &summaries))
	assert.Len(t, summaries, 1)
	assert.Equal(t, created.ID, summaries[0].ID)

	// search by case-insensitive substring
	recorder, payload = performRequest(router, "GET", "/api/contacts?first_name=mik", tokens.AccessToken, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	found := models.Contact{}
	assert.Nil(t, json.Unmarshal(payload.Data, &found))
	assert.Equal(t, created.ID, found.ID)

	recorder, _ = performRequest(router, "GET", "/api/contacts?first_name=nobody", tokens.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	// full-replacement update
	recorder, payload = performRequest(router, "PUT", fmt.Sprintf("/api/contacts/%v", created.ID), tokens.AccessToken, map[string]string{
		"first_name":    "Michael",
		"last_name":     "Ross",
		"email":         "michael@example.com",
		"mobile_number": "+15550002222",
		"date_of_birth": "1990-06-05",
	})
	assert.Equal(t, http.StatusOK, recorder.Code)

	updated := models.Contact{}
	assert.Nil(t, json.Unmarshal(payload.Data, &updated))
	assert.Equal(t, "Michael", updated.FirstName)
	assert.Equal(t, "michael@example.com", updated.Email)

	recorder, _ = performRequest(router, "PUT", "/api/contacts/999", tokens.AccessToken, newContact)
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	// delete returns the removed record, then reports not found
	recorder, payload = performRequest(router, "DELETE", fmt.Sprintf("/api/contacts/%v", created.ID), tokens.AccessToken, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	removed := models.Contact{}
	assert.Nil(t, json.Unmarshal(payload.Data, &removed))
	assert.Equal(t, "Michael", removed.FirstName)

	recorder, _ = performRequest(router, "DELETE", fmt.Sprintf("/api/contacts/%v", created.ID), tokens.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestContactOwnershipIsolation(t *testing.T) {
	router := newTestRouter(t)
	ownerTokens := signUpAndLogIn(t, router, "harvey@example.com")

	recorder, payload := performRequest(router, "POST", "/api/contacts", ownerTokens.AccessToken, map[string]string{
		"first_name":    "Mike",
		"last_name":     "Ross",
		"email":         "mike@example.com",
		"mobile_number": "+15550001111",
		"date_of_birth": "1990-06-05",
	})
	assert.Equal(t, http.StatusCreated, recorder.Code)

	created := models.Contact{}
	assert.Nil(t, json.Unmarshal(payload.Data, &created))

	otherTokens := signUpAndLogIn(t, router, "louis@example.com")

	recorder, payload = performRequest(router, "GET", "/api/contacts/all", otherTokens.AccessToken, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	summaries := []ContactSummary{}
	assert.Nil(t, json.Unmarshal(payload.Data, &summaries))
	assert.Empty(t, summaries, "Accounts should never see each other's contacts")

	recorder, _ = performRequest(router, "DELETE", fmt.Sprintf("/api/contacts/%v", created.ID), otherTokens.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestListContactsRejectsBadPagination(t *testing.T) {
	router := newTestRouter(t)
	tokens := signUpAndLogIn(t, router, "harvey@example.com")

	recorder, _ := performRequest(router, "GET", "/api/contacts/all?skip=-1", tokens.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder, _ = performRequest(router, "GET", "/api/contacts/all?limit=nope", tokens.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestUpcomingBirthdaysEndpoint(t *testing.T) {
	router := newTestRouter(t)
	tokens := signUpAndLogIn(t, router, "harvey@example.com")

	today := time.Now()
	recorder, _ := performRequest(router, "POST", "/api/contacts", tokens.AccessToken, map[string]string{
		"first_name":    "Mike",
		"last_name":     "Ross",
		"email":         "mike@example.com",
		"mobile_number": "+15550001111",
		"date_of_birth": today.AddDate(-30, 0, 0).Format(models.DateFormat),
	})
	assert.Equal(t, http.StatusCreated, recorder.Code)

	farOff := today.AddDate(0, 5, 0)
	recorder, _ = performRequest(router, "POST", "/api/contacts", tokens.AccessToken, map[string]string{
		"first_name":    "Donna",
		"last_name":     "Paulsen",
		"email":         "donna@example.com",
		"mobile_number": "+15550002222",
		"date_of_birth": fmt.Sprintf("1985-%02d-%02d", farOff.Month(), farOff.Day()),
	})
	assert.Equal(t, http.StatusCreated, recorder.Code)

	recorder, payload := performRequest(router, "GET", "/api/contacts/upcoming_birthdays", tokens.AccessToken, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	summaries := []ContactSummary{}
	assert.Nil(t, json.Unmarshal(payload.Data, &summaries))
	assert.Len(t, summaries, 1)
	assert.Equal(t, "Mike", summaries[0].FirstName)
}
