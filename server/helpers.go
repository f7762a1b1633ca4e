package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/avelychko/rolodex/server/auth"
	"github.com/avelychko/rolodex/server/models"
	"github.com/avelychko/rolodex/server/work"
	"github.com/avelychko/rolodex/utils"
	"github.com/go-playground/validator"
)

// ContactSummary is the trimmed-down contact shape used on list-style
// routes; record routes return the full contact.
type ContactSummary struct {
	ID        uint   `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// ---------------------------------------------------------------------------------//
// Handler helper functions
// --------------------------------------------------------------------------------//

func writeResponse(rw http.ResponseWriter, payLoad ResponsePayload, statusCode int) {
	if statusCode >= http.StatusInternalServerError {
		logg.Error(payLoad.Errors)
	} else if statusCode >= http.StatusBadRequest {
		logg.Info(payLoad.Errors)
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(payLoad)
}

func RegisterValidators(validate *validator.Validate) error {
	return validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		password := fl.Field().String()
		if strings.Contains(password, " ") {
			return false
		}

		// bcrypt only hashes the first 72 bytes
		return len(password) >= 6 && len(password) <= 72
	})
}

func contactSummaries(contacts []models.Contact) []ContactSummary {
	summaries := make([]ContactSummary, 0, len(contacts))
	for _, contact := range contacts {
		summaries = append(summaries, ContactSummary{
			ID:        contact.ID,
			FirstName: contact.FirstName,
			LastName:  contact.LastName,
		})
	}

	return summaries
}

func queryParamAsInt(r *http.Request, name string, defaultValue int) (int, error) {
	rawValue := r.URL.Query().Get(name)
	if rawValue == "" {
		return defaultValue, nil
	}

	return strconv.Atoi(rawValue)
}

func pathParamAsUint(rawValue string) (uint, error) {
	value, err := strconv.ParseUint(rawValue, 10, 32)
	if err != nil {
		return 0, err
	}

	return uint(value), nil
}

// ---------------------------------------------------------------------------------//
// Middleware helper functions
// --------------------------------------------------------------------------------//

func (h *APIHandler) decodeAndVerifyAuthHeader(authHeaderValue string) DecodedJWT {
	tokenString, ok := bearerToken(authHeaderValue)
	if !ok {
		return DecodedJWT{ErrorMsg: "no token provided"}
	}

	tokenClaims, err := auth.DecodeJWT(tokenString, auth.AccessTokenType, h.keyPair)
	if err != nil {
		return DecodedJWT{ErrorMsg: "invalid token provided"}
	}

	// validate that the account still exists
	_, err = h.datastore.FindUserBy("id", tokenClaims.Subject)
	if err != nil {
		return DecodedJWT{ErrorMsg: "invalid token provided"}
	}

	return DecodedJWT{Claims: tokenClaims}
}

func bearerToken(authHeaderValue string) (string, bool) {
	authHeaderList := strings.Split(authHeaderValue, "Bearer ")
	if len(authHeaderList) < 2 {
		return "", false
	}

	return authHeaderList[1], true
}

// requestUserID resolves the authenticated account id from the decoded
// token stored in the request context.
func requestUserID(ctx context.Context) (uint, bool) {
	decodedJWT, ok := ctx.Value(RequestContextKey("decodedJWT")).(DecodedJWT)
	if !ok || decodedJWT.Claims == nil {
		return 0, false
	}

	userID, err := pathParamAsUint(decodedJWT.Claims.Subject)
	if err != nil {
		return 0, false
	}

	return userID, true
}

// ---------------------------------------------------------------------------------//
// Server helper functions
// --------------------------------------------------------------------------------//

func serve(server *http.Server) {
	logg.Infof("Rolodex server is listening on port%v", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal(err)
	}
}

func waitForShutdownSignal() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
}

func cleanup(workerPool *work.WorkerPoolAdapter, server *http.Server) {
	// Stop periodic jobs & in-flight workers first, then drain http
	workerPool.Stop()

	ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutDown); err != nil {
		logg.Fatalf("Rolodex server shutdown failed: %s", err)
	}

	logg.Infof("Rolodex server stopped properly")
}

// configDirectory retrieves the directory holding the server's data,
// or exits when it can't be created.
func configDirectory(devMode bool) string {
	// Use 'rolodex' folder in home directory for prod
	configFolderName := "rolodex"
	rootDir, err := os.UserHomeDir()
	fatalOnError(err)

	// Use 'dev' folder in current directory for dev mode
	if devMode {
		configFolderName = "dev"
		rootDir, err = os.Getwd()
		fatalOnError(err)
	}

	configDir := filepath.Join(rootDir, configFolderName)
	fatalOnError(utils.CreateDirIfNotExist(configDir))

	return configDir
}

func fatalOnError(err error) {
	if err != nil {
		logg.Fatal(err)
	}
}
