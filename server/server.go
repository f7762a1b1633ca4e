package server

import (
	"fmt"
	"net/http"

	"github.com/avelychko/rolodex/server/auth"
	"github.com/avelychko/rolodex/server/auth/key"
	"github.com/avelychko/rolodex/server/logger"
	"github.com/avelychko/rolodex/server/models"
	"github.com/avelychko/rolodex/server/reminders"
	"github.com/avelychko/rolodex/server/twilio"
	"github.com/avelychko/rolodex/server/work"
	"github.com/avelychko/rolodex/shared"
	"github.com/go-playground/validator"
	"github.com/gorilla/mux"
	"github.com/spf13/viper"
)

type RequestContextKey string

type DecodedJWT struct {
	Claims   *auth.TokenClaims
	ErrorMsg string
}

type ResponsePayload struct {
	Errors  []string    `json:"errors,omitempty"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

type TokenData struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// APIHandler carries the explicit dependencies every endpoint needs - the
// datastore handle & the token signing key.
type APIHandler struct {
	datastore *models.Datastore
	keyPair   *key.KeyPair
}

var (
	logg     = logger.NewLogger()
	validate = validator.New()
)

func init() {
	fatalOnError(RegisterValidators(validate))
}

// Start boots the rolodex server: config, datastore, background workers &
// the http listener. Blocks until SIGINT/SIGTERM, then shuts down cleanly.
func Start(config *viper.Viper, devMode bool) {
	serverConfig := parseServerConfig(config)
	rootDir := configDirectory(devMode)

	datastore, err := models.NewDatastore(serverConfig.Sqlite.PassPhrase, rootDir)
	fatalOnError(err)
	fatalOnError(datastore.AutoMigrate())

	keyPair := loadKeyPair(serverConfig, devMode)

	workerPool := work.NewWorkerAdapter(datastore, serverConfig.Rolodex.Cron.TimeZone)

	reminderScheduler, err := reminders.NewReminderScheduler(
		datastore, workerPool, twilio.NewClient(serverConfig.Twilio, devMode))
	fatalOnError(err)
	fatalOnError(reminderScheduler.ScheduleReminders(serverConfig.Rolodex.Cron.ReminderSchedule))

	registerJobHandlers(workerPool, serverConfig, rootDir)
	enqueuePeriodicJobs(workerPool, serverConfig)
	workerPool.Start()

	handler := &APIHandler{datastore: datastore, keyPair: keyPair}
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%v", serverConfig.Rolodex.Listener.Port),
		Handler: newRouter(handler),
	}
	go serve(httpServer)

	waitForShutdownSignal()
	cleanup(workerPool, httpServer)
}

func newRouter(handler *APIHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware)

	router.HandleFunc("/health", handler.healthCheck).Methods("GET")
	router.HandleFunc("/.well-known/jwks.json", handler.jwks).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.Use(handler.initialContextMiddleware)
	api.HandleFunc("/auth/signup", handler.signUp).Methods("POST")
	api.HandleFunc("/auth/login", handler.logIn).Methods("POST")
	api.HandleFunc("/auth/refresh_token", handler.refreshToken).Methods("GET")

	protected := api.NewRoute().Subrouter()
	protected.Use(handler.protectedRouteMiddleware)
	protected.HandleFunc("/users/me", handler.currentUser).Methods("GET")
	protected.HandleFunc("/contacts/all", handler.listContacts).Methods("GET")
	protected.HandleFunc("/contacts/upcoming_birthdays", handler.upcomingBirthdays).Methods("GET")
	protected.HandleFunc("/contacts", handler.findContact).Methods("GET")
	protected.HandleFunc("/contacts", handler.createContact).Methods("POST")
	protected.HandleFunc("/contacts/{id:[0-9]+}", handler.updateContact).Methods("PUT")
	protected.HandleFunc("/contacts/{id:[0-9]+}", handler.deleteContact).Methods("DELETE")

	return router
}

func parseServerConfig(config *viper.Viper) *shared.ServerConfig {
	serverConfig := &shared.ServerConfig{}

	fatalOnError(config.Unmarshal(serverConfig))
	fatalOnError(validate.Struct(serverConfig))

	return serverConfig
}

func loadKeyPair(serverConfig *shared.ServerConfig, devMode bool) *key.KeyPair {
	pemValue := serverConfig.Rolodex.PrivateKeyPem

	if pemValue == "" {
		if !devMode {
			logg.Fatal("'rolodex.privateKeyPem' is required outside dev mode")
		}

		logg.Warn("No signing key configured - using an ephemeral dev key")
		keyPair, err := key.NewRandomKeyPair()
		fatalOnError(err)
		return keyPair
	}

	keyPair, err := key.NewKeyPairFromRSAPrivateKeyPem([]byte(pemValue))
	fatalOnError(err)

	return keyPair
}
