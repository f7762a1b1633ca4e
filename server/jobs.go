package server

import (
	"fmt"

	"github.com/avelychko/rolodex/server/gstorage"
	"github.com/avelychko/rolodex/server/models"
	"github.com/avelychko/rolodex/server/work"
	"github.com/avelychko/rolodex/shared"
)

const dbBackupJobName = "database_backup"

func registerJobHandlers(workerPool *work.WorkerPoolAdapter, serverConfig *shared.ServerConfig, rootDir string) {
	fatalOnError(workerPool.Register(dbBackupJobName, func(map[string]interface{}) error {
		return backupDatabase(serverConfig.Google, rootDir)
	}))
}

func enqueuePeriodicJobs(workerPool *work.WorkerPoolAdapter, serverConfig *shared.ServerConfig) {
	if !sqliteBackupEnabled(serverConfig) {
		logg.Info("Sqlite backup is disabled - skipping periodic backup job")
		return
	}

	fatalOnError(workerPool.PeriodicallyPerform(serverConfig.Google.Storage.SqliteBackupSchedule, work.JobParams{
		Name:    dbBackupJobName,
		Handler: dbBackupJobName,
		Args:    map[string]interface{}{},
	}))
}

// backupDatabase copies the encrypted sqlite file to the configured
// cloud storage bucket. The file is encrypted at rest, so the blob is
// only as sensitive as the passphrase.
func backupDatabase(googleConfig shared.GoogleConfig, rootDir string) error {
	dbFilePath, err := models.DbFilePath(rootDir)
	if err != nil {
		return fmt.Errorf("backupDatabase: %v", err)
	}

	storageClient, err := gstorage.NewGStorage(googleConfig.ApplicationCredentials)
	if err != nil {
		return fmt.Errorf("backupDatabase: %v", err)
	}

	err = storageClient.UploadFile(
		googleConfig.Storage.Bucket,
		googleConfig.Storage.Prefix,
		dbFilePath,
	)
	if err != nil {
		return fmt.Errorf("backupDatabase: %v", err)
	}

	return nil
}

func sqliteBackupEnabled(serverConfig *shared.ServerConfig) bool {
	enabled, ok := serverConfig.Google.Storage.EnableSqliteBackup.(bool)
	return ok && enabled
}
