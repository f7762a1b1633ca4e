package models

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	sqliteEncrypt "github.com/Daskott/gorm-sqlite-cipher"
	"github.com/avelychko/rolodex/server/logger"
	"github.com/avelychko/rolodex/utils"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const DB_NAME = "rolodex.db"

var logg = logger.NewLogger()

// Datastore wraps the gorm connection, so every query is made through
// an explicit handle instead of a package global. One instance is created
// on boot & handed to the http layer, the worker pool & the reminder
// scheduler.
type Datastore struct {
	db *gorm.DB
}

// NewDatastore opens(or creates) the encrypted sqlite database under
// 'dbRootDir' using the provided passphrase.
func NewDatastore(passPhrase, dbRootDir string) (*Datastore, error) {
	dsn, err := dbDSN(passPhrase, dbRootDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to set sqlite DSN")
	}

	db, err := gorm.Open(sqliteEncrypt.Open(dsn), &gorm.Config{
		Logger: gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				LogLevel:                  gormLogger.Silent,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	return &Datastore{db: db}, nil
}

// AutoMigrate migrates the db schema & inserts seed data
func (ds *Datastore) AutoMigrate() error {
	err := ds.db.AutoMigrate(&JobStatus{}, &Job{}, &Contact{}, &User{})
	if err != nil {
		return err
	}

	ds.populateWithSeedData()

	return nil
}

// InitializeTestDb creates a throw-away datastore for tests.
func InitializeTestDb() *Datastore {
	dir, err := os.MkdirTemp("", "rolodex-test-*")
	if err != nil {
		logg.Panic(err)
	}

	ds, err := NewDatastore("test-passphrase", dir)
	if err != nil {
		logg.Panic(err)
	}

	if err := ds.AutoMigrate(); err != nil {
		logg.Panic(err)
	}

	return ds
}

// DbFilePath returns the path of the sqlite file under 'dbRootDir',
// used by the backup job.
func DbFilePath(dbRootDir string) (string, error) {
	dbDir, err := dbDirectory(dbRootDir)
	if err != nil {
		return "", err
	}

	return filepath.Join(dbDir, DB_NAME), nil
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func (ds *Datastore) populateWithSeedData() {
	if err := ds.db.First(&JobStatus{}).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		logg.Info("Inserting seed data into 'JobStatus'")
		ds.db.Create(&[]JobStatus{
			{Name: ENQUEUED_JOB}, {Name: IN_PROGRESS_JOB},
			{Name: SCHEDULED_JOB}, {Name: SUCCESSFUL_JOB}, {Name: DEAD_JOB},
		})
	}
}

func dbDSN(passPhrase, dbRootDir string) (string, error) {
	dbFilePath, err := DbFilePath(dbRootDir)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"file:%v?_pragma_key=%s&_pragma_cipher_page_size=4096&_journal_mode=WAL",
		dbFilePath,
		passPhrase,
	), nil
}

func dbDirectory(dbRootDir string) (string, error) {
	dbDir := filepath.Join(dbRootDir, "db")

	err := utils.CreateDirIfNotExist(dbDir)
	if err != nil {
		return "", err
	}

	return dbDir, nil
}
