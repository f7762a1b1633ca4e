package reminders

import (
	"testing"
	"time"

	"github.com/avelychko/rolodex/server/models"
	"github.com/avelychko/rolodex/server/work"
	"github.com/stretchr/testify/assert"
)

type fakeMessenger struct {
	sent []string
}

func (m *fakeMessenger) SendMessage(to, msg string) error {
	m.sent = append(m.sent, msg)
	return nil
}

func TestProcessReminders(t *testing.T) {
	datastore := models.InitializeTestDb()
	workerPool := work.NewWorkerAdapter(datastore, "UTC")
	messenger := &fakeMessenger{}

	scheduler, err := NewReminderScheduler(datastore, workerPool, messenger)
	assert.Nil(t, err)

	owner := &models.User{Username: "harvey", Email: "harvey@example.com", Password: "pearson-hardman"}
	assert.Nil(t, datastore.CreateUser(owner))

	// a contact whose birthday is today gets a greeting text
	today := time.Now()
	birthdayContact := &models.Contact{
		FirstName:    "Mike",
		LastName:     "Ross",
		Email:        "mike@example.com",
		MobileNumber: "+15550001111",
		DateOfBirth:  models.NewDate(today.Year()-30, today.Month(), today.Day()),
	}
	assert.Nil(t, datastore.CreateContact(birthdayContact, owner.ID))

	// a contact whose birthday is months away gets nothing
	farOff := today.AddDate(0, 5, 0)
	assert.Nil(t, datastore.CreateContact(&models.Contact{
		FirstName:    "Donna",
		LastName:     "Paulsen",
		Email:        "donna@example.com",
		MobileNumber: "+15550002222",
		DateOfBirth:  models.NewDate(1985, farOff.Month(), farOff.Day()),
	}, owner.ID))

	assert.Nil(t, scheduler.processReminders(map[string]interface{}{}))

	assert.Len(t, messenger.sent, 1)
	assert.Contains(t, messenger.sent[0], "Mike")
}

func TestNewReminderSchedulerRejectsDuplicateRegistration(t *testing.T) {
	datastore := models.InitializeTestDb()
	workerPool := work.NewWorkerAdapter(datastore, "UTC")

	_, err := NewReminderScheduler(datastore, workerPool, &fakeMessenger{})
	assert.Nil(t, err)

	_, err = NewReminderScheduler(datastore, workerPool, &fakeMessenger{})
	assert.ErrorIs(t, err, work.ErrDuplicateHandler)
}

func TestScheduleReminders(t *testing.T) {
	datastore := models.InitializeTestDb()
	workerPool := work.NewWorkerAdapter(datastore, "UTC")

	scheduler, err := NewReminderScheduler(datastore, workerPool, &fakeMessenger{})
	assert.Nil(t, err)

	// an empty expression falls back to the default daily schedule
	assert.Nil(t, scheduler.ScheduleReminders(""))
}

func TestBirthdayIsToday(t *testing.T) {
	today := time.Date(2024, time.June, 5, 12, 0, 0, 0, time.UTC)

	assert.True(t, birthdayIsToday(models.NewDate(1990, time.June, 5), today))
	assert.False(t, birthdayIsToday(models.NewDate(1990, time.June, 6), today))

	// Feb 29 counts as Feb 28 outside leap years
	assert.True(t, birthdayIsToday(
		models.NewDate(2000, time.February, 29),
		time.Date(2023, time.February, 28, 0, 0, 0, 0, time.UTC)))
}
