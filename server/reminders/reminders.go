package reminders

import (
	"fmt"
	"strings"
	"time"

	"github.com/avelychko/rolodex/colors"
	"github.com/avelychko/rolodex/server/logger"
	"github.com/avelychko/rolodex/server/models"
	"github.com/avelychko/rolodex/server/work"
)

const (
	ReminderJobName = "birthday_reminders"

	// DefaultSchedule runs the reminder sweep every morning at 09:00
	// in the server's configured time zone.
	DefaultSchedule = "0 9 * * *"
)

var logg = logger.NewLogger()

// Messenger delivers a single text message. Satisfied by the twilio
// client wrapper; faked in tests.
type Messenger interface {
	SendMessage(to, msg string) error
}

// ReminderScheduler periodically sweeps every account for upcoming
// birthdays: contacts whose birthday is today get a greeting text,
// & each owner's 7-day digest is logged.
type ReminderScheduler struct {
	datastore  *models.Datastore
	workerPool *work.WorkerPoolAdapter
	messenger  Messenger
}

func NewReminderScheduler(
	datastore *models.Datastore,
	workerPool *work.WorkerPoolAdapter,
	messenger Messenger,
) (*ReminderScheduler, error) {
	scheduler := &ReminderScheduler{
		datastore:  datastore,
		workerPool: workerPool,
		messenger:  messenger,
	}

	if err := workerPool.Register(ReminderJobName, scheduler.processReminders); err != nil {
		return nil, err
	}

	return scheduler, nil
}

// ScheduleReminders enqueues the reminder sweep on every tick of
// 'cronExpression'.
func (scheduler *ReminderScheduler) ScheduleReminders(cronExpression string) error {
	if strings.TrimSpace(cronExpression) == "" {
		cronExpression = DefaultSchedule
	}

	return scheduler.workerPool.PeriodicallyPerform(cronExpression, work.JobParams{
		Name:    ReminderJobName,
		Handler: ReminderJobName,
		Args:    map[string]interface{}{},
	})
}

func (scheduler *ReminderScheduler) processReminders(map[string]interface{}) error {
	users, err := scheduler.datastore.AllUsers()
	if err != nil {
		return fmt.Errorf("processReminders: %v", err)
	}

	today := time.Now()
	greetingsSent := 0

	for _, user := range users {
		upcoming, err := scheduler.datastore.UpcomingBirthdays(user.ID, today)
		if err != nil {
			return fmt.Errorf("processReminders: %v", err)
		}

		if len(upcoming) == 0 {
			continue
		}

		logg.Info(digestMessage(user.Username, upcoming))

		for _, contact := range upcoming {
			if !birthdayIsToday(contact.DateOfBirth, today) {
				continue
			}

			err := scheduler.messenger.SendMessage(contact.MobileNumber, greetingMessage(contact))
			if err != nil {
				logg.Errorf("processReminders: %v", err)
				continue
			}
			greetingsSent++
		}
	}

	logg.Infof(colors.Cyan("%v birthday greeting(s) sent"), greetingsSent)

	return nil
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func birthdayIsToday(dateOfBirth models.Date, today time.Time) bool {
	birthday := models.BirthdayInYear(dateOfBirth.Time, today.Year())
	return birthday.Month() == today.Month() && birthday.Day() == today.Day()
}

func greetingMessage(contact models.Contact) string {
	return fmt.Sprintf("Happy birthday %v! Wishing you all the best today.", contact.FirstName)
}

func digestMessage(username string, upcoming []models.Contact) string {
	names := make([]string, 0, len(upcoming))
	for _, contact := range upcoming {
		names = append(names, fmt.Sprintf("%v %v (%v)",
			contact.FirstName, contact.LastName, contact.DateOfBirth.Format("Jan 2")))
	}

	return fmt.Sprintf("%v has %v upcoming birthday(s): %v",
		username, len(upcoming), strings.Join(names, ", "))
}
