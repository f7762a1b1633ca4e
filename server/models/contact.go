package models

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// BirthdayWindowDays is the inclusive number of days ahead of 'today'
// a birthday may fall to count as upcoming.
const BirthdayWindowDays = 7

type Contact struct {
	BaseModel
	FirstName       string `json:"first_name" validate:"required,max=50"`
	LastName        string `json:"last_name" validate:"required,max=50"`
	Email           string `json:"email" validate:"required,email,max=50"`
	MobileNumber    string `json:"mobile_number" validate:"required,max=50"`
	DateOfBirth     Date   `json:"date_of_birth" validate:"required"`
	AdditionalNotes string `json:"additional_notes,omitempty" validate:"max=500"`
	UserID          uint   `json:"user_id" gorm:"not null;index"`
}

// ContactFilter narrows FindContact lookups. Empty fields are ignored;
// supplied ones must all match via case-insensitive substring.
type ContactFilter struct {
	FirstName string
	LastName  string
	Email     string
}

// ListContacts returns the contacts owned by 'ownerID' ordered by id,
// skipping 'skip' records & returning at most 'limit'.
func (ds *Datastore) ListContacts(ownerID uint, skip, limit int) ([]Contact, error) {
	contacts := []Contact{}

	err := ds.db.Scopes(offsetLimit(skip, limit)).
		Order("id").Find(&contacts, "user_id = ?", ownerID).Error
	if err != nil {
		return nil, errors.Wrap(err, "ListContacts")
	}

	return contacts, nil
}

// FindContact returns the first contact owned by 'ownerID' matching every
// supplied filter, or gorm.ErrRecordNotFound when none does.
func (ds *Datastore) FindContact(ownerID uint, filter ContactFilter) (*Contact, error) {
	contact := Contact{}

	query := ds.db.Where("user_id = ?", ownerID)
	if filter.FirstName != "" {
		query = query.Where("LOWER(first_name) LIKE ?", substringPattern(filter.FirstName))
	}
	if filter.LastName != "" {
		query = query.Where("LOWER(last_name) LIKE ?", substringPattern(filter.LastName))
	}
	if filter.Email != "" {
		query = query.Where("LOWER(email) LIKE ?", substringPattern(filter.Email))
	}

	err := query.First(&contact).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "FindContact")
	}

	return &contact, nil
}

// CreateContact persists a new contact for 'ownerID'. Any caller-supplied
// owner on the record is overridden.
func (ds *Datastore) CreateContact(contact *Contact, ownerID uint) error {
	contact.UserID = ownerID

	if err := ds.db.Create(contact).Error; err != nil {
		return errors.Wrap(err, "CreateContact")
	}

	return nil
}

// UpdateContact overwrites every mutable field of the contact identified by
// '(contactID, ownerID)' with the supplied values - full replacement, so
// zero values are written too. Returns gorm.ErrRecordNotFound when the pair
// doesn't match a record.
func (ds *Datastore) UpdateContact(contactID, ownerID uint, fields *Contact) (*Contact, error) {
	contact := Contact{}

	err := ds.db.First(&contact, "id = ? AND user_id = ?", contactID, ownerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "UpdateContact")
	}

	err = ds.db.Model(&contact).Updates(map[string]interface{}{
		"first_name":       fields.FirstName,
		"last_name":        fields.LastName,
		"email":            fields.Email,
		"mobile_number":    fields.MobileNumber,
		"date_of_birth":    fields.DateOfBirth,
		"additional_notes": fields.AdditionalNotes,
	}).Error
	if err != nil {
		return nil, errors.Wrap(err, "UpdateContact")
	}

	if err := ds.db.First(&contact, contact.ID).Error; err != nil {
		return nil, errors.Wrap(err, "UpdateContact")
	}

	return &contact, nil
}

// DeleteContact removes the contact identified by '(contactID, ownerID)' &
// returns its last known state. Returns gorm.ErrRecordNotFound, with no
// side effects, when the pair doesn't match a record.
func (ds *Datastore) DeleteContact(contactID, ownerID uint) (*Contact, error) {
	contact := Contact{}

	err := ds.db.First(&contact, "id = ? AND user_id = ?", contactID, ownerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "DeleteContact")
	}

	if err := ds.db.Delete(&Contact{}, contact.ID).Error; err != nil {
		return nil, errors.Wrap(err, "DeleteContact")
	}

	return &contact, nil
}

// UpcomingBirthdays returns the contacts owned by 'ownerID' whose next
// birthday falls within [today, today+BirthdayWindowDays], both ends
// inclusive. 'today' is injected so callers & tests control the clock.
func (ds *Datastore) UpcomingBirthdays(ownerID uint, today time.Time) ([]Contact, error) {
	contacts := []Contact{}

	err := ds.db.Find(&contacts, "user_id = ?", ownerID).Error
	if err != nil {
		return nil, errors.Wrap(err, "UpcomingBirthdays")
	}

	todayDate := dateOnly(today)
	windowEnd := todayDate.AddDate(0, 0, BirthdayWindowDays)

	upcoming := []Contact{}
	for _, contact := range contacts {
		if birthdayInWindow(contact.DateOfBirth.Time, todayDate, windowEnd) {
			upcoming = append(upcoming, contact)
		}
	}

	return upcoming, nil
}

// BirthdayInYear maps a date of birth onto the given year. A Feb 29
// birthdate clamps to Feb 28 when the target year is not a leap year.
func BirthdayInYear(dateOfBirth time.Time, year int) time.Time {
	month, day := dateOfBirth.Month(), dateOfBirth.Day()
	if month == time.February && day == 29 && !isLeapYear(year) {
		day = 28
	}

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

// birthdayInWindow checks this year's occurrence first; only a birthday
// that has already passed this year rolls forward to next year's date.
func birthdayInWindow(dateOfBirth, today, windowEnd time.Time) bool {
	birthdayThisYear := BirthdayInYear(dateOfBirth, today.Year())
	if !birthdayThisYear.Before(today) && !birthdayThisYear.After(windowEnd) {
		return true
	}

	if birthdayThisYear.Before(today) {
		birthdayNextYear := BirthdayInYear(dateOfBirth, today.Year()+1)
		return !birthdayNextYear.Before(today) && !birthdayNextYear.After(windowEnd)
	}

	return false
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func substringPattern(value string) string {
	return "%" + strings.ToLower(value) + "%"
}
