package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

const DateFormat = "2006-01-02"

// Date is a calendar day without a time component, serialized as
// "YYYY-MM-DD" & stored in a sqlite 'date' column.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", d.Format(DateFormat))), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	value := strings.Trim(string(data), `"`)
	if value == "" || value == "null" {
		return nil
	}

	parsed, err := time.Parse(DateFormat, value)
	if err != nil {
		return fmt.Errorf("invalid date %q, expected format %v", value, DateFormat)
	}

	d.Time = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

func (d *Date) Scan(value interface{}) error {
	switch v := value.(type) {
	case time.Time:
		d.Time = time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("unable to scan %T into Date", value)
	}
}

func (Date) GormDataType() string {
	return "date"
}

func (d *Date) scanString(value string) error {
	for _, layout := range []string{DateFormat, time.RFC3339, "2006-01-02 15:04:05-07:00", "2006-01-02 15:04:05"} {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			d.Time = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
			return nil
		}
	}

	return fmt.Errorf("unable to parse %q as Date", value)
}
