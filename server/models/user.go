package models

import (
	"crypto/md5"
	"fmt"
	"strings"

	"github.com/avelychko/rolodex/server/auth"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var allFieldsExceptPassword = []string{
	"id",
	"username",
	"email",
	"avatar",
	"confirmed",
	"created_at",
	"updated_at",
}

type User struct {
	BaseModel
	Username     string    `json:"username" validate:"required,min=5,max=16"`
	Email        string    `json:"email" validate:"required,email" gorm:"not null;unique"`
	Password     string    `json:"password,omitempty" validate:"required,password" gorm:"not null"`
	Avatar       string    `json:"avatar,omitempty"`
	RefreshToken string    `json:"-"`
	Confirmed    bool      `json:"confirmed" gorm:"default:false"`
	Contacts     []Contact `json:"contacts,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// CreateUser persists a new account with a bcrypt password hash & a
// gravatar-derived avatar when none was supplied.
func (ds *Datastore) CreateUser(user *User) error {
	passwordHash, err := auth.HashPassword(user.Password)
	if err != nil {
		return err
	}
	user.Password = passwordHash

	if user.Avatar == "" {
		user.Avatar = gravatarURL(user.Email)
	}

	if err := ds.db.Create(user).Error; err != nil {
		return errors.Wrap(err, "CreateUser")
	}

	return nil
}

func (ds *Datastore) FindUserBy(field string, value interface{}) (*User, error) {
	user := User{}

	err := ds.db.Select(allFieldsExceptPassword).
		First(&user, fmt.Sprintf("%v = ?", field), value).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "FindUserBy")
	}

	return &user, nil
}

func (ds *Datastore) FindUserPassword(email string) (string, error) {
	user := User{}

	err := ds.db.Select("Password").First(&user, "email = ?", email).Error
	if err != nil {
		return "", err
	}

	return user.Password, nil
}

func (ds *Datastore) FindUserRefreshToken(userID uint) (string, error) {
	user := User{}

	err := ds.db.Select("RefreshToken").First(&user, userID).Error
	if err != nil {
		return "", err
	}

	return user.RefreshToken, nil
}

// UpdateRefreshToken stores the refresh token issued to the user; an empty
// token clears the session.
func (ds *Datastore) UpdateRefreshToken(userID uint, refreshToken string) error {
	err := ds.db.Model(&User{}).Where("id = ?", userID).
		Update("refresh_token", refreshToken).Error
	if err != nil {
		return errors.Wrap(err, "UpdateRefreshToken")
	}

	return nil
}

// DeleteUser removes the account; owned contacts cascade with it.
func (ds *Datastore) DeleteUser(id interface{}) error {
	err := ds.db.Select("Contacts").Delete(&User{}, id).Error
	if err != nil {
		return errors.Wrap(err, "DeleteUser")
	}

	return nil
}

// AllUsers returns every account without password material, used by the
// reminder job to fan out per-owner birthday digests.
func (ds *Datastore) AllUsers() ([]User, error) {
	users := []User{}

	err := ds.db.Select(allFieldsExceptPassword).Find(&users).Error
	if err != nil {
		return nil, errors.Wrap(err, "AllUsers")
	}

	return users, nil
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func gravatarURL(email string) string {
	hash := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?d=identicon", hash)
}
