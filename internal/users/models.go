package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

const (
	AvatarMale    = "profile/male_avatar.png"
	AvatarFemale  = "profile/female_avatar.png"
	AvatarDefault = "profile/default_image.jpg"
)

var ErrNotFound = errors.New("user_not_found")

type User struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:254;not null;uniqueIndex" json:"email"`
	FirstName string    `gorm:"size:150" json:"first_name"`
	LastName  string    `gorm:"size:150" json:"last_name"`
	Gender    Gender    `gorm:"size:1;not null;default:M" json:"gender"`
	Phone     *string   `gorm:"size:10;uniqueIndex" json:"phone,omitempty"`
	Image     string    `gorm:"size:255" json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (User) TableName() string { return "users" }

// DefaultAvatar picks the placeholder image for a user without an upload.
func DefaultAvatar(g Gender) string {
	switch g {
	case GenderMale:
		return AvatarMale
	case GenderFemale:
		return AvatarFemale
	default:
		return AvatarDefault
	}
}

func (u User) AvatarPath() string {
	if u.Image != "" {
		return u.Image
	}
	return DefaultAvatar(u.Gender)
}

type Repo struct{ DB *gorm.DB }

func (r *Repo) Get(ctx context.Context, id int64) (*User, error) {
	var u User
	err := r.DB.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &u, nil
}
