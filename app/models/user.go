package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// User is a Telegram-identified account that may link a GitHub identity
// and watch repositories.
type User struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	TelegramID       int64          `gorm:"uniqueIndex;not null" json:"telegram_id" validate:"required"`
	TelegramUsername string         `gorm:"type:varchar(64);default:null" json:"telegram_username" validate:"max=64"`
	GitHubUsername   string         `gorm:"column:github_username;type:varchar(100);default:null" json:"github_username" validate:"max=100"`
	GitHubToken      string         `gorm:"column:github_token;type:text" json:"-"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	WatchedRepos []WatchedRepo `gorm:"foreignKey:UserID" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// HasLinkedGitHub reports whether the user completed the OAuth flow
func (u *User) HasLinkedGitHub() bool {
	return u.GitHubUsername != "" && u.GitHubToken != ""
}
