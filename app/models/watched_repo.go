package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// WatchedRepo is the watch relationship between a user and a GitHub
// repository, with per-event-type opt-in flags. Owner and repo are stored
// verbatim as received; matching is case-sensitive (utf8_bin), which
// mirrors how GitHub delivers them in webhook payloads.
type WatchedRepo struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"index:idx_watch_identity,unique;not null" json:"user_id" validate:"required"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	Owner string `gorm:"index:idx_watch_identity,unique;type:varchar(100) CHARACTER SET utf8 COLLATE utf8_bin" json:"owner" validate:"required,max=100"`
	Repo  string `gorm:"index:idx_watch_identity,unique;type:varchar(150) CHARACTER SET utf8 COLLATE utf8_bin" json:"repo" validate:"required,max=150"`

	Active bool `gorm:"default:true" json:"active"`

	NotifyIssues       bool `gorm:"default:true" json:"notify_issues"`
	NotifyPullRequests bool `gorm:"default:true" json:"notify_pull_requests"`
	NotifyPushes       bool `gorm:"default:false" json:"notify_pushes"`
	NotifyComments     bool `gorm:"default:false" json:"notify_comments"`

	// LastPolledAt marks the polling fallback cursor; webhooks do not
	// advance it, only the poller and the debug reset endpoint touch it.
	LastPolledAt *time.Time `gorm:"type:timestamp;default:null" json:"last_polled_at"`

	NotificationCount uint64 `gorm:"default:0" json:"notification_count"`
	FailureCount      uint64 `gorm:"default:0" json:"failure_count"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (w *WatchedRepo) Validate() error {
	v := validator.New()

	return v.Struct(w)
}

// FullName returns the owner/repo display form
func (w *WatchedRepo) FullName() string {
	return w.Owner + "/" + w.Repo
}
