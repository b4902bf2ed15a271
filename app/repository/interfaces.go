package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/gitwatch-app/gitwatch/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByTelegramID(telegramID int64) (*models.User, error)
	LinkGitHubAccount(telegramID int64, githubUsername, githubToken string) error
	Update(user *models.User) error
	Delete(id uint) error
	Count() (int64, error)
}

// WatchedRepoRepository defines the interface for watch subscriptions.
// FindActiveByRepo is the resolver consumed by the webhook fan-out: it
// returns every active watch for (owner, repo) with the user preloaded.
// An empty slice is a normal outcome, not an error.
type WatchedRepoRepository interface {
	Create(watch *models.WatchedRepo) error
	GetByID(id uint) (*models.WatchedRepo, error)
	GetByUserID(userID uint) ([]models.WatchedRepo, error)
	FindActiveByRepo(owner, repo string) ([]models.WatchedRepo, error)
	Update(watch *models.WatchedRepo) error
	Delete(id uint) error
	ResetLastPolled(userID uint, owner, repo string, to time.Time) (int64, error)
	Count() (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User        UserRepository
	WatchedRepo WatchedRepoRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:        NewUserRepository(db),
		WatchedRepo: NewWatchedRepoRepository(db),
	}
}
