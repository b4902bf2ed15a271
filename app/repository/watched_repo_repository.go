package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/gitwatch-app/gitwatch/app/models"
)

// watchedRepoRepository implements the WatchedRepoRepository interface
type watchedRepoRepository struct {
	db *gorm.DB
}

// NewWatchedRepoRepository creates a new watched repo repository instance
func NewWatchedRepoRepository(db *gorm.DB) WatchedRepoRepository {
	return &watchedRepoRepository{db: db}
}

// Create creates a new watch subscription
func (r *watchedRepoRepository) Create(watch *models.WatchedRepo) error {
	return r.db.Create(watch).Error
}

// GetByID retrieves a watch by its ID
func (r *watchedRepoRepository) GetByID(id uint) (*models.WatchedRepo, error) {
	var watch models.WatchedRepo
	err := r.db.Preload("User").First(&watch, id).Error
	if err != nil {
		return nil, err
	}
	return &watch, nil
}

// GetByUserID retrieves all watches belonging to a user
func (r *watchedRepoRepository) GetByUserID(userID uint) ([]models.WatchedRepo, error) {
	var watches []models.WatchedRepo
	err := r.db.Where("user_id = ?", userID).Find(&watches).Error
	return watches, err
}

// FindActiveByRepo returns every active watch for the given repository
// with the owning user preloaded. Matching is case-sensitive: owner and
// repo columns use a binary collation, so the query compares the strings
// exactly as GitHub delivered them.
func (r *watchedRepoRepository) FindActiveByRepo(owner, repo string) ([]models.WatchedRepo, error) {
	var watches []models.WatchedRepo
	err := r.db.Preload("User").
		Where("owner = ? AND repo = ? AND active = ?", owner, repo, true).
		Find(&watches).Error
	return watches, err
}

// Update updates an existing watch
func (r *watchedRepoRepository) Update(watch *models.WatchedRepo) error {
	return r.db.Save(watch).Error
}

// Delete removes a watch by ID
func (r *watchedRepoRepository) Delete(id uint) error {
	return r.db.Delete(&models.WatchedRepo{}, id).Error
}

// ResetLastPolled rewinds the polling cursor for a user's watch and
// returns the number of affected rows.
func (r *watchedRepoRepository) ResetLastPolled(userID uint, owner, repo string, to time.Time) (int64, error) {
	res := r.db.Model(&models.WatchedRepo{}).
		Where("user_id = ? AND owner = ? AND repo = ?", userID, owner, repo).
		Update("last_polled_at", to)
	return res.RowsAffected, res.Error
}

// Count returns the total number of watches
func (r *watchedRepoRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.WatchedRepo{}).Count(&count).Error
	return count, err
}
