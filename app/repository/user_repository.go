package repository

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plclassificados/marketplace/app/models"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *userRepository) first(query string, args ...any) (*models.User, error) {
	user := new(models.User)
	if err := r.db.Where(query, args...).First(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) GetByID(id uuid.UUID) (*models.User, error) {
	return r.first("id = ?", id)
}

func (r *userRepository) GetByIDWithPlan(id uuid.UUID) (*models.User, error) {
	user := new(models.User)
	if err := r.db.Preload("Plan").Where("id = ?", id).First(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// GetByEmail matches the normalised address that BeforeCreate stores.
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	return r.first("email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

func (r *userRepository) count(scope func(*gorm.DB) *gorm.DB) (int64, error) {
	var n int64
	err := r.db.Model(&models.User{}).Scopes(scope).Count(&n).Error
	return n, err
}

func (r *userRepository) Count() (int64, error) {
	return r.count(func(db *gorm.DB) *gorm.DB { return db })
}

// CountByPlanID counts users whose effective plan is planID.
func (r *userRepository) CountByPlanID(planID uuid.UUID) (int64, error) {
	return r.count(func(db *gorm.DB) *gorm.DB { return db.Where("plan_id = ?", planID) })
}
