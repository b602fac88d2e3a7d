package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plclassificados/marketplace/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uuid.UUID) (*models.User, error)
	GetByIDWithPlan(id uuid.UUID) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Count() (int64, error)
	CountByPlanID(planID uuid.UUID) (int64, error)
}

// PlanFilter narrows PlanRepository.List.
type PlanFilter struct {
	Type            string
	IncludeInactive bool
}

// PlanRepository defines the interface for plan operations
type PlanRepository interface {
	Create(plan *models.Plan) error
	GetByID(id uuid.UUID) (*models.Plan, error)
	GetBySlug(slug string) (*models.Plan, error)
	GetByIdentifier(identifier string) (*models.Plan, error)
	List(filter PlanFilter) ([]models.Plan, error)
	Update(plan *models.Plan) error
	Delete(id uuid.UUID) error
	SlugExists(slug string) (bool, error)
	SlugExistsExceptID(slug string, id uuid.UUID) (bool, error)
	UniqueSlug(name string, exceptID *uuid.UUID) (string, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User UserRepository
	Plan PlanRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User: NewUserRepository(db),
		Plan: NewPlanRepository(db),
	}
}
