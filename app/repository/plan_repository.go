package repository

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plclassificados/marketplace/app/models"
)

// planRepository implements the PlanRepository interface
type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a new plan repository instance
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

// Create creates a new plan
func (r *planRepository) Create(plan *models.Plan) error {
	return r.db.Create(plan).Error
}

// GetByID retrieves a plan by ID
func (r *planRepository) GetByID(id uuid.UUID) (*models.Plan, error) {
	var plan models.Plan
	err := r.db.Where("id = ?", id).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// GetBySlug retrieves a plan by slug
func (r *planRepository) GetBySlug(slug string) (*models.Plan, error) {
	var plan models.Plan
	err := r.db.Where("slug = ?", slug).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// GetByIdentifier accepts either a plan id or a slug
func (r *planRepository) GetByIdentifier(identifier string) (*models.Plan, error) {
	if id, err := uuid.Parse(identifier); err == nil {
		plan, err := r.GetByID(id)
		if err == nil {
			return plan, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}
	return r.GetBySlug(identifier)
}

// List returns plans ordered by price, active ones only unless requested
func (r *planRepository) List(filter PlanFilter) ([]models.Plan, error) {
	plans := []models.Plan{}
	query := r.db.Model(&models.Plan{})
	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	err := query.Order("price ASC").Find(&plans).Error
	return plans, err
}

// Update saves all fields of the plan
func (r *planRepository) Update(plan *models.Plan) error {
	return r.db.Save(plan).Error
}

// Delete removes a plan
func (r *planRepository) Delete(id uuid.UUID) error {
	return r.db.Where("id = ?", id).Delete(&models.Plan{}).Error
}

// SlugExists checks if a slug already exists
func (r *planRepository) SlugExists(slug string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Plan{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// SlugExistsExceptID checks if a slug exists excluding a specific ID
func (r *planRepository) SlugExistsExceptID(slug string, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&models.Plan{}).Where("slug = ? AND id != ?", slug, id).Count(&count).Error
	return count > 0, err
}

// UniqueSlug derives a slug from name and appends -1, -2, ... until it is
// free. exceptID lets a plan keep its own slug on update.
func (r *planRepository) UniqueSlug(name string, exceptID *uuid.UUID) (string, error) {
	base := models.Slugify(name)
	if base == "" {
		return "", fmt.Errorf("cannot derive slug from %q", name)
	}

	slug := base
	for i := 1; ; i++ {
		var taken bool
		var err error
		if exceptID != nil {
			taken, err = r.SlugExistsExceptID(slug, *exceptID)
		} else {
			taken, err = r.SlugExists(slug)
		}
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}
