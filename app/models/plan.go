package models

import (
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/datatypes"
)

const (
	PlanPeriodMonthly = "monthly"
	PlanPeriodYearly  = "yearly"
)

const (
	PlanTypeUser   = "user"
	PlanTypeAgency = "agency"
)

// FreePlanSlug identifies the designated free plan regardless of its price.
const FreePlanSlug = "free"

// UnlimitedListings is the ads_limit value meaning "no listing cap".
const UnlimitedListings = -1

// Plan is a purchasable tier. AdsLimit gates active listings, Highlighted
// gates featured listings per calendar month.
type Plan struct {
	ID          uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`
	Name        string          `gorm:"type:varchar(100);not null" json:"name" validate:"required,min=2,max=100"`
	Slug        string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"slug" validate:"required,max=100"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"price" validate:"gte=0"`
	Period      string          `gorm:"type:varchar(10);not null;default:'monthly'" json:"period" validate:"oneof=monthly yearly"`
	Features    datatypes.JSON  `json:"features"`
	AdsLimit    int             `gorm:"not null;default:1" json:"ads_limit" validate:"gte=-1"`
	Highlighted int             `gorm:"not null;default:0" json:"highlighted" validate:"gte=0"`
	Featured    bool            `gorm:"not null;default:false" json:"featured"`
	Type        string          `gorm:"type:varchar(10);not null;default:'user'" json:"type" validate:"oneof=user agency"`
	IsActive    bool            `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

var planValidator = newPlanValidator()

func newPlanValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

func (p *Plan) Validate() error {
	return planValidator.Struct(p)
}

// IsFree reports whether activating the plan needs no payment agreement.
func (p *Plan) IsFree() bool {
	return p.Slug == FreePlanSlug || p.Price.IsZero()
}

// IsYearly reports whether the plan bills on a yearly cadence.
func (p *Plan) IsYearly() bool {
	return p.Period == PlanPeriodYearly
}

// HasUnlimitedListings reports whether the plan lifts the listing cap.
func (p *Plan) HasUnlimitedListings() bool {
	return p.AdsLimit == UnlimitedListings
}

// DurationDays is the nominal length of one billing period.
func (p *Plan) DurationDays() int {
	if p.IsYearly() {
		return 365
	}
	return 30
}

var (
	slugInvalidChars = regexp.MustCompile(`[^\w\s-]`)
	slugSpaces       = regexp.MustCompile(`\s+`)
	slugDashes       = regexp.MustCompile(`-+`)
)

// Slugify turns a plan name into a URL slug: lower case, accents removed,
// punctuation dropped, whitespace collapsed into single hyphens.
func Slugify(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, strings.ToLower(text))
	if err != nil {
		s = strings.ToLower(text)
	}
	s = slugInvalidChars.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(strings.TrimSpace(s), "-")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
