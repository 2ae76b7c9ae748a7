package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MaxCouponCodeLength  = 64
	MaxRequesterIDLength = 64
)

type Coupon struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Code            string    `gorm:"type:varchar(64);uniqueIndex:idx_coupons_code;not null" json:"code"`
	DiscountPercent int       `gorm:"not null;check:chk_coupons_discount_percent,discount_percent >= 0 AND discount_percent <= 100" json:"discount_percent"`
	Capacity        int       `gorm:"not null;check:chk_coupons_capacity,capacity >= 1" json:"capacity"`
	Remaining       int       `gorm:"not null;check:chk_coupons_remaining,remaining >= 0 AND remaining <= capacity" json:"remaining"`
	CourseID        *string   `gorm:"type:varchar(64);index" json:"course_id,omitempty"`
	BundleID        *string   `gorm:"type:varchar(64);index" json:"bundle_id,omitempty"`
	CreatedBy       *string   `gorm:"type:varchar(64)" json:"created_by,omitempty"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// NormalizeCouponCode trims and upper-cases a code. Stored codes are always normalized,
// which is what makes the unique index case-insensitive. Folding is per rune, so a
// multi-rune folding such as "ß" to "SS" does not match.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (c *Coupon) IsScoped() bool {
	return c.CourseID != nil || c.BundleID != nil
}

func (c *Coupon) IsExhausted() bool {
	return c.Remaining <= 0
}

// MatchesScope reports whether the purchase described by rc may use this coupon.
func (c *Coupon) MatchesScope(rc RedemptionContext) bool {
	if !c.IsScoped() {
		return true
	}
	switch {
	case c.CourseID != nil:
		return rc.CourseID != nil && *rc.CourseID == *c.CourseID
	case c.BundleID != nil:
		return rc.BundleID != nil && *rc.BundleID == *c.BundleID
	}
	return false
}

// PricePreview applies the coupon's percentage to price. The final price never drops below zero.
func (c *Coupon) PricePreview(price decimal.Decimal) (discount decimal.Decimal, final decimal.Decimal) {
	discount = price.Mul(decimal.NewFromInt(int64(c.DiscountPercent))).
		Div(decimal.NewFromInt(100)).
		Round(2)
	final = price.Sub(discount)
	if final.LessThan(decimal.Zero) {
		final = decimal.Zero
	}
	return discount, final.Round(2)
}

type CouponCreateRequest struct {
	Code            string  `json:"code" validate:"required,max=64"`
	DiscountPercent *int    `json:"discount_percent" validate:"required,min=0,max=100"`
	Capacity        int     `json:"capacity" validate:"min=1"`
	CourseID        *string `json:"course_id,omitempty" validate:"omitempty,max=64"`
	BundleID        *string `json:"bundle_id,omitempty" validate:"omitempty,max=64"`
}

// CouponCodeRequest is the body of verify and redeem calls.
type CouponCodeRequest struct {
	Code          string           `json:"code" validate:"required,max=64"`
	CourseID      *string          `json:"course_id,omitempty" validate:"omitempty,max=64"`
	BundleID      *string          `json:"bundle_id,omitempty" validate:"omitempty,max=64"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
}

// RedemptionContext carries the purchase a coupon is being applied to and who is applying it.
type RedemptionContext struct {
	CourseID       *string
	BundleID       *string
	RequesterID    string
	IdempotencyKey string
	OriginalPrice  *decimal.Decimal
}

type ValidatedCoupon struct {
	Coupon         *Coupon          `json:"coupon"`
	Valid          bool             `json:"valid"`
	DiscountAmount *decimal.Decimal `json:"discount_amount,omitempty"`
	FinalPrice     *decimal.Decimal `json:"final_price,omitempty"`
}
