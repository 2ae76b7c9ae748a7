package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CouponRedemption is one accepted redemption. Rows are append-only and outlive their coupon.
type CouponRedemption struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CouponID        uuid.UUID `gorm:"type:uuid;index;not null" json:"coupon_id"`
	CouponCode      string    `gorm:"type:varchar(64);not null" json:"coupon_code"`
	RequesterID     string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_coupon_redemptions_idempotency,priority:1" json:"requester_id"`
	DiscountPercent int       `gorm:"not null" json:"discount_percent"`
	CourseID        *string   `gorm:"type:varchar(64)" json:"course_id,omitempty"`
	BundleID        *string   `gorm:"type:varchar(64)" json:"bundle_id,omitempty"`
	IdempotencyKey  *string   `gorm:"type:varchar(128);uniqueIndex:idx_coupon_redemptions_idempotency,priority:2" json:"idempotency_key,omitempty"`
	RedeemedAt      time.Time `gorm:"not null" json:"redeemed_at"`
}

// RedeemParams is what the coordinator hands to the store for one atomic redemption.
type RedeemParams struct {
	CouponID   uuid.UUID
	Redemption *CouponRedemption
}

// RedeemResult is the store's answer. Replayed is set when an idempotency key matched
// an earlier redemption and nothing was decremented.
type RedeemResult struct {
	Redemption *CouponRedemption
	Replayed   bool
}

type RedemptionReceipt struct {
	RedemptionID    uuid.UUID        `json:"redemption_id"`
	CouponID        uuid.UUID        `json:"coupon_id"`
	Code            string           `json:"code"`
	DiscountPercent int              `json:"discount_percent"`
	RequesterID     string           `json:"requester_id"`
	RedeemedAt      time.Time        `json:"redeemed_at"`
	Replayed        bool             `json:"replayed"`
	DiscountAmount  *decimal.Decimal `json:"discount_amount,omitempty"`
	FinalPrice      *decimal.Decimal `json:"final_price,omitempty"`
}
