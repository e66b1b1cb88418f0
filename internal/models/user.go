package models

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionTier string

const (
	TierStarter      SubscriptionTier = "starter"
	TierProfessional SubscriptionTier = "professional"
	TierEnterprise   SubscriptionTier = "enterprise"
)

type User struct {
	ID        uuid.UUID        `db:"id"`
	Username  string           `db:"username"`
	Email     string           `db:"email"`
	Password  string           `db:"password"`
	Tier      SubscriptionTier `db:"tier"`
	CreatedAt time.Time        `db:"created_at"`
	UpdatedAt time.Time        `db:"updated_at"`
}
