package entity

import (
	"net/http"
	"time"

	"bklreg/lib/validate"
)

// Status is the moderation state of a registration. There are no automatic
// transitions; only an authenticated admin changes it.
type Status string

const (
	StatusRegistered Status = "registered" // assigned at creation
	StatusConfirmed  Status = "confirmed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	return s == StatusRegistered || s == StatusConfirmed || s == StatusCancelled
}

// Registration is one persisted participant record. RegistrationNumber and
// CreatedAt are assigned by the store at first write and never change.
type Registration struct {
	StorageKey         string    `json:"id" bson:"-"`
	Name               string    `json:"name" bson:"name" validate:"required"`
	Age                string    `json:"age" bson:"age" validate:"required,number"`
	Gender             string    `json:"gender" bson:"gender" validate:"required,oneof=male female other"`
	Address            string    `json:"address" bson:"address" validate:"required"`
	Mobile             string    `json:"mobile" bson:"mobile" validate:"required,len=10,numeric"`
	PhoneVerified      bool      `json:"phone_verified" bson:"phone_verified"`
	RegistrationNumber string    `json:"registration_number" bson:"registration_number"`
	Status             Status    `json:"status" bson:"status"`
	CreatedAt          time.Time `json:"created_at" bson:"created_at"`
}

// GiftEligibleCount is how many earliest registrations receive a gift.
const GiftEligibleCount = 100

// RegistrationRow is a Registration with its presentation-only gift rank.
// Rank is the 0-indexed position in the full set ordered by creation time
// descending; it is recomputed on every listing and never stored.
type RegistrationRow struct {
	Registration
	GiftRank     int  `json:"gift_rank"`
	GiftEligible bool `json:"gift_eligible"`
}

// Stats summarizes the full registration set for the admin dashboard.
type Stats struct {
	Total        int `json:"total"`
	GiftEligible int `json:"gift_eligible"`
	Male         int `json:"male"`
	Female       int `json:"female"`
}

// StatusUpdate is the admin request to change one record's status.
type StatusUpdate struct {
	Status Status `json:"status" validate:"required,oneof=registered confirmed cancelled"`
}

func (u *StatusUpdate) Bind(_ *http.Request) error {
	return validate.Struct(u)
}
