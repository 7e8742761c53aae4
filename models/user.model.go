package models

import (
	"time"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Address represents a postal address snapshot
type Address struct {
	FullName string `bson:"full_name" json:"full_name"`
	Street   string `bson:"street" json:"street"`
	City     string `bson:"city" json:"city"`
	State    string `bson:"state" json:"state"`
	ZipCode  string `bson:"zipcode" json:"zipcode"`
	Country  string `bson:"country" json:"country"`
}

// User is the application-level profile keyed by the auth session uid.
// Aggregates are written at creation and never recomputed automatically.
type User struct {
	ID            string    `bson:"_id" json:"id"`
	Email         string    `bson:"email" json:"email"`
	DisplayName   string    `bson:"display_name" json:"display_name"`
	Role          Role      `bson:"role" json:"role"`
	OrderCount    int       `bson:"order_count" json:"order_count"`
	TotalSpent    float64   `bson:"total_spent" json:"total_spent"`
	EmailVerified bool      `bson:"email_verified" json:"email_verified"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Credential is the auth provider's record; it never leaves the auth package over the wire.
type Credential struct {
	ID           string    `bson:"_id" json:"-"`
	Email        string    `bson:"email" json:"-"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	CreatedAt    time.Time `bson:"created_at" json:"-"`
}
