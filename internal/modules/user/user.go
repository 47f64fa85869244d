package user

import (
	"time"

	"github.com/georgemunganga/prepick-backend/internal/session"
)

// Profile is a signed-up user. Exactly one of Customer or Owner is set,
// matching Role.
type Profile struct {
	ID        string       `json:"id"`
	Role      session.Role `json:"role"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Phone     string       `json:"phone,omitempty"`
	Customer  *Customer    `json:"customer,omitempty"`
	Owner     *ShopOwner   `json:"shopOwner,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Customer holds the customer-only part of a profile.
type Customer struct {
	Favorites []string `json:"favorites"`
}

// ShopOwner holds the owner-only part of a profile.
type ShopOwner struct {
	Seed ShopSeed `json:"shopSeed"`
}

// ShopSeed is what a shop owner tells us about the shop at sign-up. It is
// used to create the shop document.
type ShopSeed struct {
	ShopName         string `json:"shopName"`
	ShopCategory     string `json:"shopCategory"`
	ShopPhone        string `json:"shopPhone,omitempty"`
	ShopGpayNumber   string `json:"shopGpayNumber,omitempty"`
	ShopAddress      string `json:"shopAddress,omitempty"`
	ShopOpeningHours string `json:"shopOpeningHours,omitempty"`
}

// Record is the stored form of a profile under users/{id}: one flat
// document with a role discriminator, plus credentials.
type Record struct {
	ID           string       `json:"id"`
	Role         session.Role `json:"role"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone,omitempty"`
	PasswordHash string       `json:"passwordHash,omitempty"`
	Provider     string       `json:"provider,omitempty"`

	Favorites []string `json:"favorites,omitempty"`

	ShopName         string `json:"shopName,omitempty"`
	ShopCategory     string `json:"shopCategory,omitempty"`
	ShopPhone        string `json:"shopPhone,omitempty"`
	ShopGpayNumber   string `json:"shopGpayNumber,omitempty"`
	ShopAddress      string `json:"shopAddress,omitempty"`
	ShopOpeningHours string `json:"shopOpeningHours,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Profile converts the record into its tagged form.
func (r *Record) Profile() *Profile {
	p := &Profile{
		ID:        r.ID,
		Role:      r.Role,
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	switch r.Role {
	case session.RoleShop:
		p.Owner = &ShopOwner{Seed: r.Seed()}
	default:
		favs := r.Favorites
		if favs == nil {
			favs = []string{}
		}
		p.Customer = &Customer{Favorites: favs}
	}
	return p
}

// Seed returns the shop fields of an owner record.
func (r *Record) Seed() ShopSeed {
	return ShopSeed{
		ShopName:         r.ShopName,
		ShopCategory:     r.ShopCategory,
		ShopPhone:        r.ShopPhone,
		ShopGpayNumber:   r.ShopGpayNumber,
		ShopAddress:      r.ShopAddress,
		ShopOpeningHours: r.ShopOpeningHours,
	}
}

func (r *Record) setSeed(s ShopSeed) {
	r.ShopName = s.ShopName
	r.ShopCategory = s.ShopCategory
	r.ShopPhone = s.ShopPhone
	r.ShopGpayNumber = s.ShopGpayNumber
	r.ShopAddress = s.ShopAddress
	r.ShopOpeningHours = s.ShopOpeningHours
}

// NewUser is the input to Service.Create.
type NewUser struct {
	// ID is the identity-provider uid when there is one; empty gets a uuid.
	ID           string
	Role         session.Role
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Provider     string
	Seed         *ShopSeed
}

// UpdateProfileRequest carries the editable fields. Nil leaves a field as is.
// Role cannot be changed.
type UpdateProfileRequest struct {
	Name  *string   `json:"name,omitempty"`
	Phone *string   `json:"phone,omitempty"`
	Seed  *ShopSeed `json:"shopSeed,omitempty"`
}
