package shop

import "time"

// Status tells customers whether the shop takes orders right now.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Shop is a storefront owned by one shop-owner account.
type Shop struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	OwnerID      string    `json:"ownerId"`
	OwnerName    string    `json:"ownerName"`
	OwnerEmail   string    `json:"ownerEmail"`
	Verified     bool      `json:"verified"`
	Status       Status    `json:"status"`
	Phone        string    `json:"phone,omitempty"`
	GpayNumber   string    `json:"gpayNumber,omitempty"`
	Address      string    `json:"address,omitempty"`
	OpeningHours string    `json:"openingHours,omitempty"`
	Location     *Location `json:"location,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Location is an optional map pin.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ListFilter narrows List. The zero value lists verified shops only.
type ListFilter struct {
	IncludeUnverified bool
	Category          string
}

func (f ListFilter) match(s *Shop) bool {
	if !f.IncludeUnverified && !s.Verified {
		return false
	}
	if f.Category != "" && s.Category != f.Category {
		return false
	}
	return true
}

// UpdateShopRequest holds the owner-editable fields. Nil leaves a field as is.
type UpdateShopRequest struct {
	Name         *string   `json:"name,omitempty"`
	Category     *string   `json:"category,omitempty"`
	Phone        *string   `json:"phone,omitempty"`
	GpayNumber   *string   `json:"gpayNumber,omitempty"`
	Address      *string   `json:"address,omitempty"`
	OpeningHours *string   `json:"openingHours,omitempty"`
	Location     *Location `json:"location,omitempty"`
}

// SetStatusRequest is the payload for toggling online/offline.
type SetStatusRequest struct {
	Status string `json:"status"`
}
