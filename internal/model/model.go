// Package model defines the records exchanged with the collection store and
// the client-held order records mirrored into the session cache.
package model

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// MenuItem is a dish offered on a menu day. An item with AvailableQty 0 is
// sold out but still listed.
type MenuItem struct {
	ID                    string          `json:"id"`
	DayID                 string          `json:"day_id"`
	Name                  string          `json:"name"`
	Description           string          `json:"description"`
	Category              string          `json:"category"`
	DietTags              []string        `json:"diet_tags"`
	Allergens             []string        `json:"allergens"`
	ProteinTag            *string         `json:"protein_tag"`
	CalorieRange          *string         `json:"calorie_range"`
	Price                 decimal.Decimal `json:"price"`
	AvailableQty          int             `json:"available_qty"`
	ImageURL              string          `json:"image_url"`
	IsDiscoveryItem       bool            `json:"is_discovery_item"`
	IsSurplusCandidate    bool            `json:"is_surplus_candidate"`
	IsActive              bool            `json:"is_active"`
	FastingCompliant      bool            `json:"fasting_compliant"`
	FastingComplianceNote *string         `json:"fasting_compliance_note"`
	CreatedAt             time.Time       `json:"created_at"`
}

// HasDietTag reports whether tag is among the item's diet tags.
func (m MenuItem) HasDietTag(tag string) bool {
	return slices.Contains(m.DietTags, tag)
}

// MenuDay describes one calendar day of the menu. Weekends are never published.
type MenuDay struct {
	ID           string    `json:"id"`
	Date         string    `json:"date"`
	Title        string    `json:"title"`
	Published    bool      `json:"published"`
	CreatedAt    time.Time `json:"created_at"`
	FestivalTag  *string   `json:"festival_tag"`
	FestivalNote *string   `json:"festival_note"`
}

// User is a cafeteria customer.
type User struct {
	ID              string     `json:"id"`
	DisplayName     string     `json:"displayName"`
	Email           string     `json:"email"`
	OfficeStatus    string     `json:"office_status"`
	DietProfile     []string   `json:"diet_profile"`
	Allergies       []string   `json:"allergies"`
	Fasting         bool       `json:"fasting"`
	BookmarkedItems []string   `json:"bookmarked_items"`
	LastNudgeShown  *time.Time `json:"last_nudge_shown"`
	GreenCredits    int        `json:"green_credits"`
	CreatedAt       time.Time  `json:"created_at"`
}

// IsAllergicTo reports whether allergen is in the user's allergy set.
func (u User) IsAllergicTo(allergen string) bool {
	return slices.Contains(u.Allergies, allergen)
}

// HasBookmarked reports whether itemID is bookmarked.
func (u User) HasBookmarked(itemID string) bool {
	return slices.Contains(u.BookmarkedItems, itemID)
}

// Prebook is a reservation for the next day. ItemID is nil for category-only bookings.
type Prebook struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Date         string    `json:"date"`
	ItemID       *string   `json:"item_id"`
	ItemCategory string    `json:"item_category"`
	Quantity     int       `json:"quantity"`
	CreatedAt    time.Time `json:"created_at"`
}

// OrderEntry is a completed purchase or a meeting order as shown in order history.
type OrderEntry struct {
	ID             string          `json:"id"`
	ItemName       string          `json:"itemName"`
	Quantity       int             `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	Date           time.Time       `json:"date"`
	Type           string          `json:"type"`
	MeetingID      string          `json:"meetingId,omitempty"`
	DeliveryOption string          `json:"deliveryOption,omitempty"`
	DeliveryTime   string          `json:"deliveryTime,omitempty"`
	Status         string          `json:"status,omitempty"`
}

// MeetingOrderLine is one item of a meeting order, priced per unit.
type MeetingOrderLine struct {
	ItemID   string          `json:"itemId"`
	ItemName string          `json:"itemName"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// MeetingOrder is a refreshment order for a meeting. Status only advances
// forward; ConfirmedAt is set at most once, after delivery.
type MeetingOrder struct {
	ID             string             `json:"id"`
	MeetingID      string             `json:"meetingId"`
	Items          []MeetingOrderLine `json:"items"`
	TotalPrice     decimal.Decimal    `json:"totalPrice"`
	DeliveryOption string             `json:"deliveryOption"`
	DeliveryTime   string             `json:"deliveryTime,omitempty"`
	Status         string             `json:"status"`
	CreatedAt      time.Time          `json:"createdAt"`
	ConfirmedAt    *time.Time         `json:"confirmedAt,omitempty"`
}

// Meeting is a calendar meeting that refreshments can be ordered for.
type Meeting struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Attendees int       `json:"attendees"`
	Location  string    `json:"location"`
}

// CartLine is a pending meeting-cart entry.
type CartLine struct {
	Item     MenuItem `json:"item"`
	Quantity int      `json:"quantity"`
}
