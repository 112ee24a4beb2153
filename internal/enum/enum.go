package enum

// ── Group A: State machines ──

const (
	OrderStatusPreparing      = "preparing"
	OrderStatusOutForDelivery = "out-for-delivery"
	OrderStatusDelivered      = "delivered"
)

const (
	OrderTypeSurplus = "surplus"
	OrderTypeMeeting = "meeting"
)

const (
	BookmarkAdd    = "add"
	BookmarkRemove = "remove"
)

// ── Group B: Menu labels (no store constraint) ──

const (
	FilterAll         = "All"
	FilterVeg         = "Veg"
	FilterNonVeg      = "Non-Veg"
	FilterFasting     = "Fasting"
	FilterHighProtein = "High Protein"
	FilterNoAllergens = "No Allergens"
)

const (
	CategoryVeg     = "Veg"
	CategoryNonVeg  = "Non-Veg"
	CategoryFasting = "Fasting"
)

const (
	DeliverySilent = "silent"
	DeliveryNotify = "notify"
)

const FestivalNavratri = "Navratri"

// ── Group C: Notifications ──

const (
	ToastSuccess = "success"
	ToastError   = "error"
	ToastInfo    = "info"
)

// OrderStatusRank orders lifecycle statuses; a status may only move to a higher rank.
func OrderStatusRank(status string) int {
	switch status {
	case OrderStatusPreparing:
		return 1
	case OrderStatusOutForDelivery:
		return 2
	case OrderStatusDelivered:
		return 3
	}
	return 0
}
