package enum

// ── Group A: Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash   = "cash"
	PaymentMethodOnline = "online"
)

const (
	DiscountTypePercentage = "PERCENTAGE"
	DiscountTypeFixed      = "FIXED_AMOUNT"
)

const (
	FoodTypeVeg    = "veg"
	FoodTypeNonVeg = "non-veg"
)

// ── Group B: Request vocabularies ──

// Admin actions on an order, as sent to handle-order-action.
const (
	ActionAccept   = "accept"
	ActionReject   = "reject"
	ActionReady    = "ready"
	ActionPickedUp = "pickedup"
	ActionCancel   = "cancel"
)

const (
	DateFilterToday     = "today"
	DateFilterYesterday = "yesterday"
	DateFilterWeek      = "week"
	DateFilterMonth     = "month"
	DateFilterCustom    = "custom"
)

const (
	PaymentFilterAll    = "all"
	PaymentFilterCash   = "cash"
	PaymentFilterOnline = "online"
)

// ── Group C: Notification event types ──

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// IsPaymentMethod reports whether s is an accepted payment method.
func IsPaymentMethod(s string) bool {
	return s == PaymentMethodCash || s == PaymentMethodOnline
}

func IsFoodType(s string) bool {
	return s == FoodTypeVeg || s == FoodTypeNonVeg
}
