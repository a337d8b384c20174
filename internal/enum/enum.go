package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending    = "PENDING"
	OrderStatusConfirmed  = "CONFIRMED"
	OrderStatusPreparing  = "PREPARING"
	OrderStatusReady      = "READY"
	OrderStatusDelivering = "DELIVERING"
	OrderStatusDelivered  = "DELIVERED"
	OrderStatusCompleted  = "COMPLETED"
	OrderStatusCancelled  = "CANCELLED"
)

// OrderStatusFlow is the forward order of the lifecycle. CANCELLED sits
// outside the chain.
var OrderStatusFlow = []string{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusDelivering,
	OrderStatusDelivered,
	OrderStatusCompleted,
}

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
)

const (
	PrintJobStatusPending    = "PENDING"
	PrintJobStatusProcessing = "PROCESSING"
	PrintJobStatusCompleted  = "COMPLETED"
	PrintJobStatusFailed     = "FAILED"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	AdminRoleOwner   = "OWNER"
	AdminRoleManager = "MANAGER"
	AdminRoleStaff   = "STAFF"
)

const (
	DeliveryTypeDelivery = "DELIVERY"
	DeliveryTypePickup   = "PICKUP"
)

const (
	PaymentMethodCard         = "CARD"
	PaymentMethodVerkkomaksu  = "VERKKOMAKSU"
	PaymentMethodLounasseteli = "LOUNASSETELI"
	PaymentMethodEpassi       = "EPASSI"
	PaymentMethodCash         = "CASH"
)

const (
	CustomizationAdd    = "ADD"
	CustomizationRemove = "REMOVE"
	CustomizationExtra  = "EXTRA"
)

// ── Group B: Token subjects (no DB constraint) ──

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

func IsOrderStatus(s string) bool {
	return s == OrderStatusCancelled || StatusRank(s) >= 0
}

// StatusRank returns the position of s in OrderStatusFlow, or -1.
func StatusRank(s string) int {
	for i, st := range OrderStatusFlow {
		if st == s {
			return i
		}
	}
	return -1
}

// IsTerminalOrderStatus reports whether no further transition is allowed.
func IsTerminalOrderStatus(s string) bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

func IsPaymentMethod(s string) bool {
	switch s {
	case PaymentMethodCard, PaymentMethodVerkkomaksu, PaymentMethodLounasseteli,
		PaymentMethodEpassi, PaymentMethodCash:
		return true
	}
	return false
}

func IsDeliveryType(s string) bool {
	return s == DeliveryTypeDelivery || s == DeliveryTypePickup
}

func IsCustomizationAction(s string) bool {
	switch s {
	case CustomizationAdd, CustomizationRemove, CustomizationExtra:
		return true
	}
	return false
}

func IsAdminRole(s string) bool {
	switch s {
	case AdminRoleOwner, AdminRoleManager, AdminRoleStaff:
		return true
	}
	return false
}
