package domain

// Size represents a garment size
type Size string

const (
	SizeXS  Size = "XS"
	SizeS   Size = "S"
	SizeM   Size = "M"
	SizeL   Size = "L"
	SizeXL  Size = "XL"
	SizeXXL Size = "XXL"
)

// IsValid checks if the size is one of the allowed values
func (s Size) IsValid() bool {
	switch s {
	case SizeXS, SizeS, SizeM, SizeL, SizeXL, SizeXXL:
		return true
	default:
		return false
	}
}

// PaymentMethod represents how an order is paid
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "Cash"
	PaymentMethodCard   PaymentMethod = "Card"
	PaymentMethodPayPal PaymentMethod = "PayPal"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodPayPal:
		return true
	default:
		return false
	}
}

// PaymentStatus represents the payment state of an order
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "Pending"
	PaymentStatusPaid     PaymentStatus = "Paid"
	PaymentStatusFailed   PaymentStatus = "Failed"
	PaymentStatusRefunded PaymentStatus = "Refunded"
)

// IsValid checks if the payment status is valid
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a payment status transition is valid
func (s PaymentStatus) CanTransitionTo(newStatus PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return newStatus == PaymentStatusPaid || newStatus == PaymentStatusFailed
	case PaymentStatusPaid:
		return newStatus == PaymentStatusRefunded
	case PaymentStatusFailed:
		return newStatus == PaymentStatusPending
	case PaymentStatusRefunded:
		return false // Terminal state
	default:
		return false
	}
}

// DeliveryStatus represents the fulfillment state of an order
type DeliveryStatus string

const (
	DeliveryStatusProcessing DeliveryStatus = "Processing"
	DeliveryStatusShipped    DeliveryStatus = "Shipped"
	DeliveryStatusDelivered  DeliveryStatus = "Delivered"
	DeliveryStatusCancelled  DeliveryStatus = "Cancelled"
)

// IsValid checks if the delivery status is valid
func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryStatusProcessing, DeliveryStatusShipped, DeliveryStatusDelivered, DeliveryStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a delivery status transition is valid
func (s DeliveryStatus) CanTransitionTo(newStatus DeliveryStatus) bool {
	switch s {
	case DeliveryStatusProcessing:
		return newStatus == DeliveryStatusShipped || newStatus == DeliveryStatusCancelled
	case DeliveryStatusShipped:
		return newStatus == DeliveryStatusDelivered
	case DeliveryStatusDelivered, DeliveryStatusCancelled:
		return false // Terminal states
	default:
		return false
	}
}

// Role represents a user role
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// IsValid checks if the role is valid
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}
