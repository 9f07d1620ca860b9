package model

// Status es el estado de preparación/entrega de una orden.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusReceived  Status = "received"
	StatusCancelled Status = "cancelled"
	StatusReturned  Status = "returned"
)

// Statuses en el orden del ciclo de vida.
var Statuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
	StatusReceived,
	StatusCancelled,
	StatusReturned,
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
		StatusReceived, StatusCancelled, StatusReturned:
		return true
	}
	return false
}

// Terminal indica que no hay transiciones de salida.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusReturned
}

func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusConfirmed:
		return "Confirmed"
	case StatusPreparing:
		return "Preparing"
	case StatusReady:
		return "Ready for pickup"
	case StatusReceived:
		return "Received"
	case StatusCancelled:
		return "Cancelled"
	case StatusReturned:
		return "Returned"
	default:
		return "Unknown"
	}
}

func (s Status) Icon() Icon {
	switch s {
	case StatusPending:
		return IconClock
	case StatusConfirmed:
		return IconCheck
	case StatusPreparing:
		return IconPackage
	case StatusReady:
		return IconTruck
	case StatusReceived:
		return IconCheckCircle
	case StatusCancelled:
		return IconXCircle
	case StatusReturned:
		return IconRotate
	default:
		return IconHelp
	}
}

// PaymentStatus no depende de Status.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

func (p PaymentStatus) Valid() bool {
	return p == PaymentUnpaid || p == PaymentPaid
}

func (p PaymentStatus) Label() string {
	switch p {
	case PaymentUnpaid:
		return "Unpaid"
	case PaymentPaid:
		return "Paid"
	default:
		return "Unknown"
	}
}

func (p PaymentStatus) Icon() Icon {
	switch p {
	case PaymentUnpaid:
		return IconWallet
	case PaymentPaid:
		return IconCreditCard
	default:
		return IconHelp
	}
}

// Icon es un nombre de ícono conocido por la consola.
type Icon string

const (
	IconClock       Icon = "clock"
	IconCheck       Icon = "check"
	IconPackage     Icon = "package"
	IconTruck       Icon = "truck"
	IconCheckCircle Icon = "check-circle"
	IconXCircle     Icon = "x-circle"
	IconRotate      Icon = "rotate-ccw"
	IconWallet      Icon = "wallet"
	IconCreditCard  Icon = "credit-card"
	IconHelp        Icon = "help-circle"
)
