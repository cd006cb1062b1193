package types

// Enum для статуса заказа
type OrderStatus string

func (s OrderStatus) String() string {
	return string(s)
}

const (
	OrderCreated   OrderStatus = "CREATED"
	OrderAssigned  OrderStatus = "ASSIGNED"
	OrderAccepted  OrderStatus = "ACCEPTED"
	OrderPickedUp  OrderStatus = "PICKED_UP"
	OrderEnRoute   OrderStatus = "EN_ROUTE"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// orderSuccessor is the forward lifecycle. CANCELLED is reachable from every
// non-terminal state and is handled separately.
var orderSuccessor = map[OrderStatus]OrderStatus{
	OrderCreated:  OrderAssigned,
	OrderAssigned: OrderAccepted,
	OrderAccepted: OrderPickedUp,
	OrderPickedUp: OrderEnRoute,
	OrderEnRoute:  OrderDelivered,
}

// ParseOrderStatus returns the status and whether it is one of the known values.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(s)
	return st, st.IsValid()
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderCreated, OrderAssigned, OrderAccepted, OrderPickedUp, OrderEnRoute, OrderDelivered, OrderCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// IsActive reports whether a driver is currently working the order.
func (s OrderStatus) IsActive() bool {
	switch s {
	case OrderAssigned, OrderAccepted, OrderPickedUp, OrderEnRoute:
		return true
	default:
		return false
	}
}

// HasDriver reports whether an order in this status must reference a driver.
func (s OrderStatus) HasDriver() bool {
	return s.IsActive() || s == OrderDelivered
}

// Next returns the immediate forward successor.
func (s OrderStatus) Next() (OrderStatus, bool) {
	next, ok := orderSuccessor[s]
	return next, ok
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == OrderCancelled {
		return true
	}
	succ, ok := orderSuccessor[s]
	return ok && succ == next
}

// ActiveOrderStatuses lists the statuses counted as "in progress".
func ActiveOrderStatuses() []OrderStatus {
	return []OrderStatus{OrderAssigned, OrderAccepted, OrderPickedUp, OrderEnRoute}
}

// Enum для статуса водителя
type DriverStatus string

func (s DriverStatus) String() string {
	return string(s)
}

const (
	DriverOffline DriverStatus = "OFFLINE"
	DriverOnline  DriverStatus = "ONLINE"
	DriverOnJob   DriverStatus = "ON_JOB"
)

func (s DriverStatus) IsValid() bool {
	switch s {
	case DriverOffline, DriverOnline, DriverOnJob:
		return true
	default:
		return false
	}
}

// AllDriverStatuses is used to render complete distributions.
func AllDriverStatuses() []DriverStatus {
	return []DriverStatus{DriverOffline, DriverOnline, DriverOnJob}
}

// Enum для типа проблемы
type IssueType string

func (t IssueType) String() string {
	return string(t)
}

const (
	IssueCustomerNoResponse IssueType = "CUSTOMER_NO_RESPONSE"
	IssueAddressIssue       IssueType = "ADDRESS_ISSUE"
	IssueVehicleIssue       IssueType = "VEHICLE_ISSUE"
	IssueAccident           IssueType = "ACCIDENT"
	IssuePaymentDispute     IssueType = "PAYMENT_DISPUTE"
	IssueOther              IssueType = "OTHER"
)

func (t IssueType) IsValid() bool {
	switch t {
	case IssueCustomerNoResponse, IssueAddressIssue, IssueVehicleIssue, IssueAccident, IssuePaymentDispute, IssueOther:
		return true
	default:
		return false
	}
}

// Enum для статуса проблемы
type IssueStatus string

func (s IssueStatus) String() string {
	return string(s)
}

const (
	IssueOpen     IssueStatus = "OPEN"
	IssueResolved IssueStatus = "RESOLVED"
)

func (s IssueStatus) IsValid() bool {
	return s == IssueOpen || s == IssueResolved
}

// Enum для роли пользователя
type UserRole string

func (r UserRole) String() string {
	return string(r)
}

const (
	RoleManager UserRole = "MANAGER"
	RoleDriver  UserRole = "DRIVER"
)

func (r UserRole) IsValid() bool {
	return r == RoleManager || r == RoleDriver
}
