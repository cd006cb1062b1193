package types

type EventType string

func (e EventType) String() string {
	return string(e)
}

const (
	EventOrderCreated       EventType = "ORDER_CREATED"
	EventOrderAssigned      EventType = "ORDER_ASSIGNED"
	EventOrderStatusChanged EventType = "ORDER_STATUS_CHANGED"
	EventOrderCancelled     EventType = "ORDER_CANCELLED"
	EventDriverStatus       EventType = "DRIVER_STATUS_CHANGED"
	EventIssueReported      EventType = "ISSUE_REPORTED"
	EventIssueStatus        EventType = "ISSUE_STATUS_CHANGED"
	EventSettingsUpdated    EventType = "SETTINGS_UPDATED"
)
