package types

// Log actions shared across packages. Request-scoped actions are named inline.
const (
	ActionRabbitMQConnected       = "rabbitmq_connected"
	ActionRabbitConnectionClosed  = "rabbitmq_connection_closed"
	ActionRabbitConnectionClosing = "rabbitmq_connection_closing"
	ActionRabbitReconnected       = "rabbitmq_reconnection_success"
	ActionEventConsumeFailed      = "rabbitmq_event_consume_failed"

	ActionEventPublishFailed = "event_publish_failed"
	ActionSettingsReload     = "settings_reload"
	ActionAutoAssign         = "order_auto_assign"
	ActionMigrate            = "database_migrate"
)
