package constant

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	TriggerStatePrefix = "trigger_state"
	DefaultTriggerID   = "default"

	// Subject suffix appended to nats.subject_prefix for fired trigger items.
	TriggerEventSubject = "trigger.event"
)
