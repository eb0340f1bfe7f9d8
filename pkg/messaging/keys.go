package messaging

// Span attribute keys. The generic messaging keys follow the OpenTelemetry
// messaging semantic conventions as emitted by the Ruby instrumentations, so
// spans from mixed Go and Ruby workers line up in the same backend queries.
const (
	CodeNamespace = "code.namespace"
	PeerService   = "peer.service"

	System           = "messaging.system"
	Destination      = "messaging.destination"
	DestinationKind  = "messaging.destination_kind"
	Operation        = "messaging.operation"
	MessageIDLegacy  = "messaging.message_id"
	MessageID        = "messaging.message.id"
	SidekiqJobClass  = "messaging.sidekiq.job_class"
	ActiveJobAdapter = "messaging.active_job.adapter.name"

	ActiveJobProviderJobID = "messaging.active_job.message.provider_job_id"
	ActiveJobPriority      = "messaging.active_job.message.priority"

	// Vendor namespace for values with no semantic-convention counterpart.
	MessageLatency        = "com.joyful_programming.messaging.message.latency"
	MessageExecutionCount = "com.joyful_programming.messaging.message.execution_count"
	RetriesCurrent        = "com.joyful_programming.messaging.message.retries.current"
	RetriesMaximum        = "com.joyful_programming.messaging.message.retries.maximum"
	RetriesExhausted      = "com.joyful_programming.messaging.message.retries.exhausted"
	Latency               = "com.joyful_programming.messaging.latency"
)

// Values for System, DestinationKind and Operation.
const (
	SystemSidekiq   = "sidekiq"
	SystemActiveJob = "active_job"

	DestinationKindQueue = "queue"

	OperationProcess = "process"
	OperationPublish = "publish"
)
