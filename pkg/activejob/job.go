package activejob

import "time"

// Job describes the unit of work an event is about. The host adapter fills
// it at its boundary; the instrumentation only reads it.
type Job struct {
	// ClassName is the job's class or type name.
	ClassName string

	QueueName string

	// JobID is the framework-assigned unique id.
	JobID string

	// AdapterName names the queue backend, e.g. "sidekiq" or "async".
	AdapterName string

	// ProviderJobID is the backend's own id. Nil when the backend does not
	// hand one back.
	ProviderJobID any

	// Priority is whatever the application set. Nil when unset. Non-numeric
	// priorities are accepted and stringified as is.
	Priority any

	// EnqueuedAt is zero when the job does not expose an enqueue time.
	EnqueuedAt time.Time

	// Executions is the number of times the job has been performed. Nil
	// when the host does not track it.
	Executions *int
}

// Payload is a lifecycle event payload. The job is stored under PayloadJobKey
// as a Job or *Job; other keys are carried for the host's own subscribers.
type Payload map[string]any

// PayloadJobKey is the payload key holding the Job.
const PayloadJobKey = "job"

// Job fetches the job from the payload.
func (p Payload) Job() (*Job, error) {
	raw, ok := p[PayloadJobKey]
	if !ok {
		return nil, &PayloadError{Key: PayloadJobKey, Err: ErrMissingJob}
	}

	switch j := raw.(type) {
	case *Job:
		if j == nil {
			return nil, &PayloadError{Key: PayloadJobKey, Err: ErrInvalidJob}
		}
		return j, nil
	case Job:
		return &j, nil
	default:
		return nil, &PayloadError{Key: PayloadJobKey, Err: ErrInvalidJob}
	}
}
