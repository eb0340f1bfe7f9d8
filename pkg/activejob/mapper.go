package activejob

import (
	"fmt"
	"time"

	"github.com/Aleph-Alpha/jobtrace/pkg/messaging"
)

// Mapper turns lifecycle payloads into span attributes.
//
// Start is used when an enqueue or perform begins, Finish when it completes.
type Mapper interface {
	Start(p Payload) (messaging.Attributes, error)
	Finish(p Payload) (messaging.Attributes, error)
}

// AttributeMapper is the default Mapper. It keeps no state between calls.
type AttributeMapper struct {
	now func() time.Time
}

// MapperOption configures an AttributeMapper.
type MapperOption func(*AttributeMapper)

// WithClock replaces time.Now for latency computation.
func WithClock(now func() time.Time) MapperOption {
	return func(m *AttributeMapper) { m.now = now }
}

// NewAttributeMapper returns a mapper using the wall clock.
func NewAttributeMapper(opts ...MapperOption) *AttributeMapper {
	m := &AttributeMapper{now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Call maps the job in p to messaging attributes:
//
//   - code.namespace, messaging.system, messaging.destination,
//     messaging.message.id, messaging.active_job.adapter.name
//   - latency in milliseconds when the job exposes EnqueuedAt
//   - provider job id and priority, stringified, when set
//
// Empty values are left out rather than stored.
func (m *AttributeMapper) Call(p Payload) (messaging.Attributes, error) {
	job, err := p.Job()
	if err != nil {
		return nil, err
	}

	attrs := messaging.Attributes{}
	attrs.PutString(messaging.CodeNamespace, job.ClassName)
	attrs.PutString(messaging.System, messaging.SystemActiveJob)
	attrs.PutString(messaging.Destination, job.QueueName)
	attrs.PutString(messaging.MessageID, job.JobID)
	attrs.PutString(messaging.ActiveJobAdapter, job.AdapterName)

	if !job.EnqueuedAt.IsZero() {
		attrs.Put(messaging.MessageLatency, latencyMillis(m.now(), job.EnqueuedAt))
	}

	// Not every backend hands back an id of its own.
	if job.ProviderJobID != nil {
		attrs.Put(messaging.ActiveJobProviderJobID, fmt.Sprint(job.ProviderJobID))
	}
	if job.Priority != nil {
		attrs.Put(messaging.ActiveJobPriority, fmt.Sprint(job.Priority))
	}

	return attrs, nil
}

// Start is Call.
func (m *AttributeMapper) Start(p Payload) (messaging.Attributes, error) {
	return m.Call(p)
}

// Finish maps the attributes known only once the job ran: the execution count.
func (m *AttributeMapper) Finish(p Payload) (messaging.Attributes, error) {
	job, err := p.Job()
	if err != nil {
		return nil, err
	}

	attrs := messaging.Attributes{}
	attrs.Put(messaging.MessageExecutionCount, job.Executions)
	return attrs, nil
}

func latencyMillis(now, enqueuedAt time.Time) float64 {
	return 1000 * now.Sub(enqueuedAt).Seconds()
}
