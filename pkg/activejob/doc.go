// Package activejob maps ActiveJob-style lifecycle events to OpenTelemetry
// messaging attributes and, through Subscriber, to spans.
//
// The host framework adapter describes each job with a Job value and passes
// it in a Payload under the "job" key:
//
//	n := 1
//	payload := activejob.Payload{"job": &activejob.Job{
//		ClassName:   "InvoiceMailerJob",
//		QueueName:   "mailers",
//		JobID:       "6b0c...",
//		AdapterName: "sidekiq",
//		EnqueuedAt:  enqueuedAt,
//		Executions:  &n,
//	}}
//
//	attrs, err := activejob.NewAttributeMapper().Start(payload)
//
// Fields the job does not expose (zero EnqueuedAt, nil ProviderJobID, nil
// Priority, nil Executions) produce no attribute at all.
package activejob
