package activejob

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingJob is returned when a payload has no job entry.
	ErrMissingJob = errors.New("payload has no job")

	// ErrInvalidJob is returned when the job entry is not a Job.
	ErrInvalidJob = errors.New("payload job is not a job descriptor")
)

// PayloadError reports which payload key could not be read.
type PayloadError struct {
	Key string
	Err error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("active job payload key %q: %v", e.Key, e.Err)
}

func (e *PayloadError) Unwrap() error {
	return e.Err
}
