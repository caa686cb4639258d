package extract

import (
	"errors"
	"fmt"
)

// ErrInvalidURL marks an unparseable video URL. It is never retried.
var ErrInvalidURL = errors.New("not a valid YouTube video URL")

// SourceError reports a single-source failure. One source failing is not
// fatal to an extraction as long as the other succeeds.
type SourceError struct {
	Source  string // models.SourceDirect or models.SourceAPI
	Timeout bool
	Err     error
}

func (e *SourceError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s extraction timed out: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s extraction failed: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// BothSourcesFailedError is the terminal failure of a single extraction:
// neither the direct path nor the API produced a record.
type BothSourcesFailedError struct {
	DirectErr error
	APIErr    error
}

func (e *BothSourcesFailedError) Error() string {
	return fmt.Sprintf("all extraction sources failed (direct: %v; api: %v)", e.DirectErr, e.APIErr)
}
