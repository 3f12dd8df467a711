package remote

import "fmt"

// ConnectionError reports that the resolved endpoint could not be reached
// at all: infrastructure is unavailable, the computation never ran. It is
// never retried automatically; training and prediction are not assumed safe
// to replay.
type ConnectionError struct {
	Endpoint string
	Op       string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("remote execution service %s unreachable during %s: %v", e.Endpoint, e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// RemoteError reports that the remote engine itself raised during the
// operation, e.g. bad arguments or an unsupported task. The remote message
// is preserved for the caller.
type RemoteError struct {
	Op      string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s failed: %s", e.Op, e.Message)
}
