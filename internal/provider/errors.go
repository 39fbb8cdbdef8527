package provider

import "fmt"

// SendError is an outbound send failure, carrying provider error detail
// when the provider supplied any. It aborts the remaining reply batch.
type SendError struct {
	StatusCode int
	Message    string
	Detail     string
}

func (e *SendError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}
