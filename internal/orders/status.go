package orders

import "fmt"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusShipped   Status = "SHIPPED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

var knownStatus = map[Status]bool{
	StatusPending:   true,
	StatusShipped:   true,
	StatusCompleted: true,
	StatusCancelled: true,
}

// ParseStatus validates a status read back from storage.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !knownStatus[st] {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return st, nil
}
