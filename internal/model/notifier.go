package model

// Notifier defines a generic interface for delivering a formatted message,
// allowing different delivery channels (e.g., email) to be used interchangeably.
type Notifier interface {
	Send(subject, body string) error
}
