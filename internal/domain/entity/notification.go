package entity

// Notification is a push notification that failed delivery and was handed
// over for retrying. It is immutable once constructed by the caller.
type Notification struct {
	ID            string
	Tokens        []string
	Title         string
	Body          string
	Data          map[string]string
	FailureReason string
	Options       *DeliveryOptions
}

// DeliveryOptions carries optional gateway hints for a notification.
type DeliveryOptions struct {
	Priority    string
	TTLSeconds  int
	CollapseKey string
}

// DeliveryResult is the outcome of a single delivery attempt against the
// push gateway.
type DeliveryResult struct {
	Success bool
	Errors  []string
}
