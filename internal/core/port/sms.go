package port

import "context"

// SMSDispatcher delivers a short text message to a phone number.
// Implementations classify failures via sms.DispatchError so callers can
// distinguish transient gateway trouble from permanently bad numbers.
type SMSDispatcher interface {
	Send(ctx context.Context, phone, message string) error
}
