package adapter

import "context"

// OperatorNotifier is the port for operational alerts (redemptions, exhausted codes).
// Delivery is best effort; callers never fail a business operation on it.
type OperatorNotifier interface {
	Notify(ctx context.Context, text string) error
}
