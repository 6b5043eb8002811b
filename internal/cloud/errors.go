package cloud

import "errors"

var (
	// ErrUnknownCommandType indicates a queued command whose type has no
	// replay route. Permanent: no amount of retrying will route it, so the
	// sync engine fails the command immediately. It usually means a device
	// is running a newer build than the gateway.
	ErrUnknownCommandType = errors.New("cloud: unknown command type")

	// ErrInvalidPayload indicates a payload missing a field the route's
	// path requires (for example an order item without order_id).
	// Permanent for the same reason as ErrUnknownCommandType.
	ErrInvalidPayload = errors.New("cloud: invalid command payload")

	// ErrUnreachable indicates the reachability probe failed.
	ErrUnreachable = errors.New("cloud: unreachable")
)

// IsPermanent reports whether a replay error can never succeed on retry.
// The sync engine marks such commands FAILED without spending retry budget.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrUnknownCommandType) || errors.Is(err, ErrInvalidPayload)
}
