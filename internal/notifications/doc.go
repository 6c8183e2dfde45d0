// Package notifications pushes campaign events to the operator through ntfy.
//
// Events map to a title, a message and tags. Event families can be switched
// off in the [notifications] config section; a missing topic yields a no-op
// Service so callers never need to check.
package notifications
