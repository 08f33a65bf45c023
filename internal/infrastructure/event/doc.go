// Package event delivers domain events in-process.
//
// Publishing is synchronous: Publish returns after every subscribed handler
// has run. Handler errors and panics are logged and do not reach the
// publisher, so a failing notification can never undo a committed order.
package event
