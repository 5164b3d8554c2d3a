// Package notify simulates the console's push channel.
//
// A [Source] is a timer-driven generator that, once connected, occasionally
// emits one of a few canned notifications to its listeners. Its connection
// status follows
//
//	disconnected -> connecting -> connected -> disconnected
//
// with connecting -> error when the context passed to [Source.Connect] ends
// before the connect delay elapses.
//
// An [Inbox] is the observable list of notifications the operator has
// received, with read tracking.
package notify
