// Package auth holds the console session: the signed-in user, the session
// token and the list of accounts the operator can switch between.
//
// The session lives in an observable [Store]. Login and registration
// simulate a network round trip with a fixed delay and report success as a
// boolean; they never return errors. The session token and user are
// persisted to local storage and restored at construction.
package auth
