// Package server provides the HTTP server for the HaloLight console.
//
// This package is internal to HaloLight and handles all HTTP concerns:
//
//   - Dashboard serving: the embedded console page at "/" and every console location
//   - JSON API under "/api": sign-in, the mock API content, and the
//     theme, tab, settings, layout and shell stores
//   - Push streams: Server-Sent Events at "/api/stream" and a WebSocket at
//     "/api/ws", both carrying store changes and live notifications
//   - Operations: "/health" and Prometheus metrics at "/metrics"
//
// Every JSON response uses the {code, message, data} envelope; data is null
// on failure. Protected routes take the session token as a bearer token or,
// for stream clients, as the access_token query parameter.
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// Users of the halolight library should not need to interact with this
// package directly. The server is started automatically by [halolight.Console.Start].
package server
