// Package api translates HTTP requests into service calls. Handlers decode
// and validate JSON bodies, read the authenticated user from the request
// context, and map service errors to status codes with messages that are
// safe to show clients.
package api
