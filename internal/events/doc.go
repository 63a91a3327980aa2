// Package events decouples producers of domain events (the review and item
// services, the reminder alarm) from their consumers (the alarm rescheduler,
// the background task factory).
package events
