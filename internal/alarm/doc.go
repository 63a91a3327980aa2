// Package alarm keeps a single timer armed for the earliest upcoming review
// across all users. Whenever review state changes the timer is re-derived
// from the database, so at most one timer exists at any moment. When it
// fires, every user with due items gets a review reminder event.
package alarm
