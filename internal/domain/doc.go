// Package domain contains the core entities of the memorization service:
// users, notebooks, review curves, memory items, review logs and todo tasks.
// Entities validate themselves and know nothing about storage or transport.
package domain
