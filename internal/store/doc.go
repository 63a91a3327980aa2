// Package store defines the persistence interfaces used by the services,
// the errors implementations return, and transaction helpers. Concrete
// implementations live in internal/platform/postgres.
package store
