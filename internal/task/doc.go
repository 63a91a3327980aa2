// Package task runs background work on a bounded worker pool. Tasks are
// persisted before they are queued so that work interrupted by a restart
// is recovered and retried.
package task
