// Package service holds the account, notebook, curve, query, statistics and
// todo use cases. Each service takes its stores through its constructor and
// runs multi-store writes through store.RunInTransaction.
//
// Review state changes live in the review subpackage.
//
// Expected failures (not found, duplicates, validation) are returned as the
// store or domain sentinel so the API can map them; anything else is wrapped
// in a ServiceError.
package service
