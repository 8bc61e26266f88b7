// Package postgres implements the storage record repositories on PostgreSQL
// using bun.
//
// Documents and query history reference their collection with ON DELETE
// CASCADE, so deleting a collection removes everything it owns.
package postgres
