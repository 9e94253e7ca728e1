// Package postgres provides PostgreSQL implementations of the store
// interfaces, plus shared helpers for mapping database errors onto the
// store error taxonomy.
package postgres
