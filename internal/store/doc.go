// Package store defines the persistence interfaces and shared error types
// used by the content engine. Implementations live in platform/postgres.
package store
