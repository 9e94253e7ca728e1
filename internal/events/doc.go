// Package events provides a lightweight in-process event mechanism that
// decouples request-path services from the background task system. Services
// emit TaskRequestEvents; registered handlers turn them into persisted tasks.
package events
