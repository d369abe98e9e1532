// Package integration defines the domain layer for remote e-commerce store
// synchronization: the store/platform configuration model, the per-session
// result aggregates, and the port interface every platform adapter
// implements. Concrete adapters live in internal/infrastructure/ecommerce.
package integration
