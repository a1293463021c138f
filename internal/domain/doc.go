// Package domain holds the core types and repository contracts shared by the
// HTTP layer, the application service and the storage adapters.
package domain
