// Package database implements the PostgreSQL storage adapters behind the
// domain repository interfaces, plus connection setup and schema migrations.
package database
