// Package users resolves session subjects and login identifiers against the
// PostgreSQL users table.
package users
