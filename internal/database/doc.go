// Package database provides PostgreSQL connection pool setup (pgxpool) and
// connection string construction from config.
package database
