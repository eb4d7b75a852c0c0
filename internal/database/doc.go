// Package database provides the pgx connection pool for the event
// archive.
package database
