// Package postgres opens the PostgreSQL pool and Redis client shared by the
// entitlement store, the assessment repository, and the health checks.
package postgres
