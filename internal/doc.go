// Package internal documents the Pitchside tournament server internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware, rendering, and routing
// - domain: teams, players, matches, tournaments, users and the shared query grammar
// - storage: database access and repositories (pgx + Postgres)
// - jobs: River background workers for email and tournament status refresh
// - mcp: read-only MCP tools over the domain services
// - auth, audit, config, email, metrics, telemetry: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
