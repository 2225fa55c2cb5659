// Package db provides embedded seed data for development databases.
package db

import _ "embed"

// SeedUsers holds the demo accounts loaded by seed-db, as a JSON array of
// registration forms.
//
//go:embed seed/users.json
var SeedUsers []byte
