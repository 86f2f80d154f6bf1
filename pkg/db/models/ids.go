package models

import "github.com/google/uuid"

// ensureID assigns a v4 id before insert so rows get the same ids on Postgres
// and on the SQLite databases used in tests.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
