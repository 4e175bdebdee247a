package store

import (
	"accountability.app/coachflow/core/db/sqlc"
)

type Stores struct {
	queries *sqlc.Queries
}

func NewStores(queries *sqlc.Queries) *Stores {
	return &Stores{queries: queries}
}

func (s *Stores) Sessions() SessionStore {
	return newSessionStore(s.queries)
}
