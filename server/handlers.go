package server

import (
	"database/sql"

	"github.com/appolinair2355/Apdepo/dispatch"
	"github.com/appolinair2355/Apdepo/predictor"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	engine    *predictor.Engine
	queue     *dispatch.Queue
	db        *sql.DB // nil when the audit store is not wired
	channelID int64
}

// NewHandlers creates a new Handlers instance with the given dependencies.
// db may be nil; the DB-backed checks and status fields are then skipped.
func NewHandlers(engine *predictor.Engine, queue *dispatch.Queue, db *sql.DB, channelID int64) *Handlers {
	return &Handlers{
		engine:    engine,
		queue:     queue,
		db:        db,
		channelID: channelID,
	}
}
