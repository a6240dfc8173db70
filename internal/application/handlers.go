// Package application bundles the command and query handlers behind a single
// constructor so every transport deployment wires them identically. The
// worker binary itself hosts no transport; it owns the write-behind pipeline
// and leaves handler hosting to the deployments that call NewHandlers.
package application

import (
	"github.com/lessonforge/progress-engine/internal/application/command"
	"github.com/lessonforge/progress-engine/internal/application/query"
	"github.com/lessonforge/progress-engine/internal/domain/progress"
	"github.com/lessonforge/progress-engine/internal/domain/shared"
	"github.com/lessonforge/progress-engine/pkg/logger"
)

// Handlers is the application surface: one handler per operation.
type Handlers struct {
	RecordCompletion *command.RecordCompletionHandler
	GetProgress      *query.GetProgressHandler
}

// Deps are the shared dependencies the handlers are built from.
type Deps struct {
	// Structures resolves lessons to subjects and serves parsed content trees.
	Structures command.StructureProvider

	// Ledger is the cache-aside progress accessor.
	Ledger progress.Ledger

	// Enrollment verifies a player may record progress in a subject.
	Enrollment progress.EnrollmentChecker

	// EventPublisher receives domain events; nil disables publishing.
	EventPublisher shared.EventPublisher

	// Logger is optional; handlers fall back to the default logger.
	Logger *logger.Logger

	// BaseXP is the flat first-completion reward; non-positive uses the default.
	BaseXP int
}

// NewHandlers wires the full application surface from shared dependencies.
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{
		RecordCompletion: command.NewRecordCompletionHandler(
			deps.Structures, deps.Ledger, deps.Enrollment,
			deps.EventPublisher, deps.Logger, deps.BaseXP,
		),
		GetProgress: query.NewGetProgressHandler(deps.Structures, deps.Ledger, deps.Logger),
	}
}
