package postgres

import (
	"context"
	"fmt"
)

// EnrollmentRepository implements progress.EnrollmentChecker against the
// enrollments table. Rows are written by the enrollment service; this
// engine only ever reads membership.
type EnrollmentRepository struct {
	conn *Connection
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(conn *Connection) *EnrollmentRepository {
	return &EnrollmentRepository{conn: conn}
}

// IsEnrolled reports whether the player is enrolled in the subject.
func (r *EnrollmentRepository) IsEnrolled(ctx context.Context, playerID, subjectID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM enrollments WHERE player_id = $1 AND subject_id = $2)`

	var enrolled bool
	if err := r.conn.QueryRow(ctx, query, playerID, subjectID).Scan(&enrolled); err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return enrolled, nil
}
