// pattern: Imperative Shell

package store

import (
	"database/sql"
	"fmt"
	"time"

	"repodeck/internal/faults"
)

// CloneStatus is the lifecycle state of a background clone task.
type CloneStatus string

const (
	ClonePending   CloneStatus = "pending"
	CloneSucceeded CloneStatus = "succeeded"
	CloneFailed    CloneStatus = "failed"
)

// CloneTask is the durable record of one background clone, so a caller can
// poll for completion instead of watching server logs.
type CloneTask struct {
	ID         string
	GitURL     string
	DestPath   string
	Status     CloneStatus
	Error      string
	CreatedAt  time.Time
	FinishedAt *time.Time
}

// CreateCloneTask inserts a pending task record.
func (d *DB) CreateCloneTask(t CloneTask) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Status == "" {
		t.Status = ClonePending
	}
	_, err := d.conn.Exec(
		`INSERT INTO clone_tasks (id, git_url, dest_path, status, error, created_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.GitURL, t.DestPath, string(t.Status), nullIfEmpty(t.Error),
		t.CreatedAt.Unix(), unixOrNil(t.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting clone task: %w", err)
	}
	return nil
}

// GetCloneTask fetches one task by id.
func (d *DB) GetCloneTask(id string) (CloneTask, error) {
	var (
		t          CloneTask
		status     string
		errText    sql.NullString
		createdAt  int64
		finishedAt sql.NullInt64
	)
	err := d.conn.QueryRow(
		`SELECT id, git_url, dest_path, status, error, created_at, finished_at
		 FROM clone_tasks WHERE id = ?`, id).
		Scan(&t.ID, &t.GitURL, &t.DestPath, &status, &errText, &createdAt, &finishedAt)
	if err == sql.ErrNoRows {
		return CloneTask{}, faults.NotFound("clone task", id)
	}
	if err != nil {
		return CloneTask{}, fmt.Errorf("fetching clone task: %w", err)
	}
	t.Status = CloneStatus(status)
	t.Error = errText.String
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	if finishedAt.Valid {
		ts := time.Unix(finishedAt.Int64, 0).UTC()
		t.FinishedAt = &ts
	}
	return t, nil
}

// FinishCloneTask records the terminal state of a task.
func (d *DB) FinishCloneTask(id string, status CloneStatus, errText string) error {
	now := time.Now().UTC().Unix()
	res, err := d.conn.Exec(
		`UPDATE clone_tasks SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(status), nullIfEmpty(errText), now, id)
	if err != nil {
		return fmt.Errorf("finishing clone task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return faults.NotFound("clone task", id)
	}
	return nil
}
