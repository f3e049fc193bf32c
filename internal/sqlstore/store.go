// Package sqlstore implements supplyq.Store on SQLite through gorm.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/supplymap/supplyq"
)

// DefaultPath is the database file used when none is configured.
const DefaultPath = "supply_chain.db"

// Store keeps tasks in the agent_tasks table.
type Store struct {
	db  *gorm.DB
	enc supplyq.Encoder
}

var _ supplyq.Store = (*Store)(nil)

// Open opens (creating if needed) the SQLite file at path and migrates the schema.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_time_format=sqlite"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", supplyq.ErrStoreUnavailable, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", supplyq.ErrStoreUnavailable, err)
	}
	// SQLite has one writer; a single connection avoids SQLITE_BUSY between our own goroutines.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	s, err := New(db)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing gorm handle and migrates the task schema.
func New(db *gorm.DB) (*Store, error) {
	s := &Store{db: db, enc: &supplyq.JSONEncoder{}}
	if err := s.Migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// Migrate creates agent_tasks, its indexes and the v_review_queue view.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(&taskRow{}); err != nil {
		return unavailable("migrate agent_tasks", err)
	}
	if err := db.Exec(reviewQueueView).Error; err != nil {
		return unavailable("create v_review_queue", err)
	}
	return nil
}

// DB exposes the gorm handle so other repositories can share the connection.
func (s *Store) DB() *gorm.DB { return s.db }

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", supplyq.ErrStoreUnavailable, op, err)
}

func (s *Store) Insert(ctx context.Context, t *supplyq.Task) error {
	row, err := s.toRow(t)
	if err != nil {
		return fmt.Errorf("%w: encode params: %w", supplyq.ErrValidation, err)
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if res.Error != nil {
		return unavailable("insert task", res.Error)
	}
	if res.RowsAffected == 0 {
		return supplyq.ErrDuplicateTask
	}
	return nil
}

func (s *Store) Pending(ctx context.Context, limit int, agentType string) ([]*supplyq.Task, error) {
	q := s.db.WithContext(ctx).Where("status = ?", string(supplyq.StatusPending))
	if agentType != "" {
		q = q.Where("agent_type = ?", agentType)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []taskRow
	if err := q.Order("priority DESC, assigned_timestamp ASC, rowid ASC").Find(&rows).Error; err != nil {
		return nil, unavailable("select pending", err)
	}
	return s.fromRows(rows)
}

func (s *Store) Claim(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&taskRow{}).
		Where("task_id = ? AND status = ?", id, string(supplyq.StatusPending)).
		Updates(map[string]any{
			"status":            string(supplyq.StatusInProgress),
			"started_timestamp": startedAt.UTC(),
		})
	if res.Error != nil {
		return false, unavailable("claim task", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) Complete(ctx context.Context, id string, out supplyq.Outcome) error {
	res := s.db.WithContext(ctx).Model(&taskRow{}).
		Where("task_id = ? AND status = ?", id, string(supplyq.StatusInProgress)).
		Updates(map[string]any{
			"status":                string(supplyq.StatusCompleted),
			"completed_timestamp":   out.CompletedAt.UTC(),
			"result_summary":        out.Summary,
			"result_data":           string(out.ResultData),
			"requires_human_review": out.RequiresReview,
		})
	if res.Error != nil {
		return unavailable("complete task", res.Error)
	}
	if res.RowsAffected == 0 {
		return s.transitionErr(ctx, id, supplyq.StatusCompleted)
	}
	return nil
}

func (s *Store) Fail(ctx context.Context, id string, errMsg string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&taskRow{}).
		Where("task_id = ? AND status = ?", id, string(supplyq.StatusInProgress)).
		Updates(map[string]any{
			"status":              string(supplyq.StatusFailed),
			"completed_timestamp": at.UTC(),
			"error_message":       errMsg,
		})
	if res.Error != nil {
		return unavailable("fail task", res.Error)
	}
	if res.RowsAffected == 0 {
		return s.transitionErr(ctx, id, supplyq.StatusFailed)
	}
	return nil
}

func (s *Store) Requeue(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&taskRow{}).
		Where("task_id = ? AND status = ?", id, string(supplyq.StatusFailed)).
		Updates(map[string]any{
			"status":              string(supplyq.StatusPending),
			"retry_count":         gorm.Expr("retry_count + 1"),
			"started_timestamp":   nil,
			"completed_timestamp": nil,
		})
	if res.Error != nil {
		return unavailable("requeue task", res.Error)
	}
	if res.RowsAffected == 0 {
		return s.transitionErr(ctx, id, supplyq.StatusPending)
	}
	return nil
}

// transitionErr explains why a conditional update touched no rows.
func (s *Store) transitionErr(ctx context.Context, id string, to supplyq.Status) error {
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is %q, cannot move to %q", supplyq.ErrIllegalTransition, id, t.Status, to)
}

func (s *Store) Get(ctx context.Context, id string) (*supplyq.Task, error) {
	var row taskRow
	err := s.db.WithContext(ctx).Where("task_id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", supplyq.ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, unavailable("get task", err)
	}
	return s.fromRow(&row)
}

func (s *Store) List(ctx context.Context, status supplyq.Status, limit int) ([]*supplyq.Task, error) {
	q := s.db.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []taskRow
	if err := q.Order("created_at DESC, rowid DESC").Find(&rows).Error; err != nil {
		return nil, unavailable("list tasks", err)
	}
	return s.fromRows(rows)
}

func (s *Store) ReviewQueue(ctx context.Context) ([]supplyq.ReviewItem, error) {
	var rows []reviewRow
	err := s.db.WithContext(ctx).Model(&taskRow{}).
		Select("task_id, agent_type, task_description, priority, completed_timestamp, result_summary").
		Where("status = ? AND requires_human_review = ? AND human_reviewed = ?", string(supplyq.StatusCompleted), true, false).
		Order("priority DESC, completed_timestamp ASC, rowid ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, unavailable("select review queue", err)
	}
	out := make([]supplyq.ReviewItem, 0, len(rows))
	for _, r := range rows {
		it := supplyq.ReviewItem{
			TaskID:      r.TaskID,
			AgentType:   r.AgentType,
			Description: r.TaskDescription,
			Priority:    r.Priority,
			Summary:     r.ResultSummary,
		}
		if r.CompletedTimestamp != nil {
			it.CompletedAt = r.CompletedTimestamp.UTC()
		}
		out = append(out, it)
	}
	return out, nil
}

func (s *Store) CountByStatus(ctx context.Context) (map[supplyq.Status]int, error) {
	var rows []struct {
		Status string
		N      int
	}
	err := s.db.WithContext(ctx).Model(&taskRow{}).
		Select("status, count(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, unavailable("count tasks", err)
	}
	out := make(map[supplyq.Status]int, len(supplyq.AllStatuses))
	for _, st := range supplyq.AllStatuses {
		out[st] = 0
	}
	for _, r := range rows {
		out[supplyq.Status(r.Status)] = r.N
	}
	return out, nil
}

func (s *Store) MarkReviewed(ctx context.Context, id string, notes string) error {
	res := s.db.WithContext(ctx).Model(&taskRow{}).
		Where("task_id = ? AND status = ? AND requires_human_review = ? AND human_reviewed = ?",
			id, string(supplyq.StatusCompleted), true, false).
		Updates(map[string]any{
			"human_reviewed":     true,
			"human_review_notes": notes,
		})
	if res.Error != nil {
		return unavailable("mark reviewed", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", supplyq.ErrNotReviewable, id)
	}
	return nil
}

func (s *Store) fromRows(rows []taskRow) ([]*supplyq.Task, error) {
	out := make([]*supplyq.Task, 0, len(rows))
	for i := range rows {
		t, err := s.fromRow(&rows[i])
		if err != nil {
			return nil, fmt.Errorf("decode task %s: %w", rows[i].TaskID, err)
		}
		out = append(out, t)
	}
	return out, nil
}
