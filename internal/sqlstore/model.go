package sqlstore

import (
	"time"

	"github.com/supplymap/supplyq"
)

// taskRow maps the agent_tasks table.
type taskRow struct {
	TaskID              string     `gorm:"column:task_id;primaryKey"`
	AgentType           string     `gorm:"column:agent_type;not null"`
	TaskDescription     string     `gorm:"column:task_description"`
	TaskParameters      string     `gorm:"column:task_parameters"`
	Priority            int        `gorm:"column:priority;not null;default:5;index:idx_tasks_priority,priority:1"`
	Status              string     `gorm:"column:status;not null;default:Pending;index:idx_tasks_status;index:idx_tasks_priority,priority:2"`
	AssignedTimestamp   time.Time  `gorm:"column:assigned_timestamp"`
	StartedTimestamp    *time.Time `gorm:"column:started_timestamp"`
	CompletedTimestamp  *time.Time `gorm:"column:completed_timestamp"`
	ResultSummary       string     `gorm:"column:result_summary"`
	ResultData          string     `gorm:"column:result_data"`
	RequiresHumanReview bool       `gorm:"column:requires_human_review;not null;default:false"`
	HumanReviewed       bool       `gorm:"column:human_reviewed;not null;default:false"`
	HumanReviewNotes    string     `gorm:"column:human_review_notes"`
	ErrorMessage        string     `gorm:"column:error_message"`
	RetryCount          int        `gorm:"column:retry_count;not null;default:0"`
	CreatedAt           time.Time  `gorm:"column:created_at"`
}

func (taskRow) TableName() string { return "agent_tasks" }

// reviewRow is one row of v_review_queue plus priority.
type reviewRow struct {
	TaskID             string     `gorm:"column:task_id"`
	AgentType          string     `gorm:"column:agent_type"`
	TaskDescription    string     `gorm:"column:task_description"`
	Priority           int        `gorm:"column:priority"`
	CompletedTimestamp *time.Time `gorm:"column:completed_timestamp"`
	ResultSummary      string     `gorm:"column:result_summary"`
}

const reviewQueueView = `CREATE VIEW IF NOT EXISTS v_review_queue AS
SELECT task_id, agent_type, task_description, completed_timestamp, result_summary
FROM agent_tasks
WHERE status = 'Completed' AND requires_human_review = 1 AND human_reviewed = 0
ORDER BY priority DESC, completed_timestamp ASC`

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (s *Store) toRow(t *supplyq.Task) (*taskRow, error) {
	var params string
	if t.Params != nil {
		b, err := s.enc.Encode(t.Params)
		if err != nil {
			return nil, err
		}
		params = string(b)
	}
	return &taskRow{
		TaskID:              t.ID,
		AgentType:           t.AgentType,
		TaskDescription:     t.Description,
		TaskParameters:      params,
		Priority:            t.Priority,
		Status:              string(t.Status),
		AssignedTimestamp:   t.AssignedAt.UTC(),
		StartedTimestamp:    utc(t.StartedAt),
		CompletedTimestamp:  utc(t.CompletedAt),
		ResultSummary:       t.Summary,
		ResultData:          string(t.ResultData),
		RequiresHumanReview: t.RequiresReview,
		HumanReviewed:       t.HumanReviewed,
		HumanReviewNotes:    t.ReviewNotes,
		ErrorMessage:        t.Error,
		RetryCount:          t.RetryCount,
		CreatedAt:           t.CreatedAt.UTC(),
	}, nil
}

func (s *Store) fromRow(r *taskRow) (*supplyq.Task, error) {
	st, err := supplyq.ParseStatus(r.Status)
	if err != nil {
		return nil, err
	}
	t := &supplyq.Task{
		ID:             r.TaskID,
		AgentType:      r.AgentType,
		Description:    r.TaskDescription,
		Priority:       r.Priority,
		Status:         st,
		AssignedAt:     r.AssignedTimestamp.UTC(),
		StartedAt:      utc(r.StartedTimestamp),
		CompletedAt:    utc(r.CompletedTimestamp),
		CreatedAt:      r.CreatedAt.UTC(),
		Summary:        r.ResultSummary,
		RequiresReview: r.RequiresHumanReview,
		HumanReviewed:  r.HumanReviewed,
		ReviewNotes:    r.HumanReviewNotes,
		Error:          r.ErrorMessage,
		RetryCount:     r.RetryCount,
	}
	if r.ResultData != "" {
		t.ResultData = []byte(r.ResultData)
	}
	if r.TaskParameters != "" {
		if err := s.enc.Decode([]byte(r.TaskParameters), &t.Params); err != nil {
			return nil, err
		}
	}
	return t, nil
}
