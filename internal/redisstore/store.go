// Package redisstore implements supplyq.Store on Redis. Each task is a hash,
// with sorted sets for the pending queue and the review queue and one set per
// status. Status transitions are Lua scripts so the compare-and-swap and the
// index updates happen atomically.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/supplymap/supplyq"
	ikeys "github.com/supplymap/supplyq/internal/keys"
)

// band separates priorities in queue scores; millisecond timestamps stay below it.
const band = 1e13

// record is the hash layout of one task.
type record struct {
	ID             string `redis:"task_id"`
	AgentType      string `redis:"agent_type"`
	Description    string `redis:"task_description"`
	Params         string `redis:"task_parameters"`
	Priority       int    `redis:"priority"`
	Status         string `redis:"status"`
	AssignedMs     int64  `redis:"assigned_ms"`
	StartedMs      int64  `redis:"started_ms"`
	CompletedMs    int64  `redis:"completed_ms"`
	CreatedMs      int64  `redis:"created_ms"`
	Summary        string `redis:"result_summary"`
	ResultData     string `redis:"result_data"`
	RequiresReview bool   `redis:"requires_human_review"`
	HumanReviewed  bool   `redis:"human_reviewed"`
	ReviewNotes    string `redis:"human_review_notes"`
	Error          string `redis:"error_message"`
	RetryCount     int    `redis:"retry_count"`
	Seq            int64  `redis:"seq"`
}

// Store keeps tasks in Redis.
type Store struct {
	rdb redis.UniversalClient
	k   ikeys.Space
	enc supplyq.Encoder
}

var _ supplyq.Store = (*Store)(nil)

// New creates a store using the given namespace (hash tag). An empty
// namespace uses the default.
func New(rdb redis.UniversalClient, namespace string) *Store {
	return &Store{rdb: rdb, k: ikeys.For(namespace), enc: &supplyq.JSONEncoder{}}
}

// Namespace returns the hash tag every key of this store shares.
func (s *Store) Namespace() string { return ikeys.Namespace(s.k.Pending) }

// Close closes the Redis client.
func (s *Store) Close() error { return s.rdb.Close() }

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", supplyq.ErrStoreUnavailable, op, err)
}

func pendingScore(priority int, assignedMs int64) float64 {
	return float64(supplyq.MaxPriority-priority)*band + float64(assignedMs)
}

func reviewScore(priority int, completedMs int64) float64 {
	return float64(supplyq.MaxPriority-priority)*band + float64(completedMs)
}

func msOf(t time.Time) int64 { return t.UTC().UnixMilli() }

func msPtr(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return msOf(*t)
}

func timeOf(ms int64) *time.Time {
	if ms == 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

func (s *Store) Insert(ctx context.Context, t *supplyq.Task) error {
	var params string
	if t.Params != nil {
		b, err := s.enc.Encode(t.Params)
		if err != nil {
			return fmt.Errorf("%w: encode params: %w", supplyq.ErrValidation, err)
		}
		params = string(b)
	}

	key := s.k.Task(t.ID)
	// Reserve the id first; the hash field doubles as the uniqueness marker.
	ok, err := s.rdb.HSetNX(ctx, key, "task_id", t.ID).Result()
	if err != nil {
		return unavailable("reserve id", err)
	}
	if !ok {
		return supplyq.ErrDuplicateTask
	}

	seq, err := s.rdb.Incr(ctx, s.k.Seq).Result()
	if err != nil {
		_ = s.rdb.Del(ctx, key).Err()
		return unavailable("next seq", err)
	}

	rec := &record{
		ID:             t.ID,
		AgentType:      t.AgentType,
		Description:    t.Description,
		Params:         params,
		Priority:       t.Priority,
		Status:         string(t.Status),
		AssignedMs:     msOf(t.AssignedAt),
		StartedMs:      msPtr(t.StartedAt),
		CompletedMs:    msPtr(t.CompletedAt),
		CreatedMs:      msOf(t.CreatedAt),
		Summary:        t.Summary,
		ResultData:     string(t.ResultData),
		RequiresReview: t.RequiresReview,
		HumanReviewed:  t.HumanReviewed,
		ReviewNotes:    t.ReviewNotes,
		Error:          t.Error,
		RetryCount:     t.RetryCount,
		Seq:            seq,
	}

	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, rec)
		p.SAdd(ctx, s.k.Status(rec.Status), t.ID)
		p.ZAdd(ctx, s.k.All, redis.Z{Score: float64(rec.CreatedMs), Member: t.ID})
		if t.Status == supplyq.StatusPending {
			p.ZAdd(ctx, s.k.Pending, redis.Z{Score: pendingScore(rec.Priority, rec.AssignedMs), Member: t.ID})
		}
		return nil
	})
	if err != nil {
		// Rollback the reservation on failure
		_ = s.rdb.Del(ctx, key).Err()
		return unavailable("insert task", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context, ids []string) ([]*record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = p.HGetAll(ctx, s.k.Task(id))
		}
		return nil
	})
	if err != nil {
		return nil, unavailable("load tasks", err)
	}
	out := make([]*record, 0, len(ids))
	for _, c := range cmds {
		if len(c.Val()) == 0 {
			continue
		}
		var r record
		if err := c.Scan(&r); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, &r)
	}
	return out, nil
}

// pendingIDs returns the Pending ids worth loading. Without a type filter only
// the head of the queue is read, widened to every id sharing the last score:
// Redis orders equal scores by member, not by insertion.
func (s *Store) pendingIDs(ctx context.Context, limit int, agentType string) ([]string, error) {
	if limit <= 0 || agentType != "" {
		return s.rdb.ZRange(ctx, s.k.Pending, 0, -1).Result()
	}
	head, err := s.rdb.ZRangeWithScores(ctx, s.k.Pending, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(head) < limit {
		ids := make([]string, len(head))
		for i, z := range head {
			ids[i] = z.Member.(string)
		}
		return ids, nil
	}
	last := strconv.FormatFloat(head[len(head)-1].Score, 'f', -1, 64)
	return s.rdb.ZRangeByScore(ctx, s.k.Pending, &redis.ZRangeBy{Min: "-inf", Max: last}).Result()
}

func (s *Store) Pending(ctx context.Context, limit int, agentType string) ([]*supplyq.Task, error) {
	ids, err := s.pendingIDs(ctx, limit, agentType)
	if err != nil {
		return nil, unavailable("range pending", err)
	}
	recs, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	// Scores only resolve to the millisecond; seq keeps insertion order within it.
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.AssignedMs != b.AssignedMs {
			return a.AssignedMs < b.AssignedMs
		}
		return a.Seq < b.Seq
	})
	out := make([]*supplyq.Task, 0, len(recs))
	for _, r := range recs {
		if r.Status != string(supplyq.StatusPending) {
			continue
		}
		if agentType != "" && r.AgentType != agentType {
			continue
		}
		t, err := s.toTask(r)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) runCAS(ctx context.Context, op string, sc *redis.Script, keys []string, args ...any) (int64, error) {
	n, err := sc.Run(ctx, s.rdb, keys, args...).Int64()
	if err != nil {
		return 0, unavailable(op, err)
	}
	return n, nil
}

func (s *Store) Claim(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	n, err := s.runCAS(ctx, "claim task", claimScript,
		[]string{s.k.Task(id), s.k.Pending, s.k.Status(string(supplyq.StatusPending)), s.k.Status(string(supplyq.StatusInProgress))},
		id, string(supplyq.StatusPending), string(supplyq.StatusInProgress), msOf(startedAt))
	if err != nil {
		return false, err
	}
	return n == resOK, nil
}

func (s *Store) Complete(ctx context.Context, id string, out supplyq.Outcome) error {
	rec, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	review := "0"
	if out.RequiresReview {
		review = "1"
	}
	completed := msOf(out.CompletedAt)
	n, err := s.runCAS(ctx, "complete task", completeScript,
		[]string{s.k.Task(id), s.k.Status(string(supplyq.StatusInProgress)), s.k.Status(string(supplyq.StatusCompleted)), s.k.Review},
		id, string(supplyq.StatusInProgress), string(supplyq.StatusCompleted), completed,
		out.Summary, string(out.ResultData), review, reviewScore(rec.Priority, completed))
	if err != nil {
		return err
	}
	return s.casErr(ctx, n, id, supplyq.StatusCompleted)
}

func (s *Store) Fail(ctx context.Context, id string, errMsg string, at time.Time) error {
	n, err := s.runCAS(ctx, "fail task", failScript,
		[]string{s.k.Task(id), s.k.Status(string(supplyq.StatusInProgress)), s.k.Status(string(supplyq.StatusFailed))},
		id, string(supplyq.StatusInProgress), string(supplyq.StatusFailed), msOf(at), errMsg)
	if err != nil {
		return err
	}
	return s.casErr(ctx, n, id, supplyq.StatusFailed)
}

func (s *Store) Requeue(ctx context.Context, id string) error {
	rec, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.runCAS(ctx, "requeue task", requeueScript,
		[]string{s.k.Task(id), s.k.Status(string(supplyq.StatusFailed)), s.k.Status(string(supplyq.StatusPending)), s.k.Pending},
		id, string(supplyq.StatusFailed), string(supplyq.StatusPending), pendingScore(rec.Priority, rec.AssignedMs))
	if err != nil {
		return err
	}
	return s.casErr(ctx, n, id, supplyq.StatusPending)
}

func (s *Store) casErr(ctx context.Context, n int64, id string, to supplyq.Status) error {
	switch n {
	case resOK:
		return nil
	case resMissing:
		return fmt.Errorf("%w: %s", supplyq.ErrTaskNotFound, id)
	}
	rec, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is %q, cannot move to %q", supplyq.ErrIllegalTransition, id, rec.Status, to)
}

func (s *Store) get(ctx context.Context, id string) (*record, error) {
	recs, err := s.load(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 || recs[0].Status == "" {
		return nil, fmt.Errorf("%w: %s", supplyq.ErrTaskNotFound, id)
	}
	return recs[0], nil
}

func (s *Store) Get(ctx context.Context, id string) (*supplyq.Task, error) {
	rec, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toTask(rec)
}

func (s *Store) List(ctx context.Context, status supplyq.Status, limit int) ([]*supplyq.Task, error) {
	var ids []string
	var err error
	if status == "" {
		ids, err = s.rdb.ZRevRange(ctx, s.k.All, 0, -1).Result()
	} else {
		ids, err = s.rdb.SMembers(ctx, s.k.Status(string(status))).Result()
	}
	if err != nil {
		return nil, unavailable("list ids", err)
	}
	recs, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].CreatedMs != recs[j].CreatedMs {
			return recs[i].CreatedMs > recs[j].CreatedMs
		}
		return recs[i].Seq > recs[j].Seq
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	out := make([]*supplyq.Task, 0, len(recs))
	for _, r := range recs {
		t, err := s.toTask(r)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) ReviewQueue(ctx context.Context) ([]supplyq.ReviewItem, error) {
	ids, err := s.rdb.ZRange(ctx, s.k.Review, 0, -1).Result()
	if err != nil {
		return nil, unavailable("range review", err)
	}
	recs, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.CompletedMs != b.CompletedMs {
			return a.CompletedMs < b.CompletedMs
		}
		return a.Seq < b.Seq
	})
	out := make([]supplyq.ReviewItem, 0, len(recs))
	for _, r := range recs {
		if r.Status != string(supplyq.StatusCompleted) || !r.RequiresReview || r.HumanReviewed {
			continue
		}
		it := supplyq.ReviewItem{
			TaskID:      r.ID,
			AgentType:   r.AgentType,
			Description: r.Description,
			Priority:    r.Priority,
			Summary:     r.Summary,
		}
		if c := timeOf(r.CompletedMs); c != nil {
			it.CompletedAt = *c
		}
		out = append(out, it)
	}
	return out, nil
}

func (s *Store) CountByStatus(ctx context.Context) (map[supplyq.Status]int, error) {
	cmds := make(map[supplyq.Status]*redis.IntCmd, len(supplyq.AllStatuses))
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, st := range supplyq.AllStatuses {
			cmds[st] = p.SCard(ctx, s.k.Status(string(st)))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, unavailable("count tasks", err)
	}
	out := make(map[supplyq.Status]int, len(cmds))
	for st, c := range cmds {
		out[st] = int(c.Val())
	}
	return out, nil
}

func (s *Store) MarkReviewed(ctx context.Context, id string, notes string) error {
	n, err := s.runCAS(ctx, "mark reviewed", reviewedScript,
		[]string{s.k.Task(id), s.k.Review},
		id, string(supplyq.StatusCompleted), notes)
	if err != nil {
		return err
	}
	switch n {
	case resOK:
		return nil
	case resMissing:
		return fmt.Errorf("%w: %s", supplyq.ErrTaskNotFound, id)
	default:
		return fmt.Errorf("%w: %s", supplyq.ErrNotReviewable, id)
	}
}

func (s *Store) toTask(r *record) (*supplyq.Task, error) {
	st, err := supplyq.ParseStatus(r.Status)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", r.ID, err)
	}
	t := &supplyq.Task{
		ID:             r.ID,
		AgentType:      r.AgentType,
		Description:    r.Description,
		Priority:       r.Priority,
		Status:         st,
		AssignedAt:     time.UnixMilli(r.AssignedMs).UTC(),
		StartedAt:      timeOf(r.StartedMs),
		CompletedAt:    timeOf(r.CompletedMs),
		CreatedAt:      time.UnixMilli(r.CreatedMs).UTC(),
		Summary:        r.Summary,
		RequiresReview: r.RequiresReview,
		HumanReviewed:  r.HumanReviewed,
		ReviewNotes:    r.ReviewNotes,
		Error:          r.Error,
		RetryCount:     r.RetryCount,
	}
	if r.ResultData != "" {
		t.ResultData = []byte(r.ResultData)
	}
	if r.Params != "" {
		if err := s.enc.Decode([]byte(r.Params), &t.Params); err != nil {
			return nil, fmt.Errorf("task %s params: %w", r.ID, err)
		}
	}
	return t, nil
}
