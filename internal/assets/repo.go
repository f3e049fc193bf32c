// Package assets persists the supply-chain catalogue (terminals, pipelines,
// tariffs) and its data-quality log, and reports active-record coverage.
package assets

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/supplymap/supplyq"
)

// lookupChunk bounds the number of bound parameters in one IN query.
const lookupChunk = 500

// Repo reads and writes asset tables on a shared gorm handle.
type Repo struct {
	db  *gorm.DB
	enc supplyq.Encoder
	now func() time.Time
}

var _ supplyq.CoverageCounter = (*Repo)(nil)

// NewRepo creates a repository over db. Call Migrate once before use.
func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db, enc: &supplyq.JSONEncoder{}, now: time.Now}
}

// Migrate creates the asset tables, indexes and active-record views.
func (r *Repo) Migrate(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	if err := db.AutoMigrate(&Terminal{}, &Pipeline{}, &PipelineTariff{}, &QualityLog{}); err != nil {
		return fmt.Errorf("%w: migrate assets: %w", supplyq.ErrStoreUnavailable, err)
	}
	for _, ddl := range []string{activeTerminalsView, activeTariffsView} {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("%w: create view: %w", supplyq.ErrStoreUnavailable, err)
		}
	}
	return nil
}

// Coverage counts active terminals, pipelines and tariffs.
func (r *Repo) Coverage(ctx context.Context) (map[string]int, error) {
	queries := []struct {
		key, sql string
	}{
		{supplyq.CoverageTerminals, "SELECT COUNT(*) FROM v_active_terminals"},
		{supplyq.CoveragePipelines, "SELECT COUNT(*) FROM pipelines WHERE end_date IS NULL OR end_date > date('now')"},
		{supplyq.CoverageTariffs, "SELECT COUNT(*) FROM v_active_pipeline_tariffs"},
	}
	out := make(map[string]int, len(queries))
	for _, q := range queries {
		var n int64
		if err := r.db.WithContext(ctx).Raw(q.sql).Scan(&n).Error; err != nil {
			return nil, fmt.Errorf("%w: count %s: %w", supplyq.ErrStoreUnavailable, q.key, err)
		}
		out[q.key] = int(n)
	}
	return out, nil
}

// SyncResult reports what SyncTerminals wrote.
type SyncResult struct {
	New     int
	Updated int
}

// SyncTerminals inserts unseen TCNs and updates terminals whose name,
// operator, city or state changed, logging a quality check for each.
// Candidates must already be validated. Candidates without a TCN are
// skipped, and a repeated TCN keeps its first occurrence.
func (r *Repo) SyncTerminals(ctx context.Context, cands []*Candidate, agentName string) (SyncResult, error) {
	var res SyncResult
	seen := make(map[string]bool, len(cands))
	uniq := make([]*Candidate, 0, len(cands))
	tcns := make([]string, 0, len(cands))
	for _, c := range cands {
		if c.TCN == "" || seen[c.TCN] {
			continue
		}
		seen[c.TCN] = true
		uniq = append(uniq, c)
		tcns = append(tcns, c.TCN)
	}
	if len(uniq) == 0 {
		return res, nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := terminalsByTCN(tx, tcns)
		if err != nil {
			return err
		}
		now := r.now().UTC()
		today := now.Format(time.DateOnly)
		for _, c := range uniq {
			score := QualityScore(c)
			cur, ok := existing[c.TCN]
			var id string
			switch {
			case !ok:
				id, err = freeTerminalID(tx, c.State, c.TCN)
				if err != nil {
					return err
				}
				tcn := c.TCN
				t := &Terminal{
					TerminalID:       id,
					TerminalName:     c.Name,
					IRSTCN:           &tcn,
					State:            c.State,
					City:             c.City,
					Operator:         c.Operator,
					EffectiveDate:    &today,
					DataQualityScore: score,
					CreatedBy:        agentName,
					CreatedAt:        now,
					UpdatedAt:        now,
				}
				if err := tx.Create(t).Error; err != nil {
					return fmt.Errorf("insert terminal %s: %w", c.TCN, err)
				}
				res.New++
			case changed(c, cur):
				id = cur.TerminalID
				err := tx.Model(&Terminal{}).Where("irs_tcn = ?", c.TCN).Updates(map[string]any{
					"terminal_name":      c.Name,
					"operator":           c.Operator,
					"city":               c.City,
					"state":              c.State,
					"updated_at":         now,
					"data_quality_score": score,
				}).Error
				if err != nil {
					return fmt.Errorf("update terminal %s: %w", c.TCN, err)
				}
				res.Updated++
			default:
				continue
			}
			if err := r.logQuality(tx, id, c, score, agentName, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return SyncResult{}, err
	}
	return res, nil
}

func terminalsByTCN(tx *gorm.DB, tcns []string) (map[string]*Terminal, error) {
	out := make(map[string]*Terminal, len(tcns))
	for start := 0; start < len(tcns); start += lookupChunk {
		end := min(start+lookupChunk, len(tcns))
		var rows []Terminal
		if err := tx.Where("irs_tcn IN ?", tcns[start:end]).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("load terminals: %w", err)
		}
		for i := range rows {
			if rows[i].IRSTCN != nil {
				out[*rows[i].IRSTCN] = &rows[i]
			}
		}
	}
	return out, nil
}

// freeTerminalID returns TerminalID(state, tcn), probing the next numbers
// in the state when two TCNs land on the same bucket.
func freeTerminalID(tx *gorm.DB, state, tcn string) (string, error) {
	id := TerminalID(state, tcn)
	prefix, num := id[:len(id)-4], id[len(id)-4:]
	n, _ := strconv.Atoi(num)
	for i := 0; i < 10000; i++ {
		cand := fmt.Sprintf("%s%04d", prefix, (n+i)%10000)
		var count int64
		if err := tx.Model(&Terminal{}).Where("terminal_id = ?", cand).Count(&count).Error; err != nil {
			return "", fmt.Errorf("next terminal id: %w", err)
		}
		if count == 0 {
			return cand, nil
		}
	}
	return "", fmt.Errorf("no free terminal id in state %q", state)
}

// qualityLogID is QC_<record>_<YYYYMMDD_HHMMSS>_<8 hex>. The random part keeps
// two checks of one record within the same second apart.
func qualityLogID(recordID string, at time.Time) string {
	return "QC_" + recordID + "_" + at.UTC().Format("20060102_150405") + "_" + uuid.NewString()[:8]
}

func (r *Repo) logQuality(tx *gorm.DB, recordID string, c *Candidate, score float64, agentName string, now time.Time) error {
	result := "Warning"
	if c.Confidence == ConfidenceHigh {
		result = "Pass"
	}
	details, err := r.enc.Encode(map[string]any{
		"confidence":    c.Confidence,
		"issues":        c.Issues,
		"quality_score": score,
	})
	if err != nil {
		return err
	}
	entry := &QualityLog{
		LogID:          qualityLogID(recordID, now),
		RecordType:     "terminal",
		RecordID:       recordID,
		QualityCheck:   "terminal_validation",
		CheckResult:    result,
		CheckDetails:   string(details),
		CheckTimestamp: now,
		AgentName:      agentName,
	}
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("log quality %s: %w", recordID, err)
	}
	return nil
}
