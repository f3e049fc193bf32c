package assets

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/supplymap/supplyq"
)

func newTestRepo(t *testing.T) (*Repo, *gorm.DB) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "assets.db") + "?_time_format=sqlite"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	r := NewRepo(db)
	require.NoError(t, r.Migrate(context.Background()))
	return r, db
}

func ptr[T any](v T) *T { return &v }

func TestValidate_Confidence(t *testing.T) {
	cases := []struct {
		name   string
		c      Candidate
		conf   string
		issues []string
	}{
		{"clean", Candidate{Name: "Houston Terminal", State: "TX", TCN: "76-1234567"}, ConfidenceHigh, []string{}},
		{"bad tcn", Candidate{Name: "A", State: "TX", TCN: "761234567"}, ConfidenceMedium, []string{"Invalid TCN format"}},
		{"bad state", Candidate{Name: "A", State: "Texas", TCN: "76-1234567"}, ConfidenceMedium, []string{"Invalid state code"}},
		{"numeric state", Candidate{Name: "A", State: "T1", TCN: "76-1234567"}, ConfidenceMedium, []string{"Invalid state code"}},
		{"no tcn", Candidate{Name: "A", State: "TX"}, ConfidenceMedium, []string{"Invalid TCN format", "Missing tcn"}},
		{"empty", Candidate{}, ConfidenceLow, []string{"Invalid TCN format", "Missing name", "Missing state", "Missing tcn", "Invalid state code"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := tc.c
			Validate(&c)
			require.Equal(t, tc.conf, c.Confidence)
			require.Equal(t, tc.issues, c.Issues)
		})
	}
}

func TestQualityScore(t *testing.T) {
	full := &Candidate{Operator: "Kinder Morgan", City: "Houston", FullAddress: "1 Main St"}
	require.Equal(t, 1.0, QualityScore(full))

	bare := &Candidate{}
	require.Equal(t, 0.75, QualityScore(bare))

	bare.Issues = []string{"a", "b"}
	require.Equal(t, 0.45, QualityScore(bare))

	bare.Issues = []string{"a", "b", "c", "d", "e", "f"}
	require.Equal(t, 0.0, QualityScore(bare))
}

func TestTerminalID(t *testing.T) {
	id := TerminalID("TX", "76-1234567")
	require.Len(t, id, 6)
	require.Equal(t, "TX", id[:2])
	require.Equal(t, id, TerminalID("TX", "76-1234567"), "id must be stable")
	require.Equal(t, "XX", TerminalID("", "76-1234567")[:2])
	require.NotEqual(t, TerminalID("TX", "76-1234567"), TerminalID("TX", "76-7654321"))
}

func TestRepo_SyncTerminals(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()
	r.now = func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC) }

	cands := []*Candidate{
		{Name: "Pasadena", Operator: "Magellan", City: "Pasadena", State: "TX", TCN: "76-1111111", FullAddress: "x"},
		{Name: "Bad", State: "Texas", TCN: "bad"},
		{Name: "Dup", State: "TX", TCN: "76-1111111"},
		{Name: "NoTCN", State: "TX"},
	}
	for _, c := range cands {
		Validate(c)
	}
	res, err := r.SyncTerminals(ctx, cands, "terminal_discovery_agent")
	require.NoError(t, err)
	require.Equal(t, SyncResult{New: 2, Updated: 0}, res)

	var term Terminal
	require.NoError(t, db.Where("irs_tcn = ?", "76-1111111").Take(&term).Error)
	require.Equal(t, "Pasadena", term.TerminalName)
	require.Equal(t, 1.0, term.DataQualityScore)
	require.Equal(t, "2025-05-01", *term.EffectiveDate)
	require.Equal(t, "terminal_discovery_agent", term.CreatedBy)

	var logs []QualityLog
	require.NoError(t, db.Order("check_result").Find(&logs).Error)
	require.Len(t, logs, 2)
	require.Equal(t, "Pass", logs[0].CheckResult)
	require.Equal(t, "Warning", logs[1].CheckResult)
	require.Equal(t, "terminal_validation", logs[0].QualityCheck)
	require.JSONEq(t, `{"confidence":"high","issues":[],"quality_score":1}`, logs[0].CheckDetails)

	// Same data again: nothing changes. A changed operator is an update.
	again := []*Candidate{
		{Name: "Pasadena", Operator: "Magellan", City: "Pasadena", State: "TX", TCN: "76-1111111", FullAddress: "x"},
		{Name: "Bad", State: "Texas", TCN: "bad", Operator: "New Owner"},
	}
	for _, c := range again {
		Validate(c)
	}
	res, err = r.SyncTerminals(ctx, again, "terminal_discovery_agent")
	require.NoError(t, err)
	require.Equal(t, SyncResult{New: 0, Updated: 1}, res)

	var updated Terminal
	require.NoError(t, db.Where("irs_tcn = ?", "bad").Take(&updated).Error)
	require.Equal(t, "New Owner", updated.Operator)

	// The clock is frozen, so the update is logged at the same instant as the insert.
	require.NoError(t, db.Where("record_id = ?", updated.TerminalID).Find(&logs).Error)
	require.Len(t, logs, 2)
	require.NotEqual(t, logs[0].LogID, logs[1].LogID)
}

func TestQualityLogID(t *testing.T) {
	at := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	a, b := qualityLogID("TX1234", at), qualityLogID("TX1234", at)
	require.Regexp(t, `^QC_TX1234_20250501_090000_[0-9a-f]{8}$`, a)
	require.NotEqual(t, a, b)
}

func TestRepo_SyncTerminals_IDCollision(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()
	taken := TerminalID("TX", "76-2222222")
	require.NoError(t, db.Create(&Terminal{TerminalID: taken, TerminalName: "Other", IRSTCN: ptr("76-9999999"), State: "TX"}).Error)

	c := &Candidate{Name: "New", State: "TX", TCN: "76-2222222"}
	Validate(c)
	res, err := r.SyncTerminals(ctx, []*Candidate{c}, "a")
	require.NoError(t, err)
	require.Equal(t, 1, res.New)

	var term Terminal
	require.NoError(t, db.Where("irs_tcn = ?", "76-2222222").Take(&term).Error)
	require.NotEqual(t, taken, term.TerminalID)
	require.Equal(t, "TX", term.TerminalID[:2])
}

func TestRepo_Coverage(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()

	cov, err := r.Coverage(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]int{supplyq.CoverageTerminals: 0, supplyq.CoveragePipelines: 0, supplyq.CoverageTariffs: 0}, cov)

	past := time.Now().AddDate(-1, 0, 0).Format(time.DateOnly)
	future := time.Now().AddDate(1, 0, 0).Format(time.DateOnly)

	require.NoError(t, db.Create(&[]Terminal{
		{TerminalID: "TX0001", TerminalName: "open", IRSTCN: ptr("76-0000001"), State: "TX"},
		{TerminalID: "TX0002", TerminalName: "ended", IRSTCN: ptr("76-0000002"), State: "TX", EndDate: &past},
		{TerminalID: "TX0003", TerminalName: "not yet", IRSTCN: ptr("76-0000003"), State: "TX", EffectiveDate: &future},
		{TerminalID: "TX0004", TerminalName: "running", IRSTCN: ptr("76-0000004"), State: "TX", EffectiveDate: &past, EndDate: &future},
	}).Error)
	require.NoError(t, db.Create(&[]Pipeline{
		{PipelineID: "P1", PipelineName: "Colonial"},
		{PipelineID: "P2", PipelineName: "Old", EndDate: &past},
	}).Error)
	require.NoError(t, db.Create(&[]PipelineTariff{
		{TariffID: "T1", PipelineID: "P1", Origin: "Houston", Destination: "Linden", RatePerGallon: ptr(0.04)},
		{TariffID: "T2", PipelineID: "P1", Origin: "Houston", Destination: "Atlanta", EndDate: &past},
		{TariffID: "T3", PipelineID: "P1", Origin: "Houston", Destination: "Dallas", EffectiveDate: &past},
	}).Error)

	cov, err = r.Coverage(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, cov[supplyq.CoverageTerminals])
	require.Equal(t, 1, cov[supplyq.CoveragePipelines])
	require.Equal(t, 2, cov[supplyq.CoverageTariffs])
}
