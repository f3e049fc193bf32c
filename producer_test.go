package supplyq_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/supplymap/supplyq"
)

func TestProducer_Schedules(t *testing.T) {
	cases := []struct {
		name  string
		run   func(*supplyq.Producer, context.Context) ([]string, error)
		types []string
		prios []int
	}{
		{
			name:  supplyq.ScheduleDailyName,
			run:   (*supplyq.Producer).ScheduleDaily,
			types: []string{"pipeline_tariff", "ownership_tracking", "quality_assurance"},
			prios: []int{8, 7, 6},
		},
		{
			name:  supplyq.ScheduleWeeklyName,
			run:   (*supplyq.Producer).ScheduleWeekly,
			types: []string{"terminal_discovery", "rail_rate", "data_normalization"},
			prios: []int{8, 7, 6},
		},
		{
			name:  supplyq.ScheduleMonthlyName,
			run:   (*supplyq.Producer).ScheduleMonthly,
			types: []string{"terminal_information", "refinery_linkage", "linkage_validation"},
			prios: []int{9, 8, 7},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backends(t, func(t *testing.T, s supplyq.Store) {
				ctx := context.Background()
				p := supplyq.NewProducer(supplyq.NewClient(s), nil)

				ids, err := tc.run(p, ctx)
				require.NoError(t, err)
				require.Len(t, ids, 3)

				pending, err := s.Pending(ctx, 0, "")
				require.NoError(t, err)
				require.Len(t, pending, 3)
				for i, tk := range pending {
					require.Equal(t, tc.types[i], tk.AgentType)
					require.Equal(t, tc.prios[i], tk.Priority)
					require.NotEmpty(t, tk.Description)
					require.NotEmpty(t, tk.Params)
				}

				// Not idempotent: a second run adds three more.
				again, err := p.Schedule(ctx, tc.name)
				require.NoError(t, err)
				require.Len(t, again, 3)
				require.NotEqual(t, ids, again)
				pending, err = s.Pending(ctx, 0, "")
				require.NoError(t, err)
				require.Len(t, pending, 6)
			})
		})
	}
}

func TestProducer_ParamsRoundTrip(t *testing.T) {
	st, _ := newMiniStore(t)
	ctx := context.Background()
	ids, err := supplyq.NewProducer(supplyq.NewClient(st), nil).ScheduleWeekly(ctx)
	require.NoError(t, err)

	got, err := st.Get(ctx, ids[1])
	require.NoError(t, err)
	require.Equal(t, []any{"UP", "BNSF", "NS", "CSX", "CN", "CP"}, got.Params["railroads"])

	got, err = st.Get(ctx, ids[0])
	require.NoError(t, err)
	require.Equal(t, false, got.Params["force_refresh"])
}

func TestProducer_UnknownSchedule(t *testing.T) {
	st, _ := newMiniStore(t)
	ids, err := supplyq.NewProducer(supplyq.NewClient(st), nil).Schedule(context.Background(), "hourly")
	require.ErrorIs(t, err, supplyq.ErrUnknownSchedule)
	require.Empty(t, ids)

	counts, err := st.CountByStatus(context.Background())
	require.NoError(t, err)
	require.Zero(t, counts[supplyq.StatusPending])
}

func TestProducer_StopsAtFirstFailure(t *testing.T) {
	st, mr := newMiniStore(t)
	p := supplyq.NewProducer(supplyq.NewClient(st), nil)
	mr.Close()

	ids, err := p.ScheduleDaily(context.Background())
	require.ErrorIs(t, err, supplyq.ErrStoreUnavailable)
	require.Contains(t, err.Error(), "pipeline_tariff")
	require.Empty(t, ids)
}

func TestScheduleTemplates_ReturnsCopies(t *testing.T) {
	tpls, ok := supplyq.ScheduleTemplates(supplyq.ScheduleWeeklyName)
	require.True(t, ok)
	require.Equal(t, "rail_rate", tpls[1].AgentType)

	tpls[1].Params["railroads"].([]string)[0] = "XX"
	tpls[1].Params["lookback_days"] = 99
	tpls[0].AgentType = "tampered"

	again, ok := supplyq.ScheduleTemplates(supplyq.ScheduleWeeklyName)
	require.True(t, ok)
	require.Equal(t, "terminal_discovery", again[0].AgentType)
	require.Equal(t, []string{"UP", "BNSF", "NS", "CSX", "CN", "CP"}, again[1].Params["railroads"])
	require.NotContains(t, again[1].Params, "lookback_days")

	_, ok = supplyq.ScheduleTemplates("hourly")
	require.False(t, ok)

	st, _ := newMiniStore(t)
	ids, err := supplyq.NewProducer(supplyq.NewClient(st), nil).ScheduleWeekly(context.Background())
	require.NoError(t, err)
	got, err := st.Get(context.Background(), ids[1])
	require.NoError(t, err)
	require.Equal(t, []any{"UP", "BNSF", "NS", "CSX", "CN", "CP"}, got.Params["railroads"])
}
