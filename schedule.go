package supplyq

import "slices"

// Template describes one task a schedule enqueues.
type Template struct {
	AgentType   string
	Description string
	Params      map[string]any
	Priority    int
}

// Schedule names accepted by Producer.Schedule.
const (
	ScheduleDailyName   = "daily"
	ScheduleWeeklyName  = "weekly"
	ScheduleMonthlyName = "monthly"
)

// dailySchedule collects fresh filings and checks data quality.
var dailySchedule = []Template{
	{
		AgentType:   "pipeline_tariff",
		Description: "Check FERC eTariff for new pipeline tariff filings from last 24 hours",
		Params:      map[string]any{"lookback_hours": 24, "auto_download": true},
		Priority:    8,
	},
	{
		AgentType:   "ownership_tracking",
		Description: "Search for terminal/pipeline M&A announcements from last 24 hours",
		Params:      map[string]any{"sources": []string{"sec_edgar", "news", "press_releases"}},
		Priority:    7,
	},
	{
		AgentType:   "quality_assurance",
		Description: "Run quality checks on 50 random terminal records",
		Params:      map[string]any{"sample_size": 50, "check_types": []string{"completeness", "accuracy"}},
		Priority:    6,
	},
}

// weeklySchedule discovers new assets and refreshes rates.
var weeklySchedule = []Template{
	{
		AgentType:   "terminal_discovery",
		Description: "Check IRS Publication 510 for new terminals",
		Params:      map[string]any{"force_refresh": false},
		Priority:    8,
	},
	{
		AgentType:   "rail_rate",
		Description: "Check Class I railroad websites for rate updates",
		Params:      map[string]any{"railroads": []string{"UP", "BNSF", "NS", "CSX", "CN", "CP"}},
		Priority:    7,
	},
	{
		AgentType:   "data_normalization",
		Description: "Normalize and standardize data from last week",
		Params:      map[string]any{"lookback_days": 7},
		Priority:    6,
	},
}

// monthlySchedule refreshes operational details and validates linkages.
var monthlySchedule = []Template{
	{
		AgentType:   "terminal_information",
		Description: "Update operational details for all terminals added >30 days ago",
		Params:      map[string]any{"update_fields": []string{"capacity", "operator", "products_handled"}},
		Priority:    9,
	},
	{
		AgentType:   "refinery_linkage",
		Description: "Verify refinery connections and product slates from EIA data",
		Params:      map[string]any{"data_source": "eia"},
		Priority:    8,
	},
	{
		AgentType:   "linkage_validation",
		Description: "Validate all terminal->pipeline->refinery connections",
		Params:      map[string]any{"fix_orphans": true},
		Priority:    7,
	},
}

var schedules = map[string][]Template{
	ScheduleDailyName:   dailySchedule,
	ScheduleWeeklyName:  weeklySchedule,
	ScheduleMonthlyName: monthlySchedule,
}

// ScheduleTemplates returns a copy of the named schedule's templates. Callers
// may modify the result freely.
func ScheduleTemplates(name string) ([]Template, bool) {
	tpls, ok := schedules[name]
	if !ok {
		return nil, false
	}
	out := make([]Template, len(tpls))
	for i, tpl := range tpls {
		tpl.Params = copyParams(tpl.Params)
		out[i] = tpl
	}
	return out, true
}

func copyParams(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch v := v.(type) {
		case []string:
			out[k] = slices.Clone(v)
		case []any:
			out[k] = slices.Clone(v)
		default:
			out[k] = v
		}
	}
	return out
}
