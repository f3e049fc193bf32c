package assets

import "time"

// Dates that carry business meaning (effective_date, end_date) are stored as
// "YYYY-MM-DD" text so SQLite's date('now') comparisons in the views work.

type Terminal struct {
	TerminalID       string    `gorm:"column:terminal_id;primaryKey"`
	TerminalName     string    `gorm:"column:terminal_name;not null"`
	IRSTCN           *string   `gorm:"column:irs_tcn;uniqueIndex:idx_terminals_tcn"`
	State            string    `gorm:"column:state;index:idx_terminals_state;index:idx_terminals_city,priority:1"`
	City             string    `gorm:"column:city;index:idx_terminals_city,priority:2"`
	County           string    `gorm:"column:county"`
	Latitude         *float64  `gorm:"column:latitude"`
	Longitude        *float64  `gorm:"column:longitude"`
	Operator         string    `gorm:"column:operator"`
	Owner            string    `gorm:"column:owner"`
	CapacityBPD      *int64    `gorm:"column:capacity_bpd"`
	ProductsHandled  string    `gorm:"column:products_handled"`
	ReceivingMethods string    `gorm:"column:receiving_methods"`
	EffectiveDate    *string   `gorm:"column:effective_date"`
	EndDate          *string   `gorm:"column:end_date"`
	DataQualityScore float64   `gorm:"column:data_quality_score;not null;default:0"`
	CreatedBy        string    `gorm:"column:created_by"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (Terminal) TableName() string { return "terminals" }

type Pipeline struct {
	PipelineID       string    `gorm:"column:pipeline_id;primaryKey"`
	PipelineName     string    `gorm:"column:pipeline_name;not null"`
	Operator         string    `gorm:"column:operator"`
	Owner            string    `gorm:"column:owner"`
	PipelineType     string    `gorm:"column:pipeline_type"`
	ProductTypes     string    `gorm:"column:product_types"`
	OriginPoint      string    `gorm:"column:origin_point"`
	DestinationPoint string    `gorm:"column:destination_point"`
	LengthMiles      *float64  `gorm:"column:length_miles"`
	EffectiveDate    *string   `gorm:"column:effective_date"`
	EndDate          *string   `gorm:"column:end_date"`
	CreatedBy        string    `gorm:"column:created_by"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (Pipeline) TableName() string { return "pipelines" }

type PipelineTariff struct {
	TariffID         string    `gorm:"column:tariff_id;primaryKey"`
	PipelineID       string    `gorm:"column:pipeline_id;index"`
	Origin           string    `gorm:"column:origin;not null"`
	Destination      string    `gorm:"column:destination;not null"`
	ProductType      string    `gorm:"column:product_type"`
	RatePerGallon    *float64  `gorm:"column:rate_per_gallon"`
	RateBasis        string    `gorm:"column:rate_basis"`
	EffectiveDate    *string   `gorm:"column:effective_date"`
	EndDate          *string   `gorm:"column:end_date"`
	SourceDocument   string    `gorm:"column:source_document"`
	FERCTariffNumber string    `gorm:"column:ferc_tariff_number"`
	CreatedBy        string    `gorm:"column:created_by"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (PipelineTariff) TableName() string { return "pipeline_tariffs" }

// QualityLog is one row of data_quality_log.
type QualityLog struct {
	LogID          string    `gorm:"column:log_id;primaryKey"`
	RecordType     string    `gorm:"column:record_type;not null"`
	RecordID       string    `gorm:"column:record_id;not null;index"`
	QualityCheck   string    `gorm:"column:quality_check"`
	CheckResult    string    `gorm:"column:check_result"`
	CheckDetails   string    `gorm:"column:check_details"`
	CheckTimestamp time.Time `gorm:"column:check_timestamp"`
	AgentName      string    `gorm:"column:agent_name"`
}

func (QualityLog) TableName() string { return "data_quality_log" }

const activeTerminalsView = `CREATE VIEW IF NOT EXISTS v_active_terminals AS
SELECT * FROM terminals
WHERE (end_date IS NULL OR end_date > date('now'))
AND (effective_date IS NULL OR effective_date <= date('now'))`

const activeTariffsView = `CREATE VIEW IF NOT EXISTS v_active_pipeline_tariffs AS
SELECT * FROM pipeline_tariffs
WHERE (end_date IS NULL OR end_date > date('now'))
AND (effective_date IS NULL OR effective_date <= date('now'))`
