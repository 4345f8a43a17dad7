package sqldb

// Types are limited to those DuckDB and PostgreSQL both accept.
const SalesTableSchema = `
	CREATE TABLE IF NOT EXISTS sales_aggregated (
		date DATE NOT NULL,
		channel VARCHAR(20) NOT NULL,
		department VARCHAR(50) NOT NULL,
		promo_flag BOOLEAN DEFAULT FALSE,
		discount_pct FLOAT8 DEFAULT 0,
		sales_value FLOAT8 NOT NULL,
		margin_value FLOAT8 NOT NULL,
		units FLOAT8 NOT NULL
	);
`

const UpliftTableSchema = `
	CREATE TABLE IF NOT EXISTS uplift_coefficients (
		department VARCHAR(50) NOT NULL,
		channel VARCHAR(20) NOT NULL,
		discount_band VARCHAR(20) NOT NULL,
		uplift_sales_pct FLOAT8 NOT NULL,
		uplift_units_pct FLOAT8 NOT NULL,
		margin_impact_pct FLOAT8 NOT NULL,
		confidence FLOAT8,
		sample_size INTEGER,
		model_version VARCHAR(40) NOT NULL,
		PRIMARY KEY (department, channel, discount_band)
	);
`

const SegmentTableSchema = `
	CREATE TABLE IF NOT EXISTS segments (
		segment_id VARCHAR(50) PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		description TEXT,
		share_of_customers FLOAT8 NOT NULL,
		share_of_revenue FLOAT8 NOT NULL,
		avg_basket_value FLOAT8 NOT NULL,
		discount_sensitivity VARCHAR(20)
	);
`

const ScenarioTableSchema = `
	CREATE TABLE IF NOT EXISTS promo_scenarios (
		id VARCHAR PRIMARY KEY,
		label VARCHAR(100) NOT NULL,
		scenario_type VARCHAR(50),
		date_range_start DATE NOT NULL,
		date_range_end DATE NOT NULL,
		payload TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
`

const KPITableSchema = `
	CREATE TABLE IF NOT EXISTS scenario_kpis (
		id VARCHAR PRIMARY KEY,
		scenario_id VARCHAR NOT NULL,
		period_start DATE NOT NULL,
		period_end DATE NOT NULL,
		total_sales_value FLOAT8 NOT NULL,
		total_margin_value FLOAT8 NOT NULL,
		total_margin_pct FLOAT8 NOT NULL,
		total_ebit FLOAT8 NOT NULL,
		total_units FLOAT8 NOT NULL,
		payload TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
`

const ValidationTableSchema = `
	CREATE TABLE IF NOT EXISTS validation_reports (
		id VARCHAR PRIMARY KEY,
		scenario_id VARCHAR NOT NULL,
		status VARCHAR(20) NOT NULL,
		overall_score FLOAT8 NOT NULL,
		payload TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
`

const PostMortemTableSchema = `
	CREATE TABLE IF NOT EXISTS postmortem_reports (
		id VARCHAR PRIMARY KEY,
		scenario_id VARCHAR NOT NULL,
		period_start DATE NOT NULL,
		period_end DATE NOT NULL,
		payload TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
`

// Month is formatted YYYY-MM.
const TargetTableSchema = `
	CREATE TABLE IF NOT EXISTS targets (
		month VARCHAR(7) PRIMARY KEY,
		sales_target FLOAT8 NOT NULL,
		margin_pct_target FLOAT8 NOT NULL,
		units_target FLOAT8
	);
`

// BootQueries create every table the service reads or writes.
var BootQueries = []string{
	SalesTableSchema,
	UpliftTableSchema,
	SegmentTableSchema,
	TargetTableSchema,
	ScenarioTableSchema,
	KPITableSchema,
	ValidationTableSchema,
	PostMortemTableSchema,
}
