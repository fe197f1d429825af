package duckdriver

// schemaDDL creates the embedded DuckDB-backed mirror of the graph: one
// table per vertex type plus narrow edge tables for ASSERTED_REL,
// CREATED_ASSERTION, CLOSED_ASSERTION, and TRIGGERED_BY. This driver exists
// for tests and local development; it opens an in-process or on-disk DuckDB
// file directly rather than attaching a catalog-backed lake.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS entities (
	entity_id VARCHAR PRIMARY KEY,
	workspace_id VARCHAR NOT NULL,
	entity_type VARCHAR NOT NULL,
	primary_key VARCHAR NOT NULL,
	display_name VARCHAR,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE (workspace_id, entity_type, primary_key)
);

CREATE TABLE IF NOT EXISTS assertion_records (
	assertion_id VARCHAR PRIMARY KEY,
	workspace_id VARCHAR NOT NULL,
	assertion_key VARCHAR NOT NULL,
	raw_hash VARCHAR NOT NULL,
	normalized_hash VARCHAR NOT NULL,
	source_type VARCHAR NOT NULL,
	source_ref VARCHAR,
	source_id VARCHAR,
	import_run_id VARCHAR,
	recorded_at TIMESTAMP NOT NULL,
	valid_from TIMESTAMP NOT NULL,
	valid_to TIMESTAMP,
	scenario_id VARCHAR NOT NULL,
	confidence DOUBLE NOT NULL,
	supersedes VARCHAR,
	relationship_type VARCHAR NOT NULL,
	property_key VARCHAR
);

CREATE TABLE IF NOT EXISTS property_values (
	property_value_id VARCHAR PRIMARY KEY,
	workspace_id VARCHAR NOT NULL,
	property_key VARCHAR NOT NULL,
	value VARCHAR,
	value_type VARCHAR NOT NULL
);

CREATE TABLE IF NOT EXISTS change_events (
	change_event_id VARCHAR PRIMARY KEY,
	workspace_id VARCHAR NOT NULL,
	event_type VARCHAR NOT NULL,
	description VARCHAR,
	ts TIMESTAMP NOT NULL,
	import_run_id VARCHAR,
	actor VARCHAR,
	stats VARCHAR
);

CREATE TABLE IF NOT EXISTS import_runs (
	import_run_id VARCHAR PRIMARY KEY,
	workspace_id VARCHAR NOT NULL,
	source_file VARCHAR,
	spec_name VARCHAR,
	started_at TIMESTAMP NOT NULL,
	completed_at TIMESTAMP,
	status VARCHAR NOT NULL,
	stats VARCHAR,
	error_message VARCHAR
);

CREATE TABLE IF NOT EXISTS sources (
	source_id VARCHAR PRIMARY KEY,
	workspace_id VARCHAR NOT NULL,
	source_name VARCHAR NOT NULL,
	source_type VARCHAR NOT NULL,
	authority_rank BIGINT NOT NULL,
	authority_domains VARCHAR,
	update_frequency VARCHAR,
	description VARCHAR
);

CREATE TABLE IF NOT EXISTS asserted_rel_edges (
	entity_id VARCHAR NOT NULL,
	assertion_id VARCHAR NOT NULL,
	target_id VARCHAR
);

CREATE TABLE IF NOT EXISTS created_assertion_edges (
	change_event_id VARCHAR NOT NULL,
	assertion_id VARCHAR NOT NULL
);

CREATE TABLE IF NOT EXISTS closed_assertion_edges (
	change_event_id VARCHAR NOT NULL,
	assertion_id VARCHAR NOT NULL
);

CREATE TABLE IF NOT EXISTS triggered_by_edges (
	change_event_id VARCHAR NOT NULL,
	trigger_id VARCHAR NOT NULL
);
`
