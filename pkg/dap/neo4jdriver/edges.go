package neo4jdriver

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// CreateAssertedRel links fromEntityID -[ASSERTED_REL]-> assertionID and
// assertionID -[ASSERTED_REL]-> the node named by
// toEntityIDOrPropertyValueID. Both property and relationship claims reuse
// this single edge shape: for property assertions the target is a
// PropertyValue, for relationship assertions it is the target Entity.
func (d *Driver) CreateAssertedRel(ctx context.Context, fromEntityID, assertionID, toEntityIDOrPropertyValueID string) error {
	session := d.session(ctx)
	defer session.Close(ctx)

	_, err := d.retryableWrite(ctx, func() (any, error) {
		return session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, `
				MATCH (e:Entity {entity_id: $from_entity_id})
				MATCH (a:AssertionRecord {assertion_id: $assertion_id})
				MERGE (e)-[:ASSERTED_REL]->(a)
				WITH a
				OPTIONAL MATCH (pv:PropertyValue {property_value_id: $target_id})
				FOREACH (_ IN CASE WHEN pv IS NOT NULL THEN [1] ELSE [] END |
					MERGE (a)-[:ASSERTED_REL]->(pv)
				)
				WITH a
				OPTIONAL MATCH (target:Entity {entity_id: $target_id})
				FOREACH (_ IN CASE WHEN target IS NOT NULL THEN [1] ELSE [] END |
					MERGE (a)-[:ASSERTED_REL]->(target)
				)`, map[string]any{
				"from_entity_id": fromEntityID,
				"assertion_id":   assertionID,
				"target_id":      toEntityIDOrPropertyValueID,
			})
			return nil, err
		})
	})
	return err
}

func (d *Driver) LinkCreatedAssertion(ctx context.Context, changeEventID, assertionID string) error {
	return d.linkChangeEvent(ctx, changeEventID, assertionID, "CREATED_ASSERTION")
}

func (d *Driver) LinkClosedAssertion(ctx context.Context, changeEventID, assertionID string) error {
	return d.linkChangeEvent(ctx, changeEventID, assertionID, "CLOSED_ASSERTION")
}

func (d *Driver) LinkTriggeredBy(ctx context.Context, changeEventID, triggerID string) error {
	return d.linkChangeEvent(ctx, changeEventID, triggerID, "TRIGGERED_BY")
}

// linkChangeEvent matches the ChangeEvent and the target node by id across
// AssertionRecord, ImportRun, and ChangeEvent labels, since TRIGGERED_BY may
// point at an ImportRun or at another ChangeEvent depending on cause.
func (d *Driver) linkChangeEvent(ctx context.Context, changeEventID, targetID, relType string) error {
	session := d.session(ctx)
	defer session.Close(ctx)

	_, err := d.retryableWrite(ctx, func() (any, error) {
		return session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, `
				MATCH (ce:ChangeEvent {change_event_id: $change_event_id})
				MATCH (target) WHERE target.assertion_id = $target_id
					OR target.import_run_id = $target_id
					OR target.change_event_id = $target_id
				MERGE (ce)-[:`+relType+`]->(target)`, map[string]any{
				"change_event_id": changeEventID,
				"target_id":       targetID,
			})
			return nil, err
		})
	})
	return err
}
