package duckdriver

import "context"

func (d *Driver) CreateAssertedRel(ctx context.Context, fromEntityID, assertionID, toEntityIDOrPropertyValueID string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO asserted_rel_edges (entity_id, assertion_id, target_id) VALUES (?, ?, ?)`,
		fromEntityID, assertionID, toEntityIDOrPropertyValueID)
	return err
}

func (d *Driver) LinkCreatedAssertion(ctx context.Context, changeEventID, assertionID string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO created_assertion_edges (change_event_id, assertion_id) VALUES (?, ?)`,
		changeEventID, assertionID)
	return err
}

func (d *Driver) LinkClosedAssertion(ctx context.Context, changeEventID, assertionID string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO closed_assertion_edges (change_event_id, assertion_id) VALUES (?, ?)`,
		changeEventID, assertionID)
	return err
}

func (d *Driver) LinkTriggeredBy(ctx context.Context, changeEventID, triggerID string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO triggered_by_edges (change_event_id, trigger_id) VALUES (?, ?)`,
		changeEventID, triggerID)
	return err
}
