package neo4jdriver

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/factlake/factlake/pkg/idgen"
	"github.com/factlake/factlake/pkg/model"
)

// UpsertEntity runs a single MERGE so the common entity-upsert path costs
// one round-trip instead of a lookup-then-write pair; ON CREATE stamps
// created_at with this call's timestamp, and comparing it back in RETURN
// lets the same query report whether the entity already existed.
func (d *Driver) UpsertEntity(ctx context.Context, workspaceID, entityType, primaryKey string, displayName *string) (string, bool, error) {
	entityID := d.idGen.Generate(idgen.PrefixEntity)
	session := d.session(ctx)
	defer session.Close(ctx)

	res, err := d.retryableWrite(ctx, func() (any, error) {
		return session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			now := d.clock.Now()
			result, err := tx.Run(ctx, `
				MERGE (e:Entity {workspace_id: $workspace_id, entity_type: $entity_type, primary_key: $primary_key})
				ON CREATE SET
					e.entity_id = $entity_id, e.display_name = $display_name,
					e.created_at = $now, e.updated_at = $now
				RETURN e.entity_id AS entity_id, e.created_at = $now AS just_created`, map[string]any{
				"entity_id":    entityID,
				"workspace_id": workspaceID,
				"entity_type":  entityType,
				"primary_key":  primaryKey,
				"display_name": strOrNil(displayName),
				"now":          now,
			})
			if err != nil {
				return nil, err
			}
			record, err := result.Single(ctx)
			if err != nil {
				return nil, err
			}
			id, _ := record.Get("entity_id")
			justCreated, _ := record.Get("just_created")
			return [2]any{id.(string), !justCreated.(bool)}, nil
		})
	})
	if err != nil {
		return "", false, err
	}
	out := res.([2]any)
	return out[0].(string), out[1].(bool), nil
}

func (d *Driver) LookupEntity(ctx context.Context, workspaceID, entityType, primaryKey string) (*model.Entity, error) {
	session := d.session(ctx)
	defer session.Close(ctx)

	res, err := d.retryableWrite(ctx, func() (any, error) {
		return session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, `
				MATCH (e:Entity {workspace_id: $workspace_id, entity_type: $entity_type, primary_key: $primary_key})
				RETURN e LIMIT 1`, map[string]any{
				"workspace_id": workspaceID,
				"entity_type":  entityType,
				"primary_key":  primaryKey,
			})
			if err != nil {
				return nil, err
			}
			records, err := result.Collect(ctx)
			if err != nil {
				return nil, err
			}
			if len(records) == 0 {
				return nil, nil
			}
			return recordToEntity(records[0])
		})
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	ent := res.(*model.Entity)
	return ent, nil
}

func (d *Driver) GetEntity(ctx context.Context, workspaceID, entityID string) (*model.Entity, error) {
	session := d.session(ctx)
	defer session.Close(ctx)

	res, err := d.retryableWrite(ctx, func() (any, error) {
		return session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, `
				MATCH (e:Entity {entity_id: $entity_id, workspace_id: $workspace_id})
				RETURN e LIMIT 1`, map[string]any{
				"entity_id":    entityID,
				"workspace_id": workspaceID,
			})
			if err != nil {
				return nil, err
			}
			records, err := result.Collect(ctx)
			if err != nil {
				return nil, err
			}
			if len(records) == 0 {
				return nil, nil
			}
			return recordToEntity(records[0])
		})
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return res.(*model.Entity), nil
}

func (d *Driver) SearchEntities(ctx context.Context, workspaceID string, entityType, primaryKey *string, limit int) ([]model.Entity, error) {
	session := d.session(ctx)
	defer session.Close(ctx)

	res, err := d.retryableWrite(ctx, func() (any, error) {
		return session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, `
				MATCH (e:Entity {workspace_id: $workspace_id})
				WHERE ($entity_type IS NULL OR e.entity_type = $entity_type)
				  AND ($primary_key IS NULL OR e.primary_key = $primary_key)
				RETURN e LIMIT $limit`, map[string]any{
				"workspace_id": workspaceID,
				"entity_type":  strOrNil(entityType),
				"primary_key":  strOrNil(primaryKey),
				"limit":        int64(limit),
			})
			if err != nil {
				return nil, err
			}
			records, err := result.Collect(ctx)
			if err != nil {
				return nil, err
			}
			entities := make([]model.Entity, 0, len(records))
			for _, rec := range records {
				e, err := recordToEntity(rec)
				if err != nil {
					return nil, err
				}
				entities = append(entities, *e)
			}
			return entities, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return res.([]model.Entity), nil
}

func recordToEntity(rec *neo4j.Record) (*model.Entity, error) {
	raw, _ := rec.Get("e")
	node := raw.(neo4j.Node)
	props := node.Props

	e := &model.Entity{
		EntityID:    props["entity_id"].(string),
		WorkspaceID: props["workspace_id"].(string),
		EntityType:  props["entity_type"].(string),
		PrimaryKey:  props["primary_key"].(string),
		DisplayName: asOptString(props["display_name"]),
	}
	if createdAt, ok := props["created_at"]; ok {
		e.CreatedAt = asTime(createdAt)
	}
	if updatedAt, ok := props["updated_at"]; ok {
		e.UpdatedAt = asTime(updatedAt)
	}
	return e, nil
}
