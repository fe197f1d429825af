package neo4jdriver

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/factlake/factlake/pkg/idgen"
	"github.com/factlake/factlake/pkg/model"
)

func (d *Driver) InsertAssertion(ctx context.Context, a model.AssertionRecord) (string, error) {
	if a.AssertionID == "" {
		a.AssertionID = d.idGen.Generate(idgen.PrefixAssertionRecord)
	}
	session := d.session(ctx)
	defer session.Close(ctx)

	_, err := d.retryableWrite(ctx, func() (any, error) {
		return session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, `
				CREATE (a:AssertionRecord {
					assertion_id: $assertion_id, workspace_id: $workspace_id,
					assertion_key: $assertion_key, raw_hash: $raw_hash,
					normalized_hash: $normalized_hash, source_type: $source_type,
					source_id: $source_id, import_run_id: $import_run_id,
					recorded_at: $recorded_at, valid_from: $valid_from, valid_to: $valid_to,
					scenario_id: $scenario_id, confidence: $confidence,
					relationship_type: $relationship_type, property_key: $property_key,
					supersedes: $supersedes
				})`, map[string]any{
				"assertion_id":      a.AssertionID,
				"workspace_id":      a.WorkspaceID,
				"assertion_key":     a.AssertionKey,
				"raw_hash":          a.RawHash,
				"normalized_hash":   a.NormalizedHash,
				"source_type":       string(a.SourceType),
				"source_id":         strOrNil(a.SourceID),
				"import_run_id":     strOrNil(a.ImportRunID),
				"recorded_at":       a.RecordedAt,
				"valid_from":        a.ValidFrom,
				"valid_to":          timeOrNil(a.ValidTo),
				"scenario_id":       a.ScenarioID,
				"confidence":        a.Confidence,
				"relationship_type": a.RelationshipType,
				"property_key":      strOrNil(a.PropertyKey),
				"supersedes":        strOrNil(a.Supersedes),
			})
			return nil, err
		})
	})
	if err != nil {
		return "", err
	}
	return a.AssertionID, nil
}

func (d *Driver) CloseAssertion(ctx context.Context, assertionID string, validTo time.Time) error {
	session := d.session(ctx)
	defer session.Close(ctx)

	_, err := d.retryableWrite(ctx, func() (any, error) {
		return session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, `
				MATCH (a:AssertionRecord {assertion_id: $assertion_id})
				SET a.valid_to = $valid_to`, map[string]any{
				"assertion_id": assertionID,
				"valid_to":     validTo,
			})
			return nil, err
		})
	})
	return err
}

func (d *Driver) LookupAssertionsByKey(ctx context.Context, workspaceID, assertionKey, scenarioID string) ([]model.AssertionRecord, error) {
	session := d.session(ctx)
	defer session.Close(ctx)

	res, err := d.retryableWrite(ctx, func() (any, error) {
		return session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, `
				MATCH (a:AssertionRecord {
					workspace_id: $workspace_id, assertion_key: $assertion_key, scenario_id: $scenario_id
				})
				RETURN a`, map[string]any{
				"workspace_id":  workspaceID,
				"assertion_key": assertionKey,
				"scenario_id":   scenarioID,
			})
			if err != nil {
				return nil, err
			}
			records, err := result.Collect(ctx)
			if err != nil {
				return nil, err
			}
			return recordsToAssertions(records)
		})
	})
	if err != nil {
		return nil, err
	}
	return res.([]model.AssertionRecord), nil
}

func (d *Driver) LookupAssertionsByImportRun(ctx context.Context, importRunID string) ([]model.AssertionRecord, error) {
	session := d.session(ctx)
	defer session.Close(ctx)

	res, err := d.retryableWrite(ctx, func() (any, error) {
		return session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, `
				MATCH (a:AssertionRecord {import_run_id: $import_run_id})
				RETURN a`, map[string]any{
				"import_run_id": importRunID,
			})
			if err != nil {
				return nil, err
			}
			records, err := result.Collect(ctx)
			if err != nil {
				return nil, err
			}
			return recordsToAssertions(records)
		})
	})
	if err != nil {
		return nil, err
	}
	return res.([]model.AssertionRecord), nil
}

func (d *Driver) GetAssertionsForEntity(ctx context.Context, workspaceID, entityID string) ([]model.AssertionRecord, error) {
	session := d.session(ctx)
	defer session.Close(ctx)

	res, err := d.retryableWrite(ctx, func() (any, error) {
		return session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, `
				MATCH (e:Entity {entity_id: $entity_id, workspace_id: $workspace_id})
				MATCH (e)-[:ASSERTED_REL]->(a:AssertionRecord)
				RETURN a`, map[string]any{
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
			return recordsToAssertions(records)
		})
	})
	if err != nil {
		return nil, err
	}
	return res.([]model.AssertionRecord), nil
}

func recordsToAssertions(records []*neo4j.Record) ([]model.AssertionRecord, error) {
	out := make([]model.AssertionRecord, 0, len(records))
	for _, rec := range records {
		a, err := recordToAssertion(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, nil
}

func recordToAssertion(rec *neo4j.Record) (*model.AssertionRecord, error) {
	raw, _ := rec.Get("a")
	node := raw.(neo4j.Node)
	props := node.Props

	a := &model.AssertionRecord{
		AssertionID:      props["assertion_id"].(string),
		WorkspaceID:      props["workspace_id"].(string),
		AssertionKey:     props["assertion_key"].(string),
		RawHash:          props["raw_hash"].(string),
		NormalizedHash:   props["normalized_hash"].(string),
		SourceType:       model.SourceType(props["source_type"].(string)),
		SourceID:         asOptString(props["source_id"]),
		ImportRunID:      asOptString(props["import_run_id"]),
		ScenarioID:       props["scenario_id"].(string),
		RelationshipType: props["relationship_type"].(string),
		PropertyKey:      asOptString(props["property_key"]),
		Supersedes:       asOptString(props["supersedes"]),
	}
	if conf, ok := props["confidence"].(float64); ok {
		a.Confidence = conf
	}
	if recordedAt, ok := props["recorded_at"]; ok {
		a.RecordedAt = asTime(recordedAt)
	}
	if validFrom, ok := props["valid_from"]; ok {
		a.ValidFrom = asTime(validFrom)
	}
	a.ValidTo = asOptTime(props["valid_to"])
	return a, nil
}
