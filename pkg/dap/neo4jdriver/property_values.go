package neo4jdriver

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/factlake/factlake/pkg/idgen"
	"github.com/factlake/factlake/pkg/model"
)

func (d *Driver) InsertPropertyValue(ctx context.Context, pv model.PropertyValue) (string, error) {
	if pv.PropertyValueID == "" {
		pv.PropertyValueID = d.idGen.Generate(idgen.PrefixPropertyValue)
	}
	session := d.session(ctx)
	defer session.Close(ctx)

	_, err := d.retryableWrite(ctx, func() (any, error) {
		return session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, `
				CREATE (pv:PropertyValue {
					property_value_id: $property_value_id, workspace_id: $workspace_id,
					property_key: $property_key, value: $value, value_type: $value_type
				})`, map[string]any{
				"property_value_id": pv.PropertyValueID,
				"workspace_id":      pv.WorkspaceID,
				"property_key":      pv.PropertyKey,
				"value":             strOrNil(pv.Value),
				"value_type":        string(pv.ValueType),
			})
			return nil, err
		})
	})
	if err != nil {
		return "", err
	}
	return pv.PropertyValueID, nil
}
