package duckdriver

import (
	"context"

	"github.com/factlake/factlake/pkg/idgen"
	"github.com/factlake/factlake/pkg/model"
)

func (d *Driver) InsertPropertyValue(ctx context.Context, pv model.PropertyValue) (string, error) {
	if pv.PropertyValueID == "" {
		pv.PropertyValueID = d.idGen.Generate(idgen.PrefixPropertyValue)
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO property_values (property_value_id, workspace_id, property_key, value, value_type)
		VALUES (?, ?, ?, ?, ?)`,
		pv.PropertyValueID, pv.WorkspaceID, pv.PropertyKey, nullIfEmpty(pv.Value), string(pv.ValueType))
	if err != nil {
		return "", err
	}
	return pv.PropertyValueID, nil
}
