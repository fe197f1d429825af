// Package hashing implements the dual-hash change-detection engine and
// assertion-key builders. Both a raw hash (canonical serialization of the
// untouched cell values) and a normalized hash (canonical serialization
// after whitespace/case/null normalization) are always computed; the
// ingestion spec's change-detection mode selects which one drives diffing.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CellType declares how a raw value should be interpreted when applying
// normalization rules. It has no bearing on raw-hash computation.
type CellType string

const (
	CellTypeString  CellType = "string"
	CellTypeNumber  CellType = "number"
	CellTypeDate    CellType = "date"
	CellTypeBoolean CellType = "boolean"
)

// SerializationSpec controls canonical serialization for raw-hash
// computation. The zero value is not valid; use DefaultSerializationSpec.
type SerializationSpec struct {
	Delimiter         string
	NullRepresentation string
	NumberFormat      string
	DateFormat        string
}

// DefaultSerializationSpec matches the defaults of RawHashSerialization in
// the ingestion spec YAML.
func DefaultSerializationSpec() SerializationSpec {
	return SerializationSpec{
		Delimiter:          "|",
		NullRepresentation: "<NULL>",
		NumberFormat:       "as_displayed",
		DateFormat:         "as_displayed",
	}
}

// NormalizationRules controls per-cell normalization before normalized-hash
// computation.
type NormalizationRules struct {
	TrimWhitespace  bool
	LowercaseStrings bool
	NormalizeNulls  []string
	DecimalPlaces   *int
	DateFormat      string
}

// DefaultNormalizationRules matches the defaults of NormalizationRule in
// the ingestion spec YAML.
func DefaultNormalizationRules() NormalizationRules {
	return NormalizationRules{
		TrimWhitespace:   true,
		LowercaseStrings: true,
		NormalizeNulls:   []string{"", "N/A", "n/a", "null", "-"},
	}
}

var acceptedDateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func serializeValue(value any, spec SerializationSpec) string {
	if value == nil {
		return spec.NullRepresentation
	}
	switch v := value.(type) {
	case bool:
		if v {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return formatFloat(v)
	case time.Time:
		return v.Format(time.RFC3339)
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatFloat(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ComputeRawHash computes the raw_hash: SHA-256 hex of the delimiter-joined
// canonical serialization of row values, in declared column order.
func ComputeRawHash(rowValues []any, spec SerializationSpec) string {
	parts := make([]string, len(rowValues))
	for i, v := range rowValues {
		parts[i] = serializeValue(v, spec)
	}
	canonical := strings.Join(parts, spec.Delimiter)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

func normalizeValue(value any, rules NormalizationRules, cellType CellType) string {
	if value == nil {
		return ""
	}
	s := serializeValue(value, SerializationSpec{NullRepresentation: ""})

	for _, pattern := range rules.NormalizeNulls {
		if s == pattern {
			return ""
		}
	}

	if rules.TrimWhitespace {
		s = strings.TrimSpace(s)
	}

	if rules.LowercaseStrings && cellType == CellTypeString {
		s = strings.ToLower(s)
	}

	if rules.DecimalPlaces != nil && cellType == CellTypeNumber {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			s = strconv.FormatFloat(f, 'f', *rules.DecimalPlaces, 64)
		}
	}

	if rules.DateFormat != "" && cellType == CellTypeDate {
		for _, layout := range acceptedDateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				s = t.Format(translateDateFormat(rules.DateFormat))
				break
			}
		}
	}

	return s
}

// translateDateFormat converts a YYYY-MM-DD style format string into a Go
// reference-time layout, matching the spec's informal date_format syntax.
func translateDateFormat(format string) string {
	replacer := strings.NewReplacer("YYYY", "2006", "MM", "01", "DD", "02")
	return replacer.Replace(format)
}

// ComputeNormalizedHash computes the normalized_hash: the same
// delimiter-joined serialization pipeline as ComputeRawHash, but each value
// is normalized first. valueTypes, if shorter than rowValues or nil,
// defaults remaining entries to CellTypeString.
func ComputeNormalizedHash(rowValues []any, spec SerializationSpec, rules NormalizationRules, valueTypes []CellType) string {
	parts := make([]string, len(rowValues))
	for i, v := range rowValues {
		cellType := CellTypeString
		if i < len(valueTypes) {
			cellType = valueTypes[i]
		}
		parts[i] = normalizeValue(v, rules, cellType)
	}
	canonical := strings.Join(parts, spec.Delimiter)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// ComputePropertyRawHash computes raw_hash for a single property value,
// defined as the row hash of a single-element row.
func ComputePropertyRawHash(value any, spec SerializationSpec) string {
	return ComputeRawHash([]any{value}, spec)
}

// ComputePropertyNormalizedHash computes normalized_hash for a single
// property value.
func ComputePropertyNormalizedHash(value any, spec SerializationSpec, rules NormalizationRules, cellType CellType) string {
	return ComputeNormalizedHash([]any{value}, spec, rules, []CellType{cellType})
}

// AssertionKeyProperty builds the assertion_key for a property claim:
// {wid}:{entity_type}:{primary_key}:prop:{property_key}
func AssertionKeyProperty(workspaceID, entityType, primaryKey, propertyKey string) string {
	return fmt.Sprintf("%s:%s:%s:prop:%s", workspaceID, entityType, primaryKey, propertyKey)
}

// AssertionKeyRelationship builds the assertion_key for a relationship
// claim: {wid}:{etype_from}:{pk_from}:{rel_type}:{etype_to}:{pk_to}
func AssertionKeyRelationship(workspaceID, entityTypeFrom, pkFrom, relationshipType, entityTypeTo, pkTo string) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s:%s", workspaceID, entityTypeFrom, pkFrom, relationshipType, entityTypeTo, pkTo)
}
