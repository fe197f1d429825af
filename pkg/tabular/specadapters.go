package tabular

import (
	"github.com/factlake/factlake/pkg/hashing"
	"github.com/factlake/factlake/pkg/specs"
)

// ToSerializationSpec bridges an IngestionSpec's raw-hash serialization
// settings into the hashing package's own type. Exported so the ingestion
// engine computes hashes with the exact same rules staging used.
func ToSerializationSpec(s specs.RawHashSerialization) hashing.SerializationSpec {
	return hashing.SerializationSpec{
		Delimiter:          s.Delimiter,
		NullRepresentation: s.NullRepresentation,
		NumberFormat:       s.NumberFormat,
		DateFormat:         s.DateFormat,
	}
}

// ToNormalizationRules bridges an IngestionSpec's change-detection
// normalization rule settings into the hashing package's own type.
func ToNormalizationRules(r specs.NormalizationRule) hashing.NormalizationRules {
	return hashing.NormalizationRules{
		TrimWhitespace:   r.TrimWhitespace,
		LowercaseStrings: r.LowercaseString,
		NormalizeNulls:   r.NormalizeNulls,
		DateFormat:       r.DateFormat,
	}
}
