package repository

import (
	"fmt"

	"github.com/brgycare/brgycare-backend/pkg/errors"
)

// Family describes one batchable item family. The medication and vaccine
// families share identical batch, status, and migration logic; everything
// family-specific (table names, the legacy flat stock column, the batch
// number prefix) lives here so the logic is written once.
type Family struct {
	// Kind is the API discriminator ("medication" or "vaccine")
	Kind string
	// Label is the human-readable singular name used in messages
	Label string
	// ItemTable is the catalog table for this family
	ItemTable string
	// BatchTable is the batch table for this family
	BatchTable string
	// LegacyStockColumn is the pre-batch-model flat stock column
	// (units_in_stock for medications, doses_in_stock for vaccines)
	LegacyStockColumn string
	// BatchPrefix is used when generating placeholder batch numbers
	BatchPrefix string
}

// Medications is the medication item family
var Medications = Family{
	Kind:              "medication",
	Label:             "medication",
	ItemTable:         "medications",
	BatchTable:        "medication_batches",
	LegacyStockColumn: "units_in_stock",
	BatchPrefix:       "MED",
}

// Vaccines is the vaccine item family
var Vaccines = Family{
	Kind:              "vaccine",
	Label:             "vaccine",
	ItemTable:         "vaccines",
	BatchTable:        "vaccine_batches",
	LegacyStockColumn: "doses_in_stock",
	BatchPrefix:       "VAX",
}

// Families lists all item families
var Families = []Family{Medications, Vaccines}

// FamilyFor resolves a family from its API kind
func FamilyFor(kind string) (Family, error) {
	switch kind {
	case Medications.Kind:
		return Medications, nil
	case Vaccines.Kind:
		return Vaccines, nil
	default:
		return Family{}, errors.BadRequest(fmt.Sprintf("unknown item type %q", kind))
	}
}
