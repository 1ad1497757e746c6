package comment

import (
	"time"

	"github.com/google/uuid"
)

type EntryType string

const (
	EntryMedication        EntryType = "Medication"
	EntryLaboratory        EntryType = "Laboratory"
	EntryImmunization      EntryType = "Immunization"
	EntryEncounter         EntryType = "Encounter"
	EntryCovid19TestResult EntryType = "Covid19TestResult"
	EntryDiagnosticImaging EntryType = "DiagnosticImaging"
	EntryClinicalDocument  EntryType = "ClinicalDocument"
	EntrySpecialAuthority  EntryType = "SpecialAuthority"
	EntryHospitalVisit     EntryType = "HospitalVisit"
)

var validEntryTypes = map[EntryType]bool{
	EntryMedication: true, EntryLaboratory: true, EntryImmunization: true,
	EntryEncounter: true, EntryCovid19TestResult: true, EntryDiagnosticImaging: true,
	EntryClinicalDocument: true, EntrySpecialAuthority: true, EntryHospitalVisit: true,
}

const maxTextLength = 1000

// Comment is a user's note on a health record entry. Text is stored encrypted
// with the profile key.
type Comment struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Hdid          string    `db:"hdid" json:"hdid"`
	ParentEntryID string    `db:"parent_entry_id" json:"parent_entry_id" validate:"required,max=100"`
	EntryTypeCode EntryType `db:"entry_type_code" json:"entry_type_code" validate:"required"`
	Text          string    `db:"text" json:"text" validate:"required,max=1000"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
	Version       int       `db:"version" json:"version"`
}

// DeleteRequest identifies the comment and the version the caller last saw.
type DeleteRequest struct {
	ID      uuid.UUID `json:"id" validate:"required"`
	Version int       `json:"version"`
}
