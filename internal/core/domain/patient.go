package domain

import "time"

// Patient represents a registered patient and the structured medical
// history extracted from their intake documents.
type Patient struct {
	// ID is the unique identifier for the patient.
	ID string

	// Name is the patient's full name.
	Name string

	// Age in whole years.
	Age int

	// Summary is a short clinical summary produced during intake.
	Summary string

	// History is the structured medical history extracted from documents.
	History MedicalHistory

	// CreatedAt is when the patient was registered.
	CreatedAt time.Time

	// UpdatedAt is when the record was last modified.
	UpdatedAt time.Time
}

// MedicalHistory holds the structured fields extracted by the intake agent.
type MedicalHistory struct {
	Allergies   []string
	Medications []string
	Conditions  []string

	// Vitals holds loosely typed vital signs (blood pressure, temperature,
	// heart rate...) as extracted from free text.
	Vitals map[string]any
}

// MedicalDocument is a raw document attached to a patient. Its full text is
// the unit of work for the indexing pipeline.
type MedicalDocument struct {
	// ID is the unique identifier for the document.
	ID string

	// PatientID links to the owning Patient.
	PatientID string

	// Title is a human-readable title.
	Title string

	// Text is the full document text.
	Text string

	// Metadata contains arbitrary key-value pairs (word counts, entity
	// counts, source hints).
	Metadata map[string]any

	// CreatedAt is when the document was stored.
	CreatedAt time.Time
}

// MedicalExtraction is the structured output of intake parsing. Fields that
// cannot be extracted stay empty rather than nil-ing the whole result.
type MedicalExtraction struct {
	Summary        string         `json:"summary"`
	Allergies      []string       `json:"allergies"`
	Medications    []string       `json:"medications"`
	Conditions     []string       `json:"conditions"`
	Vitals         map[string]any `json:"vitals"`
	ChiefComplaint string         `json:"chiefComplaint"`
	DiagnosisNotes string         `json:"diagnosisNotes"`
}
