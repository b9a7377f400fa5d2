package mother

import (
	"time"

	"github.com/google/uuid"
)

// Mother maps to the mother table. RUT is stored in canonical NNNNNNNN-DV
// form and is unique across active and inactive records alike.
type Mother struct {
	ID         uuid.UUID `db:"id" json:"id"`
	RUT        string    `db:"rut" json:"rut"`
	FullName   string    `db:"full_name" json:"full_name"`
	BirthDate  time.Time `db:"birth_date" json:"birth_date"`
	ComunaID   uuid.UUID `db:"comuna_id" json:"comuna_id"`
	FacilityID uuid.UUID `db:"facility_id" json:"facility_id"`
	Migrant    bool      `db:"migrant" json:"migrant"`
	Indigenous bool      `db:"indigenous" json:"indigenous"`
	Disability bool      `db:"disability" json:"disability"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ScreeningPending is the default result for every screening field until a
// lab value is recorded.
const ScreeningPending = "PENDIENTE"

// Screening holds the maternal serology panel, one row per mother. Result
// values come from the VAL_RESULTADO_TAMIZAJE catalog.
type Screening struct {
	MotherID        uuid.UUID `db:"mother_id" json:"mother_id"`
	VDRLResult      string    `db:"vdrl_result" json:"vdrl_result"`
	VDRLTreated     bool      `db:"vdrl_treated" json:"vdrl_treated"`
	HIVResult       string    `db:"hiv_result" json:"hiv_result"`
	HepBResult      string    `db:"hepb_result" json:"hepb_result"`
	HepBProphylaxis bool      `db:"hepb_prophylaxis_done" json:"hepb_prophylaxis_done"`
	ChagasResult    string    `db:"chagas_result" json:"chagas_result"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Observation is a signed free-text note on a mother's record. Once signed
// it is never edited.
type Observation struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	MotherID   uuid.UUID  `db:"mother_id" json:"mother_id"`
	AuthorID   *uuid.UUID `db:"author_id" json:"author_id,omitempty"`
	AuthorName string     `db:"author_name" json:"author_name"`
	Text       string     `db:"text" json:"text"`
	Signed     bool       `db:"signed" json:"signed"`
	RecordedAt time.Time  `db:"recorded_at" json:"recorded_at"`
}

// DeathRecord documents a maternal death. Registering one deactivates the
// mother record.
type DeathRecord struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	MotherID   uuid.UUID  `db:"mother_id" json:"mother_id"`
	Reason     string     `db:"reason" json:"reason"`
	RecordedBy *uuid.UUID `db:"recorded_by" json:"recorded_by,omitempty"`
	RecordedAt time.Time  `db:"recorded_at" json:"recorded_at"`
}
