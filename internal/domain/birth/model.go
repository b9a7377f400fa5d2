package birth

import (
	"time"

	"github.com/google/uuid"
)

// Birth maps to the birth table. Time is the clock time of delivery in
// HH:MM, kept separate from Date the way the ward's paper forms record it.
type Birth struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	MotherID            uuid.UUID `db:"mother_id" json:"mother_id"`
	Date                time.Time `db:"date" json:"date"`
	Time                string    `db:"time" json:"time"`
	DeliveryTypeID      uuid.UUID `db:"delivery_type_id" json:"delivery_type_id"`
	GestationalAgeWeeks int       `db:"gestational_age_weeks" json:"gestational_age_weeks"`
	FacilityID          uuid.UUID `db:"facility_id" json:"facility_id"`
	CompanionLabor      bool      `db:"companion_labor" json:"companion_labor"`
	CompanionExpulsive  bool      `db:"companion_expulsive" json:"companion_expulsive"`
	SkinToSkinMother    bool      `db:"skin_to_skin_mother" json:"skin_to_skin_mother"`
	SkinToSkinCompanion bool      `db:"skin_to_skin_companion" json:"skin_to_skin_companion"`
	Twins               bool      `db:"twins" json:"twins"`
	Active              bool      `db:"active" json:"active"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// HasCompanion reports whether the mother was accompanied at any stage.
func (b *Birth) HasCompanion() bool {
	return b.CompanionLabor || b.CompanionExpulsive
}

// AttentionModel holds the respected-care checklist, one row per birth.
type AttentionModel struct {
	BirthID           uuid.UUID `db:"birth_id" json:"birth_id"`
	FreedomOfMovement bool      `db:"freedom_of_movement" json:"freedom_of_movement"`
	LiberalFluids     bool      `db:"liberal_fluids" json:"liberal_fluids"`
	PainManagement    bool      `db:"pain_management" json:"pain_management"`
	ExpulsivePosition string    `db:"expulsive_position" json:"expulsive_position"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Robson holds the Robson ten-group classification, one row per birth.
type Robson struct {
	BirthID           uuid.UUID `db:"birth_id" json:"birth_id"`
	Group             string    `db:"robson_group" json:"group"`
	ElectiveCesarean  bool      `db:"elective_cesarean" json:"elective_cesarean"`
	EmergencyCesarean bool      `db:"emergency_cesarean" json:"emergency_cesarean"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Observation is a signed free-text note on a birth.
type Observation struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	BirthID    uuid.UUID  `db:"birth_id" json:"birth_id"`
	AuthorID   *uuid.UUID `db:"author_id" json:"author_id,omitempty"`
	AuthorName string     `db:"author_name" json:"author_name"`
	Text       string     `db:"text" json:"text"`
	Signed     bool       `db:"signed" json:"signed"`
	RecordedAt time.Time  `db:"recorded_at" json:"recorded_at"`
}
