package newborn

import (
	"time"

	"github.com/google/uuid"
)

// Sex codes follow the civil registry convention: M, F or I (indeterminate).
var validSexes = map[string]bool{"M": true, "F": true, "I": true}

// Newborn maps to the newborn table.
type Newborn struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	BirthID             uuid.UUID  `db:"birth_id" json:"birth_id"`
	Sex                 string     `db:"sex" json:"sex"`
	WeightGrams         int        `db:"weight_grams" json:"weight_grams"`
	LengthCM            float64    `db:"length_cm" json:"length_cm"`
	HeadCircumferenceCM float64    `db:"head_circumference_cm" json:"head_circumference_cm"`
	Apgar1              *int       `db:"apgar1" json:"apgar1,omitempty"`
	Apgar5              *int       `db:"apgar5" json:"apgar5,omitempty"`
	BasicResuscitation  bool       `db:"basic_resuscitation" json:"basic_resuscitation"`
	AdvancedResus       bool       `db:"advanced_resuscitation" json:"advanced_resuscitation"`
	DelayedCordClamping bool       `db:"delayed_cord_clamping" json:"delayed_cord_clamping"`
	BreastfedWithin60   bool       `db:"breastfed_within_60min" json:"breastfed_within_60min"`
	Discharged          bool       `db:"discharged" json:"discharged"`
	Active              bool       `db:"active" json:"active"`
	CreatedBy           *uuid.UUID `db:"created_by" json:"created_by,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// Resuscitated reports whether any resuscitation was performed.
func (n *Newborn) Resuscitated() bool {
	return n.BasicResuscitation || n.AdvancedResus
}

// Prophylaxis is one administered preventive measure, typed by the
// PROFILAXIS_RN catalog (vitamin K, ocular prophylaxis, HBV vaccine, ...).
type Prophylaxis struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	NewbornID       uuid.UUID  `db:"newborn_id" json:"newborn_id"`
	KindID          uuid.UUID  `db:"kind_id" json:"kind_id"`
	AdministeredAt  time.Time  `db:"administered_at" json:"administered_at"`
	Professional    string     `db:"professional" json:"professional"`
	AdverseReaction *string    `db:"adverse_reaction" json:"adverse_reaction,omitempty"`
	RecordedBy      *uuid.UUID `db:"recorded_by" json:"recorded_by,omitempty"`
	RecordedAt      time.Time  `db:"recorded_at" json:"recorded_at"`
}

// Observation is a signed free-text note on a newborn.
type Observation struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	NewbornID  uuid.UUID  `db:"newborn_id" json:"newborn_id"`
	AuthorID   *uuid.UUID `db:"author_id" json:"author_id,omitempty"`
	AuthorName string     `db:"author_name" json:"author_name"`
	Text       string     `db:"text" json:"text"`
	Signed     bool       `db:"signed" json:"signed"`
	RecordedAt time.Time  `db:"recorded_at" json:"recorded_at"`
}

// DeathRecord documents a neonatal death. Registering one deactivates the
// newborn record.
type DeathRecord struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	NewbornID  uuid.UUID  `db:"newborn_id" json:"newborn_id"`
	Reason     string     `db:"reason" json:"reason"`
	RecordedBy *uuid.UUID `db:"recorded_by" json:"recorded_by,omitempty"`
	RecordedAt time.Time  `db:"recorded_at" json:"recorded_at"`
}
