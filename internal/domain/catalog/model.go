package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies one administrable value list. New kinds are added in code,
// not through the API, so the set below is closed.
type Kind string

const (
	KindComuna          Kind = "VAL_COMUNA"
	KindEstablecimiento Kind = "VAL_ESTABLECIMIENTO"
	KindTipoParto       Kind = "VAL_TIPO_PARTO"
	KindResultTamizaje  Kind = "VAL_RESULTADO_TAMIZAJE"
	KindRobsonGrupo     Kind = "VAL_ROBSON_GRUPO"
	KindProfilaxisRN    Kind = "PROFILAXIS_RN"
)

var validKinds = map[Kind]bool{
	KindComuna:          true,
	KindEstablecimiento: true,
	KindTipoParto:       true,
	KindResultTamizaje:  true,
	KindRobsonGrupo:     true,
	KindProfilaxisRN:    true,
}

// ValidKind reports whether k names a known value list.
func ValidKind(k Kind) bool { return validKinds[k] }

// Kinds returns every known kind, for the list endpoint.
func Kinds() []Kind {
	return []Kind{
		KindComuna, KindEstablecimiento, KindTipoParto,
		KindResultTamizaje, KindRobsonGrupo, KindProfilaxisRN,
	}
}

// Item maps to the catalog_item table. Value must be unique within its kind.
// Deactivated items stay referenced by existing records but are excluded
// from lookups used to populate new ones.
type Item struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Kind      Kind      `db:"kind" json:"kind"`
	Value     string    `db:"value" json:"value"`
	Order     int       `db:"sort_order" json:"order"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
