package audittrail

import (
	"encoding/json"
	"time"
)

// Source selects which record source(s) a trail query reads from.
type Source string

const (
	// SourceMovements reads operational movements only (inv.movimientos).
	SourceMovements Source = "MOV"

	// SourceAudit reads the generic audit log only (inv.audit_log).
	SourceAudit Source = "AUDIT"

	// SourceMixed unions both sources into one feed. The sources are disjoint
	// by construction, so the union is a plain concatenation.
	SourceMixed Source = "MIX"
)

// Movement type tags as stored in inv.movimientos.mov_tipo.
const (
	MovementTypeTraslado       = "TRASLADO"
	MovementTypeEquipmentState = "EQUIPO_ESTADO"
	MovementTypeUso            = "USO"
	MovementTypeAlmacen        = "ALMACEN"
	MovementTypeMantenimiento  = "MANTENIMIENTO"
	MovementTypeBaja           = "BAJA"
)

// Virtual type tags accepted by trail queries. None of these exist as stored
// mov_tipo values: PRESTAMO and RETORNO are TRASLADO movements disambiguated
// by detail flags, and REPARACION is synthesized from EQUIPO_ESTADO windows.
const (
	MovementTypePrestamo   = "PRESTAMO"
	MovementTypeRetorno    = "RETORNO"
	MovementTypeReparacion = "REPARACION"
)

// UnifiedRecord is the projection shared by both record sources. Fields that do
// not apply to a given source are nil, never omitted, so the shapes of the two
// sources align for the union. It is a read-only derived view, never persisted.
type UnifiedRecord struct {
	ID                  int64           `json:"mov_id"`
	ItemID              *int64          `json:"mov_item_id"`
	ItemCode            *string         `json:"item_codigo"`
	ItemClass           *string         `json:"clase"`
	ItemType            *string         `json:"item_tipo"`
	Type                string          `json:"mov_tipo"`
	OccurredAt          time.Time       `json:"mov_fecha"`
	OriginAreaID        *int64          `json:"mov_origen_area_id"`
	OriginAreaName      *string         `json:"origen_area_nombre"`
	DestinationAreaID   *int64          `json:"mov_destino_area_id"`
	DestinationAreaName *string         `json:"destino_area_nombre"`
	EquipmentID         *int64          `json:"mov_equipo_id"`
	EquipmentCode       *string         `json:"equipo_codigo"`
	EquipmentName       *string         `json:"equipo_nombre"`
	ActingUser          *string         `json:"mov_usuario_app"`
	Motive              *string         `json:"mov_motivo"`
	Detail              json.RawMessage `json:"mov_detalle"`
	IsAudit             bool            `json:"es_audit"`
}

// Page is one page of trail results. Total counts all matching rows before
// pagination; Page and Size echo the clamped values that were applied.
type Page struct {
	Items []UnifiedRecord `json:"items"`
	Total int             `json:"total"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
}
