package incidents

import "time"

// Incident statuses as stored in inv.incidencias.estado.
const (
	StatusOpen       = "ABIERTA"
	StatusInProgress = "EN_PROCESO"
	StatusClosed     = "CERRADA"
)

// Message visibility levels. STAFF messages are hidden from the reporting
// USUARIO.
const (
	VisibilityPublic = "PUBLIC"
	VisibilityStaff  = "STAFF"
)

// Message kinds. Only MSG carries user-written content; the other two are
// system notifications emitted on create and assignment.
const (
	KindMessage     = "MSG"
	KindNewIncident = "NEW_INC"
	KindAssigned    = "ASSIGNED"
)

const (
	// DefaultPageSize is applied when no page size was requested.
	DefaultPageSize = 10

	// MaxPageSize caps the page size for incident listings.
	MaxPageSize = 100

	// updatesFeedLimit caps one ListUpdates batch.
	updatesFeedLimit = 100

	// systemAuthor is the author recorded on system-emitted messages.
	systemAuthor = "sistema"
)

// Incident is one incident header row.
type Incident struct {
	ID            int64     `json:"inc_id"`
	Title         string    `json:"titulo"`
	Description   string    `json:"descripcion"`
	Status        string    `json:"estado"`
	ReportedBy    string    `json:"usuario"`
	EquipmentID   *int64    `json:"equipo_id"`
	EquipmentCode *string   `json:"equipo_codigo"`
	AreaID        *int64    `json:"area_id"`
	AreaName      *string   `json:"area_nombre"`
	CreatedAt     time.Time `json:"created_at"`
	AssignedTo    *string   `json:"asignado_a"`
}

// Message is one conversation entry of an incident.
type Message struct {
	ID        int64     `json:"msg_id"`
	Body      string    `json:"mensaje"`
	Author    string    `json:"usuario"`
	CreatedAt time.Time `json:"created_at"`
	StaffOnly bool      `json:"solo_staff"`
}

// Detail is an incident header together with its visible messages.
type Detail struct {
	Incident
	Messages []Message `json:"mensajes"`
}

// Page is one page of incident listings. Total counts all matching rows
// before pagination.
type Page struct {
	Items []Incident `json:"items"`
	Total int        `json:"total"`
	Page  int        `json:"page"`
	Size  int        `json:"size"`
}

// ListFilter narrows List. Mine only applies to ADMIN callers; the other
// roles are always scoped to their own incidents.
type ListFilter struct {
	Mine   bool
	Status string
	AreaID int64
	Text   string
	Page   int
	Size   int
}

// CreateParams describe a new incident. ReporterEmail overrides the stored
// address for the Reply-To of the notification mail.
type CreateParams struct {
	Title         string
	Description   string
	EquipmentID   *int64
	ReporterEmail string
}

// UpdateItem is one entry of the notification feed.
type UpdateItem struct {
	MsgID      int64     `json:"msg_id"`
	IncID      int64     `json:"inc_id"`
	Body       string    `json:"mensaje"`
	Author     string    `json:"usuario"`
	CreatedAt  time.Time `json:"created_at"`
	Visibility string    `json:"visibilidad"`
	Kind       string    `json:"type"`
	Title      string    `json:"titulo"`
	Status     string    `json:"estado"`
}

// UpdatesFeed is one ListUpdates batch plus the high-water mark the caller
// should pass as `since` next time.
type UpdatesFeed struct {
	Items  []UpdateItem `json:"items"`
	LastID int64        `json:"last_id"`
}

// ValidStatus reports whether the literal is a known incident status.
func ValidStatus(status string) bool {
	return status == StatusOpen || status == StatusInProgress || status == StatusClosed
}
