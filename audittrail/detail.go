package audittrail

import (
	"errors"

	jsoniter "github.com/json-iterator/go"
)

// RepairCycleLabel is the fixed cycle tag carried by synthesized REPARACION
// records in their detail payload.
const RepairCycleLabel = "USO->MANTENIMIENTO->USO"

// TransferDetail is the detail payload variant of TRASLADO movements.
// Both flags default to false when absent from the stored payload, so a
// movement is never treated as a loan or return unless explicitly flagged.
type TransferDetail struct {
	EsPrestamo bool `json:"es_prestamo"`
	Devolucion bool `json:"devolucion"`
}

// StateChangeDetail is the detail payload variant of EQUIPO_ESTADO movements.
// Absent keys decode to "".
type StateChangeDetail struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// RepairCycleDetail is the detail payload attached to synthesized REPARACION
// records; it is built by the engine, never stored.
type RepairCycleDetail struct {
	Ciclo  string `json:"ciclo"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// DecodeTransferDetail decodes a TRASLADO detail payload with safe defaults.
// A nil or empty payload decodes to the zero value; invalid JSON is an error.
func DecodeTransferDetail(detailJSON []byte) (TransferDetail, error) {
	detail := TransferDetail{}

	if decodeErr := decodeDetail(detailJSON, &detail); decodeErr != nil {
		return TransferDetail{}, decodeErr
	}

	return detail, nil
}

// DecodeStateChangeDetail decodes an EQUIPO_ESTADO detail payload with safe
// defaults. A nil or empty payload decodes to the zero value; invalid JSON is
// an error.
func DecodeStateChangeDetail(detailJSON []byte) (StateChangeDetail, error) {
	detail := StateChangeDetail{}

	if decodeErr := decodeDetail(detailJSON, &detail); decodeErr != nil {
		return StateChangeDetail{}, decodeErr
	}

	return detail, nil
}

// DecodeRepairCycleDetail decodes the detail payload of a synthesized
// REPARACION record.
func DecodeRepairCycleDetail(detailJSON []byte) (RepairCycleDetail, error) {
	detail := RepairCycleDetail{}

	if decodeErr := decodeDetail(detailJSON, &detail); decodeErr != nil {
		return RepairCycleDetail{}, decodeErr
	}

	return detail, nil
}

func decodeDetail(detailJSON []byte, target any) error {
	if len(detailJSON) == 0 {
		return nil
	}

	if !jsoniter.ConfigFastest.Valid(detailJSON) {
		return ErrInvalidDetailJSON
	}

	if unmarshalErr := jsoniter.ConfigFastest.Unmarshal(detailJSON, target); unmarshalErr != nil {
		return errors.Join(ErrInvalidDetailJSON, unmarshalErr)
	}

	return nil
}
