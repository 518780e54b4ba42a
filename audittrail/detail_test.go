package audittrail_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invtrail/inventory-trail-go/audittrail"
)

func Test_DecodeTransferDetail_defaults_to_false_flags(t *testing.T) {
	testCases := []struct {
		name               string
		payload            []byte
		expectedEsPrestamo bool
		expectedDevolucion bool
	}{
		{name: "nil_payload", payload: nil, expectedEsPrestamo: false, expectedDevolucion: false},
		{name: "empty_object", payload: []byte(`{}`), expectedEsPrestamo: false, expectedDevolucion: false},
		{name: "loan_flag_set", payload: []byte(`{"es_prestamo": true}`), expectedEsPrestamo: true, expectedDevolucion: false},
		{name: "return_flag_set", payload: []byte(`{"devolucion": true}`), expectedEsPrestamo: false, expectedDevolucion: true},
		{name: "unknown_keys_ignored", payload: []byte(`{"nota": "cambio de sede"}`), expectedEsPrestamo: false, expectedDevolucion: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			detail, err := audittrail.DecodeTransferDetail(tc.payload)

			require.NoError(t, err)
			assert.Equal(t, tc.expectedEsPrestamo, detail.EsPrestamo)
			assert.Equal(t, tc.expectedDevolucion, detail.Devolucion)
		})
	}
}

func Test_DecodeTransferDetail_rejects_invalid_json(t *testing.T) {
	_, err := audittrail.DecodeTransferDetail([]byte(`{"es_prestamo": tr`))

	assert.ErrorIs(t, err, audittrail.ErrInvalidDetailJSON)
}

func Test_DecodeStateChangeDetail_reads_transition(t *testing.T) {
	detail, err := audittrail.DecodeStateChangeDetail([]byte(`{"before": "USO", "after": "MANTENIMIENTO"}`))

	require.NoError(t, err)
	assert.Equal(t, audittrail.MovementTypeUso, detail.Before)
	assert.Equal(t, audittrail.MovementTypeMantenimiento, detail.After)
}

func Test_DecodeStateChangeDetail_absent_keys_decode_empty(t *testing.T) {
	detail, err := audittrail.DecodeStateChangeDetail([]byte(`{}`))

	require.NoError(t, err)
	assert.Empty(t, detail.Before)
	assert.Empty(t, detail.After)
}

func Test_DecodeRepairCycleDetail_reads_cycle_tag(t *testing.T) {
	payload := []byte(`{"ciclo": "USO->MANTENIMIENTO->USO", "before": "USO", "after": "MANTENIMIENTO"}`)

	detail, err := audittrail.DecodeRepairCycleDetail(payload)

	require.NoError(t, err)
	assert.Equal(t, audittrail.RepairCycleLabel, detail.Ciclo)
	assert.Equal(t, audittrail.MovementTypeUso, detail.Before)
	assert.Equal(t, audittrail.MovementTypeMantenimiento, detail.After)
}
