package alerting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alliancehq/alliance-manager/internal/errors"
)

func TestDecodeConditions_OverlaysDefaults(t *testing.T) {
	t.Parallel()

	cond, raw, err := DecodeConditions(TypeInactiveMembers, []byte(`{"threshold":3}`))
	require.NoError(t, err)

	im, ok := cond.(*InactiveMembersConditions)
	require.True(t, ok, "got %T", cond)
	assert.InDelta(t, 3.0, im.Threshold.Float(), 0)
	assert.Equal(t, GreaterThan, im.Comparison)
	assert.Equal(t, 7, im.Timeframe)
	assert.Equal(t, TypeInactiveMembers, im.AlertType())

	assert.InDelta(t, 3.0, raw["threshold"], 0)
	assert.Equal(t, string(GreaterThan), raw["comparison"])
}

func TestDecodeConditions_ManualMessageKeepsDefaultCriteria(t *testing.T) {
	t.Parallel()

	cond, _, err := DecodeConditions(TypeManualMessage, []byte(`{"message":"hi","title":"t"}`))
	require.NoError(t, err)

	mm := cond.(*ManualMessageConditions)
	assert.Equal(t, "hi", mm.Message)
	assert.Equal(t, "t", mm.Title)
	assert.True(t, mm.Threshold.IsBool())
	assert.Equal(t, Equals, mm.Comparison)
	assert.True(t, Evaluate(Bool(true), mm.Base()))
}

func TestDecodeConditions_EmptyUsesDefaults(t *testing.T) {
	t.Parallel()
	for _, raw := range [][]byte{nil, []byte("null"), []byte("{}")} {
		cond, _, err := DecodeConditions(TypeTrainDeparture, raw)
		require.NoError(t, err)
		assert.Equal(t, 30, cond.(*TrainDepartureConditions).MinutesBefore)
	}
}

func TestDecodeConditions_Errors(t *testing.T) {
	t.Parallel()

	_, _, err := DecodeConditions(AlertType("NOPE"), []byte(`{}`))
	require.ErrorIs(t, err, ErrUnknownAlertType)

	_, _, err = DecodeConditions(TypeTrainCoverage, []byte(`{not json`))
	require.Error(t, err)
	assert.Equal(t, errors.CategoryValidation, errors.CategoryOf(err))

	_, _, err = DecodeConditions(TypeEventReminder, []byte(`{"timeframe":"soon"}`))
	require.Error(t, err)
	assert.Equal(t, errors.CategoryValidation, errors.CategoryOf(err))
}

func TestDecodeConditions_EveryTemplate(t *testing.T) {
	t.Parallel()
	for _, tpl := range Templates() {
		cond, _, err := DecodeConditions(tpl.Type, nil)
		require.NoError(t, err, tpl.Type)
		assert.Equal(t, tpl.Type, cond.AlertType())
	}
}

func TestValidateConditions(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateConditions(TypeTrainCoverage, []byte(`{"threshold":70,"comparison":"less_than_or_equal"}`)))

	err := ValidateConditions(TypeManualMessage, []byte(`{"comparison":"less_than"}`))
	require.Error(t, err)
	assert.Equal(t, errors.CategoryValidation, errors.CategoryOf(err))

	require.ErrorIs(t, ValidateConditions(TypeSystemError, nil), ErrUnknownAlertType)
}
