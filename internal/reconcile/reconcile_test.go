package reconcile

import (
	"testing"

	"pmconsole/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obj(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}

var ratePlan = Options{Policy: BlockedFails, SuccessMessage: "ok", FailureMessage: "fallback"}

func TestReconcilePayloadPriority(t *testing.T) {
	t.Run("DoubleEnvelope", func(t *testing.T) {
		raw := obj("success", true, "data", obj("success", true, "data", obj("totalRate", 800.0)))
		out := Reconcile(raw, ratePlan)
		require.True(t, out.OK())
		assert.Equal(t, obj("totalRate", 800.0), out.Payload)
	})

	t.Run("ContainerWithoutFlag", func(t *testing.T) {
		list := []any{obj("_id", "b1")}
		raw := obj("success", true, "data", obj("total_data", 1.0, "data", list))
		out := Reconcile(raw, Options{})
		require.True(t, out.OK())
		assert.Equal(t, list, out.Payload)
		assert.Equal(t, 1.0, out.Container["total_data"])
	})

	t.Run("DirectData", func(t *testing.T) {
		raw := obj("success", true, "data", obj("title", "Villa"))
		out := Reconcile(raw, Options{})
		require.True(t, out.OK())
		assert.Equal(t, obj("title", "Villa"), out.Payload)
	})

	t.Run("NoPayload", func(t *testing.T) {
		out := Reconcile(obj("success", true, "data", nil, "message", "nothing here"), Options{})
		assert.Equal(t, VerdictFailed, out.Verdict)
		assert.Equal(t, "nothing here", out.Message)
		assert.Nil(t, out.Payload)
	})

	t.Run("EmptyArray", func(t *testing.T) {
		raw := obj("success", true, "data", []any{})
		assert.False(t, Reconcile(raw, Options{}).OK())

		out := Reconcile(raw, Options{AllowEmpty: true})
		require.True(t, out.OK())
		assert.Equal(t, []any{}, out.Payload)
	})

	t.Run("FallbackMessage", func(t *testing.T) {
		out := Reconcile(obj("success", false), ratePlan)
		assert.Equal(t, "fallback", out.Message)
		assert.Equal(t, models.ErrorGeneral, out.ErrorType)

		out = Reconcile(obj("success", false), Options{})
		assert.Equal(t, models.MsgGenericFailure, out.Message)
	})
}

func TestReconcileNestingInvariance(t *testing.T) {
	cases := []struct {
		name          string
		shallow, deep map[string]any
	}{
		{
			name:    "available",
			shallow: obj("success", true, "data", obj("totalRate", 500.0)),
			deep:    obj("success", true, "data", obj("success", true, "data", obj("totalRate", 500.0))),
		},
		{
			name:    "failure",
			shallow: obj("success", false, "message", "Property missing"),
			deep:    obj("success", true, "data", obj("success", false, "message", "Property missing", "data", nil)),
		},
		{
			name:    "blocked",
			shallow: obj("success", true, "data", obj("isBlocked", true)),
			deep:    obj("success", true, "data", obj("success", true, "data", obj("isBlocked", true))),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := Reconcile(tc.shallow, ratePlan).Result()
			b := Reconcile(tc.deep, ratePlan).Result()
			assert.Equal(t, a, b)
		})
	}
}

func TestReconcileVerdicts(t *testing.T) {
	t.Run("BlockedFails", func(t *testing.T) {
		raw := obj("success", true, "data", obj("success", true, "data", obj("isBlocked", true, "message", "Dates blocked", "totalRate", 900.0)))
		out := Reconcile(raw, ratePlan)
		assert.Equal(t, VerdictBlocked, out.Verdict)
		assert.Equal(t, "Dates blocked", out.Message)
		assert.Equal(t, models.ErrorDatesUnavailable, out.ErrorType)
		assert.False(t, out.Result().Success)

		out = Reconcile(obj("success", true, "data", obj("isBlocked", true)), ratePlan)
		assert.Equal(t, models.MsgDatesBlocked, out.Message)
	})

	t.Run("BlockedPassThrough", func(t *testing.T) {
		raw := obj("success", true, "data", obj("isBlocked", true, "title", "Villa"))
		out := Reconcile(raw, Options{})
		require.True(t, out.OK())
		assert.True(t, out.IsBlocked)
		res := out.Result()
		assert.True(t, res.Success)
		assert.True(t, res.IsBlocked)
	})

	t.Run("MinStay", func(t *testing.T) {
		out := Reconcile(obj("success", true, "data", obj("isMinStay", true, "minStay", 3.0)), ratePlan)
		assert.Equal(t, VerdictMinStay, out.Verdict)
		assert.Equal(t, "Minimum stay is 3 nights.", out.Message)
		assert.Equal(t, models.ErrorDatesUnavailable, out.ErrorType)

		out = Reconcile(obj("success", true, "data", obj("isMinStay", true, "minStay", 1.0)), ratePlan)
		assert.Equal(t, "Minimum stay is 1 night.", out.Message)

		out = Reconcile(obj("success", true, "data", obj("isMinStay", true)), ratePlan)
		assert.Equal(t, models.MsgDatesUnavailable, out.Message)
	})

	t.Run("UnavailableMessage", func(t *testing.T) {
		for _, msg := range []string{"Property already booked", "Dates not available", "unit unavailable"} {
			out := Reconcile(obj("success", true, "data", obj("message", msg)), Options{})
			assert.Equal(t, VerdictUnavailable, out.Verdict, msg)
			assert.Equal(t, models.MsgDatesUnavailable, out.Message)
		}

		// case-sensitive as received
		out := Reconcile(obj("success", true, "data", obj("message", "Already Booked")), Options{})
		assert.True(t, out.OK())
	})

	t.Run("UnavailableWithoutPayload", func(t *testing.T) {
		out := Reconcile(obj("success", false, "message", "Property is already booked"), Options{})
		assert.Equal(t, VerdictUnavailable, out.Verdict)
		assert.Equal(t, models.ErrorDatesUnavailable, out.ErrorType)
	})

	t.Run("DeepestFlagWins", func(t *testing.T) {
		raw := obj("success", true, "data", obj("success", true, "data", obj("success", false, "message", "inner failure")))
		out := Reconcile(raw, Options{})
		assert.Equal(t, VerdictFailed, out.Verdict)
		assert.Equal(t, "inner failure", out.Message)
	})

	t.Run("SuccessMessage", func(t *testing.T) {
		out := Reconcile(obj("success", true, "message", "Fetched", "data", obj("a", 1.0)), ratePlan)
		assert.Equal(t, "Fetched", out.Message)

		out = Reconcile(obj("success", true, "data", obj("a", 1.0)), ratePlan)
		assert.Equal(t, "ok", out.Message)
	})
}

func TestReconcileRobustness(t *testing.T) {
	for _, raw := range []any{nil, "text", 12.0, []any{1.0}} {
		out := Reconcile(raw, Options{})
		assert.Equal(t, VerdictFailed, out.Verdict)
		assert.Equal(t, models.MsgUnexpected, out.Message)
	}

	out := ReconcileJSON([]byte(`{not json`), Options{})
	assert.Equal(t, models.MsgUnexpected, out.Message)

	out = ReconcileJSON([]byte(`{"success":true,"data":{"success":true,"data":{"totalRate":800,"stayingDurationNight":2}}}`), ratePlan)
	require.True(t, out.OK())
	payload, ok := out.Object()
	require.True(t, ok)
	assert.Equal(t, 800.0, payload["totalRate"])
}

func TestReconcileIdempotent(t *testing.T) {
	raw := obj("success", true, "data", obj("success", true, "data", obj("totalRate", 800.0, "isBlocked", false)))
	first := Reconcile(raw, ratePlan)
	second := Reconcile(raw, ratePlan)
	assert.Equal(t, first, second)
	assert.Equal(t, obj("success", true, "data", obj("success", true, "data", obj("totalRate", 800.0, "isBlocked", false))), raw)
}

func TestReconcileAcceptBare(t *testing.T) {
	raw := obj("success", true, "message", "Note saved")
	assert.False(t, Reconcile(raw, Options{}).OK())

	out := Reconcile(raw, Options{AcceptBare: true, SuccessMessage: "done"})
	require.True(t, out.OK())
	assert.Nil(t, out.Payload)
	assert.Equal(t, "Note saved", out.Message)

	out = Reconcile(obj("success", false), Options{AcceptBare: true})
	assert.False(t, out.OK())
}

func TestReconcileEnvelopeMessage(t *testing.T) {
	out := Reconcile(obj("success", true, "message", "Property already booked for these dates",
		"data", obj("_id", "B1")), Options{})
	require.True(t, out.OK())
	assert.Equal(t, "Property already booked for these dates", out.EnvelopeMessage)

	out = Reconcile(obj("success", true, "data", obj("success", true, "message", "Property already booked",
		"data", obj("_id", "B1"))), Options{})
	require.True(t, out.OK())
	assert.Equal(t, "Property already booked", out.EnvelopeMessage)

	// the payload's own message is not an envelope message
	out = Reconcile(obj("success", true, "data", obj("success", true,
		"data", obj("_id", "B1", "message", "Welcome"))), Options{})
	require.True(t, out.OK())
	assert.Empty(t, out.EnvelopeMessage)
	assert.Equal(t, "Welcome", out.Message)
}
