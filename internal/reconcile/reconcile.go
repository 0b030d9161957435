// Package reconcile collapses the backend's inconsistently nested responses
// into one canonical payload and a verdict.
package reconcile

import (
	"encoding/json"
	"fmt"
	"strings"

	"pmconsole/internal/models"
)

// Policy decides what an isBlocked payload means for the caller.
type Policy int

const (
	// BlockedPassThrough keeps going and reports IsBlocked on the outcome.
	BlockedPassThrough Policy = iota
	// BlockedFails turns isBlocked into a dates_unavailable failure.
	BlockedFails
)

type Verdict string

const (
	VerdictOK          Verdict = "ok"
	VerdictBlocked     Verdict = "blocked"
	VerdictMinStay     Verdict = "min_stay"
	VerdictUnavailable Verdict = "unavailable"
	VerdictFailed      Verdict = "failed"
)

// Options tune one call site.
type Options struct {
	Policy         Policy
	SuccessMessage string
	FailureMessage string
	// AllowEmpty accepts an empty array as a payload, for list endpoints.
	AllowEmpty bool
	// AcceptBare lets a success envelope without any payload through, for
	// write endpoints that only acknowledge.
	AcceptBare bool
}

// Outcome is the reconciled response.
type Outcome struct {
	Verdict Verdict
	// Payload is the canonical object or non-empty array. Nil unless Verdict is OK.
	Payload any
	// Container is the object Payload was taken from, for sibling fields
	// such as pagination totals.
	Container map[string]any
	Message   string
	// EnvelopeMessage is the deepest message found on the wrapping envelopes,
	// ignoring the payload's own message.
	EnvelopeMessage string
	ErrorType       models.ErrorType
	IsBlocked       bool
}

func (o Outcome) OK() bool { return o.Verdict == VerdictOK }

// Object returns the payload when it is a JSON object.
func (o Outcome) Object() (map[string]any, bool) {
	m, ok := o.Payload.(map[string]any)
	return m, ok
}

// Result converts the outcome to the canonical result shape.
func (o Outcome) Result() models.Result[any] {
	if !o.OK() {
		r := models.Fail[any](o.Message, o.ErrorType)
		r.IsBlocked = o.IsBlocked
		return r
	}
	r := models.Ok[any](o.Payload, o.Message)
	r.IsBlocked = o.IsBlocked
	return r
}

var unavailableMarkers = []string{"already booked", "not available", "unavailable"}

// ContainsUnavailable reports whether a backend message says the dates are taken.
func ContainsUnavailable(message string) bool {
	for _, marker := range unavailableMarkers {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}

// Reconcile classifies a decoded JSON response. It is pure and never panics.
func Reconcile(raw any, opts Options) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = failed(models.MsgUnexpected, models.ErrorGeneral)
		}
	}()

	root, ok := raw.(map[string]any)
	if !ok {
		return failed(models.MsgUnexpected, models.ErrorGeneral)
	}

	payload, container, nested := locate(root, opts.AllowEmpty)
	levels := []map[string]any{root}
	if inner, ok := root["data"].(map[string]any); ok {
		levels = append(levels, inner)
	}
	if obj, ok := payload.(map[string]any); ok && nested {
		levels = append(levels, obj)
	}
	message := deepestMessage(levels)
	envelopes := levels[:1]
	if nested {
		envelopes = levels[:2]
	}
	envelopeMessage := deepestMessage(envelopes)

	if payload == nil {
		if ContainsUnavailable(message) {
			return failed(models.MsgDatesUnavailable, models.ErrorDatesUnavailable).withVerdict(VerdictUnavailable)
		}
		if opts.AcceptBare && deepestSuccess(levels) {
			return Outcome{
				Verdict:         VerdictOK,
				Container:       root,
				Message:         orDefault(message, opts.SuccessMessage),
				EnvelopeMessage: message,
			}
		}
		return failed(orDefault(message, opts.FailureMessage), models.ErrorGeneral)
	}

	obj, isObj := payload.(map[string]any)
	blocked := false

	if isObj && obj["isBlocked"] == true {
		if opts.Policy == BlockedFails {
			msg, _ := obj["message"].(string)
			out := failed(orDefault(strings.TrimSpace(msg), models.MsgDatesBlocked), models.ErrorDatesUnavailable)
			out.Verdict = VerdictBlocked
			out.IsBlocked = true
			return out
		}
		blocked = true
	}

	if isObj && obj["isMinStay"] == true {
		out := failed(minStayMessage(obj["minStay"]), models.ErrorDatesUnavailable)
		out.Verdict = VerdictMinStay
		out.IsBlocked = blocked
		return out
	}

	if isObj {
		if msg, ok := obj["message"].(string); ok && ContainsUnavailable(msg) {
			out := failed(models.MsgDatesUnavailable, models.ErrorDatesUnavailable)
			out.Verdict = VerdictUnavailable
			out.IsBlocked = blocked
			return out
		}
	}

	if deepestSuccess(levels) {
		return Outcome{
			Verdict:         VerdictOK,
			Payload:         payload,
			Container:       container,
			Message:         orDefault(message, opts.SuccessMessage),
			EnvelopeMessage: envelopeMessage,
			IsBlocked:       blocked,
		}
	}

	out = failed(orDefault(message, opts.FailureMessage), models.ErrorGeneral)
	out.IsBlocked = blocked
	return out
}

// ReconcileJSON decodes body and reconciles it. Decoding failures become
// an "Unexpected response" failure.
func ReconcileJSON(body []byte, opts Options) Outcome {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return failed(models.MsgUnexpected, models.ErrorGeneral)
	}
	return Reconcile(raw, opts)
}

// locate walks the candidate extraction paths in priority order. nested is
// true when the payload sits below root.data.
func locate(root map[string]any, allowEmpty bool) (payload any, container map[string]any, nested bool) {
	data := root["data"]
	inner, innerIsObj := data.(map[string]any)

	if innerIsObj {
		_, innerHasFlag := inner["success"]
		if root["success"] == true && inner["success"] == true && usable(inner["data"], allowEmpty) {
			return inner["data"], inner, true
		}
		if !innerHasFlag && usable(inner["data"], allowEmpty) {
			return inner["data"], inner, true
		}
		// an envelope is not a payload
		if _, hasData := inner["data"]; innerHasFlag && hasData {
			return nil, nil, false
		}
	}
	if usable(data, allowEmpty) {
		return data, root, false
	}
	return nil, nil, false
}

func usable(v any, allowEmpty bool) bool {
	switch t := v.(type) {
	case map[string]any:
		return t != nil
	case []any:
		return t != nil && (allowEmpty || len(t) > 0)
	default:
		return false
	}
}

// deepestSuccess reads the success flag from the deepest level carrying one.
func deepestSuccess(levels []map[string]any) bool {
	for i := len(levels) - 1; i >= 0; i-- {
		if flag, ok := levels[i]["success"].(bool); ok {
			return flag
		}
	}
	return false
}

func deepestMessage(levels []map[string]any) string {
	for i := len(levels) - 1; i >= 0; i-- {
		if msg, ok := levels[i]["message"].(string); ok && strings.TrimSpace(msg) != "" {
			return strings.TrimSpace(msg)
		}
	}
	return ""
}

func minStayMessage(v any) string {
	n, ok := AsFloat(v)
	if !ok {
		return models.MsgDatesUnavailable
	}
	nights := int(n)
	if nights == 1 {
		return "Minimum stay is 1 night."
	}
	return fmt.Sprintf("Minimum stay is %d nights.", nights)
}

func failed(message string, errorType models.ErrorType) Outcome {
	if message == "" {
		message = models.MsgGenericFailure
	}
	return Outcome{Verdict: VerdictFailed, Message: message, ErrorType: errorType}
}

func (o Outcome) withVerdict(v Verdict) Outcome {
	o.Verdict = v
	return o
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

// Failure builds a failed outcome for problems found before or instead of a
// backend response.
func Failure(message string, errorType models.ErrorType) Outcome {
	return failed(message, errorType)
}
