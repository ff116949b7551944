package tools

import (
	"context"
	"errors"

	"synapse/internal/evidence"
)

var errNoEvidenceRepo = errors.New("evidence repository not configured")

type initiateMediation struct {
	evidence *evidence.Repo
}

func (t *initiateMediation) Definition() Definition {
	return Definition{
		Name:   "initiate_mediation_flow",
		Desc:   "Start a structured mediation flow, purging stale evidence.",
		Schema: map[string]string{"order_id": "str"},
	}
}

func (t *initiateMediation) Execute(_ context.Context, params map[string]any) (map[string]any, error) {
	if t.evidence == nil {
		return nil, errNoEvidenceRepo
	}
	orderID := paramString(params, "order_id")
	removed := t.evidence.Purge(orderID)
	return map[string]any{
		"order_id":    orderID,
		"flow":        "started",
		"purgedFiles": removed,
	}, nil
}

type collectEvidence struct {
	evidence *evidence.Repo
}

func (t *collectEvidence) Definition() Definition {
	return Definition{
		Name:   "collect_evidence",
		Desc:   "Persist evidence photos and notes for an order.",
		Schema: map[string]string{"order_id": "str", "images": "list[str]?", "notes": "str?"},
	}
}

func (t *collectEvidence) Execute(_ context.Context, params map[string]any) (map[string]any, error) {
	if t.evidence == nil {
		return nil, errNoEvidenceRepo
	}
	orderID := paramString(params, "order_id")
	notes := paramString(params, "notes")

	saved := t.evidence.SaveImages(orderID, paramStrings(params, "images"))
	if len(saved) == 0 {
		saved = t.evidence.List(orderID)
	}
	tail := saved
	if len(tail) > 5 {
		tail = tail[len(tail)-5:]
	}
	return map[string]any{
		"order_id":               orderID,
		"photos":                 float64(len(saved)),
		"files":                  tail,
		"notes":                  notes,
		"questionnaireCompleted": notes != "",
	}, nil
}

type analyzeEvidence struct {
	evidence *evidence.Repo
}

func (t *analyzeEvidence) Definition() Definition {
	return Definition{
		Name:   "analyze_evidence",
		Desc:   "Review evidence photos and decide likely fault.",
		Schema: map[string]string{"order_id": "str", "notes": "str?"},
	}
}

func (t *analyzeEvidence) Execute(_ context.Context, params map[string]any) (map[string]any, error) {
	if t.evidence == nil {
		return nil, errNoEvidenceRepo
	}
	orderID := paramString(params, "order_id")

	files := paramStrings(params, "images")
	if len(files) == 0 {
		files = t.evidence.List(orderID)
	}
	if len(files) == 0 {
		return map[string]any{
			"order_id":          orderID,
			"status":            "NO_EVIDENCE",
			"fault":             nil,
			"confidence":        0.0,
			"rationale":         "No images provided.",
			"refund_reasonable": false,
		}, nil
	}

	// Heuristic review: visible photos of a spilled order favor the
	// customer; more photos raise confidence.
	confidence := 0.6 + 0.1*float64(len(files))
	if confidence > 0.9 {
		confidence = 0.9
	}
	return map[string]any{
		"order_id":           orderID,
		"status":             "OK",
		"fault":              "merchant",
		"confidence":         confidence,
		"refund_reasonable":  true,
		"rationale":          "Photos show a broken seal and spilled contents consistent with packaging failure.",
		"packaging_feedback": "Seal leaked in transit. Use tamper-evident lids and double-bag liquids.",
	}, nil
}

type issueInstantRefund struct{}

func (t *issueInstantRefund) Definition() Definition {
	return Definition{
		Name:   "issue_instant_refund",
		Desc:   "Issue a goodwill refund for an order.",
		Schema: map[string]string{"order_id": "str"},
	}
}

func (t *issueInstantRefund) Execute(_ context.Context, params map[string]any) (map[string]any, error) {
	return map[string]any{"order_id": paramString(params, "order_id"), "refunded": true}, nil
}

type exonerateDriver struct{}

func (t *exonerateDriver) Definition() Definition {
	return Definition{
		Name:   "exonerate_driver",
		Desc:   "Clear the driver of fault.",
		Schema: map[string]string{"driver_id": "str"},
	}
}

func (t *exonerateDriver) Execute(_ context.Context, params map[string]any) (map[string]any, error) {
	return map[string]any{"driver_id": paramString(params, "driver_id"), "cleared": true}, nil
}

type merchantFeedback struct{}

func (t *merchantFeedback) Definition() Definition {
	return Definition{
		Name:   "log_merchant_packaging_feedback",
		Desc:   "Record packaging feedback for a merchant.",
		Schema: map[string]string{"merchant_id": "str", "feedback": "str"},
	}
}

func (t *merchantFeedback) Execute(_ context.Context, params map[string]any) (map[string]any, error) {
	return map[string]any{
		"merchant_id":    paramString(params, "merchant_id"),
		"feedback":       paramString(params, "feedback"),
		"feedbackLogged": true,
	}, nil
}

type contactRecipient struct{}

func (t *contactRecipient) Definition() Definition {
	return Definition{
		Name:   "contact_recipient_via_chat",
		Desc:   "Open a chat with the recipient.",
		Schema: map[string]string{"recipient_id": "str", "message": "str"},
	}
}

func (t *contactRecipient) Execute(_ context.Context, params map[string]any) (map[string]any, error) {
	return map[string]any{
		"recipient_id": paramString(params, "recipient_id"),
		"messageSent":  paramString(params, "message"),
	}, nil
}

type suggestSafeDrop struct{}

func (t *suggestSafeDrop) Definition() Definition {
	return Definition{
		Name:   "suggest_safe_drop_off",
		Desc:   "Suggest a safe drop-off location.",
		Schema: map[string]string{"address": "str"},
	}
}

func (t *suggestSafeDrop) Execute(_ context.Context, params map[string]any) (map[string]any, error) {
	return map[string]any{"address": paramString(params, "address"), "suggested": true}, nil
}
