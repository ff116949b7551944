package agent

import (
	"fmt"
	"strings"

	"synapse/internal/evidence"
	"synapse/internal/session"
	"synapse/internal/tools"
)

// Finish reasons a policy step can carry.
const (
	FinishContinue   = "continue"
	FinishFinal      = "final"
	FinishAwaitInput = "await_input"
)

// Step is the next action the policy prescribes for a run.
type Step struct {
	Intent       string
	Tool         string
	Params       map[string]any
	Assertion    string
	FinishReason string
	FinalMessage string
	Reason       string
}

// Policy encodes the deterministic incident playbooks: given the incident
// kind and progress so far it prescribes the next tool call, the clarify
// question to ask, or nothing when the flow is exhausted.
type Policy struct {
	Evidence *evidence.Repo
}

// NextStep returns the next action for a run. ok is false when the playbook
// has no further steps.
func (p *Policy) NextStep(kind string, stepsDone int, h *session.Hints) (Step, bool) {
	switch kind {
	case "traffic":
		return p.nextTraffic(stepsDone, h)
	case "merchant_capacity":
		return p.nextMerchantCapacity(stepsDone, h)
	case "damage_dispute":
		return p.nextDamageDispute(stepsDone, h)
	case "recipient_unavailable":
		return p.nextRecipientUnavailable(stepsDone, h)
	}
	return Step{}, false
}

func (p *Policy) nextTraffic(stepsDone int, h *session.Hints) (Step, bool) {
	mode := strings.ToUpper(h.Mode)
	if mode == "" {
		mode = "DRIVE"
	}

	if stepsDone == 0 && h.OriginPlace == "" && h.DestPlace == "" {
		return Step{
			Intent: "ask for route",
			Tool:   "ask_user",
			Params: map[string]any{
				"question_id": "route_text",
				"question": `Please provide pickup and drop as place names only, ` +
					`e.g. "origin=SRMIST Chennai, dest=Chennai International Airport".`,
				"expected": "text",
			},
			FinishReason: FinishAwaitInput,
			Reason:       "Need origin and destination names to proceed.",
		}, true
	}

	routeParams := map[string]any{
		"origin_any":    h.OriginPlace,
		"dest_any":      h.DestPlace,
		"travel_mode":   mode,
		"scenario_text": h.ScenarioText,
	}

	switch stepsDone {
	case 0:
		return Step{
			Intent:       "check congestion",
			Tool:         "check_traffic",
			Params:       routeParams,
			Assertion:    "delayMin>=0",
			FinishReason: FinishContinue,
			Reason:       "Measure baseline ETA and traffic delay.",
		}, true
	case 1:
		return Step{
			Intent:       "reroute",
			Tool:         "calculate_alternative_route",
			Params:       routeParams,
			Assertion:    "improvementMin>=0",
			FinishReason: FinishContinue,
			Reason:       "Compute alternatives and pick the fastest route.",
		}, true
	case 2:
		if flight := flightNumberIn(h.ScenarioText); flight != "" {
			return Step{
				Intent:       "check flight status",
				Tool:         "check_flight_status",
				Params:       map[string]any{"flight_no": flight},
				FinishReason: FinishContinue,
				Reason:       "Checking flight status to provide passenger context.",
			}, true
		}
		return Step{
			Intent:       "skip flight check",
			Tool:         "noop",
			Params:       map[string]any{},
			FinishReason: FinishContinue,
			Reason:       "No flight number in scenario.",
		}, true
	case 3:
		msg := "We've detected heavy traffic and found a faster route. Your ETA has been updated."
		if h.Flight != nil && h.Flight.Status == "DELAYED" {
			msg += fmt.Sprintf(" FYI: We noticed your flight %s is also delayed by %d minutes.",
				h.Flight.Flight, h.Flight.DelayMin)
		}
		return Step{
			Intent: "inform both parties",
			Tool:   "notify_passenger_and_driver",
			Params: map[string]any{
				"driver_token":    h.DriverToken,
				"passenger_token": h.PassengerToken,
				"message":         msg,
			},
			Assertion:    "delivered==true",
			FinishReason: FinishFinal,
			FinalMessage: "Reroute applied; driver and passenger notified with all context.",
			Reason:       "Notify both parties with the updated route and flight status.",
		}, true
	}
	return Step{}, false
}

func (p *Policy) nextMerchantCapacity(stepsDone int, h *session.Hints) (Step, bool) {
	driverID := h.DriverID
	if driverID == "" {
		driverID = "driver_demo"
	}
	coords := h.Origin
	if coords == nil {
		coords = h.Dest
	}

	switch stepsDone {
	case 0:
		return Step{
			Intent: "notify customer about delay",
			Tool:   "notify_customer",
			Params: map[string]any{
				"fcm_token": h.CustomerToken,
				"title":     "Delay notice",
				"message": "The restaurant is experiencing a long prep time (~40 min). " +
					"We're minimizing delays and will keep you updated. " +
					"A small voucher has been applied for the inconvenience.",
				"voucher": true,
			},
			Assertion:    "delivered==true",
			FinishReason: FinishContinue,
			Reason:       "Proactively inform customer and offer voucher.",
		}, true
	case 1:
		if coords == nil {
			return Step{
				Intent:       "skip reroute (no coords)",
				Tool:         "noop",
				Params:       map[string]any{},
				FinishReason: FinishContinue,
				Reason:       "No driver location; skipping reroute.",
			}, true
		}
		return Step{
			Intent: "reroute driver to quick nearby order",
			Tool:   "reroute_driver",
			Params: map[string]any{
				"driver_id":  driverID,
				"driver_lat": coords.Lat,
				"driver_lon": coords.Lon,
			},
			FinishReason: FinishContinue,
			Reason:       "Reduce driver idle time with a quick nearby job.",
		}, true
	case 2:
		if coords == nil {
			return Step{
				Intent:       "skip fetching alternates",
				Tool:         "noop",
				Params:       map[string]any{},
				FinishReason: FinishFinal,
				FinalMessage: "Cannot fetch alternates without location.",
				Reason:       "Cannot proceed with alternatives.",
			}, true
		}
		return Step{
			Intent: "get nearby alternates",
			Tool:   "get_nearby_merchants",
			Params: map[string]any{
				"lat": coords.Lat, "lon": coords.Lon, "radius_m": 2000,
			},
			Assertion:    "merchants>0",
			FinishReason: FinishContinue,
			Reason:       "Fetch up to 5 faster restaurants.",
		}, true
	case 3:
		if len(h.Merchants) > 0 && isUnanswered(h.Answer("alt_choice")) {
			opts := make([]string, 0, len(h.Merchants)+1)
			byName := make(map[string]string, len(h.Merchants))
			for _, m := range h.Merchants {
				opts = append(opts, m.Name)
				byName[m.Name] = m.ID
			}
			opts = append(opts, "NO • Continue with this restaurant")
			h.AltIDByName = byName

			return Step{
				Intent: "clarify alternate",
				Tool:   "ask_user",
				Params: map[string]any{
					"question_id": "alt_choice",
					"question":    "Prep time is long. Pick an alternate or choose NO:",
					"expected":    "string",
					"options":     opts,
				},
				FinishReason: FinishAwaitInput,
				FinalMessage: "Awaiting customer choice.",
				Reason:       "Offer alternates.",
			}, true
		}
		return Step{}, false
	case 4:
		chosen, _ := h.Answer("alt_choice").(string)
		var msg string
		if chosen != "" && !strings.HasPrefix(strings.ToUpper(chosen), "NO") {
			msg = fmt.Sprintf("We've switched your order to %s to minimize delays.", chosen)
		} else {
			msg = "We'll keep your current restaurant and will let you know once the food is ready for pickup."
		}
		return Step{
			Intent: "inform customer of choice",
			Tool:   "notify_customer",
			Params: map[string]any{
				"fcm_token": h.CustomerToken,
				"title":     "Order Update",
				"message":   msg,
			},
			Assertion:    "delivered==true",
			FinishReason: FinishFinal,
			FinalMessage: "Customer notified of their choice.",
			Reason:       "Finalize based on the customer's answer.",
		}, true
	}
	return Step{}, false
}

func (p *Policy) nextDamageDispute(stepsDone int, h *session.Hints) (Step, bool) {
	orderID := h.OrderID
	if orderID == "" {
		orderID = "order_demo"
	}
	driverID := h.DriverID
	if driverID == "" {
		driverID = "driver_demo"
	}
	merchantID := h.MerchantID
	if merchantID == "" {
		merchantID = "merchant_demo"
	}

	images := h.EvidenceImages
	if len(images) == 0 {
		images = answerStrings(h.Answer("evidence_images"))
	}

	switch stepsDone {
	case 0:
		return Step{
			Intent:       "start mediation",
			Tool:         "initiate_mediation_flow",
			Params:       map[string]any{"order_id": orderID},
			Assertion:    "flow==started",
			FinishReason: FinishContinue,
			Reason:       "Start structured mediation.",
		}, true
	case 1:
		if len(images) == 0 && (p.Evidence == nil || len(p.Evidence.List(orderID)) == 0) {
			return Step{
				Intent: "request images",
				Tool:   "ask_user",
				Params: map[string]any{
					"question_id": "evidence_images",
					"question":    "Please upload clear photos of the spilled package (seal, bag, spillage close-ups).",
					"expected":    "image[]",
				},
				FinishReason: FinishAwaitInput,
				FinalMessage: "Awaiting photos.",
				Reason:       "Need photos to analyze.",
			}, true
		}
		return Step{}, false
	case 2:
		return Step{
			Intent: "collect evidence",
			Tool:   "collect_evidence",
			Params: map[string]any{
				"order_id": orderID,
				"images":   images,
				"notes":    h.EvidenceNotes,
			},
			Assertion:    "photos>0",
			FinishReason: FinishContinue,
			Reason:       "Persist evidence.",
		}, true
	case 3:
		return Step{
			Intent: "analyze evidence",
			Tool:   "analyze_evidence",
			Params: map[string]any{
				"order_id": orderID,
				"images":   images,
				"notes":    h.EvidenceNotes,
			},
			Assertion:    "status!=none",
			FinishReason: FinishContinue,
			Reason:       "Decide likely fault.",
		}, true
	case 4:
		if a := h.Analysis; a != nil && a.RefundReasonable && a.Confidence >= 0.55 {
			return Step{
				Intent:       "refund customer",
				Tool:         "issue_instant_refund",
				Params:       map[string]any{"order_id": orderID},
				Assertion:    "refunded==true",
				FinishReason: FinishContinue,
				Reason:       "Goodwill refund.",
			}, true
		}
		return Step{
			Intent:       "skip refund",
			Tool:         "noop",
			Params:       map[string]any{},
			FinishReason: FinishContinue,
			Reason:       "No refund required.",
		}, true
	case 5:
		if h.Analysis == nil || h.Analysis.Fault != "driver" {
			return Step{
				Intent:       "exonerate driver",
				Tool:         "exonerate_driver",
				Params:       map[string]any{"driver_id": driverID},
				Assertion:    "cleared==true",
				FinishReason: FinishContinue,
				Reason:       "Exonerating driver.",
			}, true
		}
		return Step{
			Intent:       "skip driver exoneration",
			Tool:         "noop",
			Params:       map[string]any{},
			FinishReason: FinishContinue,
			Reason:       "No driver exoneration required.",
		}, true
	case 6:
		if a := h.Analysis; a != nil && a.RefundReasonable {
			fb := a.PackagingFeedback
			if fb == "" {
				fb = "Evidence-backed report: seal/leakage suggests packaging issue."
			}
			return Step{
				Intent:       "feedback to merchant",
				Tool:         "log_merchant_packaging_feedback",
				Params:       map[string]any{"merchant_id": merchantID, "feedback": fb},
				Assertion:    "feedbackLogged==true",
				FinishReason: FinishContinue,
				Reason:       "Log packaging issue.",
			}, true
		}
		return Step{
			Intent:       "skip merchant feedback",
			Tool:         "noop",
			Params:       map[string]any{},
			FinishReason: FinishContinue,
			Reason:       "No merchant feedback required.",
		}, true
	case 7:
		msg := "After reviewing the photos, we don't see sufficient evidence to issue a refund right now. " +
			"If you have additional photos or context, please reply here."
		if h.Refunded {
			msg = "A full refund has been issued for your order. We apologize for the damage."
		}
		return Step{
			Intent: "notify resolution",
			Tool:   "notify_customer",
			Params: map[string]any{
				"fcm_token": h.CustomerToken,
				"title":     "Dispute Resolution",
				"message":   msg,
				"voucher":   false,
			},
			Assertion:    "delivered==true",
			FinishReason: FinishFinal,
			FinalMessage: "Resolution communicated to customer.",
			Reason:       "Finalizing the dispute.",
		}, true
	}
	return Step{}, false
}

func (p *Policy) nextRecipientUnavailable(stepsDone int, h *session.Hints) (Step, bool) {
	if stepsDone == 0 {
		recipientID := h.RecipientID
		if recipientID == "" {
			recipientID = "recipient_demo"
		}
		return Step{
			Intent: "reach out via chat",
			Tool:   "contact_recipient_via_chat",
			Params: map[string]any{
				"recipient_id": recipientID,
				"message":      "Driver has arrived. How should we proceed?",
			},
			Assertion:    "messageSent!=none",
			FinishReason: FinishContinue,
			Reason:       "Start chat to coordinate.",
		}, true
	}

	// From here the flow is gated on answers rather than step indexes: the
	// recipient decides safe drop first, lockers second.
	safeOK, safeAnswered := truthyAnswer(h.Answer("safe_drop_ok"))
	if !safeAnswered {
		return Step{
			Intent: "clarify",
			Tool:   "none",
			Params: map[string]any{
				"question_id": "safe_drop_ok",
				"question": "Recipient unavailable. Is it OK to leave the package " +
					"with the building concierge or a neighbour?",
				"expected": "boolean",
				"options":  []string{"yes", "no"},
			},
			FinishReason: FinishAwaitInput,
			FinalMessage: "Awaiting safe-drop permission.",
			Reason:       "Ask for safe-drop permission.",
		}, true
	}
	if safeOK {
		addr := h.DestPlace
		if addr == "" {
			addr = "Building concierge"
		}
		return Step{
			Intent:       "suggest safe drop",
			Tool:         "suggest_safe_drop_off",
			Params:       map[string]any{"address": addr},
			Assertion:    "suggested==true",
			FinishReason: FinishFinal,
			FinalMessage: "Safe-drop approved; driver will leave package with concierge.",
			Reason:       "Proceed with safe drop.",
		}, true
	}

	if _, lockerAnswered := truthyAnswer(h.Answer("locker_ok")); !lockerAnswered {
		return Step{
			Intent: "clarify",
			Tool:   "none",
			Params: map[string]any{
				"question_id": "locker_ok",
				"question": "Safe-drop not allowed. Should I route to the nearest " +
					"parcel/post-office locker instead?",
				"expected": "boolean",
				"options":  []string{"yes", "no"},
			},
			FinishReason: FinishAwaitInput,
			FinalMessage: "Awaiting locker permission.",
			Reason:       "Offer locker fallback.",
		}, true
	}

	chosen, _ := h.Answer("chosen_locker_id").(string)

	if len(h.Lockers) > 0 && chosen == "" {
		opts := make([]string, 0, len(h.Lockers))
		ids := make(map[string]string, len(h.Lockers))
		for _, l := range h.Lockers {
			opts = append(opts, l.Name)
			ids[l.Name] = l.ID
		}
		h.LockerIDs = ids
		return Step{
			Intent: "clarify",
			Tool:   "none",
			Params: map[string]any{
				"question_id": "chosen_locker_id",
				"question":    "Select a locker for the driver:",
				"expected":    "string",
				"options":     opts,
			},
			FinishReason: FinishAwaitInput,
			FinalMessage: "Awaiting locker choice.",
			Reason:       "Ask which locker.",
		}, true
	}

	if chosen != "" {
		lockerID := chosen
		if id, ok := h.LockerIDs[chosen]; ok {
			lockerID = id
		}
		lockerName := chosen
		for _, l := range h.Lockers {
			if l.ID == lockerID {
				lockerName = l.Name
				break
			}
		}
		return Step{
			Intent: "notify",
			Tool:   "notify_customer",
			Params: map[string]any{
				"fcm_token": h.CustomerToken,
				"title":     "Package secured",
				"message": fmt.Sprintf("Your parcel has been placed in locker %s. "+
					"Pick-up code sent via SMS/Email.", lockerName),
				"voucher": false,
			},
			Assertion:    "delivered==true",
			FinishReason: FinishFinal,
			FinalMessage: "Locker selected and customer notified.",
			Reason:       "Confirm locker drop-off.",
		}, true
	}

	if !h.LockersFetched {
		if h.DestPlace != "" {
			return Step{
				Intent:       "find locker",
				Tool:         "find_nearby_locker",
				Params:       map[string]any{"place_name": h.DestPlace, "radius_m": 1500},
				Assertion:    "lockers>0",
				FinishReason: FinishContinue,
				FinalMessage: "Found lockers, will prompt recipient.",
				Reason:       "Search lockers.",
			}, true
		}
		coords := h.Dest
		if coords == nil {
			coords = h.Origin
		}
		if coords != nil {
			return Step{
				Intent: "find locker (coords)",
				Tool:   "places_search_nearby",
				Params: map[string]any{
					"lat": coords.Lat, "lon": coords.Lon,
					"radius_m": 1500,
					"keyword":  "parcel locker OR package pickup OR smart locker",
					"category": "locker",
				},
				Assertion:    "count>0",
				FinishReason: FinishContinue,
				FinalMessage: "Found lockers by coordinates; will prompt recipient.",
				Reason:       "Search lockers by coordinates.",
			}, true
		}
	}

	return Step{
		Intent: "notify",
		Tool:   "notify_customer",
		Params: map[string]any{
			"fcm_token": h.CustomerToken,
			"title":     "Delivery attempt",
			"message": "Delivery attempted; no safe-drop and no lockers could be " +
				"suggested. Please advise next steps.",
			"voucher": false,
		},
		Assertion:    "delivered==true",
		FinishReason: FinishFinal,
		FinalMessage: "Awaiting recipient guidance (no location for lockers).",
		Reason:       "Notify customer due to insufficient data.",
	}, true
}

func flightNumberIn(text string) string {
	return tools.ExtractFlight(text)
}

func isUnanswered(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		t := strings.ToLower(strings.TrimSpace(s))
		return t == "" || t == "null" || t == "none"
	}
	return false
}

// truthyAnswer interprets a stored clarify answer as a boolean gate.
// answered is false when the question has not been answered yet.
func truthyAnswer(v any) (value, answered bool) {
	switch t := v.(type) {
	case nil:
		return false, false
	case bool:
		return t, true
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		switch s {
		case "", "null", "none":
			return false, false
		case "yes", "y", "true", "1", "ok":
			return true, true
		}
		return false, true
	}
	return false, true
}

func answerStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return []string{t}
	}
	return nil
}
