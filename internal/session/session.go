package session

import (
	"time"

	"synapse/internal/geo"
)

// Merchant is an alternate restaurant candidate offered during a capacity
// incident.
type Merchant struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	Rating      float64 `json:"rating"`
	PrepTimeMin int     `json:"prepTimeMin"`
	EtaMin      float64 `json:"etaMin"`
	OpenNow     bool    `json:"openNow"`
}

// Locker is a parcel drop-off candidate offered when the recipient is
// unavailable.
type Locker struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Rating  float64 `json:"rating"`
	OpenNow bool    `json:"open_now"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Analysis is the outcome of evidence review in a damage dispute.
type Analysis struct {
	Status            string  `json:"status"`
	Fault             string  `json:"fault"`
	Confidence        float64 `json:"confidence"`
	RefundReasonable  bool    `json:"refund_reasonable"`
	Rationale         string  `json:"rationale"`
	PackagingFeedback string  `json:"packaging_feedback"`
}

// FlightStatus is cached flight context for airport runs.
type FlightStatus struct {
	Flight   string `json:"flight"`
	Status   string `json:"status"`
	DelayMin int    `json:"delayMin"`
}

// Hints carries everything the policy layer knows about an incident:
// extracted route facts, party identifiers, device tokens, cached tool
// results, and the answers collected through clarify rounds. It is mutated
// as a run progresses and persisted whenever the run suspends.
type Hints struct {
	ScenarioText string
	Origin       *geo.LatLng
	Dest         *geo.LatLng
	OriginPlace  string
	DestPlace    string
	Mode         string

	DriverToken    string
	PassengerToken string
	CustomerToken  string

	MerchantID  string
	OrderID     string
	DriverID    string
	RecipientID string

	// Answers maps question_id to the parsed answer value.
	Answers map[string]any

	// Cached tool results reused by later policy steps.
	Merchants      []Merchant
	Lockers        []Locker
	LockersFetched bool
	Analysis       *Analysis
	Flight         *FlightStatus
	EvidenceImages []string
	EvidenceNotes  string
	Refunded       bool

	// Option label to id mappings recorded when a choice question is asked.
	AltIDByName map[string]string
	LockerIDs   map[string]string
}

// Answer returns the parsed answer for a question id, nil when unanswered.
func (h *Hints) Answer(questionID string) any {
	if h == nil || h.Answers == nil {
		return nil
	}
	return h.Answers[questionID]
}

// SetAnswer records one answer, allocating the map on first use.
func (h *Hints) SetAnswer(questionID string, value any) {
	if h.Answers == nil {
		h.Answers = make(map[string]any)
	}
	h.Answers[questionID] = value
}

// MergeAnswers folds a batch of answers into the hints, overwriting earlier
// answers for the same question ids.
func (h *Hints) MergeAnswers(answers map[string]any) {
	for qid, v := range answers {
		h.SetAnswer(qid, v)
	}
}

// Session is a suspended agent run awaiting user input. The same session id
// is reused across clarify rounds until the run reaches a terminal event.
type Session struct {
	ID        string
	Scenario  string
	Kind      string
	StepsDone int
	Hints     *Hints
	SavedAt   time.Time
}
