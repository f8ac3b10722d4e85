package document

import (
	"time"

	"github.com/trezcool/educonnect/core"
)

type Status string

// Statuses
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusRejected   Status = "rejected"
)

var (
	AllStatuses = []Status{StatusPending, StatusProcessing, StatusReady, StatusRejected}

	// allowed transitions: from -> to
	transitions = map[Status][]Status{
		StatusPending:    {StatusProcessing, StatusReady, StatusRejected},
		StatusProcessing: {StatusReady},
	}
)

func (s Status) Valid() bool {
	for _, st := range AllStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// CanTransition reports whether a request may move from status `from` to status `to`.
func CanTransition(from, to Status) bool {
	for _, st := range transitions[from] {
		if st == to {
			return true
		}
	}
	return false
}

type Urgency string

// Urgencies
const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

var AllUrgencies = []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh}

func (u Urgency) Valid() bool {
	for _, ur := range AllUrgencies {
		if ur == u {
			return true
		}
	}
	return false
}

// Request is a document requested by a student or a parent and processed by the administration.
type Request struct {
	ID            string    `json:"id"`
	RequesterID   string    `json:"requester_id"`
	RequesterName string    `json:"requester_name"`
	Type          string    `json:"type"`
	Urgency       Urgency   `json:"urgency"`
	Status        Status    `json:"status"`
	ProcessedBy   string    `json:"processed_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

// NewRequest contains information needed to create a new Request.
type NewRequest struct {
	Type    string  `json:"type" validate:"required,max=255"`
	Urgency Urgency `json:"urgency" validate:"urgency"`
}

func (nr *NewRequest) Validate(v *core.Validator) error {
	nr.Type = core.CleanString(nr.Type)
	nr.Urgency = Urgency(core.CleanString(string(nr.Urgency), true /* lower */))
	if nr.Urgency == "" {
		nr.Urgency = UrgencyLow
	}
	return v.Struct(nr)
}

// Transition moves a Request to another status.
type Transition struct {
	Status Status `json:"status" validate:"required,status"`
}

func (tr *Transition) Validate(v *core.Validator) error {
	tr.Status = Status(core.CleanString(string(tr.Status), true /* lower */))
	return v.Struct(tr)
}

type QueryFilter struct {
	Status      Status `query:"status"`
	RequesterID string `query:"requester_id"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf == nil || (qf.Status == "" && qf.RequesterID == "")
}

func (qf *QueryFilter) Clean() {
	qf.Status = Status(core.CleanString(string(qf.Status), true /* lower */))
	qf.RequesterID = core.CleanString(qf.RequesterID)
}

func (qf *QueryFilter) Match(r Request) bool {
	if qf.IsEmpty() {
		return true
	}
	if qf.Status != "" && r.Status != qf.Status {
		return false
	}
	if qf.RequesterID != "" && r.RequesterID != qf.RequesterID {
		return false
	}
	return true
}

// Event is published whenever a Request changes status.
type Event struct {
	RequestID   string    `json:"request_id"`
	RequesterID string    `json:"requester_id"`
	Type        string    `json:"type"`
	From        Status    `json:"from,omitempty"`
	To          Status    `json:"to"`
	ActorID     string    `json:"actor_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}
