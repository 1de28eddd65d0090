// Package types defines the core domain model shared by every questboard package.
package types

import "strings"

// JobID uniquely identifies a job posting.
type JobID string

// JobStatus is the lifecycle state of a job posting.
type JobStatus string

// Job status constants, declared in canonical order.
const (
	StatusPosted    JobStatus = "Posted"    // available to be taken
	StatusTaken     JobStatus = "Taken"     // accepted by the party, completion window running
	StatusCompleted JobStatus = "Completed" // resolved successfully
	StatusFailed    JobStatus = "Failed"    // resolved unsuccessfully
	StatusExpired   JobStatus = "Expired"   // a deadline passed before resolution
	StatusCancelled JobStatus = "Cancelled" // withdrawn by the game master
)

// AllStatuses lists every status in canonical order.
var AllStatuses = []JobStatus{
	StatusPosted,
	StatusTaken,
	StatusCompleted,
	StatusFailed,
	StatusExpired,
	StatusCancelled,
}

// Index returns the canonical position of the status, or -1 for unknown values.
func (s JobStatus) Index() int {
	for i, st := range AllStatuses {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the declared statuses.
func (s JobStatus) Valid() bool {
	return s.Index() >= 0
}

// IsOpen reports whether the job can still be taken, resolved or expired.
func (s JobStatus) IsOpen() bool {
	return s == StatusPosted || s == StatusTaken
}

// IsTerminal reports whether no further transitions are possible.
func (s JobStatus) IsTerminal() bool {
	return s.Valid() && !s.IsOpen()
}

// ParseStatus matches a status name case-insensitively.
func ParseStatus(s string) (JobStatus, bool) {
	for _, st := range AllStatuses {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, true
		}
	}
	return "", false
}

// TargetType is the kind of entity a reputation impact applies to.
type TargetType string

const (
	TargetLocation TargetType = "Location"
	TargetFaction  TargetType = "Faction"
	TargetNPC      TargetType = "NPC"
)

// Valid reports whether t is a known target type.
func (t TargetType) Valid() bool {
	switch t {
	case TargetLocation, TargetFaction, TargetNPC:
		return true
	}
	return false
}

// Condition is the job outcome that triggers a reputation impact.
type Condition string

const (
	OnSuccess    Condition = "OnSuccess"
	OnFailure    Condition = "OnFailure"
	OnExpiration Condition = "OnExpiration"
)

// Valid reports whether c is a known condition.
func (c Condition) Valid() bool {
	switch c {
	case OnSuccess, OnFailure, OnExpiration:
		return true
	}
	return false
}

// RewardItem is one line of an item reward.
type RewardItem struct {
	Item     string `json:"item" yaml:"item"`
	Quantity int    `json:"quantity" yaml:"quantity"`
}

// ReputationImpact is a conditional, signed adjustment to an entity's standing.
type ReputationImpact struct {
	TargetType   TargetType `json:"target_type" yaml:"target_type"`
	TargetEntity string     `json:"target_entity" yaml:"target_entity"`
	Value        int        `json:"value" yaml:"value"`
	Condition    Condition  `json:"condition" yaml:"condition"`
}

// Job is a quest posting on the board.
//
// Jobs are treated as values: lifecycle operations return a modified copy
// and the caller persists it explicitly.
type Job struct {
	// identity
	ID          JobID  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Questgiver  string `json:"questgiver,omitempty"`
	Location    string `json:"location,omitempty"`

	// lifecycle
	Status       JobStatus `json:"status"`
	PostDate     int       `json:"post_date"`
	TakenDate    *int      `json:"taken_date,omitempty"`
	ResolvedDate *int      `json:"resolved_date,omitempty"`

	// windows in in-world days, 0 means unlimited
	DurationAvailability int `json:"duration_availability"`
	DurationCompletion   int `json:"duration_completion"`

	// rewards
	RewardFunds        float64            `json:"reward_funds"`
	RewardXP           float64            `json:"reward_xp"`
	RewardItems        []RewardItem       `json:"reward_items,omitempty"`
	ReputationImpacts  []ReputationImpact `json:"reputation_impacts,omitempty"`
	RewardsDistributed bool               `json:"rewards_distributed"`

	// visibility
	HideFromPlayers bool `json:"hide_from_players"`
	Archived        bool `json:"archived"`

	NarrativeConsequence string `json:"narrative_consequence,omitempty"`
	Notes                string `json:"notes,omitempty"`
}

// Clone returns a deep copy of the job.
func (j Job) Clone() Job {
	c := j
	if j.TakenDate != nil {
		d := *j.TakenDate
		c.TakenDate = &d
	}
	if j.ResolvedDate != nil {
		d := *j.ResolvedDate
		c.ResolvedDate = &d
	}
	if j.RewardItems != nil {
		c.RewardItems = append([]RewardItem(nil), j.RewardItems...)
	}
	if j.ReputationImpacts != nil {
		c.ReputationImpacts = append([]ReputationImpact(nil), j.ReputationImpacts...)
	}
	return c
}

// WithStatus returns a copy of the job in the given status.
func (j Job) WithStatus(status JobStatus) Job {
	c := j.Clone()
	c.Status = status
	return c
}

// ImpactsFor returns the reputation impacts that fire on the given condition.
func (j Job) ImpactsFor(cond Condition) []ReputationImpact {
	var out []ReputationImpact
	for _, imp := range j.ReputationImpacts {
		if imp.Condition == cond {
			out = append(out, imp)
		}
	}
	return out
}

// Day returns a pointer to d, for the optional day fields.
func Day(d int) *int {
	return &d
}

// SnapshotData is the persisted form of the whole board.
type SnapshotData struct {
	Jobs       map[JobID]*Job   `json:"jobs"`
	Order      []JobID          `json:"order,omitempty"`
	CurrentDay int              `json:"current_day"`
	DaySet     bool             `json:"day_set"`
	Ledger     LedgerData       `json:"ledger"`
	Reputation []StandingChange `json:"reputation,omitempty"`
	SchemaVer  int              `json:"schema_ver"`
}

// LedgerData holds the party-level totals credited by reward distribution.
type LedgerData struct {
	Funds float64        `json:"funds"`
	XP    float64        `json:"xp"`
	Items map[string]int `json:"items,omitempty"`
}

// StandingChange is one applied reputation adjustment.
type StandingChange struct {
	JobID        JobID      `json:"job_id"`
	Day          int        `json:"day"`
	TargetType   TargetType `json:"target_type"`
	TargetEntity string     `json:"target_entity"`
	Value        int        `json:"value"`
	Condition    Condition  `json:"condition"`
}

// Standing is the accumulated reputation of one entity.
type Standing struct {
	TargetType   TargetType `json:"target_type"`
	TargetEntity string     `json:"target_entity"`
	Value        int        `json:"value"`
}

// Credit is one reward payout applied to the party ledger.
type Credit struct {
	JobID JobID        `json:"job_id"`
	Day   int          `json:"day"`
	Gold  float64      `json:"gold"`
	XP    float64      `json:"xp"`
	Items []RewardItem `json:"items,omitempty"`
}

// Stats counts jobs per status.
type Stats map[JobStatus]int

// Total returns the number of jobs counted.
func (s Stats) Total() int {
	n := 0
	for _, c := range s {
		n += c
	}
	return n
}
