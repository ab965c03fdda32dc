package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// Progress is one user's completion flag for one problem.
//
// ProblemID is a weak reference: it is not checked against the catalog and may
// name a problem that does not exist. At most one record exists per
// (UserID, ProblemID); the stores enforce it with a unique key.
type Progress struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ProblemID string    `json:"problemId"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProblemRef is a problem id that may have been resolved against the catalog.
// It encodes as the full Problem object when resolved and as the bare id
// string otherwise.
type ProblemRef struct {
	ID      string
	Problem *Problem
}

// Resolved reports whether the reference points at a catalog problem.
func (r ProblemRef) Resolved() bool {
	return r.Problem != nil
}

func (r ProblemRef) MarshalJSON() ([]byte, error) {
	if r.Problem != nil {
		return json.Marshal(r.Problem)
	}
	return json.Marshal(r.ID)
}

func (r *ProblemRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var p Problem
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		r.ID = p.ID
		r.Problem = &p
		return nil
	}
	r.Problem = nil
	return json.Unmarshal(data, &r.ID)
}

// EnrichedProgress is a Progress record with its problem reference resolved
// where possible. It is what GET /progress returns.
type EnrichedProgress struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	ProblemID ProblemRef `json:"problemId"`
	Completed bool       `json:"completed"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Summary holds per-difficulty completion percentages, each in [0, 100].
type Summary struct {
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}
