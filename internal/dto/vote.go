package dto

import "time"

type TokenDTO struct {
	VoteID string `json:"voteId,omitempty"`
	Email  string `json:"email" validate:"required,email"`
}

// VoteDTO carries a ballot; a pointer so a missing field fails validation instead of reading as false.
type VoteDTO struct {
	Ballot *bool `json:"ballot" validate:"required"`
}

type QuestionDTO struct {
	Question string `json:"question"`
}

type ResultSnapshot struct {
	Question   string    `json:"question,omitempty"`
	Round      int       `json:"round"`
	Yes        int       `json:"yes"`
	No         int       `json:"no"`
	Pending    int       `json:"pending"`
	Total      int       `json:"total"`
	ComputedAt time.Time `json:"computedAt"`
}

const (
	PushTypeQuestion = "question"
	PushTypeResults  = "results"
)

// PushMessage is the frame written to real-time subscribers.
type PushMessage struct {
	Type     string          `json:"type"`
	Question string          `json:"question,omitempty"`
	Results  *ResultSnapshot `json:"results,omitempty"`
}

// BindMessage is sent by a subscriber to associate its connection with a vote.
type BindMessage struct {
	VoteID string `json:"voteId"`
}
