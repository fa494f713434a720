package database

import (
	"time"
)

// Player is a show participant.
type Player struct {
	ID            int64     `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	PhotoFilename string    `db:"photo_filename" json:"photo_filename"`
	DateAdded     time.Time `db:"date_added" json:"date_added"`
}

// SuggestionPool is a named pool of candidates (actions, items, wildcards,
// incidents, themes).
type SuggestionPool struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Created     time.Time `db:"created" json:"created"`
}

// Suggestion is a nominated candidate. PreshowValue is the cumulative
// advisory counter; Used flips true exactly once when the suggestion wins a
// phase and permanently removes it from future candidate pools.
type Suggestion struct {
	ID           int64     `db:"id" json:"id"`
	PoolID       int64     `db:"pool_id" json:"pool_id"`
	Value        string    `db:"value" json:"value"`
	PreshowValue int       `db:"preshow_value" json:"preshow_value"`
	Used         bool      `db:"used" json:"used"`
	VotedOn      bool      `db:"voted_on" json:"voted_on"`
	SessionID    string    `db:"session_id" json:"-"`
	Created      time.Time `db:"created" json:"created"`
}

// VoteType is one configured phase type of the vote catalog. Ordering is the
// explicit scan order that decides precedence when windows overlap.
type VoteType struct {
	ID              int64  `db:"id" json:"id"`
	Name            string `db:"name" json:"name"`
	DisplayName     string `db:"display_name" json:"display_name"`
	Style           string `db:"style" json:"style"` // 'options' or 'players'
	PoolID          *int64 `db:"pool_id" json:"pool_id,omitempty"`
	Ordering        int    `db:"ordering" json:"ordering"`
	Options         int    `db:"options" json:"options"`
	RandomizeAmount int    `db:"randomize_amount" json:"randomize_amount"`
	VoteLength      int    `db:"vote_length" json:"vote_length"`
	ResultLength    int    `db:"result_length" json:"result_length"`
	Occurs          string `db:"occurs" json:"occurs"` // 'once' or 'interval'
	Exclusive       bool   `db:"exclusive" json:"exclusive"`
}

// Show is a scheduled event.
type Show struct {
	ID              int64      `db:"id" json:"id"`
	Scheduled       *time.Time `db:"scheduled" json:"scheduled,omitempty"`
	Length          *int       `db:"length" json:"length,omitempty"`
	StartTime       *time.Time `db:"start_time" json:"start_time,omitempty"`
	EndTime         *time.Time `db:"end_time" json:"end_time,omitempty"`
	Locked          bool       `db:"locked" json:"locked"`
	ThemeID         *int64     `db:"theme_id" json:"theme_id,omitempty"`
	RecapTypeID     *int64     `db:"recap_type_id" json:"recap_type_id,omitempty"`
	RecapInit       *time.Time `db:"recap_init" json:"recap_init,omitempty"`
	CurrentInterval *int       `db:"current_interval" json:"current_interval,omitempty"`
	Created         time.Time  `db:"created" json:"created"`
}

// ShowInterval is a timed slot within a show. PlayerID is assigned once on
// activation; WinnerID is written once by finalize.
type ShowInterval struct {
	ID         int64  `db:"id" json:"id"`
	ShowID     int64  `db:"show_id" json:"show_id"`
	VoteTypeID int64  `db:"vote_type_id" json:"vote_type_id"`
	Interval   int    `db:"interval_minute" json:"interval"`
	PlayerID   *int64 `db:"player_id" json:"player_id,omitempty"`
	WinnerID   *int64 `db:"winner_id" json:"winner_id,omitempty"`
}

// VoteInit records when a phase occurrence was started.
type VoteInit struct {
	ID         int64     `db:"id" json:"id"`
	ShowID     int64     `db:"show_id" json:"show_id"`
	VoteTypeID int64     `db:"vote_type_id" json:"vote_type_id"`
	Interval   int       `db:"interval_minute" json:"interval"`
	Created    time.Time `db:"created" json:"created"`
}

// LiveVote is one vote cast within an open voting window.
type LiveVote struct {
	ID           int64     `db:"id" json:"id"`
	ShowID       int64     `db:"show_id" json:"show_id"`
	VoteTypeID   int64     `db:"vote_type_id" json:"vote_type_id"`
	Interval     int       `db:"interval_minute" json:"interval"`
	SuggestionID *int64    `db:"suggestion_id" json:"suggestion_id,omitempty"`
	PlayerID     *int64    `db:"player_id" json:"player_id,omitempty"`
	SessionID    string    `db:"session_id" json:"-"`
	Created      time.Time `db:"created" json:"created"`
}

// VotedItem is the finalized winner of a phase occurrence.
type VotedItem struct {
	ID           int64     `db:"id" json:"id"`
	ShowID       int64     `db:"show_id" json:"show_id"`
	VoteTypeID   int64     `db:"vote_type_id" json:"vote_type_id"`
	Interval     int       `db:"interval_minute" json:"interval"`
	SuggestionID *int64    `db:"suggestion_id" json:"suggestion_id,omitempty"`
	PlayerID     *int64    `db:"player_id" json:"player_id,omitempty"`
	LiveCount    int       `db:"live_count" json:"live_count"`
	Created      time.Time `db:"created" json:"created"`
}

// NoInterval marks live votes, inits, snapshots and winners that do not
// belong to a timed interval slot.
const NoInterval = -1
