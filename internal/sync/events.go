package sync

import "time"

const (
	EventRosterAdd     = "roster.add"
	EventRosterRemove  = "roster.remove"
	EventRosterCurrent = "roster.current"
	EventRosterPending = "roster.pending"
	EventCustomDelete  = "custom.delete"
)

// RosterEvent is pushed to a player's subscribers after a roster transition.
// CharID is empty when the player became the current author.
type RosterEvent struct {
	Type     string    `json:"type"`
	PlayerID string    `json:"player_id"`
	CharID   string    `json:"char_id,omitempty"`
	Img      string    `json:"img,omitempty"`
	Result   string    `json:"result,omitempty"`
	At       time.Time `json:"at"`
}
