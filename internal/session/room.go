package session

import (
	"slices"
	"time"
)

// MaxMembers is the capacity of a room.
const MaxMembers = 2

// ConnID identifies one live transport connection.
type ConnID string

// Phase is the occupancy state of a room, derived from its member count.
type Phase int8

const (
	// Empty rooms have no members and are destroyed immediately.
	Empty Phase = iota

	// Waiting rooms have one member and accept exactly one more join.
	Waiting

	// Paired rooms are full.
	Paired
)

// String returns a human-readable representation of the Phase.
func (p Phase) String() string {
	switch p {
	case Empty:
		return "empty"
	case Waiting:
		return "waiting"
	case Paired:
		return "paired"
	default:
		return "unknown"
	}
}

// Room is a two-party session addressed by a 4-digit code.
type Room struct {
	// Code is the unique identifier for the room.
	Code string

	// members holds at most MaxMembers connections, creator first.
	members []ConnID

	// timer is the pending expiration timer, nil while paired.
	timer Timer

	// token identifies the armed timer. A firing callback carrying a
	// different token is stale.
	token uint64

	// deadline is when the armed timer fires, zero while paired.
	deadline time.Time
}

func newRoom(code string, creator ConnID) *Room {
	members := make([]ConnID, 0, MaxMembers)
	return &Room{
		Code:    code,
		members: append(members, creator),
	}
}

// Phase derives the room's occupancy state.
func (r *Room) Phase() Phase {
	switch len(r.members) {
	case 0:
		return Empty
	case 1:
		return Waiting
	default:
		return Paired
	}
}

func (r *Room) has(conn ConnID) bool {
	return slices.Contains(r.members, conn)
}

func (r *Room) add(conn ConnID) {
	r.members = append(r.members, conn)
}

// remove drops conn and reports whether it was a member.
func (r *Room) remove(conn ConnID) bool {
	i := slices.Index(r.members, conn)
	if i < 0 {
		return false
	}
	r.members = slices.Delete(r.members, i, i+1)
	return true
}

// others returns every member except conn.
func (r *Room) others(conn ConnID) []ConnID {
	out := make([]ConnID, 0, len(r.members))
	for _, m := range r.members {
		if m != conn {
			out = append(out, m)
		}
	}
	return out
}

// RoomInfo is a point-in-time copy of a room's state.
type RoomInfo struct {
	Code     string
	Phase    Phase
	Members  []ConnID
	Deadline time.Time // zero when no timer is armed
}

func (r *Room) info() RoomInfo {
	return RoomInfo{
		Code:     r.Code,
		Phase:    r.Phase(),
		Members:  slices.Clone(r.members),
		Deadline: r.deadline,
	}
}

// Stats counts live rooms and seated connections.
type Stats struct {
	Rooms       int `json:"rooms"`
	Waiting     int `json:"waiting"`
	Paired      int `json:"paired"`
	Connections int `json:"connections"`
}
