// Package statemachine holds the authoritative lifecycle tables for food
// posts and account approvals.
package statemachine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"foodconnect/internal/model"
)

// ErrInvalidTransition is returned for a state change the tables do not allow
var ErrInvalidTransition = errors.New("invalid transition")

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Actor string `json:"actor"`
}

// Actors that can drive a post forward. The restaurant actor is the post
// owner and the ngo actor is the claiming NGO.
const (
	ActorAdmin      = model.RoleAdmin
	ActorRestaurant = model.RoleRestaurant
	ActorNGO        = model.RoleNGO
)

// postTransitions has no way back to Available and nothing leaves Picked up
var postTransitions = []Transition{
	// an approved NGO in the same city claims
	{From: model.PostStatusAvailable, To: model.PostStatusClaimed, Actor: ActorNGO},
	// either party confirms the handover
	{From: model.PostStatusClaimed, To: model.PostStatusPickedUp, Actor: ActorRestaurant},
	{From: model.PostStatusClaimed, To: model.PostStatusPickedUp, Actor: ActorNGO},
}

// accountTransitions lists the decisions an admin makes on a reviewed account.
// Nothing moves an account back to pending. CanDecide also accepts a status
// outside the table, such as one left empty by an older release.
var accountTransitions = []Transition{
	{From: model.StatusPending, To: model.StatusApproved, Actor: ActorAdmin},
	{From: model.StatusPending, To: model.StatusRejected, Actor: ActorAdmin},
	{From: model.StatusApproved, To: model.StatusApproved, Actor: ActorAdmin},
	{From: model.StatusApproved, To: model.StatusRejected, Actor: ActorAdmin},
	{From: model.StatusRejected, To: model.StatusApproved, Actor: ActorAdmin},
	{From: model.StatusRejected, To: model.StatusRejected, Actor: ActorAdmin},
}

func buildIndex(ts []Transition) map[Transition]bool {
	m := make(map[Transition]bool, len(ts))
	for _, t := range ts {
		m[t] = true
	}
	return m
}

var postIndex = buildIndex(postTransitions)

// CanTransition checks whether actor may move a post from one status to another
func CanTransition(from, to, actor string) error {
	if postIndex[Transition{From: from, To: to, Actor: actor}] {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s is not allowed for %s; valid next states from %s: %s",
		ErrInvalidTransition, from, to, actor, from, describeNext(postTransitions, from))
}

// CanDecide checks that to is a decision an admin may set. A decision
// overwrites whatever status is stored, so from only matters for the message.
func CanDecide(from, to string) error {
	for _, t := range accountTransitions {
		if t.To == to {
			return nil
		}
	}
	return fmt.Errorf("%w: account status %q -> %q", ErrInvalidTransition, from, to)
}

// ValidTransitionsFrom returns all valid next post statuses
func ValidTransitionsFrom(status string) []string {
	return nextStates(postTransitions, status)
}

// IsTerminal reports whether no transition leaves the post status
func IsTerminal(status string) bool {
	return len(ValidTransitionsFrom(status)) == 0
}

func nextStates(ts []Transition, from string) []string {
	var nexts []string
	seen := map[string]bool{}
	for _, t := range ts {
		if t.From == from && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

func describeNext(ts []Transition, from string) string {
	nexts := nextStates(ts, from)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	return strings.Join(nexts, ", ")
}

// Description is the machine-readable form served to clients
type Description struct {
	Posts    []Transition `json:"posts"`
	Accounts []Transition `json:"accounts"`
}

// Describe returns both tables
func Describe() Description {
	return Description{
		Posts:    append([]Transition(nil), postTransitions...),
		Accounts: append([]Transition(nil), accountTransitions...),
	}
}

// DescribeJSON renders Describe as indented JSON
func DescribeJSON() ([]byte, error) {
	return json.MarshalIndent(Describe(), "", "  ")
}
