/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"fmt"

	"github.com/Seednode/quizbox/internal/session"
)

// HostPolicy decides what happens to a session whose host connection drops.
type HostPolicy interface {
	Name() string
	// HostLost mutates s and reports the new host, or false if the session
	// should be deleted.
	HostLost(s *session.Session) (*session.Player, bool)
}

// DeleteSession ends the game as soon as the host disconnects.
type DeleteSession struct{}

func (DeleteSession) Name() string { return "delete" }

func (DeleteSession) HostLost(*session.Session) (*session.Player, bool) {
	return nil, false
}

// PromotePlayer hands the host role to the earliest connected player.
type PromotePlayer struct{}

func (PromotePlayer) Name() string { return "promote" }

func (PromotePlayer) HostLost(s *session.Session) (*session.Player, bool) {
	p := s.PromoteFirst()
	return p, p != nil
}

var policies = map[string]HostPolicy{
	DeleteSession{}.Name(): DeleteSession{},
	PromotePlayer{}.Name(): PromotePlayer{},
}

func PolicyByName(name string) (HostPolicy, error) {
	p, ok := policies[name]
	if !ok {
		return nil, fmt.Errorf("unknown host migration policy %q", name)
	}
	return p, nil
}
