package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingPlayers = errors.New("active players missing from roster")
	ErrPlayerCount    = errors.New("active player count does not match the team layout")
	ErrInterrupted    = errors.New("search interrupted")
)

// MissingPlayersError lists every active name absent from the roster.
type MissingPlayersError struct {
	Names []string
}

func (e *MissingPlayersError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingPlayers, strings.Join(e.Names, ", "))
}

// Is makes errors.Is(err, ErrMissingPlayers) hold.
func (e *MissingPlayersError) Is(target error) bool {
	return target == ErrMissingPlayers
}
