package engine

import "errors"

// Validation errors. A command failing with one of these leaves the
// snapshot untouched.
var (
	ErrWrongPhase          = errors.New("not allowed in the current phase")
	ErrUnknownPlayer       = errors.New("unknown player")
	ErrNotAlive            = errors.New("player is not alive")
	ErrNotDead             = errors.New("only revealed ghosts may do that")
	ErrRoleNotAssigned     = errors.New("role not assigned yet")
	ErrNotPermitted        = errors.New("role cannot do that")
	ErrNotHost             = errors.New("only the host may do that")
	ErrInvalidCode         = errors.New("invalid life code")
	ErrInvalidTarget       = errors.New("invalid target")
	ErrSelfTarget          = errors.New("cannot target yourself")
	ErrNotSameLocation     = errors.New("target is not in your location")
	ErrUnknownLocation     = errors.New("location is not active")
	ErrNotSoleOccupant     = errors.New("you must be alone in this location")
	ErrAlreadyUsed         = errors.New("already used this round")
	ErrAlreadyGaveOxygen   = errors.New("already gave oxygen this round")
	ErrAlreadyKilled       = errors.New("already killed this round")
	ErrAlreadyVoted        = errors.New("already voted")
	ErrInsufficientPlayers = errors.New("not enough players")
	ErrRoomFull            = errors.New("room full")
	ErrAlreadySeated       = errors.New("already seated")
	ErrNameRequired        = errors.New("name required")
	ErrPaused              = errors.New("room is paused")
	ErrNotPaused           = errors.New("room is not paused")
	ErrNoTask              = errors.New("no such task")
	ErrTaskBusy            = errors.New("already in an unresolved task")
	ErrTaskClosed          = errors.New("task is not accepting that")
	ErrTooFewParticipants  = errors.New("shared task needs at least two participants")
	ErrAlreadySubmitted    = errors.New("already submitted")
	ErrLowOxygen           = errors.New("not enough oxygen")
	ErrMalformedCommand    = errors.New("malformed command")
)

// Fatal-to-command errors. The command is aborted; the room keeps running.
var (
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
	ErrRoleTable       = errors.New("role table mismatch")
	ErrBadTransition   = errors.New("invalid phase transition")
)

// Penalty causes. These are carried by a *PenaltyError.
var (
	ErrWrongCode = errors.New("wrong life code")
	ErrFoul      = errors.New("foul: your role cannot kill")
)

// PenaltyError is a failed command that nevertheless changed state, such as
// an oxygen charge or the actor's own death.
type PenaltyError struct {
	Err error
}

func (e *PenaltyError) Error() string {
	return e.Err.Error()
}

func (e *PenaltyError) Unwrap() error {
	return e.Err
}

func penalty(err error) error {
	return &PenaltyError{Err: err}
}

// IsPenalty reports whether err is a penalty outcome.
func IsPenalty(err error) bool {
	var pe *PenaltyError
	return errors.As(err, &pe)
}
