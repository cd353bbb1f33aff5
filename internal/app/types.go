package app

import "time"

// SessionState is the play loop position of the session.
type SessionState int

const (
	StateUnauthenticated SessionState = iota
	StateSelectingChallenge
	StateTaskPresented
	StateEditing
	StateAwaitingConfirmation
	StateChallengeComplete
)

func (s SessionState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateSelectingChallenge:
		return "selecting_challenge"
	case StateTaskPresented:
		return "task_presented"
	case StateEditing:
		return "editing"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateChallengeComplete:
		return "challenge_complete"
	default:
		return "unknown"
	}
}

const (
	// MinEditZoom is the lowest map zoom from which an editor may be opened.
	MinEditZoom = 14

	ConfirmDelay         = 4 * time.Second
	TerminalWarningDelay = 2 * time.Second
)

const (
	msgZoomIn        = "Please zoom in a little so we don't have to load a huge area from the API."
	msgIDLoading     = "Your task is being loaded in iD in a separate tab. Please return here after you completed your fixes!"
	msgTerminalTask  = "This task is already fixed, or it was marked as not an error."
	msgComplete      = "The challenge you were working on is all done. Thanks for helping out!"
	msgWelcome       = "Sign in with OpenStreetMap to play MapRoulette."
	msgStillLoading  = "Still loading the next task..."
	msgNoTask        = "No task loaded yet."
	msgNoChallenges  = "There are no active challenges right now."
	msgEditAreaPick  = "Move the crosshair to the middle of the area you want to work in and press enter."
	msgEditAreaSaved = "Your next tasks will come from within %s of the point you picked."
	msgEditAreaClear = "Edit area cleared. Tasks can come from anywhere again."
)

// fetchQuery selects the next task: the challenge's next task, or a
// specific one when taskID is set.
type fetchQuery struct {
	assign bool
	taskID string
}
