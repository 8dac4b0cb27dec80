package command

import (
	"context"
	"fmt"

	"github.com/studyhub/comptia-study-hub/config"
	"github.com/studyhub/comptia-study-hub/internal/domain/learner"
	"github.com/studyhub/comptia-study-hub/internal/domain/shared"
	"github.com/studyhub/comptia-study-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SELECT TRACK COMMAND
// Binds a learner to a certification track from the catalog. Switching
// tracks keeps all accumulated statistics - topic names are shared
// across certifications often enough that wiping would lose real signal.
// ══════════════════════════════════════════════════════════════════════════════

// SelectTrackCommand contains the data to select a certification track.
type SelectTrackCommand struct {
	// UserID is the chat-platform identifier of the learner.
	UserID string

	// Track is the certification key, e.g. "Security+".
	Track string
}

// Validate validates the command against the certification catalog.
func (c SelectTrackCommand) Validate() error {
	if !learner.UserID(c.UserID).IsValid() {
		return shared.ErrInvalidUserID
	}
	if _, ok := config.FindCertification(c.Track); !ok {
		return shared.ErrUnknownTrack
	}
	return nil
}

// SelectTrackResult contains the outcome of selecting a track.
type SelectTrackResult struct {
	// Progress is the snapshot after the track was applied.
	Progress *learner.Progress

	// Certification is the catalog entry for the selected track.
	Certification config.Certification
}

// SelectTrackHandler handles the SelectTrackCommand.
type SelectTrackHandler struct {
	repo      learner.Repository
	publisher shared.EventPublisher
	clock     timeutil.Clock
}

// NewSelectTrackHandler creates a new SelectTrackHandler.
func NewSelectTrackHandler(repo learner.Repository, publisher shared.EventPublisher, clock timeutil.Clock) *SelectTrackHandler {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &SelectTrackHandler{repo: repo, publisher: publisher, clock: clock}
}

// Handle executes the select track command.
func (h *SelectTrackHandler) Handle(ctx context.Context, cmd SelectTrackCommand) (*SelectTrackResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("select_track: %w", err)
	}

	cert, _ := config.FindCertification(cmd.Track)

	progress, err := h.repo.SelectTrack(ctx, learner.UserID(cmd.UserID), learner.Track(cert.Key), h.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("select_track: %w", err)
	}

	publishEvent(h.publisher, shared.NewTrackSelectedEvent(cmd.UserID, cert.Key))

	return &SelectTrackResult{Progress: progress, Certification: cert}, nil
}
