package handler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/studyhub/comptia-study-hub/internal/application/command"
	"github.com/studyhub/comptia-study-hub/internal/domain/shared"
	"github.com/studyhub/comptia-study-hub/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRACK HANDLER
// /certs shows the catalog; /selectcert (or a catalog button) binds the
// learner to a certification track.
// ══════════════════════════════════════════════════════════════════════════════

// TrackHandler serves certification track selection.
type TrackHandler struct {
	selectTrack *command.SelectTrackHandler
	keyboards   *presenter.KeyboardBuilder
}

// NewTrackHandler creates a new TrackHandler.
func NewTrackHandler(selectTrack *command.SelectTrackHandler) *TrackHandler {
	return &TrackHandler{
		selectTrack: selectTrack,
		keyboards:   presenter.NewKeyboardBuilder(),
	}
}

// Certs handles /certs.
func (h *TrackHandler) Certs(ctx context.Context, req Request) (*presenter.View, error) {
	return &presenter.View{
		Text:     presenter.CertsText(),
		Keyboard: h.keyboards.TrackSelectionKeyboard(),
	}, nil
}

// SelectCert handles /selectcert <track>.
func (h *TrackHandler) SelectCert(ctx context.Context, req Request) (*presenter.View, error) {
	track := strings.TrimSpace(req.Args)
	if track == "" {
		return &presenter.View{
			Text:     "Tell me which track: <code>/selectcert Security+</code>\n\nOr pick one below:",
			Keyboard: h.keyboards.TrackSelectionKeyboard(),
		}, nil
	}
	return h.apply(ctx, req.UserID, track)
}

// SelectFromButton handles "track:<key>" callbacks from the catalog keyboard.
func (h *TrackHandler) SelectFromButton(ctx context.Context, req CallbackRequest) (*presenter.View, error) {
	key := strings.TrimPrefix(req.Data, "track:")
	return h.apply(ctx, req.UserID, key)
}

func (h *TrackHandler) apply(ctx context.Context, userID, track string) (*presenter.View, error) {
	result, err := h.selectTrack.Handle(ctx, command.SelectTrackCommand{
		UserID: userID,
		Track:  track,
	})
	if err != nil {
		if errors.Is(err, shared.ErrInvalidInput) {
			return &presenter.View{
				Text: fmt.Sprintf(
					"🤔 I don't know <b>%s</b>. Pick one of these:", html.EscapeString(track)),
				Keyboard: h.keyboards.TrackSelectionKeyboard(),
			}, nil
		}
		return nil, err
	}

	cert := result.Certification
	return &presenter.View{
		Text: fmt.Sprintf(
			"✅ <b>%s</b> it is!\n\n<i>%s</i>\n\nCovers %d domains. Fire off your first question with /quiz.",
			html.EscapeString(cert.Name), html.EscapeString(cert.Description), len(cert.Domains)),
	}, nil
}
