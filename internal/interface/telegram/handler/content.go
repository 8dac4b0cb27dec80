package handler

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/studyhub/comptia-study-hub/config"
	"github.com/studyhub/comptia-study-hub/internal/application/query"
	"github.com/studyhub/comptia-study-hub/internal/infrastructure/external/openai"
	"github.com/studyhub/comptia-study-hub/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT HANDLER
// AI-generated study material: /flashcards and /explain.
// ══════════════════════════════════════════════════════════════════════════════

// flashcardCount is how many cards one /flashcards call produces.
const flashcardCount = 5

// ContentHandler serves generated flashcards and explanations.
type ContentHandler struct {
	stats *query.GetStatisticsHandler
	ai    *openai.Client
	cards *presenter.CardPresenter
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(stats *query.GetStatisticsHandler, ai *openai.Client, cards *presenter.CardPresenter) *ContentHandler {
	return &ContentHandler{stats: stats, ai: ai, cards: cards}
}

// Flashcards handles /flashcards [topic]. Without a topic it picks one
// from the learner's track, preferring weak spots.
func (h *ContentHandler) Flashcards(ctx context.Context, req Request) (*presenter.View, error) {
	view, err := h.stats.Handle(ctx, query.GetStatisticsQuery{UserID: req.UserID})
	if err != nil {
		return nil, err
	}

	if view.Track == "" {
		return &presenter.View{
			Text: "🎯 Pick a certification track first - /certs",
		}, nil
	}

	cert, _ := config.FindCertification(view.Track)

	topic := strings.TrimSpace(req.Args)
	if topic == "" {
		topic = chooseTopic(cert, view)
	}

	deck, err := h.ai.GenerateFlashcards(ctx, cert.Key, topic, flashcardCount)
	if err != nil {
		return aiErrorView(err), nil
	}

	return h.cards.FlashcardsCard(topic, deck), nil
}

// Explain handles /explain <concept>.
func (h *ContentHandler) Explain(ctx context.Context, req Request) (*presenter.View, error) {
	concept := strings.TrimSpace(req.Args)
	if concept == "" {
		return &presenter.View{
			Text: "Tell me what to explain: <code>/explain subnetting</code>",
		}, nil
	}

	view, err := h.stats.Handle(ctx, query.GetStatisticsQuery{UserID: req.UserID})
	if err != nil {
		return nil, err
	}

	// Explanations work without a selected track; the broadest
	// certification gives the prompt its context then.
	track := view.Track
	if track == "" {
		track = config.CertificationKeys[0]
	}

	explanation, err := h.ai.ExplainTopic(ctx, track, concept)
	if err != nil {
		return aiErrorView(err), nil
	}

	return &presenter.View{
		Text: fmt.Sprintf("💡 <b>%s</b>\n\n%s",
			html.EscapeString(concept), html.EscapeString(explanation)),
	}, nil
}
