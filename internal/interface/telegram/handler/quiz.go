package handler

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"sync"

	"github.com/studyhub/comptia-study-hub/config"
	"github.com/studyhub/comptia-study-hub/internal/application/command"
	"github.com/studyhub/comptia-study-hub/internal/application/query"
	"github.com/studyhub/comptia-study-hub/internal/domain/shared"
	"github.com/studyhub/comptia-study-hub/internal/infrastructure/external/openai"
	"github.com/studyhub/comptia-study-hub/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUIZ HANDLER
// /quiz serves one adaptive question; the answer comes back as an
// inline keyboard callback. The pending question is held server-side
// so callback data only needs the chosen index.
// ══════════════════════════════════════════════════════════════════════════════

// weakSpotBias is how often the question targets the weakest topic
// instead of a random domain.
const weakSpotBias = 0.6

// QuizHandler serves adaptive practice questions.
type QuizHandler struct {
	stats        *query.GetStatisticsHandler
	recordAnswer *command.RecordAnswerHandler
	ai           *openai.Client
	cards        *presenter.CardPresenter

	pending sync.Map // map[string]*pendingQuiz, keyed by user ID
}

// pendingQuiz is a question waiting for its answer callback.
type pendingQuiz struct {
	Question openai.QuizQuestion
	Topic    string
	CardText string
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(
	stats *query.GetStatisticsHandler,
	recordAnswer *command.RecordAnswerHandler,
	ai *openai.Client,
	cards *presenter.CardPresenter,
) *QuizHandler {
	return &QuizHandler{
		stats:        stats,
		recordAnswer: recordAnswer,
		ai:           ai,
		cards:        cards,
	}
}

// Ask handles /quiz.
func (h *QuizHandler) Ask(ctx context.Context, req Request) (*presenter.View, error) {
	view, err := h.stats.Handle(ctx, query.GetStatisticsQuery{UserID: req.UserID})
	if err != nil {
		return nil, err
	}

	if view.Track == "" {
		return &presenter.View{
			Text: "🎯 Pick a certification track first - /certs",
		}, nil
	}

	cert, ok := config.FindCertification(view.Track)
	if !ok {
		return &presenter.View{
			Text: "🎯 Your track is no longer in the catalog. Pick a new one - /certs",
		}, nil
	}

	topic := chooseTopic(cert, view)

	questions, err := h.ai.GenerateQuestions(ctx, cert.Key, topic, view.NextDifficulty, 1)
	if err != nil {
		return aiErrorView(err), nil
	}

	q := questions[0]
	card := h.cards.QuizCard(topic, view.NextDifficulty, q)

	h.pending.Store(req.UserID, &pendingQuiz{
		Question: q,
		Topic:    topic,
		CardText: card.Text,
	})

	return card, nil
}

// Answer handles "quiz:<index>" callbacks.
func (h *QuizHandler) Answer(ctx context.Context, req CallbackRequest) (*presenter.View, error) {
	chosen, err := strconv.Atoi(strings.TrimPrefix(req.Data, "quiz:"))
	if err != nil {
		return nil, nil
	}

	val, ok := h.pending.LoadAndDelete(req.UserID)
	if !ok {
		return &presenter.View{
			Text: "⌛ That question has expired. Grab a fresh one with /quiz.",
		}, nil
	}
	pend := val.(*pendingQuiz)

	correct := chosen == pend.Question.Answer

	result, err := h.recordAnswer.Handle(ctx, command.RecordAnswerCommand{
		UserID:    req.UserID,
		Topic:     pend.Topic,
		IsCorrect: correct,
	})
	if err != nil {
		return nil, err
	}

	streak := 0
	if result.Streak.Updated {
		streak = result.Progress.StudyStreak
	}

	return h.cards.QuizResultCard(
		pend.CardText, pend.Question, chosen, correct, streak, result.NewAchievements,
	), nil
}

// chooseTopic targets the weakest topic most of the time, otherwise a
// random domain from the track, so strong learners still see breadth.
func chooseTopic(cert config.Certification, view *query.StatisticsView) string {
	if len(view.WeakSpots) > 0 && rand.Float64() < weakSpotBias {
		return view.WeakSpots[0].Topic.String()
	}
	return cert.Domains[rand.Intn(len(cert.Domains))]
}

// aiErrorView maps AI client failures to user-facing messages.
func aiErrorView(err error) *presenter.View {
	switch {
	case errors.Is(err, shared.ErrRateLimited):
		return &presenter.View{
			Text: "⏳ The question generator is busy right now. Try again in a minute.",
		}
	case errors.Is(err, shared.ErrServiceUnavailable):
		return &presenter.View{
			Text: "😔 The question generator is unavailable at the moment. Try again later.",
		}
	default:
		return &presenter.View{
			Text: "😔 Couldn't generate content right now. Please try again later.",
		}
	}
}
