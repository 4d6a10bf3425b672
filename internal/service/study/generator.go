package study

import (
	"context"
	"errors"

	"studyhelper/internal/apperr"
	"studyhelper/internal/logger"
	"studyhelper/internal/models"
	"studyhelper/internal/service/prompts"
)

// Stage is a user-visible progress label.
type Stage string

const (
	StageExtracting Stage = "Extracting text…"
	StageSummary    Stage = "Generating summary…"
	StageFlashcards Stage = "Creating flashcards…"
	StageQuiz       Stage = "Preparing quiz…"
)

var stageFor = map[prompts.Kind]Stage{
	prompts.Summary:    StageSummary,
	prompts.Flashcards: StageFlashcards,
	prompts.Quiz:       StageQuiz,
}

// Completer is one synchronous chat completion.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Recorder persists a finished cycle.
type Recorder interface {
	Save(ctx context.Context, filename, summary, flashcards, quiz string) (*models.StudySession, error)
}

// Generator runs the three model calls of a generation cycle in order and
// records the result only when all three succeed.
type Generator struct {
	model  Completer
	store  Recorder
	logger *logger.Logger
}

func NewGenerator(model Completer, store Recorder, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	return &Generator{model: model, store: store, logger: log}
}

// Run produces summary, flashcards and quiz for text. progress, when non-nil,
// is called before each model call.
func (g *Generator) Run(ctx context.Context, filename, text string, progress func(Stage)) (*models.StudySession, error) {
	if text == "" {
		return nil, apperr.ErrNothingToGenerate
	}
	outputs := make(map[prompts.Kind]string, len(prompts.Order))
	for _, kind := range prompts.Order {
		if progress != nil {
			progress(stageFor[kind])
		}
		prompt, err := prompts.Render(ctx, kind, text)
		if err != nil {
			return nil, err
		}
		out, err := g.model.Complete(ctx, prompt)
		if err != nil {
			var mie *apperr.ModelInvocationError
			if errors.As(err, &mie) {
				mie.Artifact = string(kind)
			} else {
				err = &apperr.ModelInvocationError{Artifact: string(kind), Err: err}
			}
			g.logger.Warn("model call failed", "artifact", kind, "file", filename, "error", err)
			return nil, err
		}
		g.logger.Debug("model call finished", "artifact", string(kind), "file", filename, "chars", len(out))
		outputs[kind] = out
	}

	session, err := g.store.Save(ctx, filename,
		outputs[prompts.Summary], outputs[prompts.Flashcards], outputs[prompts.Quiz])
	if err != nil {
		g.logger.Error("save study session failed", "file", filename, "error", err)
		return nil, err
	}
	g.logger.Info("study session saved", "id", session.ID, "file", filename)
	return session, nil
}
