package prompts

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// Kind identifies one of the generated study artifacts.
type Kind string

const (
	Summary    Kind = "summary"
	Flashcards Kind = "flashcards"
	Quiz       Kind = "quiz"
)

// Order is the sequence in which a generation cycle produces artifacts.
var Order = []Kind{Summary, Flashcards, Quiz}

const (
	summaryTemplate = "Summarize the following lecture notes in simple, clear language suitable for students.\n" +
		"Text: {text}\n"

	flashcardsTemplate = "From the following text, create 5 smart flashcards in this format:\n" +
		"Q: <question>\n" +
		"A: <answer>\n" +
		"Text: {text}\n"

	quizTemplate = "Based on the text, create a short quiz with 5 multiple-choice questions.\n" +
		"Format each as:\n" +
		"Q: <question>\n" +
		"A) option1\n" +
		"B) option2\n" +
		"C) option3\n" +
		"D) option4\n" +
		"Correct Answer: <letter>\n" +
		"Text: {text}\n"
)

var templates = map[Kind]prompt.ChatTemplate{
	Summary:    prompt.FromMessages(schema.FString, schema.UserMessage(summaryTemplate)),
	Flashcards: prompt.FromMessages(schema.FString, schema.UserMessage(flashcardsTemplate)),
	Quiz:       prompt.FromMessages(schema.FString, schema.UserMessage(quizTemplate)),
}

// Render substitutes text into the template for kind and returns the prompt.
func Render(ctx context.Context, kind Kind, text string) (string, error) {
	tpl, ok := templates[kind]
	if !ok {
		return "", fmt.Errorf("unknown prompt kind %q", kind)
	}
	msgs, err := tpl.Format(ctx, map[string]any{"text": text})
	if err != nil {
		return "", fmt.Errorf("format %s prompt: %w", kind, err)
	}
	if len(msgs) == 0 {
		return "", fmt.Errorf("format %s prompt: no message produced", kind)
	}
	return msgs[0].Content, nil
}
