/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Question is one multiple choice quiz question.
type Question struct {
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

// DefaultQuiz is used when no quiz file is configured.
func DefaultQuiz() []Question {
	return []Question{
		{
			Prompt:       "Which planet is known as the Red Planet?",
			Options:      []string{"Venus", "Mars", "Jupiter", "Mercury"},
			CorrectIndex: 1,
		},
		{
			Prompt:       "How many sides does a hexagon have?",
			Options:      []string{"5", "6", "7", "8"},
			CorrectIndex: 1,
		},
		{
			Prompt:       "Which animal is the largest living mammal?",
			Options:      []string{"Elephant", "Giraffe", "Blue whale", "Hippo"},
			CorrectIndex: 2,
		},
		{
			Prompt:       "What color do you get by mixing blue and yellow?",
			Options:      []string{"Green", "Purple", "Orange", "Brown"},
			CorrectIndex: 0,
		},
		{
			Prompt:       "Which instrument has 88 keys?",
			Options:      []string{"Violin", "Flute", "Drum", "Piano"},
			CorrectIndex: 3,
		},
	}
}

// LoadQuiz reads a JSON array of questions.
func LoadQuiz(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var questions []Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := ValidateQuiz(questions); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return questions, nil
}

// ValidateQuiz checks that every question has a reachable correct answer.
func ValidateQuiz(questions []Question) error {
	if len(questions) == 0 {
		return errors.New("quiz has no questions")
	}
	for i, q := range questions {
		if len(q.Options) < 2 {
			return fmt.Errorf("question %d: needs at least two options", i)
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return fmt.Errorf("question %d: correct index %d out of range", i, q.CorrectIndex)
		}
	}
	return nil
}

// scoreAnswers counts the answers that match the correct option. Holes never
// match because Unanswered is negative.
func scoreAnswers(questions []Question, answers []int) int {
	score := 0
	for i, answer := range answers {
		if i < len(questions) && answer == questions[i].CorrectIndex {
			score++
		}
	}
	return score
}
