package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"hangman_bot/internal/models"
	"hangman_bot/internal/puzzle"
	"hangman_bot/internal/storage"
)

// Describer looks up a clue for a word the admin added without one.
type Describer interface {
	Describe(ctx context.Context, word string) (string, error)
}

type WordService struct {
	storage   WordStorage
	describer Describer
	log       *slog.Logger
}

// NewWordService creates the word list service. d may be nil.
func NewWordService(s WordStorage, d Describer, log *slog.Logger) *WordService {
	return &WordService{
		storage:   s,
		describer: d,
		log:       log,
	}
}

func (s *WordService) Add(ctx context.Context, key, desc string) (*models.Word, error) {
	const op = "services.words.Add"

	key = strings.ToLower(strings.TrimSpace(key))
	if !validKey(key) {
		return nil, ErrInvalidWordKey
	}

	_, err := s.storage.WordByKey(ctx, key)
	if err == nil {
		return nil, ErrWordExists
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	desc = strings.TrimSpace(desc)
	if desc == "" && s.describer != nil {
		desc, err = s.describer.Describe(ctx, key)
		if err != nil {
			s.log.Warn("word description lookup failed",
				slog.String("operation", op),
				slog.String("word", key),
				slog.String("error", err.Error()))
			desc = ""
		}
	}
	if desc == "" {
		return nil, ErrEmptyDesc
	}

	w, err := s.storage.CreateWord(ctx, key, desc)
	if errors.Is(err, storage.ErrExists) {
		return nil, ErrWordExists
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return w, nil
}

func (s *WordService) List(ctx context.Context) ([]models.Word, error) {
	const op = "services.words.List"

	words, err := s.storage.ListWords(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return words, nil
}

// validKey accepts a single token of letters that can be typed as a guess.
func validKey(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		if r == puzzle.Placeholder || unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
