package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"hangman_bot/internal/models"
	"hangman_bot/internal/services"
)

const (
	maxBatchWords = 100
	batchWorkers  = 10
)

type WordServicer interface {
	Add(ctx context.Context, key, desc string) (*models.Word, error)
	List(ctx context.Context) ([]models.Word, error)
}

type CreateWordRequest struct {
	Key         string `json:"key"`
	Description string `json:"desc"`
}

type RequestWords struct {
	Words []CreateWordRequest `json:"words"`
}

type MultiWordResponse struct {
	Success []*models.Word `json:"success"`
	Errors  []string       `json:"errors"`
}

type WordController struct {
	service WordServicer
	log     *slog.Logger
}

func NewWordController(s WordServicer, log *slog.Logger) *WordController {
	return &WordController{
		service: s,
		log:     log,
	}
}

func (c *WordController) List(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.words.List"

	res, err := c.service.List(r.Context())
	if err != nil {
		c.log.Error(
			ErrGetWords.Error(),
			slog.String("operation", op),
			slog.String("error", err.Error()))
		http.Error(w, ErrGetWords.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		c.log.Error(ErrEncoding.Error(), slog.String("error", err.Error()))
	}
}

func (c *WordController) Create(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.words.Create"

	var request CreateWordRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		c.log.Error(ErrBadRequest.Error(), slog.String("operation", op), slog.String("error", err.Error()))
		http.Error(w, ErrBadRequest.Error(), http.StatusBadRequest)
		return
	}

	res, err := c.service.Add(r.Context(), request.Key, request.Description)
	if err != nil {
		status := createStatus(err)
		if status == http.StatusInternalServerError {
			c.log.Error(ErrCreate.Error(), slog.String("operation", op), slog.String("error", err.Error()))
			http.Error(w, ErrCreate.Error(), status)
			return
		}
		http.Error(w, err.Error(), status)
		return
	}

	c.log.Info("word added", slog.Int64("word_id", res.ID))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		c.log.Error(ErrEncoding.Error(), slog.String("error", err.Error()))
	}
}

// CreateMulti adds a batch of words. Words without a description are looked
// up concurrently, so the batch runs on a bounded worker pool.
func (c *WordController) CreateMulti(w http.ResponseWriter, r *http.Request) {
	var request RequestWords

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		c.log.Error(ErrBadRequest.Error(), slog.String("error", err.Error()))
		http.Error(w, ErrBadRequest.Error(), http.StatusBadRequest)
		return
	}

	if len(request.Words) == 0 {
		c.log.Error(ErrBadRequest.Error(), slog.String("error", "no words"))
		http.Error(w, ErrBadRequest.Error(), http.StatusBadRequest)
		return
	}

	if len(request.Words) > maxBatchWords {
		c.log.Error(ErrTooManyWords.Error(), slog.Int("count", len(request.Words)))
		http.Error(w, ErrTooManyWords.Error(), http.StatusBadRequest)
		return
	}

	var (
		sem         = make(chan struct{}, batchWorkers)
		wg          sync.WaitGroup
		errChan     = make(chan error, len(request.Words))
		resultsChan = make(chan *models.Word, len(request.Words))
	)

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	for _, word := range request.Words {
		sem <- struct{}{}
		wg.Add(1)
		go func(key, desc string) {
			defer func() {
				<-sem
				wg.Done()
			}()

			res, err := c.service.Add(ctx, key, desc)
			if err != nil {
				errChan <- fmt.Errorf("%s: %w", key, err)
				return
			}
			resultsChan <- res
		}(word.Key, word.Description)
	}

	wg.Wait()
	close(errChan)
	close(resultsChan)

	response := MultiWordResponse{
		Success: []*models.Word{},
		Errors:  []string{},
	}
	for err := range errChan {
		response.Errors = append(response.Errors, err.Error())
	}
	for res := range resultsChan {
		response.Success = append(response.Success, res)
	}

	status := http.StatusCreated
	if len(response.Errors) > 0 {
		if len(response.Success) == 0 {
			status = http.StatusUnprocessableEntity
		} else {
			status = http.StatusMultiStatus
		}
		c.log.Warn(
			ErrPartialCreate.Error(),
			slog.Int("success_count", len(response.Success)),
			slog.Int("error_count", len(response.Errors)))
	} else {
		c.log.Info("words added", slog.Int("count", len(response.Success)))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		c.log.Error(ErrEncoding.Error(), slog.String("error", err.Error()))
	}
}

func createStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrWordExists):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidWordKey), errors.Is(err, services.ErrEmptyDesc):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
