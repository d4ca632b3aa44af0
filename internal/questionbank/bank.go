// Package questionbank serves interview questions from a YAML file.
package questionbank

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/Proton-105/interview-coach/internal/domain"
)

//go:embed questions.yaml
var defaultQuestions []byte

// ErrEmptyBank is returned when a question file holds no usable question.
var ErrEmptyBank = errors.New("question bank is empty")

type fileQuestion struct {
	Question       string `yaml:"question"`
	StandardAnswer string `yaml:"standard_answer"`
	Category       string `yaml:"category"`
	Difficulty     string `yaml:"difficulty"`
	Source         string `yaml:"source"`
}

type file struct {
	Questions []fileQuestion `yaml:"questions"`
}

// Parse decodes a question file. Entries without question text are skipped.
func Parse(data []byte) ([]domain.Question, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode question bank: %w", err)
	}

	questions := make([]domain.Question, 0, len(f.Questions))
	for _, q := range f.Questions {
		text := strings.TrimSpace(q.Question)
		if text == "" {
			continue
		}
		questions = append(questions, domain.Question{
			Question:       text,
			StandardAnswer: strings.TrimSpace(q.StandardAnswer),
			Category:       strings.TrimSpace(q.Category),
			Difficulty:     strings.TrimSpace(q.Difficulty),
			Source:         strings.TrimSpace(q.Source),
		})
	}

	if len(questions) == 0 {
		return nil, ErrEmptyBank
	}
	return questions, nil
}

// Bank draws random questions and never repeats the previous draw when it
// has an alternative.
type Bank struct {
	mu        sync.RWMutex
	questions []domain.Question
	last      int
	path      string
	log       *slog.Logger
	intn      func(n int) int
}

// New creates a bank over questions.
func New(questions []domain.Question, log *slog.Logger) *Bank {
	if log == nil {
		log = slog.Default()
	}

	return &Bank{
		questions: append([]domain.Question(nil), questions...),
		last:      -1,
		log:       log,
		intn:      rand.IntN,
	}
}

// Load reads the question file at path, or the built-in bank when path is empty.
func Load(path string, log *slog.Logger) (*Bank, error) {
	data := defaultQuestions
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read question bank %s: %w", path, err)
		}
	}

	questions, err := Parse(data)
	if err != nil {
		return nil, err
	}

	b := New(questions, log)
	b.path = path
	return b, nil
}

// NextQuestion returns a random question.
func (b *Bank) NextQuestion(ctx context.Context) (*domain.QuestionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.questions)
	if n == 0 {
		return &domain.QuestionResult{Success: false}, nil
	}

	idx := b.intn(n)
	if n > 1 && idx == b.last {
		idx = (idx + 1 + b.intn(n-1)) % n
	}
	b.last = idx

	return &domain.QuestionResult{Success: true, Question: b.questions[idx]}, nil
}

// Len reports how many questions are loaded.
func (b *Bank) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.questions)
}

// Reload re-reads the bank's file. A broken file keeps the current questions.
func (b *Bank) Reload() error {
	if b.path == "" {
		return nil
	}

	data, err := os.ReadFile(b.path)
	if err != nil {
		return fmt.Errorf("read question bank %s: %w", b.path, err)
	}
	questions, err := Parse(data)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.questions = questions
	b.last = -1
	b.mu.Unlock()

	b.log.Info("question bank reloaded", slog.String("path", b.path), slog.Int("questions", len(questions)))
	return nil
}

const reloadDebounce = 200 * time.Millisecond

// Watch reloads the bank whenever its file changes until ctx is done. The
// directory is watched so editors that replace the file are handled.
func (b *Bank) Watch(ctx context.Context) error {
	if b.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(b.path)); err != nil {
		return fmt.Errorf("watch %s: %w", b.path, err)
	}

	target := filepath.Clean(b.path)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				timer.Reset(reloadDebounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			b.log.Error("question bank watcher error", slog.Any("error", err))

		case <-timer.C:
			if err := b.Reload(); err != nil {
				b.log.Error("question bank reload failed", slog.String("path", b.path), slog.Any("error", err))
			}
		}
	}
}
