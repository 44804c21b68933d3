// Package settings holds the user-selectable options shared by the converter
// and the summarizer. Operations never read the Store directly; they take a
// Snapshot when a request starts so a change made mid-request only affects
// later requests.
package settings

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/chris/scribe/internal/llm"
)

const DefaultSummaryLength = 50

// SummaryLengths are the word limits offered to the user.
var SummaryLengths = []int{50, 75, 100, 125}

// Languages offered by the converter, sorted.
var Languages = []string{"C#", "C++", "Golang", "Java", "Javascript", "Python", "Ruby", "Rust"}

var (
	ErrInvalidSummaryLength = errors.New("invalid summary length")
	ErrUnknownLanguage      = errors.New("unknown language")
)

type Snapshot struct {
	SummaryLength int
	Backend       llm.Backend
	SourceLang    string
	DestLang      string
}

func Default() Snapshot {
	return Snapshot{
		SummaryLength: DefaultSummaryLength,
		Backend:       llm.BackendGPT,
		SourceLang:    "Python",
		DestLang:      "C++",
	}
}

// ParseSummaryLength accepts the dropdown values "50", "75", "100" and "125".
func ParseSummaryLength(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || !slices.Contains(SummaryLengths, n) {
		return 0, fmt.Errorf("%w: %q (choose one of %v)", ErrInvalidSummaryLength, s, SummaryLengths)
	}
	return n, nil
}

func ValidateLanguage(lang string) error {
	if !slices.Contains(Languages, lang) {
		return fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}
	return nil
}

// Store is the process-wide, mutable settings value.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewStore(initial Snapshot) *Store {
	return &Store{snap: initial}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Store) SetSummaryLength(value string) error {
	n, err := ParseSummaryLength(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.snap.SummaryLength = n
	s.mu.Unlock()
	return nil
}

func (s *Store) SetBackend(value string) error {
	b, err := llm.ParseBackend(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.snap.Backend = b
	s.mu.Unlock()
	return nil
}

func (s *Store) SetLanguages(source, dest string) error {
	if err := ValidateLanguage(source); err != nil {
		return err
	}
	if err := ValidateLanguage(dest); err != nil {
		return err
	}
	s.mu.Lock()
	s.snap.SourceLang = source
	s.snap.DestLang = dest
	s.mu.Unlock()
	return nil
}
