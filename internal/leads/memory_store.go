package leads

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

type MemoryStore struct {
	mu           sync.Mutex
	demos        map[string]Demo
	trials       map[string]Trial
	trialByEmail map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		demos:        make(map[string]Demo),
		trials:       make(map[string]Trial),
		trialByEmail: make(map[string]string),
	}
}

func (s *MemoryStore) SaveDemo(_ context.Context, demo Demo) error {
	if demo.ID == "" {
		return errors.New("demo id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.demos[demo.ID] = demo
	return nil
}

func (s *MemoryStore) ListDemos(context.Context) ([]Demo, error) {
	s.mu.Lock()
	demos := make([]Demo, 0, len(s.demos))
	for _, d := range s.demos {
		demos = append(demos, d)
	}
	s.mu.Unlock()

	sort.Slice(demos, func(i, j int) bool { return demos[i].CreatedAt.After(demos[j].CreatedAt) })
	return demos, nil
}

func (s *MemoryStore) CreateTrial(_ context.Context, trial Trial) error {
	if trial.ID == "" {
		return errors.New("trial id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.trialByEmail[trial.Email]; ok {
		return ErrTrialExists
	}
	s.trials[trial.ID] = trial
	s.trialByEmail[trial.Email] = trial.ID
	return nil
}

func (s *MemoryStore) TrialByEmail(_ context.Context, email string) (Trial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.trialByEmail[email]
	if !ok {
		return Trial{}, ErrTrialNotFound
	}
	return s.trials[id], nil
}

func (s *MemoryStore) ListTrials(context.Context) ([]Trial, error) {
	s.mu.Lock()
	trials := make([]Trial, 0, len(s.trials))
	for _, t := range s.trials {
		trials = append(trials, t)
	}
	s.mu.Unlock()

	sort.Slice(trials, func(i, j int) bool { return trials[i].CreatedAt.After(trials[j].CreatedAt) })
	return trials, nil
}

func (s *MemoryStore) DueTrials(_ context.Context, now time.Time, limit int) ([]Trial, error) {
	s.mu.Lock()
	due := make([]Trial, 0)
	for _, t := range s.trials {
		if t.Status == TrialStatusActive && !t.TrialEndDate.After(now) {
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].TrialEndDate.Before(due[j].TrialEndDate) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *MemoryStore) MarkTrialsExpired(_ context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for _, id := range ids {
		t, ok := s.trials[id]
		if !ok || t.Status != TrialStatusActive {
			continue
		}
		t.Status = TrialStatusExpired
		s.trials[id] = t
		changed++
	}
	return changed, nil
}
