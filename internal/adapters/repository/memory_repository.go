package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/strovahq/challenge-engine/internal/core/domain"
)

// In-memory implementations of every repository port, used by service
// tests and local development. Locking is coarse; fidelity to the
// postgres adapters' semantics (upsert keys, uniqueness, idempotent
// milestone appends) matters more than speed here.

type InMemoryHabitRepository struct {
	store map[string]*domain.Habit
	mu    sync.RWMutex
}

func NewInMemoryHabitRepository() *InMemoryHabitRepository {
	return &InMemoryHabitRepository{store: make(map[string]*domain.Habit)}
}

func (r *InMemoryHabitRepository) Create(ctx context.Context, habit *domain.Habit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store[habit.ID] = habit
	return nil
}

func (r *InMemoryHabitRepository) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	habit, ok := r.store[id]
	if !ok {
		return nil, domain.ErrHabitNotFound
	}
	return habit, nil
}

func (r *InMemoryHabitRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Habit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found := make(map[string]*domain.Habit, len(ids))
	for _, id := range ids {
		if h, ok := r.store[id]; ok {
			found[id] = h
		}
	}
	return found, nil
}

func (r *InMemoryHabitRepository) ListByOwnerID(ctx context.Context, ownerID string) ([]*domain.Habit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var habits []*domain.Habit
	for _, h := range r.store {
		if h.OwnerID == ownerID {
			habits = append(habits, h)
		}
	}

	sort.Slice(habits, func(i, j int) bool {
		return habits[i].CreatedAt.Before(habits[j].CreatedAt)
	})

	return habits, nil
}

func (r *InMemoryHabitRepository) Update(ctx context.Context, habit *domain.Habit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[habit.ID]; !ok {
		return domain.ErrHabitNotFound
	}

	r.store[habit.ID] = habit
	return nil
}

type InMemoryEntryRepository struct {
	// keyed habitID -> dayKey -> entry: the upsert key is structural.
	store map[string]map[string]*domain.CompletionEntry
	mu    sync.RWMutex
}

func NewInMemoryEntryRepository() *InMemoryEntryRepository {
	return &InMemoryEntryRepository{store: make(map[string]map[string]*domain.CompletionEntry)}
}

func (r *InMemoryEntryRepository) Upsert(ctx context.Context, entry *domain.CompletionEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	days, ok := r.store[entry.HabitID]
	if !ok {
		days = make(map[string]*domain.CompletionEntry)
		r.store[entry.HabitID] = days
	}

	key := domain.DayKey(entry.EntryDate)
	if prev, ok := days[key]; ok {
		entry.ID = prev.ID
		entry.CreatedAt = prev.CreatedAt
	}
	days[key] = entry

	return nil
}

func (r *InMemoryEntryRepository) Delete(ctx context.Context, habitID string, entryDate time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.store[habitID], domain.DayKey(entryDate))
	return nil
}

func (r *InMemoryEntryRepository) ListByHabitID(ctx context.Context, habitID string) ([]*domain.CompletionEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return sortedEntries(r.store[habitID]), nil
}

func (r *InMemoryEntryRepository) ListByHabitIDs(ctx context.Context, habitIDs []string) ([]*domain.CompletionEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []*domain.CompletionEntry
	for _, id := range habitIDs {
		entries = append(entries, sortedEntries(r.store[id])...)
	}
	return entries, nil
}

func (r *InMemoryEntryRepository) ListByHabitIDWithRange(ctx context.Context, habitID string, from, to time.Time) ([]*domain.CompletionEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []*domain.CompletionEntry
	for _, e := range sortedEntries(r.store[habitID]) {
		if e.EntryDate.Before(from) || e.EntryDate.After(to) {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func sortedEntries(days map[string]*domain.CompletionEntry) []*domain.CompletionEntry {
	var entries []*domain.CompletionEntry
	for _, e := range days {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].EntryDate.Before(entries[j].EntryDate)
	})
	return entries
}

type InMemoryChallengeRepository struct {
	store        map[string]*domain.Challenge
	participants *InMemoryParticipantRepository
	mu           sync.RWMutex
}

// NewInMemoryChallengeRepository shares the participant store so
// ListActiveByHabitID can resolve habit links the way the SQL join does.
func NewInMemoryChallengeRepository(participants *InMemoryParticipantRepository) *InMemoryChallengeRepository {
	return &InMemoryChallengeRepository{
		store:        make(map[string]*domain.Challenge),
		participants: participants,
	}
}

func (r *InMemoryChallengeRepository) Create(ctx context.Context, challenge *domain.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store[challenge.ID] = challenge
	return nil
}

func (r *InMemoryChallengeRepository) GetByID(ctx context.Context, id string) (*domain.Challenge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	challenge, ok := r.store[id]
	if !ok {
		return nil, domain.ErrChallengeNotFound
	}
	return challenge, nil
}

func (r *InMemoryChallengeRepository) ListByWorkspaceID(ctx context.Context, workspaceID string) ([]*domain.Challenge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var challenges []*domain.Challenge
	for _, c := range r.store {
		if c.WorkspaceID == workspaceID {
			challenges = append(challenges, c)
		}
	}

	sort.Slice(challenges, func(i, j int) bool {
		return challenges[i].StartDate.Before(challenges[j].StartDate)
	})

	return challenges, nil
}

func (r *InMemoryChallengeRepository) ListActiveByHabitID(ctx context.Context, habitID string) ([]*domain.Challenge, error) {
	linked, err := r.participants.ListByHabitID(ctx, habitID)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	seen := make(map[string]bool)
	var challenges []*domain.Challenge
	for _, p := range linked {
		if seen[p.ChallengeID] {
			continue
		}
		seen[p.ChallengeID] = true

		c, ok := r.store[p.ChallengeID]
		if !ok || c.StatusAt(now) != domain.StatusActive {
			continue
		}
		challenges = append(challenges, c)
	}
	return challenges, nil
}

func (r *InMemoryChallengeRepository) Update(ctx context.Context, challenge *domain.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[challenge.ID]; !ok {
		return domain.ErrChallengeNotFound
	}

	r.store[challenge.ID] = challenge
	return nil
}

type InMemoryParticipantRepository struct {
	store map[string]*domain.Participant // keyed challengeID|userID
	mu    sync.RWMutex
}

func NewInMemoryParticipantRepository() *InMemoryParticipantRepository {
	return &InMemoryParticipantRepository{store: make(map[string]*domain.Participant)}
}

func participantKey(challengeID, userID string) string {
	return challengeID + "|" + userID
}

func (r *InMemoryParticipantRepository) Create(ctx context.Context, p *domain.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := participantKey(p.ChallengeID, p.UserID)
	if _, ok := r.store[key]; ok {
		return domain.ErrAlreadyJoined
	}

	r.store[key] = p
	return nil
}

func (r *InMemoryParticipantRepository) Get(ctx context.Context, challengeID, userID string) (*domain.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.store[participantKey(challengeID, userID)]
	if !ok {
		return nil, domain.ErrParticipantNotFound
	}
	return p, nil
}

func (r *InMemoryParticipantRepository) ListByChallengeID(ctx context.Context, challengeID string) ([]*domain.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var participants []*domain.Participant
	for _, p := range r.store {
		if p.ChallengeID == challengeID {
			participants = append(participants, p)
		}
	}

	sort.Slice(participants, func(i, j int) bool {
		return participants[i].JoinedAt.Before(participants[j].JoinedAt)
	})

	return participants, nil
}

func (r *InMemoryParticipantRepository) ListByHabitID(ctx context.Context, habitID string) ([]*domain.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var participants []*domain.Participant
	for _, p := range r.store {
		for _, id := range p.LinkedHabitIDs {
			if id == habitID {
				participants = append(participants, p)
				break
			}
		}
	}

	sort.Slice(participants, func(i, j int) bool {
		return participants[i].JoinedAt.Before(participants[j].JoinedAt)
	})

	return participants, nil
}

func (r *InMemoryParticipantRepository) Update(ctx context.Context, p *domain.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := participantKey(p.ChallengeID, p.UserID)
	if _, ok := r.store[key]; !ok {
		return domain.ErrParticipantNotFound
	}

	r.store[key] = p
	return nil
}

type InMemoryMilestoneRepository struct {
	store map[string]*domain.Milestone
	mu    sync.RWMutex
}

func NewInMemoryMilestoneRepository() *InMemoryMilestoneRepository {
	return &InMemoryMilestoneRepository{store: make(map[string]*domain.Milestone)}
}

func (r *InMemoryMilestoneRepository) Create(ctx context.Context, m *domain.Milestone) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store[m.ID] = m
	return nil
}

func (r *InMemoryMilestoneRepository) ListByChallengeID(ctx context.Context, challengeID string) ([]*domain.Milestone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var milestones []*domain.Milestone
	for _, m := range r.store {
		if m.ChallengeID == challengeID {
			milestones = append(milestones, m)
		}
	}

	sort.Slice(milestones, func(i, j int) bool {
		return milestones[i].Value < milestones[j].Value
	})

	return milestones, nil
}

func (r *InMemoryMilestoneRepository) AppendReach(ctx context.Context, milestoneID string, reach domain.MilestoneReach) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.store[milestoneID]
	if !ok {
		return domain.ErrMilestoneNotFound
	}

	m.Reach(reach.UserID, reach.ReachedAt)
	return nil
}

type InMemoryUserRepository struct {
	store   map[string]*domain.User
	byEmail map[string]string
	mu      sync.RWMutex
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		store:   make(map[string]*domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *InMemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return domain.ErrEmailAlreadyExists
	}

	r.store[user.ID] = user
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *InMemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return r.store[id], nil
}

func (r *InMemoryUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.store[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}
