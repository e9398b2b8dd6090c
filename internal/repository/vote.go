package repository

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/kvanc/server/internal/dto"
	"github.com/kvanc/server/internal/model"
)

type VoteRepository interface {
	Create(email string) (model.Vote, error)
	GetByID(id string) (model.Vote, error)
	Update(vote model.Vote) (model.Vote, error)
	ReOpenAll()
	Reset()
	FindAll() []model.Vote
	Round() int
}

type vote struct {
	votes   map[string]*model.Vote
	byEmail map[string]string
	round   int
	mutex   sync.RWMutex
}

func newVoteRepository() VoteRepository {
	return &vote{
		votes:   make(map[string]*model.Vote),
		byEmail: make(map[string]string),
	}
}

func (v *vote) Create(email string) (model.Vote, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if id, exists := v.byEmail[email]; exists {
		return model.Vote{}, fmt.Errorf("%w: vote %s for %s", dto.ErrAlreadyExists, id, email)
	}

	created := &model.Vote{
		ID:    uuid.NewString(),
		Email: email,
	}
	v.votes[created.ID] = created
	v.byEmail[email] = created.ID

	return clone(created), nil
}

func (v *vote) GetByID(id string) (model.Vote, error) {
	v.mutex.RLock()
	defer v.mutex.RUnlock()

	found, exists := v.votes[id]
	if !exists {
		return model.Vote{}, fmt.Errorf("%w: vote %s", dto.ErrNotFound, id)
	}

	return clone(found), nil
}

// Update stores the ballot and closes the vote. Closure is not re-checked here;
// callers reject closed votes before updating.
func (v *vote) Update(vote model.Vote) (model.Vote, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	stored, exists := v.votes[vote.ID]
	if !exists {
		return model.Vote{}, fmt.Errorf("%w: vote %s", dto.ErrNotFound, vote.ID)
	}

	if vote.Ballot != nil {
		ballot := *vote.Ballot
		stored.Ballot = &ballot
	}
	stored.Closed = true

	return clone(stored), nil
}

// ReOpenAll forgets every vote of the current question so each email may vote again.
func (v *vote) ReOpenAll() {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.votes = make(map[string]*model.Vote)
	v.byEmail = make(map[string]string)
	v.round++
}

func (v *vote) Reset() {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.votes = make(map[string]*model.Vote)
	v.byEmail = make(map[string]string)
	v.round = 0
}

func (v *vote) FindAll() []model.Vote {
	v.mutex.RLock()
	defer v.mutex.RUnlock()

	votes := make([]model.Vote, 0, len(v.votes))
	for _, stored := range v.votes {
		votes = append(votes, clone(stored))
	}
	return votes
}

func (v *vote) Round() int {
	v.mutex.RLock()
	defer v.mutex.RUnlock()

	return v.round
}

func clone(v *model.Vote) model.Vote {
	c := *v
	if v.Ballot != nil {
		ballot := *v.Ballot
		c.Ballot = &ballot
	}
	return c
}
