package service

import (
	"context"
	"fmt"
	"sync"

	reqctx "github.com/kvanc/server/internal/context"
	"github.com/kvanc/server/internal/dto"
	"github.com/kvanc/server/internal/model"
	"github.com/kvanc/server/internal/repository"
	"github.com/sirupsen/logrus"
)

type VoteService interface {
	CreateVote(ctx context.Context, email string) (model.Vote, error)
	CastVote(ctx context.Context, id string, ballot bool) error
	Results() dto.ResultSnapshot
}

type voteService struct {
	admissionRepository repository.AdmissionRepository
	voteRepository      repository.VoteRepository
	sessionService      SessionService
	resultPublisher     ResultPublisher
	castMutex           sync.Mutex
}

func newVoteService(
	admissionRepository repository.AdmissionRepository,
	voteRepository repository.VoteRepository,
	sessionService SessionService,
	resultPublisher ResultPublisher,
) VoteService {
	return &voteService{
		admissionRepository: admissionRepository,
		voteRepository:      voteRepository,
		sessionService:      sessionService,
		resultPublisher:     resultPublisher,
	}
}

// CreateVote admits the caller's identity and opens a vote for email. A
// duplicate email does not give the admission slot back.
func (v *voteService) CreateVote(ctx context.Context, email string) (model.Vote, error) {
	identity, ok := reqctx.GetIdentityFromContext(ctx)
	if !ok {
		return model.Vote{}, fmt.Errorf("%w: missing client identity", dto.ErrValidation)
	}

	var (
		created model.Vote
		err     error
	)
	v.sessionService.Guard(func(string, bool) {
		if !v.admissionRepository.Admit(identity) {
			logrus.Infof("Vote already created from host '%s'", identity)
			err = fmt.Errorf("%w: %s", dto.ErrAlreadyAdmitted, identity)
			return
		}

		created, err = v.voteRepository.Create(email)
		if err != nil {
			logrus.Infof("Vote already created for '%s'", email)
			return
		}
		logrus.Debugf("Vote created for '%s'", email)
	})

	return created, err
}

// CastVote closes the vote with ballot and publishes fresh results. A closed
// vote is rejected here; the repository does not re-check.
func (v *voteService) CastVote(_ context.Context, id string, ballot bool) error {
	var err error
	v.sessionService.Guard(func(question string, _ bool) {
		v.castMutex.Lock()
		defer v.castMutex.Unlock()

		var found model.Vote
		found, err = v.voteRepository.GetByID(id)
		if err != nil {
			logrus.Errorf("No vote found for '%s'", id)
			return
		}
		if found.Closed {
			logrus.Infof("Already voted: '%s'", found.Email)
			err = fmt.Errorf("%w: %s", dto.ErrAlreadyClosed, id)
			return
		}

		found.Ballot = &ballot
		if _, err = v.voteRepository.Update(found); err != nil {
			return
		}

		v.resultPublisher.Publish(ComputeSnapshot(question, v.voteRepository.Round(), v.voteRepository.FindAll()))
		logrus.Debugf("Vote updated for '%s'", found.Email)
	})

	return err
}

func (v *voteService) Results() dto.ResultSnapshot {
	var snapshot dto.ResultSnapshot
	v.sessionService.Guard(func(question string, _ bool) {
		snapshot = ComputeSnapshot(question, v.voteRepository.Round(), v.voteRepository.FindAll())
	})
	return snapshot
}
