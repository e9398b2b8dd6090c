package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kvanc/server/internal/repository"
	"github.com/sirupsen/logrus"
)

// ChangeSource reports the trimmed question text whenever it changed since the last call.
type ChangeSource interface {
	PollChange() (content string, changed bool, err error)
}

// SessionService owns the current question and sequences resets across the
// admission table, the vote table and the broadcast hub.
type SessionService interface {
	Question() (string, bool)
	Apply(content string)
	Refresh(source ChangeSource) error
	Watch(ctx context.Context, source ChangeSource, interval time.Duration) error
	// Guard runs fn with the current question while no reset can interleave.
	Guard(fn func(question string, active bool))
}

type sessionService struct {
	admissionRepository repository.AdmissionRepository
	voteRepository      repository.VoteRepository
	broadcastHub        BroadcastHub
	resultPublisher     ResultPublisher

	question    string
	hasQuestion bool
	gate        sync.RWMutex
}

func newSessionService(
	admissionRepository repository.AdmissionRepository,
	voteRepository repository.VoteRepository,
	broadcastHub BroadcastHub,
	resultPublisher ResultPublisher,
) SessionService {
	return &sessionService{
		admissionRepository: admissionRepository,
		voteRepository:      voteRepository,
		broadcastHub:        broadcastHub,
		resultPublisher:     resultPublisher,
	}
}

func (s *sessionService) Question() (string, bool) {
	s.gate.RLock()
	defer s.gate.RUnlock()

	return s.question, s.hasQuestion
}

func (s *sessionService) Guard(fn func(question string, active bool)) {
	s.gate.RLock()
	defer s.gate.RUnlock()

	fn(s.question, s.hasQuestion)
}

// Apply installs content as the current question. Empty content clears the
// whole session; anything else starts a new question.
func (s *sessionService) Apply(content string) {
	content = strings.TrimSpace(content)

	s.gate.Lock()
	defer s.gate.Unlock()

	if content == "" {
		s.admissionRepository.Reset()
		s.voteRepository.Reset()
		s.broadcastHub.Reset()
		s.question, s.hasQuestion = "", false
		s.resultPublisher.Reset("", 0)
		logrus.Info("Reset all services")
		return
	}

	s.admissionRepository.Reset()
	s.broadcastHub.Reset()
	s.voteRepository.ReOpenAll()
	s.question, s.hasQuestion = content, true
	s.broadcastHub.PushMessage(content)
	s.resultPublisher.Reset(content, s.voteRepository.Round())
	logrus.WithField("subscribers", s.broadcastHub.Count()).Infof("New Question has arrived: '%s'", content)
}

// Refresh pulls the change source once. A read failure leaves the session untouched.
func (s *sessionService) Refresh(source ChangeSource) error {
	content, changed, err := source.PollChange()
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	logrus.Info("Question file has changed")
	s.Apply(content)
	return nil
}

func (s *sessionService) Watch(ctx context.Context, source ChangeSource, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Refresh(source); err != nil {
				logrus.Errorf("Error reading question, retrying next cycle: %v", err)
			}
		}
	}
}
