package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kvanc/server/internal/client"
	"github.com/kvanc/server/internal/dto"
	"github.com/kvanc/server/internal/model"
	"github.com/kvanc/server/internal/repository"
	"github.com/sirupsen/logrus"
)

const (
	resultQueueSize   = 64
	resultPublishWait = 5 * time.Second
)

// ResultSink receives every published snapshot
type ResultSink interface {
	Name() string
	PublishResults(ctx context.Context, snapshot dto.ResultSnapshot) error
}

type ResultPublisher interface {
	Publish(snapshot dto.ResultSnapshot)
	Reset(question string, round int)
	Close()
}

type resultPublisher struct {
	sinks      []ResultSink
	queue      chan dto.ResultSnapshot
	done       chan struct{}
	stateMutex sync.RWMutex
	closed     bool
}

func newResultPublisher(sinks ...ResultSink) ResultPublisher {
	p := &resultPublisher{
		sinks: sinks,
		queue: make(chan dto.ResultSnapshot, resultQueueSize),
		done:  make(chan struct{}),
	}
	go p.dispatch()
	return p
}

// Publish hands the snapshot to the dispatch goroutine without waiting for sinks.
func (p *resultPublisher) Publish(snapshot dto.ResultSnapshot) {
	p.stateMutex.RLock()
	defer p.stateMutex.RUnlock()

	if p.closed {
		return
	}

	select {
	case p.queue <- snapshot:
	default:
		logrus.Warnf("Result queue full, dropping snapshot for '%s'", snapshot.Question)
	}
}

func (p *resultPublisher) Reset(question string, round int) {
	p.Publish(ComputeSnapshot(question, round, nil))
}

func (p *resultPublisher) Close() {
	p.stateMutex.Lock()
	if p.closed {
		p.stateMutex.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.stateMutex.Unlock()

	<-p.done
}

func (p *resultPublisher) dispatch() {
	defer close(p.done)

	for snapshot := range p.queue {
		for _, sink := range p.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), resultPublishWait)
			if err := sink.PublishResults(ctx, snapshot); err != nil {
				logrus.WithField("sink", sink.Name()).Errorf("Error publishing results: %v", err)
			}
			cancel()
		}
	}
}

// ComputeSnapshot aggregates the ballots of votes.
func ComputeSnapshot(question string, round int, votes []model.Vote) dto.ResultSnapshot {
	snapshot := dto.ResultSnapshot{
		Question:   question,
		Round:      round,
		Total:      len(votes),
		ComputedAt: time.Now().UTC(),
	}

	for _, vote := range votes {
		switch {
		case !vote.Closed || vote.Ballot == nil:
			snapshot.Pending++
		case *vote.Ballot:
			snapshot.Yes++
		default:
			snapshot.No++
		}
	}

	return snapshot
}

// cleared reports a snapshot with no question and no votes, which only a full reset publishes.
func cleared(snapshot dto.ResultSnapshot) bool {
	return snapshot.Question == "" && snapshot.Total == 0
}

type hubSink struct {
	hub BroadcastHub
}

func newHubSink(hub BroadcastHub) ResultSink {
	return &hubSink{hub: hub}
}

func (s *hubSink) Name() string {
	return "websocket"
}

// PublishResults skips the cleared snapshot of a full reset; subscribers get no frame for it.
func (s *hubSink) PublishResults(_ context.Context, snapshot dto.ResultSnapshot) error {
	if cleared(snapshot) {
		return nil
	}
	s.hub.PushResults(snapshot)
	return nil
}

type clientSink struct {
	client client.ResultClient
}

func newClientSink(resultClient client.ResultClient) ResultSink {
	return &clientSink{client: resultClient}
}

func (s *clientSink) Name() string {
	return s.client.Name()
}

func (s *clientSink) PublishResults(ctx context.Context, snapshot dto.ResultSnapshot) error {
	message, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return s.client.PublishMessage(ctx, message)
}

type archiveSink struct {
	resultRepository repository.ResultRepository
}

func newArchiveSink(resultRepository repository.ResultRepository) ResultSink {
	return &archiveSink{resultRepository: resultRepository}
}

func (s *archiveSink) Name() string {
	return "archive"
}

func (s *archiveSink) PublishResults(_ context.Context, snapshot dto.ResultSnapshot) error {
	_, err := s.resultRepository.Create(model.ResultRecord{
		Question:   snapshot.Question,
		Round:      snapshot.Round,
		Yes:        snapshot.Yes,
		No:         snapshot.No,
		Pending:    snapshot.Pending,
		ComputedAt: snapshot.ComputedAt,
	})
	return err
}
