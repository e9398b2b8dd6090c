package service

import (
	"github.com/kvanc/server/internal/client"
	"github.com/kvanc/server/internal/repository"
)

type Services interface {
	Session() SessionService
	Vote() VoteService
	Broadcast() BroadcastHub
	Close()
}

type services struct {
	sessionService  SessionService
	voteService     VoteService
	broadcastHub    BroadcastHub
	resultPublisher ResultPublisher
}

func NewServices(repositories repository.Repositories, clients client.Clients, hubConfig HubConfig) Services {
	broadcastHub := newBroadcastHub(hubConfig)

	sinks := []ResultSink{newHubSink(broadcastHub)}
	for _, resultClient := range clients.ResultClients() {
		sinks = append(sinks, newClientSink(resultClient))
	}
	if repositories.Result() != nil {
		sinks = append(sinks, newArchiveSink(repositories.Result()))
	}
	resultPublisher := newResultPublisher(sinks...)

	sessionService := newSessionService(repositories.Admission(), repositories.Vote(), broadcastHub, resultPublisher)
	return &services{
		sessionService:  sessionService,
		voteService:     newVoteService(repositories.Admission(), repositories.Vote(), sessionService, resultPublisher),
		broadcastHub:    broadcastHub,
		resultPublisher: resultPublisher,
	}
}

func (s services) Session() SessionService {
	return s.sessionService
}

func (s services) Vote() VoteService {
	return s.voteService
}

func (s services) Broadcast() BroadcastHub {
	return s.broadcastHub
}

// Close stops result publication and drops every subscriber.
func (s services) Close() {
	s.resultPublisher.Close()
	s.broadcastHub.Close()
}
