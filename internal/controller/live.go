package controller

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/kvanc/server/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type LiveController interface {
	Subscribe(c echo.Context) error
}

type liveController struct {
	broadcastHub   service.BroadcastHub
	sessionService service.SessionService
}

func newLiveController(broadcastHub service.BroadcastHub, sessionService service.SessionService) LiveController {
	return &liveController{
		broadcastHub:   broadcastHub,
		sessionService: sessionService,
	}
}

// Subscribe upgrades the request and hands the connection to the hub. A
// subscriber joining mid-question is sent the current question right away.
func (l *liveController) Subscribe(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logrus.Debugf("Error upgrading connection: %v", err)
		return nil
	}

	subscriber := l.broadcastHub.Register(conn)
	if subscriber == nil {
		return nil
	}

	// under the gate, so a concurrent reset is delivered after this frame
	l.sessionService.Guard(func(question string, active bool) {
		if active {
			l.broadcastHub.Send(subscriber, question)
		}
	})
	return nil
}
