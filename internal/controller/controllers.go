package controller

import (
	"github.com/kvanc/server/internal/dto"
	"github.com/kvanc/server/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Controllers interface {
	Info() InfoController
	Vote() VoteController
	Live() LiveController

	Route(e *echo.Echo)
}

type controllers struct {
	config         dto.Config
	infoController InfoController
	voteController VoteController
	liveController LiveController
}

func NewControllers(services service.Services, config dto.Config) Controllers {
	infoController := newInfoController()
	voteController := newVoteController(services.Vote(), services.Session())
	liveController := newLiveController(services.Broadcast(), services.Session())
	return &controllers{
		config:         config,
		infoController: infoController,
		voteController: voteController,
		liveController: liveController,
	}
}

func (c controllers) Info() InfoController {
	return c.infoController
}

func (c controllers) Vote() VoteController {
	return c.voteController
}

func (c controllers) Live() LiveController {
	return c.liveController
}

func (c controllers) Route(e *echo.Echo) {
	e.Validator = newRequestValidator()
	e.IPExtractor = echo.ExtractIPDirect()
	if c.config.TrustProxy {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	}

	e.Use(middleware.Recover())
	e.Use(requestLogger())
	e.Use(middleware.CORS())
	e.Use(identityMiddleware)

	e.GET("/", c.infoController.Info)

	votes := e.Group("/votes")
	votes.GET("", c.infoController.Info)
	votes.GET("/question", c.voteController.GetQuestion)
	votes.GET("/results", c.voteController.GetResults)
	votes.GET("/ws", c.liveController.Subscribe)
	votes.POST("", c.voteController.CreateVote)
	votes.PUT("/:id", c.voteController.Vote)
}
