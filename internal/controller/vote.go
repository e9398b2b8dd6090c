package controller

import (
	"errors"
	"net/http"

	"github.com/kvanc/server/internal/dto"
	"github.com/kvanc/server/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type VoteController interface {
	GetQuestion(c echo.Context) error
	GetResults(c echo.Context) error
	CreateVote(c echo.Context) error
	Vote(c echo.Context) error
}

type voteController struct {
	voteService    service.VoteService
	sessionService service.SessionService
}

func newVoteController(voteService service.VoteService, sessionService service.SessionService) VoteController {
	return &voteController{
		voteService:    voteService,
		sessionService: sessionService,
	}
}

func (v *voteController) GetQuestion(c echo.Context) error {
	question, ok := v.sessionService.Question()
	if !ok {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, dto.QuestionDTO{Question: question})
}

func (v *voteController) GetResults(c echo.Context) error {
	return c.JSON(http.StatusOK, v.voteService.Results())
}

func (v *voteController) CreateVote(c echo.Context) error {
	var token dto.TokenDTO
	if err := c.Bind(&token); err != nil {
		logrus.Debugf("Error binding vote token: %v", err)
		return c.NoContent(http.StatusBadRequest)
	}
	if err := c.Validate(&token); err != nil {
		logrus.Debugf("Invalid vote token: %v", err)
		return c.NoContent(http.StatusPreconditionFailed)
	}

	vote, err := v.voteService.CreateVote(c.Request().Context(), token.Email)
	if err != nil {
		return c.NoContent(statusFor(err))
	}

	return c.JSON(http.StatusCreated, dto.TokenDTO{VoteID: vote.ID, Email: vote.Email})
}

func (v *voteController) Vote(c echo.Context) error {
	var ballot dto.VoteDTO
	if err := c.Bind(&ballot); err != nil {
		logrus.Debugf("Error binding ballot: %v", err)
		return c.NoContent(http.StatusBadRequest)
	}
	if err := c.Validate(&ballot); err != nil {
		logrus.Debugf("Invalid ballot: %v", err)
		return c.NoContent(http.StatusPreconditionFailed)
	}

	if err := v.voteService.CastVote(c.Request().Context(), c.Param("id"), *ballot.Ballot); err != nil {
		return c.NoContent(statusFor(err))
	}

	return c.NoContent(http.StatusOK)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dto.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dto.ErrAlreadyClosed):
		return http.StatusTooManyRequests
	case errors.Is(err, dto.ErrAlreadyAdmitted),
		errors.Is(err, dto.ErrAlreadyExists),
		errors.Is(err, dto.ErrValidation):
		return http.StatusPreconditionFailed
	default:
		logrus.Errorf("Unexpected vote failure: %v", err)
		return http.StatusInternalServerError
	}
}
