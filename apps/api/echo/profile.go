package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ricardious/semestrix/core/student"
)

type profileApi struct {
	svc      student.Service
	validate *validator.Validate
}

func registerProfileAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc student.Service, validate *validator.Validate) {
	api := profileApi{
		svc:      svc,
		validate: validate,
	}

	pg := g.Group("/profiles", jwt)
	pg.GET("/status", api.status)
	pg.GET("/me", api.retrieveMine)
	pg.POST("/me", api.setIdentity)
	pg.POST("/mark-history-done", api.markHistoryDone)
	pg.POST("/complete", api.completeOnboarding)
	pg.GET("/me/progress", api.progress)
}

// Handlers

func (api *profileApi) status(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	st, err := api.svc.Status(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "getting profile status")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *profileApi) retrieveMine(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	p, err := api.svc.GetMine(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *profileApi) setIdentity(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data student.Identity
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Identity")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.SetIdentity(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "setting identity")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *profileApi) markHistoryDone(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	p, err := api.svc.MarkHistoryDone(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "marking history done")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *profileApi) completeOnboarding(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	p, err := api.svc.CompleteOnboarding(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "completing onboarding")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *profileApi) progress(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	report, err := api.svc.Progress(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "evaluating progress")
	}
	return ctx.JSON(http.StatusOK, report)
}
