package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ricardious/semestrix/core/history"
)

type historyApi struct {
	svc      history.Service
	validate *validator.Validate
}

func registerHistoryAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc history.Service, validate *validator.Validate) {
	api := historyApi{
		svc:      svc,
		validate: validate,
	}

	hg := g.Group("/history", jwt)
	hg.GET("/me", api.queryMine)
	hg.POST("/manual", api.createManual)
	hg.PATCH("/manual/:id", api.updateManual)
	hg.DELETE("/manual/:id", api.deleteManual)
	hg.POST("/bulk", api.bulkUpsert)
	hg.POST("/import/preview", api.previewImport)
	hg.POST("/import/commit", api.commitImport)
}

// Handlers

func (api *historyApi) queryMine(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	items, err := api.svc.QueryMine(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying history")
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *historyApi) createManual(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data history.NewItem
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewItem")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	it, err := api.svc.CreateManual(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating history entry")
	}
	return ctx.JSON(http.StatusCreated, it)
}

func (api *historyApi) updateManual(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	var data history.UpdateItem
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateItem")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	it, err := api.svc.UpdateManual(ctx.Request().Context(), claims.Subject, id, data)
	if err != nil {
		if errors.Cause(err) == history.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating history entry")
	}
	return ctx.JSON(http.StatusOK, it)
}

func (api *historyApi) deleteManual(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	if err := api.svc.DeleteManual(ctx.Request().Context(), claims.Subject, id); err != nil {
		if errors.Cause(err) == history.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting history entry")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *historyApi) bulkUpsert(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data history.BulkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.BulkUpsert(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "bulk upserting history")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *historyApi) previewImport(ctx echo.Context) error {
	if _, err := getContextClaims(ctx); err != nil {
		return err
	}

	var data history.ImportPreviewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ImportPreviewRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, api.svc.PreviewImport(data))
}

func (api *historyApi) commitImport(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data history.ImportCommitRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ImportCommitRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.CommitImport(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "committing history import")
	}
	return ctx.JSON(http.StatusOK, res)
}
