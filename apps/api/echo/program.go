package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ricardious/semestrix/core/program"
)

type programApi struct {
	svc program.Service
}

func registerProgramAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc program.Service) {
	api := programApi{svc: svc}

	pg := g.Group("/programs", jwt)
	pg.GET("", api.query)
	pg.GET("/courses", api.queryCourses)
	pg.GET("/curriculums/:versionID/structure", api.structure)
	pg.GET("/:code", api.retrieve)
	pg.GET("/:code/active-version", api.activeVersion)
}

func (api *programApi) query(ctx echo.Context) error {
	progs, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying programs")
	}
	if progs == nil {
		progs = []program.Program{}
	}
	return ctx.JSON(http.StatusOK, progs)
}

func (api *programApi) retrieve(ctx echo.Context) error {
	prog, err := api.svc.GetByCode(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		if errors.Cause(err) == program.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding program")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *programApi) activeVersion(ctx echo.Context) error {
	av, err := api.svc.ActiveVersion(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		switch errors.Cause(err) {
		case program.ErrNotFound, program.ErrNoActiveVersion:
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding active version")
	}
	return ctx.JSON(http.StatusOK, av)
}

func (api *programApi) structure(ctx echo.Context) error {
	versionID, err := strconv.Atoi(ctx.Param("versionID"))
	if err != nil {
		return errHttpNotFound
	}

	structure, err := api.svc.Structure(ctx.Request().Context(), versionID)
	if err != nil {
		if errors.Cause(err) == program.ErrVersionNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding curriculum structure")
	}
	return ctx.JSON(http.StatusOK, structure)
}

func (api *programApi) queryCourses(ctx echo.Context) error {
	filter := new(program.CourseFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, program.CoursePage{Items: []program.Course{}})
	}

	page, err := api.svc.QueryCourses(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, page)
}
