package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/sose/core/circulation"
	"github.com/trezcool/sose/core/user"
)

type circulationApi struct {
	svc *circulation.Service
}

type myIssuesResponse struct {
	Issues  []circulation.Issue `json:"issues"`
	Summary circulation.Summary `json:"summary"`
}

func registerCirculationAPI(g *echo.Group, svc *circulation.Service) {
	api := circulationApi{svc: svc}

	ig := g.Group("/issues")
	ig.GET("", api.query)
	ig.POST("", api.request)
	ig.GET("/me", api.mine)

	// detail endpoints
	ig.GET("/:id", api.retrieve)
	ig.POST("/:id/approve", api.transition(svc.Approve), staffMiddleware())
	ig.POST("/:id/return", api.transition(svc.Return), staffMiddleware())
	ig.POST("/:id/cancel", api.transition(svc.Cancel))
}

// Handlers

func (api *circulationApi) query(ctx echo.Context) error {
	filter, err := bindIssueFilter(ctx)
	if err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	issues, err := api.svc.Query(ctx.Request().Context(), actor, filter, bindOrdering(ctx, circulation.OrderingFields)...)
	if err != nil {
		return errors.Wrap(err, "querying issues")
	}
	return ctx.JSON(http.StatusOK, issues)
}

func (api *circulationApi) mine(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	issues, summary, err := api.svc.Mine(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "querying own issues")
	}
	return ctx.JSON(http.StatusOK, myIssuesResponse{Issues: issues, Summary: summary})
}

func (api *circulationApi) request(ctx echo.Context) error {
	var data circulation.NewIssue
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewIssue")
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	iss, err := api.svc.Request(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "requesting book")
	}
	return ctx.JSON(http.StatusCreated, iss)
}

func (api *circulationApi) retrieve(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	iss, err := api.svc.Get(ctx.Request().Context(), actor, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting issue")
	}
	return ctx.JSON(http.StatusOK, iss)
}

type transitionFunc func(ctx context.Context, actor user.Actor, id string) (circulation.Issue, error)

func (api *circulationApi) transition(fn transitionFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		actor, err := getContextActor(ctx)
		if err != nil {
			return err
		}
		iss, err := fn(ctx.Request().Context(), actor, ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "updating issue")
		}
		return ctx.JSON(http.StatusOK, iss)
	}
}
