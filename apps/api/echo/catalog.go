package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/sose/core/catalog"
)

type catalogApi struct {
	svc *catalog.Service
}

func registerCatalogAPI(g *echo.Group, svc *catalog.Service) {
	api := catalogApi{svc: svc}

	bg := g.Group("/books")
	bg.GET("", api.query)
	bg.POST("", api.create, staffMiddleware())
	bg.GET("/subjects", api.subjects)
	bg.GET("/stats", api.stats, staffMiddleware())

	// detail endpoints
	bg.GET("/:id", api.retrieve)
	bg.PUT("/:id", api.update, staffMiddleware())
	bg.DELETE("/:id", api.destroy, staffMiddleware())
}

// Handlers

func (api *catalogApi) query(ctx echo.Context) error {
	filter, err := bindBookFilter(ctx)
	if err != nil {
		return err
	}
	books, err := api.svc.Query(ctx.Request().Context(), filter, bindOrdering(ctx, catalog.OrderingFields)...)
	if err != nil {
		return errors.Wrap(err, "querying books")
	}
	return ctx.JSON(http.StatusOK, books)
}

func (api *catalogApi) subjects(ctx echo.Context) error {
	subjects, err := api.svc.Subjects(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *catalogApi) stats(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	stats, err := api.svc.Stats(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "computing stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *catalogApi) create(ctx echo.Context) error {
	var data catalog.NewBook
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBook")
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	book, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating book")
	}
	return ctx.JSON(http.StatusCreated, book)
}

func (api *catalogApi) retrieve(ctx echo.Context) error {
	book, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting book")
	}
	return ctx.JSON(http.StatusOK, book)
}

func (api *catalogApi) update(ctx echo.Context) error {
	var data catalog.UpdateBook
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateBook")
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	book, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating book")
	}
	return ctx.JSON(http.StatusOK, book)
}

func (api *catalogApi) destroy(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting book")
	}
	return ctx.NoContent(http.StatusNoContent)
}
