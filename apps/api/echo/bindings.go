package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/sose/core"
	"github.com/trezcool/sose/core/catalog"
	"github.com/trezcool/sose/core/circulation"
)

const (
	orderingParam  = "ordering"
	isDigitalParam = "is_digital"
	statusParam    = "status"
)

// bindOrdering reads the "ordering" query param, eg: ?ordering=-due_date,status
func bindOrdering(ctx echo.Context, allowed []string) []core.DBOrdering {
	return core.ParseOrdering(ctx.QueryParams()[orderingParam], allowed...)
}

func bindBookFilter(ctx echo.Context) (catalog.QueryFilter, error) {
	var filter catalog.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return filter, errors.Wrap(err, "binding to catalog.QueryFilter")
	}
	if val := ctx.QueryParam(isDigitalParam); val != "" {
		isDigital, err := strconv.ParseBool(val)
		if err != nil {
			return filter, core.NewValidationError(nil, core.FieldError{Field: isDigitalParam, Error: "must be a boolean"})
		}
		filter.IsDigital = &isDigital
	}
	return filter, nil
}

// bindIssueFilter accepts repeated or comma separated statuses, eg: ?status=issued,overdue
func bindIssueFilter(ctx echo.Context) (circulation.QueryFilter, error) {
	var filter circulation.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return filter, errors.Wrap(err, "binding to circulation.QueryFilter")
	}
	for _, raw := range ctx.QueryParams()[statusParam] {
		for _, st := range strings.Split(raw, ",") {
			if st = core.CleanString(st, true /* lower */); st != "" {
				filter.Statuses = append(filter.Statuses, circulation.Status(st))
			}
		}
	}
	return filter, nil
}
