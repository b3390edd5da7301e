package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ricardious/semestrix/core"
)

const orderingParam = "ordering"

// Ordering binds the "ordering" query param, a comma separated list of
// field names where a leading "-" means descending.
// e.g. ?ordering=created_at,-username
type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	raw := ctx.QueryParam(orderingParam)
	if raw == "" {
		return
	}
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" || field == "-" {
			continue
		}
		asc := true
		if strings.HasPrefix(field, "-") {
			field = field[1:]
			asc = false
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: asc})
	}
}
