package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/educonnect/core"
	"github.com/trezcool/educonnect/core/user"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindUserFilter reads a user.QueryFilter from the query string.
// An unparsable is_active is ignored.
func bindUserFilter(ctx echo.Context) *user.QueryFilter {
	params := ctx.QueryParams()
	filter := &user.QueryFilter{
		Search:    params.Get("search"),
		Roles:     params["role"],
		ProfileID: params.Get("profile_id"),
	}
	if val := params.Get("is_active"); val != "" {
		if active, err := strconv.ParseBool(val); err == nil {
			filter.IsActive = &active
		}
	}
	return filter
}

// bindIDs reads the repeated id query param, also accepting comma-separated values.
func bindIDs(ctx echo.Context) []string {
	var ids []string
	for _, val := range ctx.QueryParams()["id"] {
		for _, id := range strings.Split(val, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
