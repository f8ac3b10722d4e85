package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trezcool/educonnect/core"
	"github.com/trezcool/educonnect/core/access"
	"github.com/trezcool/educonnect/core/permission"
	"github.com/trezcool/educonnect/core/user"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "educonnect_http_requests_total",
		Help: "Number of HTTP requests, by method, route and status.",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "educonnect_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds, by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// metricsMiddleware records the requests count and duration per route.
// Routes are labelled by their pattern (/v1/users/:id) to keep cardinality low.
func metricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			if err := next(ctx); err != nil {
				ctx.Error(err)
			}

			path := ctx.Path()
			if path == "" {
				path = "unmatched"
			}
			method := ctx.Request().Method
			httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(ctx.Response().Status)).Inc()
			httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// userMiddleware loads the active user the JWT was issued to.
func userMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
			if err != nil {
				if core.IsNotFound(err) {
					return errUnauthorized
				}
				return errors.Wrap(err, "finding user by ID")
			}
			if !usr.IsActive {
				return errAccountDeactivated
			}
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

// areaMiddleware only lets in users whose role may enter one of areas.
func areaMiddleware(areas ...access.Area) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			for _, area := range areas {
				if access.CanEnter(usr.Role, area) {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

// permissionMiddleware only lets in users granted perm by their access profile.
func permissionMiddleware(authz *access.Authorizer, perm permission.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			allowed, err := authz.Authorize(ctx.Request().Context(), usr, perm)
			if err != nil {
				return errors.Wrap(err, "authorizing")
			}
			if !allowed {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// adminMiddleware gates the administration endpoints: admin area, then perm.
func adminMiddleware(authz *access.Authorizer, perm permission.Permission) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		areaMiddleware(access.AreaAdminDashboard),
		permissionMiddleware(authz, perm),
	}
}

// areaOrPermissionMiddleware lets in users whose role may enter area, and admins granted perm.
func areaOrPermissionMiddleware(authz *access.Authorizer, area access.Area, perm permission.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			if access.CanEnter(usr.Role, area) {
				return next(ctx)
			}
			if !access.CanEnter(usr.Role, access.AreaAdminDashboard) {
				return errHttpForbidden
			}
			allowed, err := authz.Authorize(ctx.Request().Context(), usr, perm)
			if err != nil {
				return errors.Wrap(err, "authorizing")
			}
			if !allowed {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}
