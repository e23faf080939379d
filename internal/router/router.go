// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-allocation/internal/handler"
	"github.com/iliyamo/restaurant-table-allocation/internal/middleware"
	"github.com/iliyamo/restaurant-table-allocation/internal/model"
)

// Handlers bundles everything the API serves.
type Handlers struct {
	Health       handler.Health
	Reservations *handler.ReservationHandler
	Waiting      *handler.WaitingListHandler
	Tables       *handler.TableHandler
	Admin        *handler.AdminHandler
}

// Options carries route-level middleware.  RateLimit guards writes; Cache
// wraps the availability reads and Invalidate sits on every write so cached
// answers are dropped once something changes.  Nil entries are skipped.
type Options struct {
	JWTSecret  string
	RateLimit  echo.MiddlewareFunc
	Cache      echo.MiddlewareFunc
	Invalidate echo.MiddlewareFunc
}

var (
	staff    = model.StaffRoles
	deciders = []string{model.RoleOwner, model.RoleSupervisor}
	anyone   = append([]string{model.RoleClient}, model.StaffRoles...)
)

// Register mounts /healthz and the authenticated /v1 API.
func Register(e *echo.Echo, h Handlers, o Options) {
	e.GET("/healthz", h.Health.Check)

	v1 := e.Group("/v1", middleware.JWTAuth(o.JWTSecret))
	write := chain(o.RateLimit, o.Invalidate)
	read := chain(o.Cache)

	registerReservations(v1, h.Reservations, read, write)
	registerWaitingList(v1, h.Waiting, write)
	registerTables(v1, h.Tables, write)

	if h.Admin != nil {
		v1.POST("/admin/sweep", h.Admin.Sweep, with(write, middleware.RequireRole(deciders...))...)
	}
}

func registerReservations(g *echo.Group, h *handler.ReservationHandler, read, write []echo.MiddlewareFunc) {
	client := middleware.RequireRole(model.RoleClient)

	g.POST("/reservations", h.Create, with(write, client)...)
	g.GET("/reservations/mine", h.ListMine, client)
	g.GET("/reservations", h.ListByDate, middleware.RequireRole(staff...))
	g.GET("/reservations/:id", h.Get, middleware.RequireRole(anyone...))
	g.PUT("/reservations/:id/status", h.Decide, with(write, middleware.RequireRole(deciders...))...)
	g.PUT("/reservations/:id/cancel", h.Cancel, with(write, client)...)

	// cached reads check the role before the cache can answer
	cached := append([]echo.MiddlewareFunc{middleware.RequireRole(anyone...)}, read...)
	g.GET("/reservations/availability", h.DayAvailability, cached...)
	g.GET("/reservations/table-availability", h.TableAvailability, cached...)
	g.GET("/reservations/tables", h.AvailableTables, cached...)
	g.GET("/reservations/suggestions", h.Suggestions, cached...)
	g.GET("/reservations/check-table-reserved", h.CheckTableReserved,
		middleware.RequireRole(model.RoleHost, model.RoleOwner, model.RoleSupervisor))
}

func registerWaitingList(g *echo.Group, h *handler.WaitingListHandler, write []echo.MiddlewareFunc) {
	staffOnly := middleware.RequireRole(staff...)

	g.POST("/waiting-list", h.Join, with(write, middleware.RequireRole(anyone...))...)
	g.GET("/waiting-list", h.List, staffOnly)
	g.GET("/waiting-list/position", h.Position, middleware.RequireRole(model.RoleClient))
	g.PUT("/waiting-list/:id/cancel", h.Cancel, with(write, middleware.RequireRole(anyone...))...)
	g.PUT("/waiting-list/:id/no-show", h.MarkNoShow, with(write, staffOnly)...)
	g.PUT("/waiting-list/:id/displace", h.Displace, with(write, staffOnly)...)
	g.PUT("/waiting-list/:id/assign", h.AssignTable, with(write, staffOnly)...)
}

func registerTables(g *echo.Group, h *handler.TableHandler, write []echo.MiddlewareFunc) {
	staffOnly := middleware.RequireRole(staff...)
	managers := middleware.RequireRole(deciders...)

	g.GET("/tables", h.List, staffOnly)
	g.PUT("/tables/:id/free", h.Free, with(write, staffOnly)...)
	g.PUT("/tables/:id/staff", h.AssignStaff, with(write, managers)...)
	g.PUT("/tables/:id/checkin-code", h.IssueCheckinCode, with(write, managers)...)
	g.POST("/tables/:id/check-in", h.CheckIn, with(write, middleware.RequireRole(model.RoleClient))...)
}

func chain(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	var out []echo.MiddlewareFunc
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// with appends the role check after the shared middleware.
func with(shared []echo.MiddlewareFunc, role echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(shared)+1)
	out = append(out, shared...)
	return append(out, role)
}
