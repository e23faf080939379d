package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-table-allocation/internal/model"
)

// Context keys set by JWTAuth.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// Actor returns the authenticated identity.  ok is false when JWTAuth did
// not run for this request.
func Actor(c echo.Context) (model.Actor, bool) {
	uid, ok := c.Get(ctxUserID).(uint64)
	if !ok {
		return model.Actor{}, false
	}
	role, _ := c.Get(ctxRole).(string)
	return model.Actor{UserID: uid, Role: role}, true
}

// subject converts the "sub" claim into a user id.  JSON numbers decode as
// float64; string subjects are accepted too.
func subject(v interface{}) (uint64, bool) {
	switch t := v.(type) {
	case float64:
		if t <= 0 || t != float64(uint64(t)) {
			return 0, false
		}
		return uint64(t), true
	case string:
		n, err := strconv.ParseUint(t, 10, 64)
		return n, err == nil && n > 0
	}
	return 0, false
}

// rateIdentity names the caller for rate limit keys.
func rateIdentity(c echo.Context) string {
	if uid, ok := c.Get(ctxUserID).(uint64); ok {
		return strconv.FormatUint(uid, 10)
	}
	return "anon"
}
