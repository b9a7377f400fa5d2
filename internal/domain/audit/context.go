package audit

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/maternity/maternity/internal/platform/auth"
)

// Context identifies who is performing a domain mutation and from where.
// It is passed explicitly into every service write method: handlers build it
// from the request at the HTTP edge, and nothing below that layer reads
// ambient request state.
type Context struct {
	ActorID   *uuid.UUID
	ActorName string
	IP        string
}

// FromEcho builds an audit context from the authenticated request. The IP is
// best effort: echo's RealIP resolves X-Forwarded-For chains and falls back
// to the peer address, and an empty result stays empty.
func FromEcho(c echo.Context) Context {
	ctx := c.Request().Context()
	actx := Context{
		ActorName: auth.UserNameFromContext(ctx),
		IP:        c.RealIP(),
	}
	if id, err := uuid.Parse(auth.UserIDFromContext(ctx)); err == nil {
		actx.ActorID = &id
	}
	return actx
}
