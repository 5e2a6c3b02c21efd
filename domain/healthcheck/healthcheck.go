package healthcheck

import (
	"github.com/atelierhq/marketapi/base/ctx"
)

// Usecase reports whether the service can reach its backends.
type Usecase interface {
	Check(context ctx.Ctx) error
}

// Repo pings the wired backends.
type Repo interface {
	PingDB(context ctx.Ctx) error
}
