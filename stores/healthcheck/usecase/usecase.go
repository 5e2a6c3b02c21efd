package usecase

import (
	"github.com/atelierhq/marketapi/base/ctx"
	hcdomain "github.com/atelierhq/marketapi/domain/healthcheck"
)

type impl struct {
	repo hcdomain.Repo
}

func New(repo hcdomain.Repo) hcdomain.Usecase {
	return &impl{
		repo: repo,
	}
}

func (im *impl) Check(context ctx.Ctx) error {
	return im.repo.PingDB(context)
}
