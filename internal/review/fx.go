package review

import (
	"github.com/smallbiznis/studiobook/internal/review/repository"
	"github.com/smallbiznis/studiobook/internal/review/service"
	"go.uber.org/fx"
)

var Module = fx.Module("review.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
