package activity

import (
	"github.com/smallbiznis/studiobook/internal/activity/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("activity.counter",
	fx.Provide(repository.Provide),
)
