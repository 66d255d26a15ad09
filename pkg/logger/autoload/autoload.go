// Package autoload configures the global logger from LOG_* variables when
// imported for side effects. It reads ./.env but not the -env flag, since
// flags are not parsed yet during package init.
package autoload

import (
	configx "github.com/tanpawarit/chative-waiter/pkg/config"
	logx "github.com/tanpawarit/chative-waiter/pkg/logger"
)

func init() {
	conf, err := configx.Load[logx.Config]("LOG", "")
	if err != nil {
		logx.Init()
		return
	}
	logx.Init(*conf)
}
