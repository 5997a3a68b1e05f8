package mock_manager

import (
	manager "github.com/zowe/perf-timing/manager"
)

type (
	Persister = manager.Persister
	ExitHook  = manager.ExitHook
)
