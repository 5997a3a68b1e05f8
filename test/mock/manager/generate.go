package mock_manager

//go:generate -command mockgen go run go.uber.org/mock/mockgen -destination=./mocks.go github.com/zowe/perf-timing/manager
//go:generate mockgen Persister,ExitHook
