package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zowe/perf-timing/environment"
	"github.com/zowe/perf-timing/history"
	// Registers PERF_TIMING_ENABLED for the env command.
	_ "github.com/zowe/perf-timing/manager"
)

const version = "0.1.0"

var logLevel = new(slog.LevelVar)

// NewRootCmd builds the command tree. Each call gets its own viper instance,
// so tests can run commands side by side.
func newRootCmd() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:   "perf-timing",
		Short: "Inspect saved perf-timing documents",
		Long: `perf-timing reads the metrics history written when a program linking
perf-timing exits with PERF_TIMING_ENABLED=true.

The history location and format follow the same PERF_TIMING_IO_* environment
variables the library uses; the flags below override them.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if ok, _ := cmd.Flags().GetBool("verbose"); ok {
				logLevel.Set(slog.LevelDebug)
			}
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetVersionTemplate(fmt.Sprintf("perf-timing version %s\n", version))

	fs := root.PersistentFlags()
	fs.BoolP("verbose", "v", false, "log debug output")
	fs.String("dir", "", "history directory (default $"+history.EnvSaveDir+")")
	fs.Int("history", 0, "number of documents kept (default $"+history.EnvMaxHistory+")")
	fs.String("sink", "", "history format, \"file\" or \"sqlite\" (default $"+history.EnvSink+")")
	for flag, key := range map[string]string{
		"dir":     history.EnvSaveDir,
		"history": history.EnvMaxHistory,
		"sink":    history.EnvSink,
	} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			panic(err)
		}
		if err := v.BindEnv(key); err != nil {
			panic(err)
		}
	}

	cfg := &cliConfig{v: v}
	root.AddCommand(
		listCmd(cfg),
		showCmd(cfg),
		summaryCmd(cfg),
		exportCmd(cfg),
		envCmd(cfg),
	)
	return root
}

// CliConfig resolves the history configuration from flags and the
// environment.
type cliConfig struct {
	v *viper.Viper
}

// Env returns the default environment registry read through viper, so flags
// take precedence over variables.
func (c *cliConfig) Env() *environment.Registry {
	return environment.Default().Overlay(func(key string) (string, bool) {
		if !c.v.IsSet(key) {
			return "", false
		}
		s := c.v.GetString(key)
		return s, s != ""
	})
}

func (c *cliConfig) History() (history.Config, error) {
	return history.ConfigFromEnvironment(c.Env())
}
