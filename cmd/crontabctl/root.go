package main

import (
	"context"
	"strings"

	"crontabmgr/internal/app"
	"crontabmgr/internal/config"
	logx "crontabmgr/pkg/logx"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	user       string
	sudo       bool
	file       string
	logLevel   string
	strayLines string
	noColor    bool
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	root := &cobra.Command{
		Use:   "crontabctl",
		Short: "Inspect and edit crontabs entry by entry",
		Long: `crontabctl loads a crontab (yours, another user's through sudo, or a
plain file), lets you add, change, enable, disable and remove entries, and
writes the whole crontab back in one step. The leading comment block is kept
as is.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if o.noColor {
				color.NoColor = true
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "", "config file (.yaml, .yml or .json); defaults apply when empty")
	pf.StringVarP(&o.user, "user", "u", "", "manage this user's crontab")
	pf.BoolVar(&o.sudo, "sudo", false, "run crontab through sudo -n -u USER")
	pf.StringVarP(&o.file, "file", "f", "", "read and write this crontab file instead of running crontab")
	pf.StringVar(&o.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	pf.StringVar(&o.strayLines, "stray-lines", "", "non-entry lines after the first entry: fail, preserve or drop")
	pf.BoolVar(&o.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newListCmd(o),
		newFindCmd(o),
		newAddCmd(o),
		newSetCmd(o),
		newToggleCmd(o, true),
		newToggleCmd(o, false),
		newRemoveCmd(o),
		newRenderCmd(o),
		newHistoryCmd(o),
		newRestoreCmd(o),
		newDoctorCmd(o),
		newWatchCmd(o),
	)
	return root
}

// loadConfig reads the config file and applies flag overrides.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.NewConfigManager(o.configPath).Load()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("user") {
		cfg.Crontab.User = strings.TrimSpace(o.user)
	}
	if flags.Changed("sudo") {
		cfg.Crontab.Sudo = o.sudo
	}
	if flags.Changed("file") {
		cfg.Crontab.File = strings.TrimSpace(o.file)
	}
	if flags.Changed("stray-lines") {
		cfg.Crontab.StrayLines = o.strayLines
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withApp builds the app for one command run and tears it down afterwards.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return err
	}
	logs, log := logx.New(app.LogConfig(cfg))
	defer logs.Close()

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, a)
}
