package main

import (
	"context"
	"fmt"
	"time"

	"crontabmgr/internal/app"
	"crontabmgr/internal/diff"
	"crontabmgr/pkg/crontab"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newListCmd(o *rootOptions) *cobra.Command {
	var next bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List crontab entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				s, err := a.Open(ctx)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				now := time.Now()
				for i, e := range s.Repository().Entries() {
					printEntry(w, i, e)
					if next {
						faint.Fprintf(w, "     next: %s\n", nextRun(e, now))
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&next, "next", false, "show the next run time of each entry")
	return cmd
}

func newFindCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "find PATTERN",
		Short: "List entries whose line matches a regular expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				s, err := a.Open(ctx)
				if err != nil {
					return err
				}
				found, err := s.Repository().FindByPattern(args[0])
				if err != nil {
					return err
				}
				for i, e := range found {
					printEntry(cmd.OutOrStdout(), i, e)
				}
				return nil
			})
		},
	}
}

func newRenderCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "render",
		Short: "Print the crontab exactly as it would be written",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				s, err := a.Open(ctx)
				if err != nil {
					return err
				}
				out, err := s.Repository().Render()
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
}

// editFlags are shared by add and set.
type editFlags struct {
	schedule     string
	shortcut     string
	command      string
	comment      string
	clearComment bool
	minutes      string
	hours        string
	dayOfMonth   string
	month        string
	dayOfWeek    string
	dryRun       bool
}

func (f *editFlags) register(cmd *cobra.Command, fields bool) {
	fl := cmd.Flags()
	fl.StringVarP(&f.schedule, "schedule", "s", "", `schedule: "m h dom mon dow" or "@name"`)
	fl.StringVar(&f.shortcut, "shortcut", "", "shortcut name (hourly, daily, weekly, monthly, yearly, annually, midnight, reboot)")
	fl.StringVarP(&f.command, "command", "c", "", "task command line")
	fl.StringVar(&f.comment, "comment", "", "trailing comment")
	fl.BoolVar(&f.dryRun, "dry-run", false, "show the diff without writing")
	if fields {
		fl.BoolVar(&f.clearComment, "clear-comment", false, "remove the trailing comment")
		fl.StringVar(&f.minutes, "minutes", "", "minutes field")
		fl.StringVar(&f.hours, "hours", "", "hours field")
		fl.StringVar(&f.dayOfMonth, "dom", "", "day-of-month field")
		fl.StringVar(&f.month, "month", "", "month field")
		fl.StringVar(&f.dayOfWeek, "dow", "", "day-of-week field")
	}
}

// apply writes the changed flags onto e. It stops at the first invalid value.
func (f *editFlags) apply(cmd *cobra.Command, e *crontab.Entry) error {
	fl := cmd.Flags()
	if fl.Changed("schedule") {
		if err := e.SetSchedule(f.schedule); err != nil {
			return err
		}
	}
	if fl.Changed("shortcut") {
		s, err := crontab.ParseShortcut(f.shortcut)
		if err != nil {
			return err
		}
		if err := e.SetShortcut(s); err != nil {
			return err
		}
	}
	fields := []struct {
		flag string
		val  *string
		set  func(string) error
	}{
		{"minutes", &f.minutes, e.SetMinutes},
		{"hours", &f.hours, e.SetHours},
		{"dom", &f.dayOfMonth, e.SetDayOfMonth},
		{"month", &f.month, e.SetMonths},
		{"dow", &f.dayOfWeek, e.SetDayOfWeek},
	}
	for _, fd := range fields {
		if fl.Lookup(fd.flag) != nil && fl.Changed(fd.flag) {
			if err := fd.set(*fd.val); err != nil {
				return err
			}
			// Explicit fields replace a shortcut.
			e.ClearShortcut()
		}
	}
	if fl.Changed("command") {
		if err := e.SetCommand(f.command); err != nil {
			return err
		}
	}
	if fl.Lookup("clear-comment") != nil && f.clearComment {
		e.ClearComments()
	}
	if fl.Changed("comment") {
		if err := e.SetComments(f.comment); err != nil {
			return err
		}
	}
	return nil
}

// finish previews or commits the session and prints the outcome.
func finish(ctx context.Context, cmd *cobra.Command, s *app.Session, action string, dryRun bool) error {
	w := cmd.OutOrStdout()
	if dryRun {
		d, err := s.PreviewWith(diff.Options{Color: !color.NoColor, Context: 2})
		if err != nil {
			return err
		}
		printDiff(w, d)
		return nil
	}
	res, err := s.Commit(ctx, action)
	if err != nil {
		return err
	}
	green.Fprintf(w, "%s: crontab written (%d entries, %s)\n", action, res.Entries, res.Diff.Summary())
	if res.SnapshotID != "" {
		faint.Fprintf(w, "snapshot %s\n", res.SnapshotID)
	}
	return nil
}

func newAddCmd(o *rootOptions) *cobra.Command {
	f := &editFlags{}
	var disabled bool
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a new entry",
		Example: `  crontabctl add -s "30 23 * * *" -c "df >> /tmp/df.log" --comment "disk usage"
  crontabctl add --shortcut daily -c backup.sh`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.command == "" {
				return fmt.Errorf("--command is required")
			}
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				s, err := a.Open(ctx)
				if err != nil {
					return err
				}
				e := crontab.NewEntry("")
				if err := f.apply(cmd, e); err != nil {
					return err
				}
				e.SetEnabled(!disabled)
				s.Repository().AddEntry(e)
				return finish(ctx, cmd, s, "add", f.dryRun)
			})
		},
	}
	f.register(cmd, false)
	cmd.Flags().BoolVar(&disabled, "disabled", false, "add the entry commented out")
	return cmd
}

// matching loads the crontab and returns the entries matching pattern.
// No match is an error.
func matching(ctx context.Context, a *app.App, pattern string) (*app.Session, []*crontab.Entry, error) {
	s, err := a.Open(ctx)
	if err != nil {
		return nil, nil, err
	}
	found, err := s.Repository().FindByPattern(pattern)
	if err != nil {
		return nil, nil, err
	}
	if len(found) == 0 {
		return nil, nil, fmt.Errorf("%w: no entry matches %q", crontab.ErrNotFound, pattern)
	}
	return s, found, nil
}

func newSetCmd(o *rootOptions) *cobra.Command {
	f := &editFlags{}
	cmd := &cobra.Command{
		Use:   "set PATTERN",
		Short: "Change every entry matching PATTERN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				s, found, err := matching(ctx, a, args[0])
				if err != nil {
					return err
				}
				for _, e := range found {
					// Validate on a copy so a bad flag leaves nothing half-applied.
					c := e.Clone()
					if err := f.apply(cmd, c); err != nil {
						return err
					}
					*e = *c
				}
				return finish(ctx, cmd, s, "set", f.dryRun)
			})
		},
	}
	f.register(cmd, true)
	return cmd
}

func newToggleCmd(o *rootOptions, enable bool) *cobra.Command {
	use, action := "disable", "disable"
	short := "Comment out every entry matching PATTERN"
	if enable {
		use, action = "enable", "enable"
		short = "Uncomment every entry matching PATTERN"
	}
	var dryRun bool
	cmd := &cobra.Command{
		Use:   use + " PATTERN",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				s, found, err := matching(ctx, a, args[0])
				if err != nil {
					return err
				}
				for _, e := range found {
					e.SetEnabled(enable)
				}
				return finish(ctx, cmd, s, action, dryRun)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the diff without writing")
	return cmd
}

func newRemoveCmd(o *rootOptions) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "remove PATTERN",
		Short: "Remove every entry matching PATTERN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				s, found, err := matching(ctx, a, args[0])
				if err != nil {
					return err
				}
				for _, e := range found {
					if err := s.Repository().RemoveEntry(e); err != nil {
						return err
					}
				}
				return finish(ctx, cmd, s, "remove", dryRun)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the diff without writing")
	return cmd
}
