package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"crontabmgr/internal/app"
	"crontabmgr/internal/watch"
	logx "crontabmgr/pkg/logx"

	"github.com/spf13/cobra"
)

func newHistoryCmd(o *rootOptions) *cobra.Command {
	var (
		limit     int
		snapshots bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent writes, or restorable snapshots with --snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				w := cmd.OutOrStdout()
				if snapshots {
					list, err := a.Snapshots(ctx, limit)
					if err != nil {
						return err
					}
					for _, sn := range list {
						fmt.Fprintf(w, "%s  %s  %-8s %d lines\n",
							sn.ID, sn.At.Local().Format(time.DateTime), sn.Action, strings.Count(sn.Content, "\n"))
					}
					return nil
				}
				list, err := a.History(ctx, limit)
				if err != nil {
					return err
				}
				for _, e := range list {
					status := green.Sprint("ok")
					if !e.OK {
						status = red.Sprint("failed")
					}
					fmt.Fprintf(w, "%s  %-8s %-6s +%d -%d  %s",
						e.At.Local().Format(time.DateTime), e.Action, status, e.Added, e.Removed, e.Actor)
					if e.SnapshotID != "" {
						faint.Fprintf(w, "  snapshot %s", e.SnapshotID)
					}
					if e.Error != "" {
						fmt.Fprintf(w, "  %s", e.Error)
					}
					fmt.Fprintln(w)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of records")
	cmd.Flags().BoolVar(&snapshots, "snapshots", false, "list snapshots of this crontab instead")
	return cmd
}

func newRestoreCmd(o *rootOptions) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "restore SNAPSHOT_ID",
		Short: "Write a snapshot back to the crontab",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				s, err := a.RestoreSession(ctx, args[0])
				if err != nil {
					return err
				}
				return finish(ctx, cmd, s, "restore", dryRun)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the diff without writing")
	return cmd
}

func newDoctorCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check crontab access, content and the cron daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				w := cmd.OutOrStdout()
				r := a.Doctor(ctx)

				who := r.Identity
				if who == "" {
					who = "current user"
				}
				fmt.Fprintf(w, "crontab: %s\n", who)
				switch {
				case r.ReadErr != nil:
					red.Fprintf(w, "  read: %v\n", r.ReadErr)
				case r.ParseErr != nil:
					red.Fprintf(w, "  parse: %v\n", r.ParseErr)
				default:
					green.Fprintf(w, "  %d entries (%d disabled)\n", r.Entries, r.Disabled)
				}
				for _, inv := range r.Invalid {
					yellow.Fprintf(w, "  invalid schedule: %s (%v)\n", inv.Line, inv.Err)
				}

				if r.UnitsErr != nil {
					yellow.Fprintf(w, "daemon: %v\n", r.UnitsErr)
				}
				for _, u := range r.Units {
					switch {
					case u.Missing():
						faint.Fprintf(w, "daemon: %s not installed\n", u.Name)
					case u.Running():
						green.Fprintf(w, "daemon: %s %s\n", u.Name, u.Active)
					default:
						red.Fprintf(w, "daemon: %s %s (%s)\n", u.Name, u.Active, u.SubState)
					}
				}

				if !r.OK() {
					return fmt.Errorf("doctor found problems")
				}
				return nil
			})
		},
	}
}

func newWatchCmd(o *rootOptions) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Report external edits of the crontab until interrupted",
		Long: `watch follows the crontab spool file and reloads the crontab whenever
another program changes it. Changes are reported, never merged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *app.App) error {
				cfg := a.Config()
				target := strings.TrimSpace(path)
				if target == "" {
					target = cfg.WatchPath()
				}
				if target == "" {
					return fmt.Errorf("nothing to watch: set --path, watch.path, crontab.file or crontab.user")
				}
				debounce, err := cfg.Watch.DebounceDuration()
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				var mu sync.Mutex
				last := -1
				report := func(ctx context.Context) {
					mu.Lock()
					defer mu.Unlock()
					s, err := a.Open(ctx)
					if err != nil {
						red.Fprintf(w, "%s  reload failed: %v\n", time.Now().Format(time.TimeOnly), err)
						return
					}
					n := s.Repository().Len()
					if last >= 0 {
						yellow.Fprintf(w, "%s  crontab changed externally: %d -> %d entries\n", time.Now().Format(time.TimeOnly), last, n)
					}
					last = n
				}
				report(ctx)
				fmt.Fprintf(w, "watching %s (%d entries)\n", target, last)

				wt := &watch.Watcher{
					Path:       target,
					Debounce:   debounce,
					RatePerSec: cfg.Watch.RatePerSec,
					OnChange:   report,
					Log:        a.Logger().With(logx.String("comp", "watch")),
				}
				return wt.Run(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "file to watch (default: watch.path, crontab.file or the spool file of --user)")
	return cmd
}
