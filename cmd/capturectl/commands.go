package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vignesh-goutham/artemis-capture/pkg/capture"
	"github.com/vignesh-goutham/artemis-capture/pkg/schedule"
	"github.com/vignesh-goutham/artemis-capture/pkg/types"
)

func newAutoQueueCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "autoqueue",
		Short: "Queue upcoming events inside the discovery window",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd)
			if err != nil {
				return err
			}
			result, err := rt.AutoQueuer().Run(cmd.Context(), capture.NewRunID())
			if err != nil {
				return err
			}
			return ctx.emit(cmd, result, []string{"Field", "Value"}, autoQueueRows(result), nil)
		},
	}
}

func autoQueueRows(r *capture.AutoQueueResult) [][]string {
	rows := [][]string{
		{"Run", r.RunID},
		{"Window", r.WindowStart + " .. " + r.WindowEnd},
		{"Discovered", strconv.Itoa(r.Discovered)},
		{"Queued", strconv.Itoa(r.Queued)},
		{"Already queued", strconv.Itoa(r.AlreadyQueued)},
	}
	if len(r.QueuedIDs) > 0 {
		rows = append(rows, []string{"Queued ids", strings.Join(r.QueuedIDs, ", ")})
	}
	for _, e := range r.Errors {
		rows = append(rows, []string{"Error", strings.TrimSpace(e.EventID + " " + e.Error)})
	}
	return rows
}

func newQueueCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "queuecheck",
		Short: "Launch the capture worker if queued work is due and no worker is live",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd)
			if err != nil {
				return err
			}
			result := rt.QueueChecker().Run(cmd.Context(), capture.NewRunID())
			if err := ctx.emit(cmd, result, []string{"Field", "Value"}, queueCheckRows(result), nil); err != nil {
				return err
			}
			if result.Failed() {
				return fmt.Errorf("queue check %s: %s", result.Action, result.Reason)
			}
			return nil
		},
	}
}

func queueCheckRows(r *capture.QueueCheckResult) [][]string {
	rows := [][]string{
		{"Run", r.RunID},
		{"Action", r.Action},
		{"Reason", r.Reason},
		{"Pending", strconv.Itoa(r.Pending)},
		{"Due soon", strings.Join(r.DueSoon, ", ")},
	}
	if len(r.Stale) > 0 {
		rows = append(rows, []string{"Stale", strings.Join(r.Stale, ", ")})
	}
	if r.NextStart != "" {
		rows = append(rows, []string{"Next start", r.NextStart})
	}
	if r.Worker != nil {
		rows = append(rows, []string{"Worker live", strconv.FormatBool(r.Worker.Live)})
	}
	if r.Launch != nil {
		rows = append(rows, []string{"Launch", fmt.Sprintf("status=%d request=%s", r.Launch.StatusCode, r.Launch.RequestID)})
	}
	return rows
}

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the capture queue",
	}
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	return queueCmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <event-id>",
		Short: "Show one queue entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd)
			if err != nil {
				return err
			}
			entry, err := rt.Store().GetQueueEntry(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return ctx.emit(cmd, entry, []string{"Field", "Value"}, entryRows(entry), nil)
		},
	}
}

func entryRows(e *types.QueueEntry) [][]string {
	rows := [][]string{
		{"Event", e.EventID},
		{"Category", e.Category},
		{"Title", e.Title},
		{"Status", e.Status},
		{"Scheduled", time.Unix(e.ScheduledStart, 0).UTC().Format(time.RFC3339)},
		{"Queued by", e.QueuedBy},
		{"Queued at", e.QueuedAt},
	}
	if e.RunID != "" {
		rows = append(rows, []string{"Run", e.RunID})
	}
	if e.StartedAt != "" {
		rows = append(rows, []string{"Started at", e.StartedAt})
	}
	return rows
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue entries ordered by scheduled start",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd)
			if err != nil {
				return err
			}
			store := rt.Store()

			var entries []types.QueueEntry
			if all {
				entries, err = store.ListQueueEntries(cmd.Context())
			} else {
				entries, err = store.ListQueued(cmd.Context())
			}
			if err != nil {
				return err
			}
			sort.Slice(entries, func(i, j int) bool {
				return entries[i].ScheduledStart < entries[j].ScheduledStart
			})

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.EventID,
					e.Category,
					e.Status,
					time.Unix(e.ScheduledStart, 0).UTC().Format(time.RFC3339),
					e.QueuedBy,
					e.Title,
				})
			}
			return ctx.emit(cmd, entries,
				[]string{"Event", "Category", "Status", "Scheduled", "Queued by", "Title"},
				rows, nil)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include started entries")
	return cmd
}

func newInstanceCommand(ctx *commandContext) *cobra.Command {
	instanceCmd := &cobra.Command{
		Use:   "instance",
		Short: "Manage the capture host",
	}
	instanceCmd.AddCommand(newInstanceStartCommand(ctx))
	return instanceCmd
}

func newInstanceStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the capture host if its schedule is due",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.ensureRuntime(cmd)
			if err != nil {
				return err
			}
			starter, err := rt.InstanceStarter(cmd.Context())
			if err != nil {
				return err
			}
			result := starter.Run(cmd.Context())
			if err := ctx.emit(cmd, result, []string{"Field", "Value"}, instanceRows(result), nil); err != nil {
				return err
			}
			if result.Failed() {
				return fmt.Errorf("instance start failed: %s", result.Error)
			}
			return nil
		},
	}
}

func instanceRows(r *schedule.Result) [][]string {
	rows := [][]string{
		{"Instance", r.InstanceID},
		{"Action", r.Action},
	}
	for _, kv := range [][2]string{{"Reason", r.Reason}, {"Scheduled for", r.ScheduleAt}, {"State", r.State}, {"Error", r.Error}} {
		if kv[1] != "" {
			rows = append(rows, []string{kv[0], kv[1]})
		}
	}
	return rows
}
