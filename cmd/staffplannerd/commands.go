package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"staffplan-backend/internal/bus"
	"staffplan-backend/internal/surface"
)

func autoAssignCmd() *cobra.Command {
	var (
		eventID     string
		employeeIDs []string
	)

	cmd := &cobra.Command{
		Use:   "auto-assign",
		Short: "Recompute an event's assignments",
		Long: `Clears the event's assignments and fills its active work areas from the pool.
Without --employee the pool is every employee whose status is available.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.initBus(nil); err != nil {
				return err
			}

			result, err := app.newPlanner().AutoAssign(commandContext(cmd), eventID, employeeIDs)
			if err != nil {
				return err
			}
			if result.Reason == "" {
				app.bus.Publish(bus.TopicAssignmentsChanged, bus.Notification{
					EventID: eventID,
					Kind:    surface.KindAutoAssign,
					Count:   len(result.Assignments),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, result.Message)
			for _, sf := range result.Shortfalls {
				fmt.Fprintf(out, "  %s: %d %s missing\n", sf.WorkAreaID, sf.Missing, sf.Role)
			}
			if len(result.Unassigned) > 0 {
				fmt.Fprintf(out, "  %d employees left unassigned\n", len(result.Unassigned))
			}
			app.logger.Info("auto-assign command finished", zap.String("event_id", eventID), zap.Int("assigned", len(result.Assignments)))
			return nil
		},
	}

	cmd.Flags().StringVar(&eventID, "event", "", "Event id (required)")
	cmd.Flags().StringSliceVar(&employeeIDs, "employee", nil, "Restrict the pool to these employee ids (repeatable)")
	cmd.MarkFlagRequired("event")
	return cmd
}

func resetCmd() *cobra.Command {
	var eventID string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove an event's assignments and reset its statuses",
		Long:  `Deletes every assignment of the event and sets every status except always-needed back to not-selected.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.initBus(nil); err != nil {
				return err
			}

			summary, err := app.newPlanner().ResetEvent(commandContext(cmd), eventID)
			if err != nil {
				return err
			}
			app.bus.Publish(bus.TopicAssignmentsChanged, bus.Notification{
				EventID: eventID,
				Kind:    surface.KindReset,
				Count:   int(summary.AssignmentsRemoved),
			})

			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d assignments, reset %d statuses\n", summary.AssignmentsRemoved, summary.StatusesReset)
			return nil
		},
	}

	cmd.Flags().StringVar(&eventID, "event", "", "Event id (required)")
	cmd.MarkFlagRequired("event")
	return cmd
}
