package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"engagement-tracker/internal/engagement"
	"engagement-tracker/internal/models"
)

// withController открывает проект args[0], выполняет fn и печатает
// итоговую сводку.
func withController(cmd *cobra.Command, a *app, idArg string, fn func(ctx context.Context, ctl *engagement.Controller) error) error {
	id, err := parseID(idArg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	remote, err := a.connect(ctx, a)
	if err != nil {
		return err
	}
	ctl, err := engagement.Open(ctx, remote, nil, id)
	if err != nil {
		return err
	}
	if err := fn(ctx, ctl); err != nil {
		return err
	}

	e := ctl.Engagement()
	sum := ctl.Summary()
	fmt.Fprintf(cmd.OutOrStdout(), "#%d %s: %s, %d/%d stages, %d%%\n",
		e.ID, e.Name, e.Status, sum.Completed, sum.Total, sum.Percent)
	return nil
}

//
// ЭТАПЫ
//

func newStageCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stage",
		Short: "Toggle, add or delete engagement stages",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "toggle <id> <n>",
			Short: "Mark stage n done or not done",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withController(cmd, a, args[0], func(ctx context.Context, ctl *engagement.Controller) error {
					i, err := parseIndex(args[1], len(ctl.Engagement().Stages), "stage")
					if err != nil {
						return err
					}
					return ctl.ToggleStage(ctx, i)
				})
			},
		},
		&cobra.Command{
			Use:   "add <id> <name...>",
			Short: "Append a custom stage",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withController(cmd, a, args[0], func(ctx context.Context, ctl *engagement.Controller) error {
					return ctl.AddCustomStage(ctx, strings.Join(args[1:], " "))
				})
			},
		},
		&cobra.Command{
			Use:   "delete <id> <n>",
			Short: "Delete custom stage n (template stages are kept)",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withController(cmd, a, args[0], func(ctx context.Context, ctl *engagement.Controller) error {
					i, err := parseIndex(args[1], len(ctl.Engagement().Stages), "stage")
					if err != nil {
						return err
					}
					return ctl.DeleteStage(ctx, i)
				})
			},
		},
	)
	return cmd
}

//
// ТЕСТЫ
//

func newTestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Toggle, add or delete test checklist items",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "toggle <id> <n>",
			Short: "Mark test n done or not done",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withController(cmd, a, args[0], func(ctx context.Context, ctl *engagement.Controller) error {
					i, err := parseIndex(args[1], len(ctl.Engagement().Tests), "test")
					if err != nil {
						return err
					}
					return ctl.ToggleTest(ctx, i)
				})
			},
		},
		&cobra.Command{
			Use:   "add <id> <text...>",
			Short: "Append a test item",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withController(cmd, a, args[0], func(ctx context.Context, ctl *engagement.Controller) error {
					return ctl.AddTest(ctx, strings.Join(args[1:], " "))
				})
			},
		},
		&cobra.Command{
			Use:   "delete <id> <n>",
			Short: "Delete test item n",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withController(cmd, a, args[0], func(ctx context.Context, ctl *engagement.Controller) error {
					i, err := parseIndex(args[1], len(ctl.Engagement().Tests), "test")
					if err != nil {
						return err
					}
					return ctl.DeleteTest(ctx, i)
				})
			},
		},
	)
	return cmd
}

//
// ЗАМЕТКИ, KICKOFF, ЗАВЕРШЕНИЕ
//

func newNotesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "notes <id> <text|->",
		Short: "Replace engagement notes (\"-\" reads them from stdin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := args[1]
			if text == "-" {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading notes: %w", err)
				}
				text = string(raw)
			}
			return withController(cmd, a, args[0], func(ctx context.Context, ctl *engagement.Controller) error {
				return ctl.SaveNotes(ctx, text)
			})
		},
	}
}

func newKickoffCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "kickoff <id> <status>",
		Short:     "Set kickoff status: ticket_assigned, queued, in_talks or done",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(models.KickoffTicketAssigned), string(models.KickoffQueued), string(models.KickoffInTalks), string(models.KickoffDone)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, a, args[0], func(ctx context.Context, ctl *engagement.Controller) error {
				return ctl.SetKickoffStatus(ctx, models.KickoffStatus(args[1]))
			})
		},
	}
}

func newCompleteCmd(a *app) *cobra.Command {
	var leaveDays int

	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark an engagement past and record business days worked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, a, args[0], func(ctx context.Context, ctl *engagement.Controller) error {
				return ctl.CompleteEngagement(ctx, leaveDays)
			})
		},
	}
	cmd.Flags().IntVar(&leaveDays, "leave-days", 0, "Business days of leave taken during the engagement")
	return cmd
}

func newUncompleteCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "uncomplete <id>",
		Short: "Move a past engagement back to ongoing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, a, args[0], func(ctx context.Context, ctl *engagement.Controller) error {
				if !yes {
					e := ctl.Engagement()
					err := confirm(
						fmt.Sprintf("Move #%d %s back to ongoing?", e.ID, e.Name),
						"Completion date, leave days and business days worked will be cleared.",
					)
					if err != nil {
						return err
					}
				}
				return ctl.UncompleteEngagement(ctx, true)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
