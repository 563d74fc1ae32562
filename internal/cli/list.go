package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"engagement-tracker/internal/models"
	"engagement-tracker/internal/stages"
)

func newListCmd(a *app) *cobra.Command {
	var (
		status string
		output string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List engagements with their weighted progress",
		Example: `  engagectl list
  engagectl list --status ongoing
  engagectl list --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			st := models.EngagementStatus(status)
			if st != "" && !st.Valid() {
				return fmt.Errorf("%w: unknown status %q (ongoing, past)", models.ErrValidation, status)
			}

			remote, err := a.connect(cmd.Context(), a)
			if err != nil {
				return err
			}
			list, err := remote.List(cmd.Context(), st)
			if err != nil {
				return err
			}

			if output != outputText {
				views := make([]engagementView, 0, len(list))
				for _, e := range list {
					views = append(views, engagementView{Engagement: e, Progress: stages.Summarize(e.Stages)})
				}
				return writeStructured(cmd.OutOrStdout(), output, views)
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No engagements found.")
				return nil
			}
			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%4s  %-32s %-8s %-16s %4s  %s", "ID", "NAME", "STATUS", "KICKOFF", "PROG", "STAGES")))
			for _, e := range list {
				fmt.Fprintln(out, renderRow(e))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status: ongoing or past")
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json or yaml")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one engagement: stages, tests, notes and progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			remote, err := a.connect(cmd.Context(), a)
			if err != nil {
				return err
			}
			e, err := remote.GetProject(cmd.Context(), id)
			if err != nil {
				return err
			}

			// показываем то же, что увидит пользователь после сверки
			view := e.Clone()
			view.Stages, _ = stages.Arrange(e.Stages)

			if output != outputText {
				return writeStructured(cmd.OutOrStdout(), output, engagementView{
					Engagement: view,
					Progress:   stages.Summarize(view.Stages),
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderEngagement(view))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json or yaml")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show the audit trail of an engagement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			remote, err := a.connect(cmd.Context(), a)
			if err != nil {
				return err
			}
			logs, err := remote.History(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, l := range logs {
				who := "-"
				if l.User != nil {
					who = l.User.Username
				}
				fmt.Fprintf(out, "%s  %-7s %-24s %s\n", l.CreatedAt.Format("2006-01-02 15:04"), l.Action, who, l.Details)
			}
			return nil
		},
	}
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid engagement id %q", models.ErrValidation, s)
	}
	return uint(id), nil
}

// parseIndex переводит номер из вывода show (с 1) в индекс списка.
func parseIndex(s string, n int, what string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s number %q", models.ErrValidation, what, s)
	}
	if i < 1 || i > n {
		return 0, fmt.Errorf("%w: %s number %d out of range 1..%d", models.ErrValidation, what, i, n)
	}
	return i - 1, nil
}
