package cli

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"engagement-tracker/internal/models"
	"engagement-tracker/internal/stages"
)

const syncConcurrency = 4

type syncOutcome struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
	stages.Summary
}

func newSyncCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "sync [id...]",
		Short: "Reconcile stored stage order with the template",
		Long: `sync loads each engagement, arranges its stages in template order and,
when the stored list is only a permutation of that order, writes the
corrected list and progress back. Without ids every ongoing engagement
is checked. Deleted template stages are never restored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			ids := make([]uint, 0, len(args))
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			ctx := cmd.Context()
			remote, err := a.connect(ctx, a)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				list, err := remote.List(ctx, models.StatusOngoing)
				if err != nil {
					return err
				}
				for _, e := range list {
					ids = append(ids, e.ID)
				}
			}

			rec := stages.NewReconciler(remote)
			outcomes := make([]syncOutcome, len(ids))

			var mu sync.Mutex
			failed := 0

			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(syncConcurrency)
			for i, id := range ids {
				g.Go(func() error {
					e, err := remote.GetProject(gctx, id)
					if err != nil {
						return err
					}
					res := rec.Reconcile(gctx, id, e.Stages)
					out := syncOutcome{ID: id, Name: e.Name, Result: describe(res), Summary: stages.Summarize(res.Stages)}
					if res.WriteErr != nil {
						out.Error = res.WriteErr.Error()
						mu.Lock()
						failed++
						mu.Unlock()
					}
					outcomes[i] = out
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			if output != outputText {
				if err := writeStructured(cmd.OutOrStdout(), output, outcomes); err != nil {
					return err
				}
			} else {
				for _, o := range outcomes {
					line := fmt.Sprintf("#%d %s: %s (%d%%, %d/%d)", o.ID, o.Name, o.Result, o.Percent, o.Completed, o.Total)
					if o.Error != "" {
						line = warnStyle.Render(line + ": " + o.Error)
					}
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d corrective writes failed", failed, len(ids))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json or yaml")
	return cmd
}

func describe(res stages.Result) string {
	switch {
	case res.Skipped:
		// тот же вход уже сверен в этом запуске, запись не повторялась
		return "already checked"
	case res.Seeded:
		return "no stages stored, template shown"
	case res.Corrected:
		return "order corrected"
	case res.WriteErr != nil:
		return "order correction failed"
	case res.OrderChanged:
		return "out of order"
	default:
		return "in order"
	}
}
