package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"engagement-tracker/internal/models"
)

func newVulnsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vulns",
		Aliases: []string{"vuln"},
		Short:   "List, add, update or delete engagement vulnerabilities",
	}
	cmd.AddCommand(
		newVulnsListCmd(a),
		newVulnsAddCmd(a),
		newVulnsStatusCmd(a),
		newVulnsDeleteCmd(a),
	)
	return cmd
}

func newVulnsListCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list <id>",
		Short: "List vulnerabilities, most severe first",
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
			vulns, err := remote.Vulnerabilities(cmd.Context(), id)
			if err != nil {
				return err
			}

			if output != outputText {
				if vulns == nil {
					vulns = []models.Vulnerability{}
				}
				return writeStructured(cmd.OutOrStdout(), output, vulns)
			}
			if len(vulns) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No vulnerabilities recorded.")
				return nil
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%4s  %-9s %-12s %s", "ID", "SEVERITY", "STATUS", "TYPE")))
			for _, v := range vulns {
				fmt.Fprintln(out, renderVulnerability(v))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json or yaml")
	return cmd
}

func newVulnsAddCmd(a *app) *cobra.Command {
	var (
		severity    string
		description string
	)

	cmd := &cobra.Command{
		Use:   "add <id> <type...>",
		Short: "Record a vulnerability",
		Example: `  engagectl vulns add 12 "IDOR on /orders" --severity high
  engagectl vulns add 12 Verbose errors --severity low -d "stack traces on 500"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			v := &models.Vulnerability{
				ProjectID:   id,
				Type:        strings.Join(args[1:], " "),
				Severity:    models.Severity(severity),
				Description: description,
			}
			if err := v.Validate(); err != nil {
				return err
			}

			remote, err := a.connect(cmd.Context(), a)
			if err != nil {
				return err
			}
			if err := remote.CreateVulnerability(cmd.Context(), v); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderVulnerability(*v))
			return nil
		},
	}
	cmd.Flags().StringVarP(&severity, "severity", "s", "", "critical, high, medium, low or info")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Details and reproduction notes")
	_ = cmd.MarkFlagRequired("severity")
	return cmd
}

func newVulnsStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "status <id> <vuln-id> <status>",
		Short:     "Set vulnerability status: open, in_progress, resolved or accepted",
		Args:      cobra.ExactArgs(3),
		ValidArgs: []string{string(models.VulnOpen), string(models.VulnInProgress), string(models.VulnResolved), string(models.VulnAccepted)},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, vid, err := parseVulnRef(args[0], args[1])
			if err != nil {
				return err
			}
			status := models.VulnerabilityStatus(args[2])
			patch := models.VulnerabilityPatch{Status: &status}
			if err := patch.Validate(); err != nil {
				return err
			}

			remote, err := a.connect(cmd.Context(), a)
			if err != nil {
				return err
			}
			v, err := remote.UpdateVulnerability(cmd.Context(), id, vid, patch)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderVulnerability(*v))
			return nil
		},
	}
}

func newVulnsDeleteCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id> <vuln-id>",
		Short: "Delete a vulnerability record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, vid, err := parseVulnRef(args[0], args[1])
			if err != nil {
				return err
			}
			if !yes {
				if err := confirm(fmt.Sprintf("Delete vulnerability #%d of engagement #%d?", vid, id), "The record cannot be restored."); err != nil {
					return err
				}
			}

			remote, err := a.connect(cmd.Context(), a)
			if err != nil {
				return err
			}
			if err := remote.DeleteVulnerability(cmd.Context(), id, vid); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "vulnerability #%d deleted\n", vid)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func parseVulnRef(idArg, vidArg string) (uint, uint, error) {
	id, err := parseID(idArg)
	if err != nil {
		return 0, 0, err
	}
	vid, err := strconv.ParseUint(vidArg, 10, 64)
	if err != nil || vid == 0 {
		return 0, 0, fmt.Errorf("%w: invalid vulnerability id %q", models.ErrValidation, vidArg)
	}
	return id, uint(vid), nil
}
