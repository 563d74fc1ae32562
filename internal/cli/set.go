package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"engagement-tracker/internal/models"
)

// cardFlags: поля карточки проекта, задаваемые флагами set.
type cardFlags struct {
	description string
	technology  string
	reporting   string
	psm         string
	owner       string
	jira        string
	sharepoint  string
	summary     string
	links       []string
	clearLinks  bool
}

// patch собирает EngagementPatch только из явно заданных флагов.
func (f *cardFlags) patch(cmd *cobra.Command) (models.EngagementPatch, error) {
	var p models.EngagementPatch
	changed := cmd.Flags().Changed

	if changed("description") {
		p.Description = &f.description
	}
	if changed("technology") {
		t := models.TechnologyType(strings.ToUpper(strings.TrimSpace(f.technology)))
		p.TechnologyType = &t
	}
	if changed("reporting") {
		r := models.ReportingStatus(f.reporting)
		p.ReportingStatus = &r
	}
	if changed("psm") {
		p.PSMName = &f.psm
	}
	if changed("owner") {
		p.FunctionalOwner = &f.owner
	}
	if changed("jira") {
		p.JiraTicketLink = &f.jira
	}
	if changed("sharepoint") {
		p.SharepointLink = &f.sharepoint
	}
	if changed("summary") {
		p.Summary = &f.summary
	}

	switch {
	case f.clearLinks && len(f.links) > 0:
		return p, fmt.Errorf("%w: --link and --clear-links are mutually exclusive", models.ErrValidation)
	case f.clearLinks:
		p.PinnedLinks = &[]models.PinnedLink{}
	case len(f.links) > 0:
		links := make([]models.PinnedLink, 0, len(f.links))
		for _, raw := range f.links {
			label, url, ok := strings.Cut(raw, "=")
			if !ok {
				return p, fmt.Errorf("%w: pinned link %q must be label=url", models.ErrValidation, raw)
			}
			links = append(links, models.PinnedLink{Label: label, URL: url})
		}
		p.PinnedLinks = &links
	}

	if p.IsEmpty() {
		return p, fmt.Errorf("%w: nothing to set", models.ErrValidation)
	}
	return p, p.Validate()
}

func newSetCmd(a *app) *cobra.Command {
	var f cardFlags

	cmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Update project card fields: technology, reporting, owners and links",
		Example: `  engagectl set 12 --technology api --reporting in_progress
  engagectl set 12 --jira https://jira.local/browse/PENT-7 --psm "Dana K."
  engagectl set 12 --link Scope=https://wiki.local/scope --link Creds=https://vault.local/acme
  engagectl set 12 --jira ""   # clears the field`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			patch, err := f.patch(cmd)
			if err != nil {
				return err
			}

			remote, err := a.connect(cmd.Context(), a)
			if err != nil {
				return err
			}
			e, err := remote.UpdateProject(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "#%d %s: updated %s\n", e.ID, e.Name, strings.Join(patch.Fields(), ", "))
			return nil
		},
	}

	techs := make([]string, len(models.TechnologyTypes))
	for i, t := range models.TechnologyTypes {
		techs[i] = string(t)
	}

	cmd.Flags().StringVar(&f.description, "description", "", "Short description of the scope")
	cmd.Flags().StringVar(&f.technology, "technology", "", "Technology type: "+strings.Join(techs, ", ")+" (empty clears)")
	cmd.Flags().StringVar(&f.reporting, "reporting", "", "Reporting status: not_started, in_progress or completed")
	cmd.Flags().StringVar(&f.psm, "psm", "", "PSM name")
	cmd.Flags().StringVar(&f.owner, "owner", "", "Functional owner")
	cmd.Flags().StringVar(&f.jira, "jira", "", "Jira ticket URL")
	cmd.Flags().StringVar(&f.sharepoint, "sharepoint", "", "SharePoint folder URL")
	cmd.Flags().StringVar(&f.summary, "summary", "", "Findings summary")
	cmd.Flags().StringArrayVar(&f.links, "link", nil, "Pinned link as label=url, repeatable; replaces the list")
	cmd.Flags().BoolVar(&f.clearLinks, "clear-links", false, "Remove all pinned links")
	return cmd
}
