// Package cli: команды engagectl: просмотр проектов, сверка этапов и
// изменения через REST API сервера.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"engagement-tracker/internal/client"
	"engagement-tracker/internal/config"
	"engagement-tracker/internal/engagement"
	"engagement-tracker/internal/logging"
	"engagement-tracker/internal/models"
)

// Remote: то, что командам нужно от сервера.
type Remote interface {
	engagement.Store
	List(ctx context.Context, status models.EngagementStatus) ([]models.Engagement, error)
	History(ctx context.Context, id uint) ([]models.AuditLog, error)

	Vulnerabilities(ctx context.Context, projectID uint) ([]models.Vulnerability, error)
	CreateVulnerability(ctx context.Context, v *models.Vulnerability) error
	UpdateVulnerability(ctx context.Context, projectID, id uint, patch models.VulnerabilityPatch) (*models.Vulnerability, error)
	DeleteVulnerability(ctx context.Context, projectID, id uint) error
}

// app: состояние одного запуска: глобальные флаги и подключение.
type app struct {
	verbose    bool
	quiet      bool
	configPath string

	// connect подменяется в тестах
	connect func(ctx context.Context, a *app) (Remote, error)
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engagectl",
		Short: "Track pentest engagement stages and progress",
		Long: `engagectl talks to the engagement tracker API: it lists engagements,
shows weighted stage progress, reconciles stored stage order with the
canonical template and edits stages, tests, notes, completion state,
project card fields and vulnerabilities.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("verbose") && os.Getenv("ENGAGECTL_VERBOSE") != "" {
				a.verbose = true
			}
			if !cmd.Flags().Changed("quiet") && os.Getenv("ENGAGECTL_QUIET") != "" {
				a.quiet = true
			}
			logging.Setup(a.verbose, a.quiet, os.Getenv("ENGAGECTL_LOG_FORMAT") == "json")
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug output (env: ENGAGECTL_VERBOSE)")
	cmd.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "Only print errors (env: ENGAGECTL_QUIET)")
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to "+config.CLIConfigFileName)

	cmd.AddCommand(
		newListCmd(a),
		newShowCmd(a),
		newHistoryCmd(a),
		newSyncCmd(a),
		newStageCmd(a),
		newTestCmd(a),
		newNotesCmd(a),
		newKickoffCmd(a),
		newCompleteCmd(a),
		newUncompleteCmd(a),
		newSetCmd(a),
		newVulnsCmd(a),
	)
	return cmd
}

// Execute запускает engagectl и возвращает код выхода.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{connect: connectRemote}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if hint := errorHint(err); hint != "" {
			fmt.Fprintln(os.Stderr, "Hint:", hint)
		}
		return 1
	}
	return 0
}

// errorHint: подсказка к ошибке, которую пользователь может исправить сам.
func errorHint(err error) string {
	if client.IsUnauthorized(err) {
		return "login required: set username in " + config.CLIConfigFileName + " (password via ENGAGECTL_PASSWORD or prompt)"
	}
	return ""
}

// connectRemote читает engagectl.toml и входит под пользователем из конфига.
func connectRemote(ctx context.Context, a *app) (Remote, error) {
	path := a.configPath
	if path == "" {
		found, err := config.FindCLIConfig(".")
		if err != nil {
			return nil, err
		}
		path = found
	}
	cfg, err := config.LoadCLI(path)
	if err != nil {
		return nil, err
	}

	c, err := client.New(cfg.ServerURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	if cfg.Username == "" {
		return c, nil
	}

	password := cfg.Password
	if password == "" {
		password, err = promptPassword(cfg.Username)
		if err != nil {
			return nil, err
		}
	}
	if _, err := c.Login(ctx, cfg.Username, password); err != nil {
		return nil, err
	}
	logging.New("cli").Debug("logged in", "server", cfg.ServerURL, "user", cfg.Username)
	return c, nil
}
