package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"engagement-tracker/internal/models"
)

func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stderr.Fd()))
}

func promptPassword(username string) (string, error) {
	if !interactive() {
		return "", errors.New("no password: set ENGAGECTL_PASSWORD")
	}
	var password string
	err := huh.NewInput().
		Title(fmt.Sprintf("Password for %s", username)).
		EchoMode(huh.EchoModePassword).
		Value(&password).
		Run()
	if err != nil {
		return "", fmt.Errorf("password prompt: %w", err)
	}
	return password, nil
}

// confirm спрашивает да/нет. Без терминала подтверждение возможно
// только флагом --yes.
func confirm(title, description string) error {
	if !interactive() {
		return fmt.Errorf("%w (use --yes)", models.ErrNotConfirmed)
	}
	ok := false
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if err != nil {
		return fmt.Errorf("confirmation prompt: %w", err)
	}
	if !ok {
		return models.ErrNotConfirmed
	}
	return nil
}
