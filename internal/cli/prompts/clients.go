// Package prompts provides interactive CLI prompt components using charmbracelet/huh.
package prompts

import (
	"fmt"

	"github.com/asteroid-belt/farrierly/internal/models"
	"github.com/charmbracelet/huh"
)

// BuildClientOptions creates huh options from clients. Archived clients are
// labelled so they are not picked by accident.
func BuildClientOptions(clients []models.Client) []huh.Option[string] {
	options := make([]huh.Option[string], 0, len(clients))
	for _, c := range clients {
		label := c.Name
		if c.City != "" {
			label = fmt.Sprintf("%s (%s)", c.Name, c.City)
		}
		if !c.IsActive {
			label += " [archived]"
		}
		options = append(options, huh.NewOption(label, c.ID))
	}
	return options
}

// RunClientSelector shows a single-select of clients.
// Returns the chosen client id.
func RunClientSelector(title string, clients []models.Client) (string, error) {
	if len(clients) == 0 {
		return "", nil
	}

	var selected string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(title).
				Options(BuildClientOptions(clients)...).
				Value(&selected),
		),
	)

	if err := form.Run(); err != nil {
		return "", err
	}

	return selected, nil
}
