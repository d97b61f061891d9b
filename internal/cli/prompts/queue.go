package prompts

import (
	"fmt"

	"github.com/asteroid-belt/farrierly/internal/models"
	"github.com/charmbracelet/huh"
)

// BuildEntryOptions creates huh options from sync queue entries.
func BuildEntryOptions(entries []models.SyncQueueEntry) []huh.Option[int64] {
	options := make([]huh.Option[int64], 0, len(entries))
	for _, e := range entries {
		label := fmt.Sprintf("#%d %s %s %s", e.ID, e.Operation, e.EntityType, e.EntityID)
		if msg := e.ErrorMessage(); msg != "" {
			if len(msg) > 50 {
				msg = msg[:47] + "..."
			}
			label = fmt.Sprintf("%s - %s", label, msg)
		}
		options = append(options, huh.NewOption(label, e.ID))
	}
	return options
}

// RunEntrySelector shows a multi-select of quarantined entries to retry.
// Returns the selected entry ids.
func RunEntrySelector(entries []models.SyncQueueEntry) ([]int64, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	var selected []int64
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[int64]().
				Title("Select entries to retry").
				Description("Space to toggle, Enter to confirm").
				Options(BuildEntryOptions(entries)...).
				Value(&selected),
		),
	)

	if err := form.Run(); err != nil {
		return nil, err
	}

	return selected, nil
}

// Confirm asks a yes/no question. Defaults to no.
func Confirm(title, description string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	)

	if err := form.Run(); err != nil {
		return false, err
	}

	return ok, nil
}
