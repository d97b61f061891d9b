package prompts

import (
	"fmt"

	"github.com/asteroid-belt/farrierly/internal/models"
	"github.com/charmbracelet/huh"
)

// BuildHorseOptions creates huh options from horses, showing when each is due.
func BuildHorseOptions(horses []models.Horse) []huh.Option[string] {
	options := make([]huh.Option[string], 0, len(horses))
	for _, h := range horses {
		label := h.Name
		if h.NextDueDate != nil {
			label = fmt.Sprintf("%s - due %s", h.Name, h.NextDueDate.Format("2006-01-02"))
		}
		options = append(options, huh.NewOption(label, h.ID))
	}
	return options
}

// FilterSelectedHorses returns only horses matching selected ids, in their
// original order.
func FilterSelectedHorses(all []models.Horse, selected []string) []models.Horse {
	selectedMap := make(map[string]bool, len(selected))
	for _, id := range selected {
		selectedMap[id] = true
	}

	var result []models.Horse
	for _, h := range all {
		if selectedMap[h.ID] {
			result = append(result, h)
		}
	}
	return result
}

// RunHorseSelector shows a multi-select of a client's horses.
// Returns the selected horses.
func RunHorseSelector(horses []models.Horse) ([]models.Horse, error) {
	if len(horses) == 0 {
		return nil, nil
	}

	var selected []string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Select horses for this visit").
				Description("Space to toggle, Enter to confirm").
				Options(BuildHorseOptions(horses)...).
				Value(&selected),
		),
	)

	if err := form.Run(); err != nil {
		return nil, err
	}

	return FilterSelectedHorses(horses, selected), nil
}
