package seed

import (
	"fmt"

	"projectboard/internal/models"

	"gorm.io/gorm"
)

// BuiltInLabel is a catalogue label every fresh installation starts with.
type BuiltInLabel struct {
	Name  string
	Color string
}

// BuiltInLabels defines the default label catalogue.
var BuiltInLabels = []BuiltInLabel{
	{Name: "Bug", Color: "#eb5a46"},
	{Name: "Feature", Color: "#61bd4f"},
	{Name: "Improvement", Color: "#0079bf"},
	{Name: "Blocked", Color: "#c377e0"},
	{Name: "Urgent", Color: "#ff9f1a"},
	{Name: "Research", Color: "#00c2e0"},
	{Name: "Design", Color: "#ff78cb"},
	{Name: "Chore", Color: "#b3bac5"},
}

// Labels seeds the built-in catalogue. Existing labels keep their ids; only the color
// is refreshed, so running it twice is harmless.
func Labels(db *gorm.DB) ([]models.Label, error) {
	out := make([]models.Label, 0, len(BuiltInLabels))
	for _, item := range BuiltInLabels {
		color := item.Color
		var label models.Label
		err := db.Where(models.Label{Name: item.Name}).
			Assign(models.Label{Color: &color}).
			FirstOrCreate(&label).Error
		if err != nil {
			return nil, fmt.Errorf("seed label %s: %w", item.Name, err)
		}
		out = append(out, label)
	}
	return out, nil
}
