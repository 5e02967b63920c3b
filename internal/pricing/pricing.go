package pricing

import (
	"sort"
	"unicode/utf8"

	"decora_back_end/internal/models"
)

// Violation : option requise manquante ou valeur invalide pour sa
// variante. Les violations sont collectées, pas levées une par une,
// pour que le front puisse tout afficher d'un coup.
type Violation struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// Surcharge calcule le supplément d'une valeur choisie par rapport à
// la spec de son option. Fonction pure : mêmes entrées, même
// résultat, jamais négatif.
func Surcharge(key string, spec models.OptionSpec, value *models.SelectedValue) (float64, []Violation) {
	if value == nil || value.IsEmpty() {
		if spec.Required {
			return 0, []Violation{{Key: key, Reason: "option requise manquante"}}
		}
		return 0, nil
	}

	var s float64
	var violations []Violation

	switch spec.Kind {
	case models.OptionDropdown:
		if spec.Dropdown == nil {
			break
		}
		if !containsChoice(spec.Dropdown.Choices, value.Choice) {
			violations = append(violations, Violation{Key: key, Reason: "choix hors liste"})
			break
		}
		s = spec.Dropdown.BasePrice

	case models.OptionCheckbox:
		if spec.Checkbox != nil && value.Checked {
			s = spec.Checkbox.BasePrice
		}

	case models.OptionText:
		if spec.Text != nil {
			s = overflowCharge(value.Text, spec.Text.BasePrice, spec.Text.PricePerCharacter, spec.Text.MaxLength)
		}

	case models.OptionTextArea:
		if spec.TextArea != nil {
			s = overflowCharge(value.Text, spec.TextArea.BasePrice, spec.TextArea.PricePerCharacter, spec.TextArea.MaxLength)
		}

	case models.OptionEngraving:
		if spec.Engraving == nil {
			break
		}
		e := spec.Engraving
		switch e.Kind {
		case models.EngravingText:
			if value.Text != "" {
				s = overflowCharge(value.Text, e.BasePrice, e.PricePerCharacter, e.MaxLength)
			} else if spec.Required {
				violations = append(violations, Violation{Key: key, Reason: "texte de gravure requis"})
			}
		case models.EngravingImage:
			if value.ImageRef != "" {
				s = e.BasePrice
			} else if spec.Required {
				violations = append(violations, Violation{Key: key, Reason: "image de gravure requise"})
			}
		case models.EngravingBoth:
			// Chaque sous-partie est optionnelle et contribue
			// indépendamment ; requis = au moins une des deux.
			if value.Text == "" && value.ImageRef == "" && spec.Required {
				violations = append(violations, Violation{Key: key, Reason: "gravure texte ou image requise"})
				break
			}
			if value.Text != "" {
				s += overflowCharge(value.Text, e.BasePrice, e.PricePerCharacter, e.MaxLength)
			}
			if value.ImageRef != "" {
				s += e.BasePrice
			}
		}

	default:
		violations = append(violations, Violation{Key: key, Reason: "type d'option inconnu"})
	}

	if s < 0 {
		s = 0
	}
	return s, violations
}

// PriceSelections applique Surcharge à chaque option du produit et
// signale les sélections qui ne correspondent à aucune option.
func PriceSelections(specs map[string]models.OptionSpec, selections map[string]models.SelectedValue) (float64, []Violation) {
	var total float64
	var violations []Violation

	// Ordre stable pour que les violations sortent toujours pareil
	keys := make([]string, 0, len(specs))
	for k := range specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		spec := specs[key]
		var value *models.SelectedValue
		if v, ok := selections[key]; ok {
			value = &v
		}
		s, v := Surcharge(key, spec, value)
		total += s
		violations = append(violations, v...)
	}

	selKeys := make([]string, 0, len(selections))
	for k := range selections {
		if _, ok := specs[k]; !ok {
			selKeys = append(selKeys, k)
		}
	}
	sort.Strings(selKeys)
	for _, k := range selKeys {
		violations = append(violations, Violation{Key: k, Reason: "option inconnue pour ce produit"})
	}

	return total, violations
}

func overflowCharge(text string, base, perChar float64, maxLength int) float64 {
	s := base
	if maxLength > 0 {
		if over := utf8.RuneCountInString(text) - maxLength; over > 0 {
			s += float64(over) * perChar
		}
	}
	return s
}

func containsChoice(choices []string, choice string) bool {
	for _, c := range choices {
		if c == choice {
			return true
		}
	}
	return false
}
