package pricing

import (
	"testing"

	"decora_back_end/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func engravingSpec(kind models.EngravingKind, required bool) models.OptionSpec {
	return models.OptionSpec{
		Kind:     models.OptionEngraving,
		Required: required,
		Engraving: &models.EngravingSpec{
			Kind:              kind,
			BasePrice:         2.00,
			PricePerCharacter: 0.10,
			MaxLength:         10,
		},
	}
}

func TestSurchargeGravureTexteDepassement(t *testing.T) {
	// 15 caractères pour max 10 : 2.00 + 5×0.10 = 2.50
	spec := engravingSpec(models.EngravingText, false)
	value := &models.SelectedValue{Text: "quinze-chars-15"}
	require.Len(t, []rune(value.Text), 15)

	s, violations := Surcharge("gravure", spec, value)
	assert.Empty(t, violations)
	assert.InDelta(t, 2.50, s, 1e-9)
}

func TestSurchargeTexteSousLaLimite(t *testing.T) {
	spec := models.OptionSpec{
		Kind: models.OptionText,
		Text: &models.TextSpec{MaxLength: 10, BasePrice: 1.00, PricePerCharacter: 0.10},
	}
	s, violations := Surcharge("message", spec, &models.SelectedValue{Text: "court"})
	assert.Empty(t, violations)
	assert.InDelta(t, 1.00, s, 1e-9)
}

func TestSurchargeDeterministeEtPositive(t *testing.T) {
	spec := engravingSpec(models.EngravingBoth, false)
	value := &models.SelectedValue{Text: "texte de gravure assez long", ImageRef: "img/logo.png"}

	first, _ := Surcharge("gravure", spec, value)
	for i := 0; i < 50; i++ {
		s, _ := Surcharge("gravure", spec, value)
		assert.Equal(t, first, s)
		assert.GreaterOrEqual(t, s, 0.0)
	}
}

func TestSurchargeGravureImage(t *testing.T) {
	spec := engravingSpec(models.EngravingImage, false)

	s, violations := Surcharge("gravure", spec, &models.SelectedValue{ImageRef: "img/logo.png"})
	assert.Empty(t, violations)
	assert.InDelta(t, 2.00, s, 1e-9)

	// Pas d'image : pas de supplément
	s, violations = Surcharge("gravure", spec, &models.SelectedValue{Checked: true})
	assert.Empty(t, violations)
	assert.Zero(t, s)
}

func TestSurchargeGravureBothAdditionne(t *testing.T) {
	spec := engravingSpec(models.EngravingBoth, false)
	// texte 15 chars (2.50) + image (2.00) = 4.50
	s, violations := Surcharge("gravure", spec, &models.SelectedValue{
		Text:     "quinze-chars-15",
		ImageRef: "img/logo.png",
	})
	assert.Empty(t, violations)
	assert.InDelta(t, 4.50, s, 1e-9)
}

func TestSurchargeRequiseManquante(t *testing.T) {
	spec := engravingSpec(models.EngravingBoth, true)

	_, violations := Surcharge("gravure", spec, nil)
	require.Len(t, violations, 1)
	assert.Equal(t, "gravure", violations[0].Key)

	// Une seule sous-partie suffit quand l'option est requise
	s, violations := Surcharge("gravure", spec, &models.SelectedValue{ImageRef: "img/logo.png"})
	assert.Empty(t, violations)
	assert.InDelta(t, 2.00, s, 1e-9)
}

func TestSurchargeDropdown(t *testing.T) {
	spec := models.OptionSpec{
		Kind:     models.OptionDropdown,
		Dropdown: &models.DropdownSpec{Choices: []string{"or", "argent"}, BasePrice: 3.00},
	}

	s, violations := Surcharge("finition", spec, &models.SelectedValue{Choice: "or"})
	assert.Empty(t, violations)
	assert.InDelta(t, 3.00, s, 1e-9)

	_, violations = Surcharge("finition", spec, &models.SelectedValue{Choice: "bronze"})
	require.Len(t, violations, 1)
	assert.Equal(t, "choix hors liste", violations[0].Reason)
}

func TestPriceSelectionsCollecteToutesLesViolations(t *testing.T) {
	specs := map[string]models.OptionSpec{
		"couleur": {
			Kind:     models.OptionDropdown,
			Required: true,
			Dropdown: &models.DropdownSpec{Choices: []string{"rouge", "bleu"}},
		},
		"gravure": engravingSpec(models.EngravingText, true),
	}
	selections := map[string]models.SelectedValue{
		"ruban": {Checked: true}, // n'existe pas sur ce produit
	}

	total, violations := PriceSelections(specs, selections)
	assert.Zero(t, total)
	require.Len(t, violations, 3)
	assert.Equal(t, "couleur", violations[0].Key)
	assert.Equal(t, "gravure", violations[1].Key)
	assert.Equal(t, "ruban", violations[2].Key)
}

func TestPriceSelectionsAdditionneLesSupplements(t *testing.T) {
	specs := map[string]models.OptionSpec{
		"emballage": {
			Kind:     models.OptionCheckbox,
			Checkbox: &models.CheckboxSpec{BasePrice: 1.50},
		},
		"gravure": engravingSpec(models.EngravingText, false),
	}
	selections := map[string]models.SelectedValue{
		"emballage": {Checked: true},
		"gravure":   {Text: "quinze-chars-15"},
	}

	total, violations := PriceSelections(specs, selections)
	assert.Empty(t, violations)
	assert.InDelta(t, 4.00, total, 1e-9) // 1.50 + 2.50
}
