package models

import (
	"encoding/json"
	"fmt"
)

// Types d'options de personnalisation supportés par un produit.
type OptionKind string

const (
	OptionDropdown  OptionKind = "dropdown"
	OptionCheckbox  OptionKind = "checkbox"
	OptionText      OptionKind = "text"
	OptionTextArea  OptionKind = "textarea"
	OptionEngraving OptionKind = "engraving"
)

// Sous-type d'une option de gravure.
type EngravingKind string

const (
	EngravingText  EngravingKind = "text"
	EngravingImage EngravingKind = "image"
	EngravingBoth  EngravingKind = "both"
)

// DropdownSpec : choix unique parmi une liste fermée.
type DropdownSpec struct {
	Choices   []string `json:"choices"`
	BasePrice float64  `json:"base_price,omitempty"`
}

// CheckboxSpec : option à cocher, supplément fixe quand cochée.
type CheckboxSpec struct {
	BasePrice float64 `json:"base_price,omitempty"`
}

// TextSpec : texte libre ; les caractères au-delà de max_length
// sont facturés price_per_character chacun.
type TextSpec struct {
	MaxLength         int     `json:"max_length"`
	BasePrice         float64 `json:"base_price,omitempty"`
	PricePerCharacter float64 `json:"price_per_character,omitempty"`
}

// TextAreaSpec : comme TextSpec mais multi-lignes côté front.
type TextAreaSpec struct {
	MaxLength         int     `json:"max_length"`
	BasePrice         float64 `json:"base_price,omitempty"`
	PricePerCharacter float64 `json:"price_per_character,omitempty"`
}

// EngravingSpec : gravure texte, image ou les deux.
type EngravingSpec struct {
	Kind              EngravingKind `json:"kind"`
	BasePrice         float64       `json:"base_price,omitempty"`
	PricePerCharacter float64       `json:"price_per_character,omitempty"`
	MaxLength         int           `json:"max_length,omitempty"`
}

// OptionSpec est l'union taguée des variantes d'option : exactement
// un des pointeurs de variante est non-nil, selon Kind.
type OptionSpec struct {
	Kind      OptionKind `json:"kind"`
	Label     string     `json:"label,omitempty"`
	Required  bool       `json:"required,omitempty"`
	Dropdown  *DropdownSpec
	Checkbox  *CheckboxSpec
	Text      *TextSpec
	TextArea  *TextAreaSpec
	Engraving *EngravingSpec
}

// Représentation JSON à plat : les champs de la variante sont
// fusionnés avec kind/label/required (format stocké en base et
// utilisé par le front).
type optionSpecJSON struct {
	Kind              OptionKind    `json:"kind"`
	Label             string        `json:"label,omitempty"`
	Required          bool          `json:"required,omitempty"`
	Choices           []string      `json:"choices,omitempty"`
	MaxLength         int           `json:"max_length,omitempty"`
	BasePrice         float64       `json:"base_price,omitempty"`
	PricePerCharacter float64       `json:"price_per_character,omitempty"`
	EngravingKind     EngravingKind `json:"engraving_kind,omitempty"`
}

func (o *OptionSpec) UnmarshalJSON(data []byte) error {
	var raw optionSpecJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	o.Kind = raw.Kind
	o.Label = raw.Label
	o.Required = raw.Required
	o.Dropdown, o.Checkbox, o.Text, o.TextArea, o.Engraving = nil, nil, nil, nil, nil

	switch raw.Kind {
	case OptionDropdown:
		o.Dropdown = &DropdownSpec{Choices: raw.Choices, BasePrice: raw.BasePrice}
	case OptionCheckbox:
		o.Checkbox = &CheckboxSpec{BasePrice: raw.BasePrice}
	case OptionText:
		o.Text = &TextSpec{MaxLength: raw.MaxLength, BasePrice: raw.BasePrice, PricePerCharacter: raw.PricePerCharacter}
	case OptionTextArea:
		o.TextArea = &TextAreaSpec{MaxLength: raw.MaxLength, BasePrice: raw.BasePrice, PricePerCharacter: raw.PricePerCharacter}
	case OptionEngraving:
		kind := raw.EngravingKind
		if kind == "" {
			kind = EngravingText
		}
		o.Engraving = &EngravingSpec{
			Kind:              kind,
			BasePrice:         raw.BasePrice,
			PricePerCharacter: raw.PricePerCharacter,
			MaxLength:         raw.MaxLength,
		}
	default:
		return fmt.Errorf("type d'option inconnu: %q", raw.Kind)
	}
	return nil
}

func (o OptionSpec) MarshalJSON() ([]byte, error) {
	raw := optionSpecJSON{Kind: o.Kind, Label: o.Label, Required: o.Required}

	switch o.Kind {
	case OptionDropdown:
		if o.Dropdown != nil {
			raw.Choices = o.Dropdown.Choices
			raw.BasePrice = o.Dropdown.BasePrice
		}
	case OptionCheckbox:
		if o.Checkbox != nil {
			raw.BasePrice = o.Checkbox.BasePrice
		}
	case OptionText:
		if o.Text != nil {
			raw.MaxLength = o.Text.MaxLength
			raw.BasePrice = o.Text.BasePrice
			raw.PricePerCharacter = o.Text.PricePerCharacter
		}
	case OptionTextArea:
		if o.TextArea != nil {
			raw.MaxLength = o.TextArea.MaxLength
			raw.BasePrice = o.TextArea.BasePrice
			raw.PricePerCharacter = o.TextArea.PricePerCharacter
		}
	case OptionEngraving:
		if o.Engraving != nil {
			raw.EngravingKind = o.Engraving.Kind
			raw.BasePrice = o.Engraving.BasePrice
			raw.PricePerCharacter = o.Engraving.PricePerCharacter
			raw.MaxLength = o.Engraving.MaxLength
		}
	default:
		return nil, fmt.Errorf("type d'option inconnu: %q", o.Kind)
	}
	return json.Marshal(raw)
}

// SelectedValue est la valeur choisie par le client pour une option.
// Les champs pertinents dépendent de la variante de l'option.
type SelectedValue struct {
	Choice   string `json:"choice,omitempty"`    // dropdown
	Checked  bool   `json:"checked,omitempty"`   // checkbox
	Text     string `json:"text,omitempty"`      // text / textarea / gravure texte
	ImageRef string `json:"image_ref,omitempty"` // gravure image (URL MinIO)
}

// IsEmpty indique qu'aucune valeur exploitable n'a été fournie.
func (v SelectedValue) IsEmpty() bool {
	return v.Choice == "" && !v.Checked && v.Text == "" && v.ImageRef == ""
}
