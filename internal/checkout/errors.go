package checkout

import (
	"errors"
	"fmt"
	"strings"

	"decora_back_end/internal/pricing"
)

// Taxonomie d'erreurs du cœur checkout/réconciliation. Les handlers
// les traduisent en statuts HTTP ; seul ErrGatewayUnavailable est
// réessayable tel quel.
var (
	ErrNotFound           = errors.New("enregistrement introuvable")
	ErrInvalidState       = errors.New("produit non disponible dans ce mode")
	ErrConflict           = errors.New("dates déjà réservées")
	ErrGatewayUnavailable = errors.New("prestataire de paiement indisponible")
	ErrAmountMismatch     = errors.New("montant payé différent du total enregistré")
)

// ValidationError agrège toutes les violations d'un checkout pour
// que l'acheteur corrige tout en une passe.
type ValidationError struct {
	Violations []pricing.Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "données de checkout invalides"
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Key, v.Reason))
	}
	return "validation échouée: " + strings.Join(parts, "; ")
}

func newValidationError(key, reason string) *ValidationError {
	return &ValidationError{Violations: []pricing.Violation{{Key: key, Reason: reason}}}
}
