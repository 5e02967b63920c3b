package utils

import (
	"fmt"

	"decora_back_end/internal/models"
)

// GenerateOrderConfirmationHTML génère le HTML de confirmation de commande
func GenerateOrderConfirmationHTML(order models.Order) string {
	itemsHTML := ""
	for _, item := range order.Items {
		itemsHTML += fmt.Sprintf(`
			<tr>
				<td style="padding: 10px; border: 1px solid #ddd;">%s</td>
				<td style="padding: 10px; border: 1px solid #ddd;">%d</td>
				<td style="padding: 10px; border: 1px solid #ddd;">%.2f€</td>
				<td style="padding: 10px; border: 1px solid #ddd;">%.2f€</td>
			</tr>`, item.Name, item.Quantity, item.UnitPrice, item.LineTotal)
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>Confirmation de commande</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Confirmation de votre commande</h2>
		<p>Bonjour,</p>
		<p>Votre paiement a bien été reçu, votre commande est confirmée. Vous trouverez votre facture en pièce jointe.</p>

		<h3>Détails de la commande</h3>
		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background-color: #f0f0f0;">
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Produit</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Quantité</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Prix unitaire</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Total</th>
				</tr>
			</thead>
			<tbody>
				%s
			</tbody>
			<tfoot>
				<tr>
					<td colspan="3" style="padding: 10px; text-align: right;">Sous-total :</td>
					<td style="padding: 10px;">%.2f€</td>
				</tr>
				<tr>
					<td colspan="3" style="padding: 10px; text-align: right;">TVA (20%%) :</td>
					<td style="padding: 10px;">%.2f€</td>
				</tr>
				<tr>
					<td colspan="3" style="padding: 10px; text-align: right; font-weight: bold;">Total :</td>
					<td style="padding: 10px; font-weight: bold;">%.2f€</td>
				</tr>
			</tfoot>
		</table>

		<p style="color: #555;">Livraison à : %s, %s %s</p>

		<p style="margin-top: 30px; color: #555;">
			Cordialement,<br>
			<strong>L'équipe Décora</strong>
		</p>
	</div>
</body>
</html>`, itemsHTML, order.Subtotal, order.Tax, order.Total,
		order.Address.Street, order.Address.PostalCode, order.Address.City)
}

// GenerateRentalConfirmationHTML génère le HTML de confirmation de location
func GenerateRentalConfirmationHTML(rental models.Rental) string {
	itemsHTML := ""
	for _, item := range rental.Items {
		period := ""
		if item.RentalRange != nil {
			period = fmt.Sprintf("du %s au %s",
				item.RentalRange.Start.Format("02/01/2006"),
				item.RentalRange.End.Format("02/01/2006"))
		}
		itemsHTML += fmt.Sprintf(`
			<tr>
				<td style="padding: 10px; border: 1px solid #ddd;">%s</td>
				<td style="padding: 10px; border: 1px solid #ddd;">%s</td>
				<td style="padding: 10px; border: 1px solid #ddd;">%d jour(s)</td>
				<td style="padding: 10px; border: 1px solid #ddd;">%.2f€</td>
			</tr>`, item.Name, period, item.RentalDays, item.LineTotal)
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>Confirmation de location</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Confirmation de votre location</h2>
		<p>Bonjour,</p>
		<p>Votre paiement a bien été reçu, vos dates sont réservées. Le matériel vous attendra aux dates convenues.</p>

		<h3>Détails de la location</h3>
		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background-color: #f0f0f0;">
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Matériel</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Période</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Durée</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Total</th>
				</tr>
			</thead>
			<tbody>
				%s
			</tbody>
			<tfoot>
				<tr>
					<td colspan="3" style="padding: 10px; text-align: right;">Sous-total :</td>
					<td style="padding: 10px;">%.2f€</td>
				</tr>
				<tr>
					<td colspan="3" style="padding: 10px; text-align: right;">TVA (20%%) :</td>
					<td style="padding: 10px;">%.2f€</td>
				</tr>
				<tr>
					<td colspan="3" style="padding: 10px; text-align: right;">Caution (remboursée au retour) :</td>
					<td style="padding: 10px;">%.2f€</td>
				</tr>
				<tr>
					<td colspan="3" style="padding: 10px; text-align: right; font-weight: bold;">Total :</td>
					<td style="padding: 10px; font-weight: bold;">%.2f€</td>
				</tr>
			</tfoot>
		</table>

		<p style="color: #555;">La caution vous sera restituée après vérification du matériel au retour.</p>

		<p style="margin-top: 30px; color: #555;">
			Cordialement,<br>
			<strong>L'équipe Décora</strong>
		</p>
	</div>
</body>
</html>`, itemsHTML, rental.Subtotal, rental.Tax, rental.Deposit, rental.Total)
}

// GeneratePaymentFailedHTML génère le HTML d'échec de paiement
func GeneratePaymentFailedHTML() string {
	return `
<!DOCTYPE html>
<html lang="fr">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>Échec de paiement</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #c0392b;">Votre paiement n'a pas abouti</h2>
		<p>Bonjour,</p>
		<p>Le paiement de votre panier Décora a été refusé ou a expiré. Aucun montant n'a été débité et aucune réservation n'a été posée.</p>
		<p>Vous pouvez retenter le paiement depuis votre panier à tout moment.</p>

		<p style="margin-top: 30px; color: #555;">
			Cordialement,<br>
			<strong>L'équipe Décora</strong>
		</p>
	</div>
</body>
</html>`
}

// SendWelcomeEmail envoie un email de bienvenue après l'inscription
func SendWelcomeEmail(userEmail, userName string) error {
	subject := "🎉 Bienvenue chez Décora !"

	html := fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>Bienvenue chez Décora</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Bienvenue chez Décora, %s !</h2>
		<p>Votre compte est créé. Vous pouvez dès maintenant acheter nos décorations ou réserver du matériel événementiel à la location.</p>

		<p style="margin-top: 30px; color: #555;">
			Cordialement,<br>
			<strong>L'équipe Décora</strong>
		</p>
	</div>
</body>
</html>`, userName)

	return SendConfirmationEmail(userEmail, subject, html, nil)
}
