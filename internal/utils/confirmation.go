package utils

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"

	"storefront_back_end/internal/orders"
)

// ReceiptArchiver stocke le reçu et retourne un lien temporaire
type ReceiptArchiver interface {
	Archive(ctx context.Context, orderNumber string, html []byte) (string, error)
}

const confirmationTemplate = `<!DOCTYPE html>
<html lang="fr">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>Confirmation de commande</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Confirmation de votre commande</h2>
		<p>Bonjour {{.Order.Shipping.FullName}},</p>
		<p>Votre commande <strong>{{.Order.OrderNumber}}</strong> du {{.Order.Date.Format "02/01/2006"}} a été confirmée.</p>

		<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background-color: #f0f0f0;">
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Produit</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Taille</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Quantité</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Total</th>
				</tr>
			</thead>
			<tbody>
				{{range .Order.LineItems}}
				<tr>
					<td style="padding: 10px; border: 1px solid #ddd;">{{.ProductName}} ({{.SKU}})</td>
					<td style="padding: 10px; border: 1px solid #ddd;">{{if .Size}}{{.Size}}{{else}}-{{end}}</td>
					<td style="padding: 10px; border: 1px solid #ddd;">{{.Quantity}}</td>
					<td style="padding: 10px; border: 1px solid #ddd;">{{.LineItemTotal.StringFixed 2}}€</td>
				</tr>
				{{end}}
			</tbody>
			<tfoot>
				<tr><td colspan="3" style="padding: 10px; text-align: right;">Sous-total :</td><td style="padding: 10px;">{{.Order.OrderTotal.StringFixed 2}}€</td></tr>
				<tr><td colspan="3" style="padding: 10px; text-align: right;">Livraison :</td><td style="padding: 10px;">{{.Order.DeliveryCost.StringFixed 2}}€</td></tr>
				<tr><td colspan="3" style="padding: 10px; text-align: right; font-weight: bold;">Total :</td><td style="padding: 10px; font-weight: bold;">{{.Order.GrandTotal.StringFixed 2}}€</td></tr>
			</tfoot>
		</table>

		<h3>Livraison</h3>
		<p>
			{{.Order.Shipping.StreetAddress1}}<br>
			{{if .Order.Shipping.StreetAddress2}}{{.Order.Shipping.StreetAddress2}}<br>{{end}}
			{{.Order.Shipping.Postcode}} {{.Order.Shipping.TownOrCity}}<br>
			{{if .Order.Shipping.County}}{{.Order.Shipping.County}}<br>{{end}}
			{{.Order.Shipping.Country}}
		</p>

		<p><a href="{{.OrderURL}}">Voir ma commande</a></p>
		{{if .ReceiptURL}}<p><a href="{{.ReceiptURL}}">Télécharger le reçu</a> (lien valable 7 jours)</p>{{end}}

		<p style="margin-top: 30px; color: #555;">
			Cordialement,<br>
			<strong>L'équipe de la boutique</strong>
		</p>
	</div>
</body>
</html>`

var confirmationTmpl = template.Must(template.New("confirmation").Parse(confirmationTemplate))

// ConfirmationMailer envoie l'unique e-mail de confirmation d'une commande
type ConfirmationMailer struct {
	mailer   Mailer
	baseURL  string
	receipts ReceiptArchiver // optionnel
}

func NewConfirmationMailer(mailer Mailer, baseURL string, receipts ReceiptArchiver) *ConfirmationMailer {
	return &ConfirmationMailer{mailer: mailer, baseURL: baseURL, receipts: receipts}
}

func (m *ConfirmationMailer) OrderURL(orderNumber string) string {
	return m.baseURL + "/checkout/success/" + orderNumber
}

func (m *ConfirmationMailer) SendConfirmation(ctx context.Context, o *orders.Order) error {
	data := struct {
		Order      *orders.Order
		OrderURL   string
		ReceiptURL string
	}{Order: o, OrderURL: m.OrderURL(o.OrderNumber)}

	if m.receipts != nil {
		// le reçu archivé est la confirmation sans lien vers lui-même
		receipt, err := render(data)
		if err != nil {
			return err
		}
		if data.ReceiptURL, err = m.receipts.Archive(ctx, o.OrderNumber, receipt); err != nil {
			log.Printf("⚠️ Reçu %s non archivé: %v", o.OrderNumber, err)
		}
	}

	html, err := render(data)
	if err != nil {
		return err
	}

	email := Email{
		To:      o.Shipping.Email,
		Subject: fmt.Sprintf("✅ Confirmation de commande %s", o.OrderNumber),
		HTML:    string(html),
	}
	if png, err := OrderQRCode(data.OrderURL); err == nil {
		email.Attachments = append(email.Attachments, Attachment{Name: "commande_" + o.OrderNumber + ".png", Data: png})
	} else {
		log.Printf("⚠️ QR code %s non généré: %v", o.OrderNumber, err)
	}

	return m.mailer.Send(ctx, email)
}

func render(data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendu confirmation: %w", err)
	}
	return buf.Bytes(), nil
}
