package utils

import "github.com/skip2/go-qrcode"

// OrderQRCode encode le lien de la page de commande en PNG
func OrderQRCode(url string) ([]byte, error) {
	return qrcode.Encode(url, qrcode.Medium, 256)
}
