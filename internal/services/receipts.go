package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
)

// ReceiptLinkTTL : durée de validité du lien envoyé dans l'e-mail
const ReceiptLinkTTL = 7 * 24 * time.Hour

// ReceiptArchive range les reçus HTML dans un bucket MinIO
type ReceiptArchive struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
}

func NewReceiptArchive(client *minio.Client, bucket string) *ReceiptArchive {
	return &ReceiptArchive{client: client, bucket: bucket, ttl: ReceiptLinkTTL}
}

func ReceiptKey(orderNumber string) string {
	return "receipts/" + orderNumber + ".html"
}

// EnsureBucket crée le bucket s'il n'existe pas encore
func (a *ReceiptArchive) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("vérification bucket MinIO: %w", err)
	}
	if exists {
		log.Println("🪣 Bucket MinIO déjà présent :", a.bucket)
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("création bucket MinIO: %w", err)
	}
	log.Println("🪣 Bucket créé :", a.bucket)
	return nil
}

// Archive écrit le reçu et retourne une URL signée
func (a *ReceiptArchive) Archive(ctx context.Context, orderNumber string, html []byte) (string, error) {
	key := ReceiptKey(orderNumber)
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(html), int64(len(html)),
		minio.PutObjectOptions{ContentType: "text/html; charset=utf-8"})
	if err != nil {
		return "", fmt.Errorf("upload reçu %s: %w", orderNumber, err)
	}

	reqParams := make(url.Values)
	reqParams.Set("response-content-disposition", fmt.Sprintf("inline; filename=\"recu_%s.html\"", orderNumber))
	signed, err := a.client.PresignedGetObject(ctx, a.bucket, key, a.ttl, reqParams)
	if err != nil {
		return "", fmt.Errorf("URL signée reçu %s: %w", orderNumber, err)
	}
	return signed.String(), nil
}
