package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/url"
	"os"
	"strings"
	"time"

	"decora_back_end/internal/database"

	"github.com/minio/minio-go/v7"
)

const ImageBucket = "decora-images"

// UploadFile pousse une image produit dans le bucket sous objectName
// et rend le chemin stocké en base ("/uploads/<clé>").
func UploadFile(ctx context.Context, bucket, objectName string, file *multipart.FileHeader) (string, error) {
	if database.MinIO == nil {
		return "", fmt.Errorf("MinIO non initialisé")
	}
	f, err := file.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	_, err = database.MinIO.PutObject(ctx, bucket, objectName, f, file.Size,
		minio.PutObjectOptions{ContentType: file.Header.Get("Content-Type")})
	if err != nil {
		return "", err
	}

	return "/uploads/" + objectName, nil
}

// GenerateSignedURL rend une URL signée à durée limitée pour un objet du
// bucket images. objectPath peut être l'URL publique complète ou la clé seule.
func GenerateSignedURL(ctx context.Context, objectPath string, duration time.Duration) (string, error) {
	if database.MinIO == nil {
		return "", fmt.Errorf("MinIO non initialisé")
	}

	prefix := fmt.Sprintf("http://%s/%s/", os.Getenv("MINIO_ENDPOINT"), ImageBucket)
	key := strings.TrimPrefix(objectPath, prefix)
	key = strings.TrimPrefix(key, "/uploads/")

	presignedURL, err := database.MinIO.PresignedGetObject(ctx, ImageBucket, key, duration, make(url.Values))
	if err != nil {
		return "", err
	}
	return presignedURL.String(), nil
}
