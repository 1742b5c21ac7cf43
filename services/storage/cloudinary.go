package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"venuebook/utils/apperr"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Documents are raw authenticated assets, reachable only through signed URLs.
const (
	cloudinaryResourceType = "raw"
	cloudinaryDeliveryType = "authenticated"
)

// CloudinaryStorage keeps documents as authenticated Cloudinary assets.
type CloudinaryStorage struct {
	cld       *cloudinary.Cloudinary
	cloudName string
	apiSecret string
	now       func() time.Time
}

// NewCloudinaryStorage creates a CloudinaryStorage from account credentials.
func NewCloudinaryStorage(cloudName, apiKey, apiSecret string) (*CloudinaryStorage, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("cloudinary credentials not set in configuration")
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryStorage{cld: cld, cloudName: cloudName, apiSecret: apiSecret, now: time.Now}, nil
}

// Upload stores the blob with its path as the public ID.
func (s *CloudinaryStorage) Upload(ctx context.Context, obj Object) error {
	result, err := s.cld.Upload.Upload(ctx, obj.Body, uploader.UploadParams{
		PublicID:     obj.Path,
		ResourceType: cloudinaryResourceType,
		Type:         cloudinaryDeliveryType,
	})
	if err != nil {
		return apperr.External("cloudinary", err)
	}
	if result.PublicID == "" {
		return apperr.External("cloudinary", errors.New("no public ID returned: "+result.Error.Message))
	}
	return nil
}

// Delete destroys the asset; "not found" counts as already deleted.
func (s *CloudinaryStorage) Delete(ctx context.Context, path string) error {
	result, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     path,
		ResourceType: cloudinaryResourceType,
		Type:         cloudinaryDeliveryType,
	})
	if err != nil {
		return apperr.External("cloudinary", err)
	}
	if result.Result != "ok" && result.Result != "not found" {
		return apperr.External("cloudinary", fmt.Errorf("destroy %s: %s", path, result.Result))
	}
	return nil
}

// SignedURL builds a short-lived authenticated delivery URL. The signature is
// SHA-1 over "expires_at" and "public_id" concatenated with the API secret.
func (s *CloudinaryStorage) SignedURL(_ context.Context, path string, expires time.Duration) (string, error) {
	expiresAt := s.now().Add(ClampExpiry(expires)).Unix()
	stringToSign := fmt.Sprintf("expires_at=%d&public_id=%s%s", expiresAt, path, s.apiSecret)
	signature := computeSHA1(stringToSign)
	return fmt.Sprintf("https://res.cloudinary.com/%s/%s/%s/s--%s--/expires_%d/%s",
		s.cloudName, cloudinaryResourceType, cloudinaryDeliveryType, signature, expiresAt, path), nil
}

// computeSHA1 computes the SHA-1 hash of the input and returns its hex encoding.
func computeSHA1(input string) string {
	h := sha1.New()
	h.Write([]byte(input))
	return hex.EncodeToString(h.Sum(nil))
}
