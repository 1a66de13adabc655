package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stripclass/pkg/config"
)

func TestNewCOSStorage(t *testing.T) {
	t.Run("MissingBucket", func(t *testing.T) {
		_, err := NewCOSStorage(&COSConfig{Region: "ap-guangzhou", SecretID: "id", SecretKey: "key"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket and region are required")
	})

	t.Run("MissingCredentials", func(t *testing.T) {
		_, err := NewCOSStorage(&COSConfig{Bucket: "b", Region: "ap-guangzhou"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "credentials are required")
	})

	t.Run("DefaultsDomainAndScheme", func(t *testing.T) {
		s, err := NewCOSStorage(&COSConfig{Bucket: "b", Region: "ap-guangzhou", SecretID: "id", SecretKey: "key"})
		require.NoError(t, err)
		assert.Equal(t, "myqcloud.com", s.domain)
		assert.Equal(t, "https", s.scheme)
	})
}

func TestCOSStorage_GetURL(t *testing.T) {
	s, err := NewCOSStorage(&COSConfig{
		Bucket:    "my-bucket",
		Region:    "ap-guangzhou",
		SecretID:  "test-id",
		SecretKey: "test-key",
		Prefix:    "skeletons/",
	})
	require.NoError(t, err)

	assert.Equal(t,
		"https://my-bucket.cos.ap-guangzhou.myqcloud.com/skeletons/com/example/A.class.alt",
		s.GetURL("/com/example/A.class.alt"))
	assert.Equal(t,
		"https://my-bucket.cos.ap-guangzhou.myqcloud.com/skeletons/lib/B.class.alt",
		s.GetURL("./lib/../lib/B.class.alt"))
}

func TestNewStorage(t *testing.T) {
	t.Run("COS", func(t *testing.T) {
		s, err := NewStorage(&config.StorageConfig{
			Type:      "cos",
			Bucket:    "test-bucket",
			Region:    "ap-guangzhou",
			SecretID:  "test-id",
			SecretKey: "test-key",
		})
		require.NoError(t, err)
		_, ok := s.(*COSStorage)
		assert.True(t, ok)
	})

	t.Run("LocalDefault", func(t *testing.T) {
		s, err := NewStorage(&config.StorageConfig{})
		require.NoError(t, err)
		_, ok := s.(*LocalStorage)
		assert.True(t, ok)
	})
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.StorageConfig
		wantErr string
	}{
		{"nil", nil, "storage config is nil"},
		{"unsupported type", &config.StorageConfig{Type: "s3"}, "unsupported storage type"},
		{"cos missing bucket", &config.StorageConfig{Type: "cos", Region: "r", SecretID: "i", SecretKey: "k"}, "COS storage is missing bucket"},
		{"cos missing region", &config.StorageConfig{Type: "cos", Bucket: "b", SecretID: "i", SecretKey: "k"}, "COS storage is missing region"},
		{"cos missing credentials", &config.StorageConfig{Type: "cos", Bucket: "b", Region: "r"}, "COS storage is missing secret_id, secret_key"},
		{"valid cos", &config.StorageConfig{Type: "cos", Bucket: "b", Region: "r", SecretID: "i", SecretKey: "k"}, ""},
		{"cos missing everything", &config.StorageConfig{Type: "COS"}, "missing bucket, region, secret_id, secret_key"},
		{"local without path", &config.StorageConfig{Type: "local"}, ""},
		{"empty type", &config.StorageConfig{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
