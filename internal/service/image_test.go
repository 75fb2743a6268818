package service_test

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/foodgram/backend/internal/service"
	"github.com/foodgram/backend/internal/testhelpers"
)

func TestDecodeImage(t *testing.T) {
	img, err := service.DecodeImage(testhelpers.TestImage)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, ".png", img.Extension)

	bare := strings.TrimPrefix(testhelpers.TestImage, "data:image/png;base64,")
	img, err = service.DecodeImage(bare)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)

	for name, raw := range map[string]string{
		"empty":      "",
		"not base64": "data:image/png;base64,@@@",
		"not image":  "data:image/png;base64,aGVsbG8=",
		"no base64":  "data:image/png,plain",
		"svg": "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(
			[]byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(document.cookie)</script></svg>`)),
	} {
		_, err := service.DecodeImage(raw)
		assert.Error(t, err, name)
	}
}

func TestDecodeImageTooLarge(t *testing.T) {
	payload := strings.Repeat("A", (10<<20)/3*4+8)
	_, err := service.DecodeImage("data:image/png;base64," + payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestDiskImageStore(t *testing.T) {
	dir := t.TempDir()
	store := service.NewDiskImageStore(dir, "")
	img, err := service.DecodeImage(testhelpers.TestImage)
	require.NoError(t, err)

	key, err := store.Save(context.Background(), img)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "recipes/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.Equal(t, "/media/"+key, store.URL(key))

	data, err := os.ReadFile(filepath.Join(dir, key))
	require.NoError(t, err)
	assert.Equal(t, img.Data, data)

	require.NoError(t, store.Delete(context.Background(), key))
	require.NoError(t, store.Delete(context.Background(), key))
	_, err = os.Stat(filepath.Join(dir, key))
	assert.True(t, os.IsNotExist(err))
}

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	return &s3.PutObjectOutput{}, args.Error(0)
}

func (m *mockS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	return &s3.DeleteObjectOutput{}, args.Error(0)
}

func TestS3ImageStore(t *testing.T) {
	client := new(mockS3)
	store := service.NewS3ImageStore(client, "bucket", "", zaptest.NewLogger(t))
	img, err := service.DecodeImage(testhelpers.TestImage)
	require.NoError(t, err)

	var uploaded []byte
	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Bucket == "bucket" && *in.ContentType == "image/png"
	})).Run(func(args mock.Arguments) {
		uploaded, _ = io.ReadAll(args.Get(1).(*s3.PutObjectInput).Body)
	}).Return(nil).Once()

	key, err := store.Save(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, img.Data, uploaded)
	assert.Equal(t, "https://bucket.s3.amazonaws.com/"+key, store.URL(key))

	client.On("DeleteObject", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return *in.Key == key
	})).Return(nil).Once()
	require.NoError(t, store.Delete(context.Background(), key))

	client.On("PutObject", mock.Anything, mock.Anything).Return(errors.New("boom")).Once()
	_, err = store.Save(context.Background(), img)
	assert.ErrorContains(t, err, "failed to upload to S3")

	client.AssertExpectations(t)

	cdn := service.NewS3ImageStore(client, "bucket", "https://cdn.example.com/", zaptest.NewLogger(t))
	assert.Equal(t, "https://cdn.example.com/recipes/x.png", cdn.URL("recipes/x.png"))
	assert.Equal(t, "", cdn.URL(""))
}
