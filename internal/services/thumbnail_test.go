package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloudinaryUploaderOpensCircuit(t *testing.T) {
	calls := 0
	failing := func(ctx context.Context, file io.Reader, folder string) (string, error) {
		calls++
		return "", errors.New("502 from upstream")
	}
	u := newCloudinaryUploader(failing, "smart-bookmarks")

	for i := 0; i < 3; i++ {
		_, err := u.Upload(context.Background(), strings.NewReader("img"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUploaderUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen, u.State())

	_, err := u.Upload(context.Background(), strings.NewReader("img"))
	assert.ErrorIs(t, err, ErrUploaderUnavailable)
	assert.Equal(t, 3, calls, "open circuit short-circuits the upload")
}

func TestCloudinaryUploaderPassesFolder(t *testing.T) {
	var gotFolder, gotBody string
	u := newCloudinaryUploader(func(ctx context.Context, file io.Reader, folder string) (string, error) {
		b, _ := io.ReadAll(file)
		gotFolder, gotBody = folder, string(b)
		return "https://res.cloudinary.com/demo/image/upload/x.png", nil
	}, "thumbs")

	url, err := u.Upload(context.Background(), strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/x.png", url)
	assert.Equal(t, "thumbs", gotFolder)
	assert.Equal(t, "png-bytes", gotBody)
	assert.Equal(t, gobreaker.StateClosed, u.State())
}
