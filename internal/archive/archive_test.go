package archive

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	assert.ErrorIs(t, err, ErrNoBucket)
}

func TestNew_StaticCredentials(t *testing.T) {
	s, err := New(context.Background(), Config{
		Bucket:          "sessions",
		Endpoint:        "http://127.0.0.1:9000",
		PathStyle:       true,
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "sessions", s.bucket)
}

func TestStore_Key(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"", "run_1.json.gz"},
		{"sessions", "sessions/run_1.json.gz"},
		{"/sessions/2026/", "sessions/2026/run_1.json.gz"},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			s := newStore(&fakePutter{}, Config{Bucket: "b", Prefix: tt.prefix}, nil)
			assert.Equal(t, tt.want, s.Key(filepath.Join("out", "run_1.json.gz")))
		})
	}
}

func TestStore_Upload(t *testing.T) {
	fp := &fakePutter{}
	s := newStore(fp, Config{Bucket: "b", Prefix: "runs"}, nil)
	p := writeFile(t, "line_20261017_120000.json", `{"ok":true}`)

	key, err := s.Upload(context.Background(), p, "line")
	require.NoError(t, err)

	assert.Equal(t, "runs/line_20261017_120000.json", key)
	require.NotNil(t, fp.input)
	assert.Equal(t, "b", aws.ToString(fp.input.Bucket))
	assert.Equal(t, key, aws.ToString(fp.input.Key))
	assert.Equal(t, "application/json", aws.ToString(fp.input.ContentType))
	assert.Equal(t, int64(11), aws.ToInt64(fp.input.ContentLength))
	assert.Equal(t, map[string]string{"session": "line"}, fp.input.Metadata)
	assert.Equal(t, `{"ok":true}`, string(fp.body))
}

func TestStore_UploadErrors(t *testing.T) {
	s := newStore(&fakePutter{}, Config{Bucket: "b"}, nil)
	_, err := s.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.json"), "")
	assert.Error(t, err)

	boom := errors.New("boom")
	s = newStore(&fakePutter{err: boom}, Config{Bucket: "b"}, nil)
	_, err = s.Upload(context.Background(), writeFile(t, "a.db", "x"), "")
	assert.ErrorIs(t, err, boom)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/gzip", contentType("a.json.gz"))
	assert.Equal(t, "application/json", contentType("a.JSON"))
	assert.Equal(t, "application/vnd.sqlite3", contentType("a.db"))
	assert.Equal(t, "application/octet-stream", contentType("a"))
}
