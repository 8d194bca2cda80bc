package storage

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"
)

// memS3 is an in-memory S3API supporting the calls S3Store makes.
type memS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	copies  []string
}

func newMemS3() *memS3 { return &memS3{objects: map[string][]byte{}} }

func (m *memS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, _ := io.ReadAll(in.Body)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *memS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *memS3) CopyObject(_ context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := aws.ToString(in.CopySource)
	m.copies = append(m.copies, src)
	_, key, _ := strings.Cut(src, "/")
	key, _ = url.PathUnescape(key)
	data, ok := m.objects[key]
	if !ok {
		return nil, &mockAPIError{code: "NoSuchKey"}
	}
	m.objects[aws.ToString(in.Key)] = data
	return &s3.CopyObjectOutput{}, nil
}

func (m *memS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (m *memS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := aws.ToString(in.Prefix)
	delim := aws.ToString(in.Delimiter)

	var keys []string
	for k := range m.objects {
		rest, ok := strings.CutPrefix(k, prefix)
		if !ok || (delim != "" && strings.Contains(rest, delim)) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func TestS3Store(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	api := newMemS3()
	s := NewS3WithClient(api, "bucket", "/runs/welcome/")

	require.NoError(t, s.Write(ctx, "Ada Lovelace-metadata.json", []byte(`{}`)))
	require.NoError(t, s.Write(ctx, "Ada Lovelace__html__Rendered-Email.html", []byte(`<p>hi</p>`)))
	require.Contains(t, api.objects, "runs/welcome/Ada Lovelace-metadata.json")

	names, err := s.List(ctx, "-metadata.json")
	require.NoError(t, err)
	require.Equal(t, []string{"Ada Lovelace-metadata.json"}, names)

	data, err := s.Read(ctx, "Ada Lovelace__html__Rendered-Email.html")
	require.NoError(t, err)
	require.Equal(t, "<p>hi</p>", string(data))

	require.NoError(t, s.Move(ctx, "Ada Lovelace-metadata.json", "drafts"))
	require.Equal(t, []string{"bucket/runs/welcome/Ada%20Lovelace-metadata.json"}, api.copies)
	require.Contains(t, api.objects, "runs/welcome/drafts/Ada Lovelace-metadata.json")

	names, err = s.List(ctx, "-metadata.json")
	require.NoError(t, err)
	require.Empty(t, names)

	_, err = s.Read(ctx, "missing.html")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.Move(ctx, "missing.html", "sent"), ErrNotFound)
}

func TestNewS3(t *testing.T) {
	t.Parallel()

	_, err := NewS3(context.Background(), Config{Bucket: "b"})
	require.ErrorIs(t, err, ErrInvalidConfig)

	s, err := NewS3(context.Background(), Config{
		Bucket: "b", AccessKey: "a", SecretKey: "s",
		Endpoint: "http://localhost:9000", PathStyle: true,
	})
	require.NoError(t, err)
	require.NotNil(t, s.client)
	require.Empty(t, s.prefix)
}
