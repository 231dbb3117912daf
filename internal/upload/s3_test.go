package upload_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/joestump/newswire/internal/config"
	"github.com/joestump/newswire/internal/logging"
	"github.com/joestump/newswire/internal/testutil"
	"github.com/joestump/newswire/internal/upload"
)

// fakeS3 is an in-memory bucket honouring If-None-Match on PutObject.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	key := aws.ToString(in.Key)
	if _, ok := f.objects[key]; ok && aws.ToString(in.IfNoneMatch) == "*" {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[key] = data
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Storage_SaveNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := upload.NewS3StorageWithClient(fake, "bucket")

	if err := s.Save(ctx, "News/a.png", strings.NewReader("one"), "image/png"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, "News/a.png", strings.NewReader("two"), "image/png"); !errors.Is(err, upload.ErrObjectExists) {
		t.Errorf("second Save err = %v, want ErrObjectExists", err)
	}
	if got := string(fake.objects["News/a.png"]); got != "one" {
		t.Errorf("object = %q, want original kept", got)
	}
}

func TestS3Storage_OpenExistsDelete(t *testing.T) {
	ctx := context.Background()
	s := upload.NewS3StorageWithClient(newFakeS3(), "bucket")

	if _, err := s.Open(ctx, "News/missing.png"); !errors.Is(err, upload.ErrObjectNotFound) {
		t.Errorf("Open err = %v, want ErrObjectNotFound", err)
	}
	if ok, err := s.Exists(ctx, "News/missing.png"); ok || err != nil {
		t.Errorf("Exists = %v, %v", ok, err)
	}
	if err := s.Delete(ctx, "News/missing.png"); !errors.Is(err, upload.ErrObjectNotFound) {
		t.Errorf("Delete err = %v, want ErrObjectNotFound", err)
	}

	if err := s.Save(ctx, "News/a.png", strings.NewReader("data"), "image/png"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	rc, err := s.Open(ctx, "News/a.png")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "data" {
		t.Errorf("body = %q", body)
	}
	if err := s.Delete(ctx, "News/a.png"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestS3Storage_ThroughGate(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	gate := upload.NewGate(upload.NewS3StorageWithClient(fake, "bucket"), upload.Config{}, logging.Discard())

	p, err := gate.Upload(ctx, upload.FromBytes("pic.webp", "image/webp", testutil.WEBP(128)), "TeamMembers")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	key := strings.TrimPrefix(p, "/uploads/")
	if fake.types[key] != "image/webp" {
		t.Errorf("content type = %q", fake.types[key])
	}
	if !gate.DeleteAsset(ctx, p) {
		t.Error("DeleteAsset = false")
	}

	fake.putErr = errors.New("connection reset")
	if _, err := gate.Upload(ctx, upload.FromBytes("pic.webp", "image/webp", testutil.WEBP(128)), "TeamMembers"); !errors.Is(err, upload.ErrStorage) {
		t.Errorf("err = %v, want ErrStorage", err)
	}
}

func TestNewStorage(t *testing.T) {
	ctx := context.Background()
	if _, err := upload.NewStorage(ctx, "local", t.TempDir(), config.S3{}); err != nil {
		t.Errorf("local: %v", err)
	}
	if _, err := upload.NewStorage(ctx, "s3", "", config.S3{}); !errors.Is(err, upload.ErrNoStorage) {
		t.Errorf("s3 without bucket: err = %v, want ErrNoStorage", err)
	}
	if _, err := upload.NewStorage(ctx, "ftp", "", config.S3{}); err == nil {
		t.Error("unknown backend accepted")
	}
}
