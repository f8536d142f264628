package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// apiError implements smithy.APIError.
type apiError struct{ code string }

func (e *apiError) Error() string                 { return e.code }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.code }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

// fakeS3 is an in-memory bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, &apiError{code: "NoSuchKey"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Key] = data
	if in.ContentType != nil {
		f.types[*in.Key] = *in.ContentType
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[*in.Key]; !ok {
		return nil, &apiError{code: "NotFound"}
	}
	return &s3.HeadObjectOutput{}, nil
}

// exercise runs the FileStore contract against fs.
func exercise(t *testing.T, fs FileStore) {
	t.Helper()
	ctx := context.Background()

	if ok, err := fs.Exists(ctx, "t1/transcript.json"); err != nil || ok {
		t.Fatalf("Exists() before write = %v, %v", ok, err)
	}
	if _, err := fs.Read(ctx, "t1/transcript.json"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Read() missing error = %v; want os.ErrNotExist", err)
	}

	if err := WriteFile(ctx, fs, "t1/transcript.json", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	if err := WriteFile(ctx, fs, "t1/transcript.json", []byte(`{}`)); err != nil {
		t.Fatalf("WriteFile() overwrite error: %v", err)
	}
	got, err := ReadFile(ctx, fs, "t1/transcript.json")
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if string(got) != `{}` {
		t.Errorf("ReadFile() = %q; want truncated content", got)
	}
	if ok, _ := fs.Exists(ctx, "t1/transcript.json"); !ok {
		t.Error("Exists() after write = false")
	}

	if err := fs.Delete(ctx, "t1/transcript.json"); err != nil {
		t.Fatal(err)
	}
	if err := fs.Delete(ctx, "t1/transcript.json"); err != nil {
		t.Errorf("second Delete() error: %v", err)
	}
	if ok, _ := fs.Exists(ctx, "t1/transcript.json"); ok {
		t.Error("Exists() after delete = true")
	}
}

func TestLocal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	l, err := NewLocal(dir)
	if err != nil {
		t.Fatal(err)
	}
	exercise(t, l)

	if got := l.URI("a/b.wav"); got != filepath.Join(dir, "a", "b.wav") {
		t.Errorf("URI() = %q", got)
	}
}

func TestLocal_NoPartialFiles(t *testing.T) {
	l, _ := NewLocal(t.TempDir())
	w, err := l.Write(context.Background(), "audio.wav")
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte("partial"))
	if ok, _ := l.Exists(context.Background(), "audio.wav"); ok {
		t.Error("file visible before Close")
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if ok, _ := l.Exists(context.Background(), "audio.wav"); !ok {
		t.Error("file missing after Close")
	}
}

func TestS3Store(t *testing.T) {
	fake := newFakeS3()
	s := NewS3(fake, "calls", "exports/2024")
	exercise(t, s)

	if err := WriteFile(context.Background(), s, "t2/agent.wav", []byte("RIFF")); err != nil {
		t.Fatal(err)
	}
	if _, ok := fake.objects["exports/2024/t2/agent.wav"]; !ok {
		t.Errorf("objects = %v; want prefixed key", fake.objects)
	}
	if ct := fake.types["exports/2024/t2/agent.wav"]; ct != "audio/wav" {
		t.Errorf("content type = %q; want audio/wav", ct)
	}
	if got := s.URI("t2/agent.wav"); got != "s3://calls/exports/2024/t2/agent.wav" {
		t.Errorf("URI() = %q", got)
	}
}

func TestS3Store_UploadError(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("access denied")
	s := NewS3(fake, "calls", "")

	err := WriteFile(context.Background(), s, "x.json", []byte("{}"))
	if !errors.Is(err, fake.putErr) {
		t.Errorf("WriteFile() error = %v; want upload error", err)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	fs, err := Open(dir, S3Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := fs.(*Local); !ok {
		t.Errorf("Open(dir) = %T; want *Local", fs)
	}

	fs, err = Open("file://"+dir, S3Config{})
	if err != nil {
		t.Fatal(err)
	}
	if l, ok := fs.(*Local); !ok || l.Root() != dir {
		t.Errorf("Open(file://) = %#v", fs)
	}

	fs, err = Open("s3://calls/archive/", S3Config{Region: "eu-west-1", Endpoint: "http://127.0.0.1:9000", PathStyle: true})
	if err != nil {
		t.Fatal(err)
	}
	s, ok := fs.(*S3Store)
	if !ok || s.bucket != "calls" || s.prefix != "archive" {
		t.Errorf("Open(s3://) = %#v", fs)
	}

	for _, bad := range []string{"", "s3:///nobucket", "ftp://host/x"} {
		if _, err := Open(bad, S3Config{}); err == nil {
			t.Errorf("Open(%q) succeeded", bad)
		}
	}
}

func TestIsS3NotFound(t *testing.T) {
	if !isS3NotFound(&apiError{code: "NoSuchKey"}) || !isS3NotFound(&apiError{code: "NotFound"}) {
		t.Error("not-found codes not recognised")
	}
	if isS3NotFound(&apiError{code: "AccessDenied"}) || isS3NotFound(errors.New("x")) {
		t.Error("other errors treated as not found")
	}
}
