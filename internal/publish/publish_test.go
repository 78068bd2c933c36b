package publish_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofrs/flock"

	"marquee/internal/publish"
)

type fakePutter struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (f *fakePutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(params.Body)
	f.inputs = append(f.inputs, params)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func TestFileSinkReplacesFeed(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink := publish.NewFileSink(dir)
	ctx := context.Background()

	if _, err := sink.Publish(ctx, "movies", []byte("[]\n")); err != nil {
		t.Fatalf("first Publish failed: %v", err)
	}
	location, err := sink.Publish(ctx, "movies", []byte("[{}]\n"))
	if err != nil {
		t.Fatalf("second Publish failed: %v", err)
	}
	if location != filepath.Join(dir, "movies.json") {
		t.Fatalf("unexpected location %q", location)
	}
	data, err := os.ReadFile(location)
	if err != nil {
		t.Fatalf("read feed: %v", err)
	}
	if string(data) != "[{}]\n" {
		t.Fatalf("unexpected feed contents %q", data)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(matches) != 0 {
		t.Fatalf("expected temp files cleaned up, found %v", matches)
	}
}

func TestFileSinkRespectsLock(t *testing.T) {
	dir := t.TempDir()
	sink := publish.NewFileSink(dir)
	lock := flock.New(sink.Path("series") + ".lock")
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("expected to take lock, ok=%v err=%v", ok, err)
	}
	t.Cleanup(func() { _ = lock.Unlock() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sink.Publish(ctx, "series", []byte("[]")); err == nil {
		t.Fatal("expected publish to fail while lock is held")
	}
}

func TestS3SinkPutsObject(t *testing.T) {
	putter := &fakePutter{}
	sink := publish.NewS3SinkWithClient(putter, "feeds-bucket", "/lists/")

	location, err := sink.Publish(context.Background(), "movies", []byte(`[]`))
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if location != "s3://feeds-bucket/lists/movies.json" {
		t.Fatalf("unexpected location %q", location)
	}
	if len(putter.inputs) != 1 {
		t.Fatalf("expected one upload, got %d", len(putter.inputs))
	}
	in := putter.inputs[0]
	if aws.ToString(in.Bucket) != "feeds-bucket" || aws.ToString(in.Key) != "lists/movies.json" || aws.ToString(in.ContentType) != "application/json" {
		t.Fatalf("unexpected input: bucket=%q key=%q type=%q", aws.ToString(in.Bucket), aws.ToString(in.Key), aws.ToString(in.ContentType))
	}
	if putter.bodies[0] != "[]" {
		t.Fatalf("unexpected body %q", putter.bodies[0])
	}
}

func TestFanoutContinuesAfterFailure(t *testing.T) {
	failing := publish.NewS3SinkWithClient(&fakePutter{err: errors.New("access denied")}, "b", "")
	file := publish.NewFileSink(t.TempDir())

	locations, err := publish.Fanout{failing, file}.Publish(context.Background(), "movies", []byte("[]"))
	if err == nil {
		t.Fatal("expected joined error from failing sink")
	}
	if len(locations) != 1 || locations[0] != file.Path("movies") {
		t.Fatalf("expected file sink to still publish, got %v", locations)
	}
}
