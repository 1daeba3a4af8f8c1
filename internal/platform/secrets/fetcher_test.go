package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestResolveCachesRemoteSecret(t *testing.T) {
	ctx := context.Background()

	client := newFakeSecretClient()
	resource := "projects/test/secrets/builder-public-key/versions/latest"
	client.values[resource] = "remote-key"

	fetcher, err := NewFetcher(ctx,
		WithSecretManagerClient(client),
		WithProject("test"),
		WithLogger(zap.NewNop()),
	)
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}
	defer fetcher.Close()

	for i := 0; i < 2; i++ {
		got, err := fetcher.ResolveSecret(ctx, "secret://builder-public-key")
		if err != nil {
			t.Fatalf("Resolve call %d returned error: %v", i, err)
		}
		if got != "remote-key" {
			t.Fatalf("expected remote-key, got %s", got)
		}
	}

	if calls := client.callCount(resource); calls != 1 {
		t.Fatalf("expected remote fetch once, got %d", calls)
	}
}

func TestResolveHonoursVersionAndProjectOverride(t *testing.T) {
	ctx := context.Background()

	client := newFakeSecretClient()
	resource := "projects/other/secrets/revalidate-token/versions/3"
	client.values[resource] = "v3"

	fetcher, err := NewFetcher(ctx, WithSecretManagerClient(client), WithProject("test"))
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}

	got, err := fetcher.Resolve(ctx, "secret://revalidate-token?version=3&project=other")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != "v3" {
		t.Fatalf("expected v3, got %s", got)
	}
}

func TestResolveFallsBackWhenSecretManagerUnavailable(t *testing.T) {
	ctx := context.Background()

	dir := t.TempDir()
	fallbackPath := filepath.Join(dir, ".secrets.local")
	if err := os.WriteFile(fallbackPath, []byte("# local secrets\nsecret://builder-public-key=local-key\nsm://revalidate-token=tok\n"), 0o600); err != nil {
		t.Fatalf("failed writing fallback file: %v", err)
	}

	client := newFakeSecretClient()
	client.errors["projects/test/secrets/builder-public-key/versions/latest"] = status.Error(codes.PermissionDenied, "denied")

	fetcher, err := NewFetcher(ctx,
		WithSecretManagerClient(client),
		WithProject("test"),
		WithFallbackFile(fallbackPath),
	)
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}

	got, err := fetcher.Resolve(ctx, "secret://builder-public-key")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != "local-key" {
		t.Fatalf("expected local-key, got %s", got)
	}

	got, err = fetcher.Resolve(ctx, "secret://revalidate-token")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != "tok" {
		t.Fatalf("expected tok, got %s", got)
	}
}

func TestResolveReturnsNonFallbackErrors(t *testing.T) {
	ctx := context.Background()

	client := newFakeSecretClient()
	client.errors["projects/test/secrets/key/versions/latest"] = status.Error(codes.InvalidArgument, "bad")

	fetcher, err := NewFetcher(ctx, WithSecretManagerClient(client), WithProject("test"), WithFallbackFile(""))
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}

	if _, err := fetcher.Resolve(ctx, "secret://key"); status.Code(errors.Unwrap(err)) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument error, got %v", err)
	}
}

func TestNewFetcherFallbackModeWhenClientUnavailable(t *testing.T) {
	ctx := context.Background()

	original := secretManagerClientFactory
	secretManagerClientFactory = func(context.Context, ...option.ClientOption) (secretManagerClient, error) {
		return nil, errors.New("no credentials")
	}
	t.Cleanup(func() { secretManagerClientFactory = original })

	dir := t.TempDir()
	fallbackPath := filepath.Join(dir, ".secrets.local")
	if err := os.WriteFile(fallbackPath, []byte("secret://key=from-file\n"), 0o600); err != nil {
		t.Fatalf("failed writing fallback file: %v", err)
	}

	fetcher, err := NewFetcher(ctx, WithProject("test"), WithFallbackFile(fallbackPath))
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}
	if err := fetcher.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	got, err := fetcher.Resolve(ctx, "secret://key")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != "from-file" {
		t.Fatalf("expected from-file, got %s", got)
	}

	if _, err := fetcher.Resolve(ctx, "secret://missing"); err == nil {
		t.Fatal("expected error for unknown secret")
	}
}

func TestParseReferenceRejectsInvalidInput(t *testing.T) {
	for _, ref := range []string{"", "https://example.com/key", "secret://"} {
		if _, err := parseReference(ref); err == nil {
			t.Errorf("expected error for %q", ref)
		}
	}
}

type fakeSecretClient struct {
	mu     sync.Mutex
	values map[string]string
	errors map[string]error
	calls  map[string]int
}

func newFakeSecretClient() *fakeSecretClient {
	return &fakeSecretClient{
		values: map[string]string{},
		errors: map[string]error{},
		calls:  map[string]int{},
	}
}

func (f *fakeSecretClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[req.GetName()]++
	if err, ok := f.errors[req.GetName()]; ok {
		return nil, err
	}
	value, ok := f.values[req.GetName()]
	if !ok {
		return nil, status.Error(codes.NotFound, "not found")
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Name:    req.GetName(),
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	}, nil
}

func (f *fakeSecretClient) Close() error { return nil }

func (f *fakeSecretClient) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}
