package pagination

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/VASILIYKAS/seller-apis/internal/domain"
)

type stubPages struct {
	pages  map[string]domain.CursorPage[string]
	tokens []string
}

func (s *stubPages) fetch(_ context.Context, token string) (domain.CursorPage[string], error) {
	s.tokens = append(s.tokens, token)
	return s.pages[token], nil
}

func TestCollectFollowsTokensUntilEmpty(t *testing.T) {
	stub := &stubPages{pages: map[string]domain.CursorPage[string]{
		"":   {Items: []string{"a", "b"}, NextPageToken: "p2"},
		"p2": {Items: []string{"c"}, NextPageToken: "p3"},
		"p3": {Items: []string{"d"}},
	}}

	items, err := Collect(context.Background(), stub.fetch, Options{})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if !reflect.DeepEqual(items, []string{"a", "b", "c", "d"}) {
		t.Fatalf("unexpected items %v", items)
	}
	if !reflect.DeepEqual(stub.tokens, []string{"", "p2", "p3"}) {
		t.Fatalf("unexpected tokens %v", stub.tokens)
	}
}

func TestCollectStopsWhenTotalReached(t *testing.T) {
	stub := &stubPages{pages: map[string]domain.CursorPage[string]{
		"":  {Items: []string{"a", "b"}, NextPageToken: "b", Total: 3},
		"b": {Items: []string{"c"}, NextPageToken: "c", Total: 3},
		"c": {Items: []string{"unexpected"}},
	}}

	items, err := Collect(context.Background(), stub.fetch, Options{})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(items) != 3 || len(stub.tokens) != 2 {
		t.Fatalf("expected to stop at total, got items=%v tokens=%v", items, stub.tokens)
	}
}

func TestCollectStopsOnEmptyPage(t *testing.T) {
	stub := &stubPages{pages: map[string]domain.CursorPage[string]{
		"":   {Items: []string{"a"}, NextPageToken: "p2"},
		"p2": {NextPageToken: "p3"},
	}}

	items, err := Collect(context.Background(), stub.fetch, Options{})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if !reflect.DeepEqual(items, []string{"a"}) {
		t.Fatalf("unexpected items %v", items)
	}
}

func TestCollectRejectsRepeatedToken(t *testing.T) {
	stub := &stubPages{pages: map[string]domain.CursorPage[string]{
		"":   {Items: []string{"a"}, NextPageToken: "p2"},
		"p2": {Items: []string{"b"}, NextPageToken: "p2"},
	}}

	_, err := Collect(context.Background(), stub.fetch, Options{})
	if !errors.Is(err, ErrRepeatedToken) {
		t.Fatalf("expected repeated token error, got %v", err)
	}
}

func TestCollectEnforcesPageLimit(t *testing.T) {
	calls := 0
	fetch := func(_ context.Context, token string) (domain.CursorPage[string], error) {
		calls++
		return domain.CursorPage[string]{Items: []string{token}, NextPageToken: token + "x"}, nil
	}

	_, err := Collect(context.Background(), fetch, Options{MaxPages: 3})
	if !errors.Is(err, ErrPageLimit) {
		t.Fatalf("expected page limit error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 fetches, got %d", calls)
	}
}

func TestCollectPropagatesFetchError(t *testing.T) {
	boom := errors.New("boom")
	fetch := func(context.Context, string) (domain.CursorPage[string], error) {
		return domain.CursorPage[string]{}, boom
	}
	if _, err := Collect(context.Background(), fetch, Options{}); !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
}

func TestWalkHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fetch := func(context.Context, string) (domain.CursorPage[string], error) {
		t.Fatalf("fetch must not be called")
		return domain.CursorPage[string]{}, nil
	}
	if err := Walk(ctx, fetch, Options{}, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}
