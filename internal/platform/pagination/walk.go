package pagination

import (
	"context"
	"errors"
	"fmt"

	"github.com/VASILIYKAS/seller-apis/internal/domain"
)

// DefaultMaxPages bounds a walk when Options.MaxPages is not set.
const DefaultMaxPages = 1000

var (
	ErrRepeatedToken = errors.New("pagination: repeated page token")
	ErrPageLimit     = errors.New("pagination: page limit exceeded")
)

// PageFunc fetches the page identified by token. The first page is requested with an empty token.
type PageFunc[T any] func(ctx context.Context, token string) (domain.CursorPage[T], error)

// Options control how Walk iterates.
type Options struct {
	MaxPages int
}

// Walk requests pages until the continuation token is empty, the reported total has been
// collected, or a page comes back empty. visit is called once per non-empty page.
// Fetch and visit errors are returned as-is.
func Walk[T any](ctx context.Context, fetch PageFunc[T], opts Options, visit func(items []T) error) error {
	if fetch == nil {
		return errors.New("pagination: fetch func is required")
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	seen := map[string]struct{}{}
	token := ""
	collected := 0
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if page > maxPages {
			return fmt.Errorf("%w: stopped after %d pages", ErrPageLimit, maxPages)
		}

		result, err := fetch(ctx, token)
		if err != nil {
			return err
		}
		if len(result.Items) == 0 {
			return nil
		}
		if visit != nil {
			if err := visit(result.Items); err != nil {
				return err
			}
		}
		collected += len(result.Items)

		if result.NextPageToken == "" {
			return nil
		}
		if result.Total > 0 && collected >= result.Total {
			return nil
		}
		if _, dup := seen[result.NextPageToken]; dup || result.NextPageToken == token {
			return fmt.Errorf("%w: %q", ErrRepeatedToken, result.NextPageToken)
		}
		seen[result.NextPageToken] = struct{}{}
		token = result.NextPageToken
	}
}

// Collect walks every page and returns the concatenated items.
func Collect[T any](ctx context.Context, fetch PageFunc[T], opts Options) ([]T, error) {
	var out []T
	err := Walk(ctx, fetch, opts, func(items []T) error {
		out = append(out, items...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
