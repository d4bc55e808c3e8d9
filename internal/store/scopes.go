package store

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/repoql/pkg/query"
)

// popularParams is the parameter bag for the "popular" scope.
type popularParams struct {
	MinViews int `mapstructure:"min_views"`
}

// authorParams is the parameter bag for the "author" scope.
type authorParams struct {
	Name string `mapstructure:"name"`
}

// Scopes returns the named scopes available on the demo posts table.
func Scopes() map[string]query.ScopeFunc {
	return map[string]query.ScopeFunc{
		"published": func(b *query.Builder, _ map[string]any) error {
			b.WhereEq("status", "published")
			return nil
		},
		"popular": func(b *query.Builder, params map[string]any) error {
			p := popularParams{MinViews: 100}
			if err := mapstructure.Decode(params, &p); err != nil {
				return fmt.Errorf("popular scope params: %w", err)
			}
			b.Where("views", query.OpGte, p.MinViews)
			return nil
		},
		"author": func(b *query.Builder, params map[string]any) error {
			var p authorParams
			if err := mapstructure.Decode(params, &p); err != nil {
				return fmt.Errorf("author scope params: %w", err)
			}
			if p.Name == "" {
				return fmt.Errorf("author scope requires a name param")
			}
			b.WhereEq("author", p.Name)
			return nil
		},
	}
}
