package query

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/atelierhq/marketapi/base/ctx"
)

func TestGetSortOption(t *testing.T) {
	req := require.New(t)
	im := &impl{}
	mockCtx := ctx.Background()

	tests := []struct {
		name string
		in   []string
		out  bson.D
	}{
		{
			name: "ascending",
			in:   []string{"createdAt"},
			out:  bson.D{{Key: "createdAt", Value: 1}},
		},
		{
			name: "descending",
			in:   []string{"-publishedAt"},
			out:  bson.D{{Key: "publishedAt", Value: -1}},
		},
		{
			name: "compound keeps order",
			in:   []string{"-salesCount", "createdAt", "_id"},
			out: bson.D{
				{Key: "salesCount", Value: -1},
				{Key: "createdAt", Value: 1},
				{Key: "_id", Value: 1},
			},
		},
		{
			name: "empty fields are skipped",
			in:   []string{"", "viewCount"},
			out:  bson.D{{Key: "viewCount", Value: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req.Equal(tt.out, im.getSortOption(mockCtx, tt.in...))
		})
	}
}
