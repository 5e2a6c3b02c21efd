package mongoclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/atelierhq/marketapi/base/ptr"
)

func TestMakeBsonM(t *testing.T) {
	type PatchableListing struct {
		Title       *string  `bson:"title,omitempty"`
		ViewCount   *int32   `bson:"viewCount,omitempty"`
		Description string   `bson:"description"`
		Tags        []string `bson:"tags"`
	}

	patchable := &PatchableListing{}
	patchable.Title = ptr.String("")
	patchable.ViewCount = ptr.Int32(12)
	patchable.Tags = []string{"floral"}

	updater, err := MakeBsonM(patchable)

	assert.NoError(t, err)
	assert.Equal(
		t,
		bson.M{
			"title":     "",
			"viewCount": int32(12),
			// field description is empty, so ignore
			"tags": []string{"floral"},
		},
		updater,
	)
}
