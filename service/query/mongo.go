package query

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/atelierhq/marketapi/base/ctx"
	"github.com/atelierhq/marketapi/domain"
)

var (
	// ErrNotFound is returned when no document matches the selector
	ErrNotFound = fmt.Errorf("document not found")

	// ErrDuplicateKey is returned when an insert violates a unique index
	ErrDuplicateKey = fmt.Errorf("duplicate key")
)

// Mongo wraps the subset of the mongo driver the repositories use. Driver
// errors are mapped onto the sentinels above, everything else passes through.
type Mongo interface {
	// Insert adds a new document to the table
	Insert(context ctx.Ctx, table domain.Table, insert interface{}) error

	// FindOne decodes the first document matching query into result
	FindOne(context ctx.Ctx, table domain.Table, query, result interface{}) error

	// Count returns the number of documents matching selector
	// https://docs.mongodb.com/manual/reference/method/db.collection.countDocuments
	Count(context ctx.Ctx, table domain.Table, selector interface{}) (n int, err error)

	// SearchNSorts pages through documents matching query ordered by
	// sortFields, a "-" prefix sorts that field descending. Field order
	// matters for compound sorts.
	// https://docs.mongodb.com/manual/tutorial/sort-results-with-indexes/
	SearchNSorts(context ctx.Ctx, table domain.Table, offset, limit int, sortFields []string, query, results interface{}) error

	// Patch applies update as a $set to the first document matching
	// selector. Returns ErrNotFound if nothing matches.
	Patch(context ctx.Ctx, table domain.Table, selector, update interface{}) error

	// CustomPatch applies a caller supplied update document, for updates
	// needing operators other than $set. Returns ErrNotFound if nothing
	// matches.
	CustomPatch(context ctx.Ctx, table domain.Table, selector, update bson.M) error

	// Increment adds inc to field and decodes the updated document into
	// result. Returns ErrNotFound if the document does not exist.
	Increment(context ctx.Ctx, table domain.Table, selector, result interface{}, field string, inc interface{}) error
}
