package mongoclient

import (
	"reflect"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
)

// MakeBsonM flattens a patch struct into a bson.M keyed by bson tags.
// Nil pointers and zero values are left out, so a $set built from the
// result only touches fields the caller filled in.
func MakeBsonM(patchable interface{}) (bson.M, error) {
	val := reflect.ValueOf(patchable)
	if val.Kind() == reflect.Ptr && val.Elem().Kind() == reflect.Struct {
		val = val.Elem()
	}

	set := bson.M{}
	for i := 0; i < val.NumField(); i++ {
		tag, err := bsoncodec.DefaultStructTagParser(val.Type().Field(i))
		if err != nil {
			return nil, err
		}

		field := val.Field(i)
		if tag.Skip || !field.CanInterface() {
			continue
		}
		if tag.OmitEmpty && field.IsZero() {
			continue
		}

		if field.Kind() == reflect.Ptr && !field.IsNil() {
			set[tag.Name] = field.Elem().Interface()
		} else if !field.IsZero() {
			set[tag.Name] = field.Interface()
		}
	}

	return set, nil
}
