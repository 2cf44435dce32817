package utils

import (
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IDString renders a stored identifier in the string form the engine passes
// around. Integer ids from auto-increment columns and Mongo ObjectIDs are
// both accepted.
func IDString(v interface{}) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case []byte:
		return string(id)
	case primitive.ObjectID:
		return id.Hex()
	case int:
		return strconv.Itoa(id)
	case int32:
		return strconv.FormatInt(int64(id), 10)
	case int64:
		return strconv.FormatInt(id, 10)
	default:
		return fmt.Sprintf("%v", id)
	}
}

// IDValues expands ids into every stored form they could match: the
// string itself and, for 24-digit hex strings, the ObjectID.
func IDValues(ids []string) []interface{} {
	out := make([]interface{}, 0, len(ids)*2)
	for _, id := range ids {
		out = append(out, id)
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			out = append(out, oid)
		}
	}
	return out
}

// OptionalString converts a nullable text value. Missing and null values
// give nil; byte slices are decoded as text.
func OptionalString(v interface{}) *string {
	switch s := v.(type) {
	case string:
		return &s
	case []byte:
		str := string(s)
		return &str
	case primitive.Null, primitive.Undefined, nil:
		return nil
	default:
		str := fmt.Sprintf("%v", s)
		return &str
	}
}
