package document

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ParseID converts an external identifier (24 hex characters) into an ObjectID.
func ParseID(id string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(id)
}

// FormatID renders an ObjectID as lowercase hex. The zero ID renders as "".
func FormatID(id primitive.ObjectID) string {
	if id.IsZero() {
		return ""
	}
	return id.Hex()
}
