package utils

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GenerateETag builds a weak validator from a document id and its last update.
func GenerateETag(id primitive.ObjectID, updatedAt time.Time) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s:%d", id.Hex(), updatedAt.UnixNano())))
	return `W/"` + hex.EncodeToString(sum[:8]) + `"`
}

// ListETag covers a whole list: the most recently updated entry plus the
// length, so removals change the tag as well.
func ListETag(count int, latestID primitive.ObjectID, latest time.Time) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%d:%s:%d", count, latestID.Hex(), latest.UnixNano())))
	return `W/"` + hex.EncodeToString(sum[:8]) + `"`
}
