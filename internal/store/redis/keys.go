package redis

// Key layout. Every kind of key has its own fixed segment and the id is
// always the last segment, so no id can address another document's key:
//
//	engage:{collection}:doc:{id}          hash with scalar fields
//	engage:{collection}:set:{field}:{id}  one set per set-valued field
//	engage:{collection}:ids               registry of every document ID
const (
	// KeyPrefix namespaces every key written by the store
	KeyPrefix = "engage:"

	docSegment   = ":doc:"
	setSegment   = ":set:"
	registryName = ":ids"
)

// DocKey returns the hash key holding a document's scalar fields.
// The hash always carries an "id" field so an empty user still exists.
func DocKey(collection, id string) string {
	return KeyPrefix + collection + docSegment + id
}

// SetKey returns the key of a set-valued field of a document
func SetKey(collection, id, field string) string {
	return KeyPrefix + collection + setSegment + field + ":" + id
}

// RegistryKey returns the key for the set of all document IDs of a collection
func RegistryKey(collection string) string {
	return KeyPrefix + collection + registryName
}
