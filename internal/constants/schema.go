package constants

// Schema identifies the serialized shape of a generated dataset.
type Schema string

const (
	// SchemaFlat is the normalized shape: a global post table with integer ids
	// referenced from each user's authored_post_ids.
	SchemaFlat Schema = "flat"

	// SchemaNested embeds each user's posts under the user, with composite
	// "{user_id}_{index}" post ids.
	SchemaNested Schema = "nested"
)

// Valid returns true if the schema is a recognized value.
func (s Schema) Valid() bool {
	switch s {
	case SchemaFlat, SchemaNested:
		return true
	}
	return false
}

// String returns the string representation of the schema.
func (s Schema) String() string {
	return string(s)
}
