package dynamo

// Attribute names on the verification table.
const (
	fieldPK               = "pk"
	fieldSK               = "sk"
	fieldID               = "id"
	fieldPhone            = "phone"
	fieldUsername         = "username"
	fieldVerificationCode = "verification_code"
	fieldCreatedAt        = "created_at"
	fieldUpdatedAt        = "updated_at"
)

// Partition key prefixes. Record partitions hold every row for one username,
// sorted by creation time; id partitions hold a single pointer back to a record.
const (
	prefixUser = "USER#"
	prefixID   = "ID#"
)

func userPK(username string) string { return prefixUser + username }

func idPK(id string) string { return prefixID + id }
