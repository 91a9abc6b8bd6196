package dynamo

// DynamoDB attribute names used in keys, filters and update expressions.
const (
	fieldUserID      = "user_id"
	fieldUsername    = "username"
	fieldEmail       = "email"
	fieldPhone       = "phone"
	fieldUpdatedAt   = "updated_at"
	fieldIdentifier  = "identifier"
	fieldMethod      = "method"
	fieldExpiresAt   = "expires_at"
	fieldExpiresAtMs = "expires_at_ms"
)
