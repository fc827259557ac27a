package audit

import "strings"

// BSON field names maintained by the audit layer
const (
	FieldID         = "_id"
	FieldCreatedAt  = "created_at"
	FieldCreatedBy  = "created_by"
	FieldUpdatedAt  = "updated_at"
	FieldUpdatedBy  = "updated_by"
	FieldDeletedAt  = "deleted_at"
	FieldDeletedBy  = "deleted_by"
	FieldRestoredBy = "restored_by"
	FieldVersion    = "version"
)

// auditFields are excluded when deciding whether a persist changed the record
var auditFields = map[string]struct{}{
	FieldCreatedAt:  {},
	FieldCreatedBy:  {},
	FieldUpdatedAt:  {},
	FieldUpdatedBy:  {},
	FieldDeletedAt:  {},
	FieldDeletedBy:  {},
	FieldRestoredBy: {},
	FieldVersion:    {},
}

// managedFields are owned by the layer; callers' values for them are dropped
// from update payloads.
var managedFields = []string{FieldCreatedAt, FieldCreatedBy, FieldUpdatedAt, FieldVersion}

// deletionFields only change through delete and restore
var deletionFields = []string{FieldDeletedAt, FieldDeletedBy, FieldRestoredBy}

func isAuditField(key string) bool {
	_, ok := auditFields[key]
	return ok
}

// touches reports whether an update path addresses field or one of its children
func touches(path, field string) bool {
	return path == field || strings.HasPrefix(path, field+".")
}
