// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/grouphub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("groups", groupsSchema())
	ensure("payments", paymentsSchema())

	// Collections written inside transactions must exist beforehand on
	// older servers, so create them even without a validator.
	ensure("email_verifications", nil)
	ensure("audit_events", nil)
	for _, kind := range models.RecordKinds() {
		ensure(string(kind), recordsSchema())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func permissionEnum() bson.A {
	out := bson.A{}
	for _, p := range []models.Permission{
		models.PermAdmin, models.PermManageMembers, models.PermManageAnnouncements,
		models.PermManageEvents, models.PermManagePayments, models.PermUser,
	} {
		out = append(out, string(p))
	}
	return out
}

func statusEnum() bson.M {
	return bson.M{"enum": bson.A{models.MemberActive, models.MemberInactive}}
}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "password_hash", "full_name", "verified", "groups"},
			"properties": bson.M{
				"email":         nonBlank,
				"password_hash": nonBlank,
				"full_name":     nonBlank,
				"verified":      bson.M{"bsonType": "bool"},
				"current_group": bson.M{"bsonType": bson.A{"objectId", "null"}},
				"otp_attempts":  bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"groups": bson.M{
					"bsonType": "array",
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"group_id", "status", "permissions", "member_number"},
						"properties": bson.M{
							"group_id":      bson.M{"bsonType": "objectId"},
							"status":        statusEnum(),
							"permissions":   bson.M{"bsonType": "array", "items": bson.M{"enum": permissionEnum()}},
							"member_number": nonBlank,
						},
					},
				},
			},
		},
	}
}

func groupsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "join_code", "join_secret_hash", "abbreviation", "member_counter", "members"},
			"properties": bson.M{
				"name":             nonBlank,
				"join_code":        bson.M{"bsonType": "string", "pattern": "^[A-Z0-9]{6}$"},
				"join_secret_hash": nonBlank,
				"abbreviation":     nonBlank,
				"member_counter":   bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"members": bson.M{
					"bsonType": "array",
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"user_id", "member_number", "status", "permissions"},
						"properties": bson.M{
							"user_id":       bson.M{"bsonType": "objectId"},
							"member_number": nonBlank,
							"status":        statusEnum(),
							"permissions":   bson.M{"bsonType": "array", "items": bson.M{"enum": permissionEnum()}},
						},
					},
				},
			},
		},
	}
}

func paymentsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "title", "type", "amount", "members", "rev"},
			"properties": bson.M{
				"group_id": bson.M{"bsonType": "objectId"},
				"title":    nonBlank,
				"type":     bson.M{"enum": bson.A{string(models.PaymentRequired), string(models.PaymentContribution), string(models.PaymentDonation)}},
				"amount":   bson.M{"bsonType": "number", "minimum": 0},
				"rev":      bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"members": bson.M{
					"bsonType": "array",
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"user_id", "paid", "amount_paid"},
						"properties": bson.M{
							"user_id":     bson.M{"bsonType": "objectId"},
							"paid":        bson.M{"bsonType": "bool"},
							"amount_paid": bson.M{"bsonType": "number", "minimum": 0},
						},
					},
				},
			},
		},
	}
}

func recordsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "title", "title_ci"},
			"properties": bson.M{
				"group_id": bson.M{"bsonType": "objectId"},
				"title":    nonBlank,
				"title_ci": nonBlank,
			},
		},
	}
}
