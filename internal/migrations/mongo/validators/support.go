package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingLockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "expires_at"},
		"properties": bson.M{
			"_id":        bson.M{"bsonType": "string"},
			"expires_at": bson.M{"bsonType": "date"},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}

var PaymentEventValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"_id", "event", "deliveries", "received_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":          bson.M{"bsonType": "string", "minLength": 1},
			"event":        bson.M{"bsonType": "string"},
			"payment_id":   bson.M{"bsonType": "string"},
			"booking_id":   bson.M{"bsonType": "string"},
			"applied":      bson.M{"bsonType": "bool"},
			"processed":    bson.M{"bsonType": "bool"},
			"deliveries":   bson.M{"bsonType": []string{"int", "long"}, "minimum": 1},
			"received_at":  bson.M{"bsonType": "date"},
			"last_seen_at": bson.M{"bsonType": "date"},
		},
	},
}

// ResourceClaimValidator covers the per-resource counter booking creation
// increments inside its transaction.
var ResourceClaimValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "seq"},
		"properties": bson.M{
			"_id":        bson.M{"bsonType": "string"},
			"seq":        bson.M{"bsonType": []string{"int", "long"}},
			"updated_at": bson.M{"bsonType": "date"},
		},
	},
}
