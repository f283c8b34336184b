package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"booking_number",
			"kind",
			"resource_id",
			"owner_id",
			"check_in",
			"check_out",
			"number_of_guests",
			"total_price",
			"paid_amount",
			"booking_type",
			"status",
			"payment_status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"booking_number": bson.M{
				"bsonType": "string",
				"pattern":  "^(RB|BH|RT)-[0-9]+-[0-9]{4}$",
			},

			"kind": bson.M{
				"enum": []string{"room", "hall", "table"},
			},

			"resource_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"owner_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"check_in": bson.M{
				"bsonType": "date",
			},

			"check_out": bson.M{
				"bsonType": "date",
			},

			"time_slot": bson.M{
				"enum": []string{"breakfast", "lunch", "dinner"},
			},

			"number_of_guests": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
				"maximum":  1000,
			},

			"total_price": bson.M{
				"bsonType": "long",
				"minimum":  0,
			},

			"paid_amount": bson.M{
				"bsonType": "long",
				"minimum":  0,
			},

			"booking_type": bson.M{
				"enum": []string{"full", "partial"},
			},

			"status": bson.M{
				"enum": []string{"pending", "confirmed", "completed", "cancelled", "no-show"},
			},

			"payment_status": bson.M{
				"enum": []string{"pending", "partial", "completed", "failed", "refunded"},
			},

			"special_requests": bson.M{
				"bsonType":  "string",
				"maxLength": 500,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
