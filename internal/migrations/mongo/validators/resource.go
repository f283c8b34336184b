package validators

import "go.mongodb.org/mongo-driver/bson"

var ResourceValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"kind", "name", "capacity", "rate", "status", "is_active"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":         bson.M{"bsonType": "objectId"},
			"kind":        bson.M{"enum": []string{"room", "hall", "table"}},
			"name":        bson.M{"bsonType": "string", "minLength": 1, "maxLength": 100},
			"number":      bson.M{"bsonType": "string"},
			"description": bson.M{"bsonType": "string"},
			"capacity":    bson.M{"bsonType": []string{"int", "long"}, "minimum": 1},
			"rate":        bson.M{"bsonType": "long", "minimum": 1},
			"status":      bson.M{"enum": []string{"available", "maintenance", "out_of_service"}},
			"is_active":   bson.M{"bsonType": "bool"},
			"created_at":  bson.M{"bsonType": "date"},
		},
	},
}
