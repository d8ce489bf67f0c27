package validators

import "go.mongodb.org/mongo-driver/bson"

var LockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"intent_id",
			"listing_id",
			"customer_id",
			"expires_at",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			// "<listing_id>:<YYYY-MM-DD>", one document per locked night.
			"_id": bson.M{
				"bsonType": "string",
				"pattern":  `:\d{4}-\d{2}-\d{2}$`,
			},

			"intent_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"listing_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"customer_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"expires_at": bson.M{
				"bsonType": "date",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
