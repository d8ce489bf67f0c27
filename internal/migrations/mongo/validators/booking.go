package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"intent_id",
			"customer_id",
			"host_id",
			"listing_id",
			"booking_type",
			"start_date",
			"end_date",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"intent_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"customer_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"host_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"listing_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"booking_type": bson.M{
				"enum": []string{"entire_place", "room", "shared_room"},
			},

			"start_date": bson.M{
				"bsonType": "date",
			},

			"end_date": bson.M{
				"bsonType": "date",
			},

			"transaction_id": bson.M{
				"bsonType": "string",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
