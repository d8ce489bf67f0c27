package validators

import "go.mongodb.org/mongo-driver/bson"

var IntentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"customer_id",
			"host_id",
			"listing_id",
			"booking_type",
			"start_date",
			"end_date",
			"state",
			"created_at",
			"expires_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
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

			"state": bson.M{
				"enum": []string{"active", "confirmed", "cancelled", "expired"},
			},

			"extension_count": bson.M{
				"bsonType": "int",
				"minimum":  0,
			},

			"pricing": bson.M{
				"bsonType": "object",
				"properties": bson.M{
					"total_price": bson.M{
						"bsonType":         "double",
						"exclusiveMinimum": true,
						"minimum":          0,
					},
					"payment_method": bson.M{
						"enum": []string{"card", "transfer", "cash"},
					},
					"payment_type": bson.M{
						"enum": []string{"full", "deposit"},
					},
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},

			"expires_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
