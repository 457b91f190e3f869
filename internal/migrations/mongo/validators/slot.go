package validators

import (
	"parkslot/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
)

var vehicleTypeSchema = bson.M{
	"bsonType": "string",
	"enum":     model.VehicleTypes,
}

var SlotValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"type",
			"number",
			"created_at",
		},
		"additionalProperties": false,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"type": vehicleTypeSchema,

			"number": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 20,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

// SlotLockValidator keeps lock documents keyed by the slot they guard.
var SlotLockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "slot_id", "owner", "expires_at"},
		"properties": bson.M{
			"slot_id":    bson.M{"bsonType": "string"},
			"owner":      bson.M{"bsonType": "string"},
			"expires_at": bson.M{"bsonType": "date"},
		},
	},
}
