package services

import (
	"go.mongodb.org/mongo-driver/bson"

	"omnichannel/inquiries/internal/models"
)

// SortQuery returns the queue ordering for a sort mechanism. Both the claim
// (FindNextAndLock) and the position lookup (GetCurrentSortedQueue) sort with
// it, so a position always equals the rank the claim would pick in.
// Unknown mechanisms order by timestamp.
func SortQuery(mechanism models.SortMechanism) bson.D {
	switch mechanism {
	case models.SortByPriority:
		return bson.D{
			{Key: "priorityWeight", Value: 1},
			{Key: "ts", Value: 1},
		}
	case models.SortBySLAs:
		return bson.D{
			{Key: "estimatedWaitingTimeQueue", Value: 1},
			{Key: "ts", Value: 1},
		}
	default:
		return bson.D{
			{Key: "ts", Value: 1},
		}
	}
}
