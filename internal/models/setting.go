package models

// Setting keys read by the queue. Values live in the `settings` collection.
const (
	SettingSortMechanism       = "Omnichannel_sorting_mechanism"
	SettingDispatchDepartments = "Omnichannel_dispatch_departments"
)

// Setting represents a document in the settings collection.
type Setting struct {
	Key    string      `bson:"key" json:"key"`
	Value  interface{} `bson:"value" json:"value"`
	Public bool        `bson:"public" json:"public"`
}
