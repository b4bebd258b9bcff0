package sync

// Mappable provides a common interface for types that hold Sailthru vars.
// This enables shared attribute mapping logic.
type Mappable interface {
	GetFields() map[string]interface{}
	SetField(key string, value interface{})
	DeleteField(key string)
}

// MapAttributes maps flattened capture values to their Sailthru vars on the destination.
// Attributes missing from the flattened record are set to nil.
func MapAttributes(specs []AttributeSpec, flattened map[string]interface{}, destination Mappable) {
	for _, spec := range specs {
		if value, exists := flattened[spec.CapturePath]; exists {
			destination.SetField(spec.CampaignVar, value)
		} else {
			destination.SetField(spec.CampaignVar, nil)
		}
	}
	// identity attributes are sent as keys
	destination.DeleteField(EmailAttribute)
	destination.DeleteField(IDAttribute)
}
