package models

import "strings"

// UserDefinedBrickDataType distinguishes the parts of a user-defined brick.
type UserDefinedBrickDataType string

const (
	// UserDefinedBrickInput is a parameter slot.
	UserDefinedBrickInput UserDefinedBrickDataType = "INPUT"
	// UserDefinedBrickLabel is fixed text.
	UserDefinedBrickLabel UserDefinedBrickDataType = "LABEL"
)

// UserDefinedBrickData is one input or label of a user-defined brick.
type UserDefinedBrickData struct {
	Type UserDefinedBrickDataType `json:"type"`
	Name string                   `json:"name"`
}

// IsInput reports whether d is a parameter slot.
func (d UserDefinedBrickData) IsInput() bool {
	return d.Type == UserDefinedBrickInput
}

// IsLabel reports whether d is fixed text.
func (d UserDefinedBrickData) IsLabel() bool {
	return d.Type == UserDefinedBrickLabel
}

// Brick is a unit of program logic. UserDefined is only set for
// user-defined bricks.
type Brick struct {
	Kind        string                 `json:"kind"`
	UserDefined []UserDefinedBrickData `json:"userDefined,omitempty"`
}

// Inputs returns the names of the brick's input slots in order.
func (b *Brick) Inputs() []string {
	var names []string
	for _, d := range b.UserDefined {
		if d.IsInput() {
			names = append(names, d.Name)
		}
	}
	return names
}

// Resource is a device or service a brick needs while the stage runs.
type Resource string

const (
	// ResourceLegoNXT is a LEGO Mindstorms NXT robot paired over Bluetooth.
	ResourceLegoNXT Resource = "BLUETOOTH_LEGO_NXT"
	// ResourceLegoEV3 is a LEGO Mindstorms EV3 robot paired over Bluetooth.
	ResourceLegoEV3 Resource = "BLUETOOTH_LEGO_EV3"
)

// resourcesByKindPrefix maps brick kind prefixes to the resource bricks of
// that family need.
var resourcesByKindPrefix = []struct {
	prefix   string
	resource Resource
}{
	{"LegoNxt", ResourceLegoNXT},
	{"LegoEv3", ResourceLegoEV3},
}

// RequiredResources returns the resources b needs to run.
func (b *Brick) RequiredResources() []Resource {
	var resources []Resource
	for _, r := range resourcesByKindPrefix {
		if strings.HasPrefix(b.Kind, r.prefix) {
			resources = append(resources, r.resource)
		}
	}
	return resources
}

// ResourceSet is a set of required resources.
type ResourceSet map[Resource]struct{}

// Contains reports whether r is in the set.
func (s ResourceSet) Contains(r Resource) bool {
	_, ok := s[r]
	return ok
}

// RequiredResources collects the resources needed by every brick of every
// sprite in the project.
func (p *Project) RequiredResources() ResourceSet {
	set := make(ResourceSet)
	for _, scene := range p.Scenes {
		for _, sprite := range scene.Sprites {
			for _, b := range sprite.Bricks {
				for _, r := range b.RequiredResources() {
					set[r] = struct{}{}
				}
			}
		}
	}
	return set
}
