package settings

import "strings"

// Category is one configurable wearable sensor alert.
type Category string

const (
	HAVLow     Category = "HAV_LOW"
	HAVMedium  Category = "HAV_MEDIUM"
	HAVHigh    Category = "HAV_HIGH"
	HAVExtreme Category = "HAV_EXTREME"

	NoiseLow     Category = "NOISE_LOW"
	NoiseMedium  Category = "NOISE_MEDIUM"
	NoiseHigh    Category = "NOISE_HIGH"
	NoiseExtreme Category = "NOISE_EXTREME"

	PPESmall  Category = "PPE_SMALL"
	PPEMedium Category = "PPE_MEDIUM"
	PPELarge  Category = "PPE_LARGE"

	AccessSmall  Category = "ACCESS_SMALL"
	AccessMedium Category = "ACCESS_MEDIUM"
	AccessLarge  Category = "ACCESS_LARGE"

	MachinerySmall  Category = "MACHINERY_SMALL"
	MachineryMedium Category = "MACHINERY_MEDIUM"
	MachineryLarge  Category = "MACHINERY_LARGE"
)

// Categories lists every category in wire order.
var Categories = []Category{
	HAVLow, HAVMedium, HAVHigh, HAVExtreme,
	NoiseLow, NoiseMedium, NoiseHigh, NoiseExtreme,
	PPESmall, PPEMedium, PPELarge,
	AccessSmall, AccessMedium, AccessLarge,
	MachinerySmall, MachineryMedium, MachineryLarge,
}

// ParseCategory accepts any case and surrounding whitespace.
func ParseCategory(value string) (Category, bool) {
	candidate := Category(strings.ToUpper(strings.TrimSpace(value)))
	for _, c := range Categories {
		if c == candidate {
			return c, true
		}
	}
	return "", false
}

// beaconDescriptors maps zone categories to the beacon type descriptor whose
// allow-list exempts a wearable from that alert.
var beaconDescriptors = map[Category]string{
	PPESmall:        "SmallPPE",
	PPEMedium:       "MediumPPE",
	PPELarge:        "LargePPE",
	AccessSmall:     "SmallUnauthorised",
	AccessMedium:    "MediumUnauthorised",
	AccessLarge:     "LargeUnauthorised",
	MachinerySmall:  "SmallMachine",
	MachineryMedium: "MediumMachine",
	MachineryLarge:  "LargeMachine",
}

// BeaconDescriptor returns the beacon type descriptor for zone categories.
func (c Category) BeaconDescriptor() (string, bool) {
	d, ok := beaconDescriptors[c]
	return d, ok
}
