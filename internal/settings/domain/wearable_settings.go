package settings

import masterdata "safetyband-cloud/internal/masterdata/domain"

// SensorConfig is one sensor block of the settings reply. Flags are 0 or 1.
type SensorConfig struct {
	Enable           int `json:"enable"`
	IconDisplay      int `json:"icon_display"`
	VibrationAlert   int `json:"vibration_alert"`
	SoundAlert       int `json:"sound_alert"`
	TriggerCondition int `json:"trigger_condition"`
}

// WearableSettings is the JSON reply to a settings request.
type WearableSettings struct {
	DeviceID string `json:"device_id"`

	HapticLow     SensorConfig `json:"sensor_haptic_low"`
	HapticMedium  SensorConfig `json:"sensor_haptic_medium"`
	HapticHigh    SensorConfig `json:"sensor_haptic_high"`
	HapticExtreme SensorConfig `json:"sensor_haptic_extreme"`

	MIC SensorConfig `json:"sensor_MIC"`

	PPE1 SensorConfig `json:"sensor_PPE1"`
	PPE2 SensorConfig `json:"sensor_PPE2"`
	PPE3 SensorConfig `json:"sensor_PPE3"`

	Access1 SensorConfig `json:"sensor_access1"`
	Access2 SensorConfig `json:"sensor_access2"`
	Access3 SensorConfig `json:"sensor_access3"`

	Forklift1 SensorConfig `json:"sensor_forklift1"`
	Forklift2 SensorConfig `json:"sensor_forklift2"`
	Forklift3 SensorConfig `json:"sensor_forklift3"`
}

// Exemptions lists the beacon type descriptors whose alerts are disabled for a wearable.
type Exemptions map[string]bool

// ExemptionsFor returns the descriptors of every beacon type whose allow-list
// contains displayID.
func ExemptionsFor(displayID string, beaconTypes []masterdata.BeaconType) Exemptions {
	out := Exemptions{}
	for _, bt := range beaconTypes {
		if bt.Allows(displayID) {
			out[bt.Descriptor] = true
		}
	}
	return out
}

// Exempt reports whether alerts of category c are disabled.
func (e Exemptions) Exempt(c Category) bool {
	descriptor, ok := c.BeaconDescriptor()
	return ok && e[descriptor]
}

// Build maps resolved configurations onto the wire shape. An exemption forces
// enable to 0 for the matching zone sensor. The microphone block uses NOISE_LOW.
func Build(deviceID string, configs ConfigurationMap, exemptions Exemptions) WearableSettings {
	sensor := func(c Category) SensorConfig {
		cfg, ok := configs[c]
		if !ok {
			cfg = DefaultConfigurations().Get(c)
		}
		enable := flag(cfg.Enabled)
		if exemptions.Exempt(c) {
			enable = 0
		}
		return SensorConfig{
			Enable:           enable,
			IconDisplay:      flag(cfg.IconAlert),
			VibrationAlert:   flag(cfg.VibrationAlert),
			SoundAlert:       flag(cfg.SoundAlert),
			TriggerCondition: cfg.Threshold,
		}
	}

	return WearableSettings{
		DeviceID:      deviceID,
		HapticLow:     sensor(HAVLow),
		HapticMedium:  sensor(HAVMedium),
		HapticHigh:    sensor(HAVHigh),
		HapticExtreme: sensor(HAVExtreme),
		MIC:           sensor(NoiseLow),
		PPE1:          sensor(PPESmall),
		PPE2:          sensor(PPEMedium),
		PPE3:          sensor(PPELarge),
		Access1:       sensor(AccessSmall),
		Access2:       sensor(AccessMedium),
		Access3:       sensor(AccessLarge),
		Forklift1:     sensor(MachinerySmall),
		Forklift2:     sensor(MachineryMedium),
		Forklift3:     sensor(MachineryLarge),
	}
}

func flag(v bool) int {
	if v {
		return 1
	}
	return 0
}
