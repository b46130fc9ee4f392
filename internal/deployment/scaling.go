package deployment

import "fmt"

// ScalingGroupConfig describes the auto scaling group created when the user
// enables autoscaling.
type ScalingGroupConfig struct {
	MinSize            int
	MaxSize            int
	DesiredCapacity    int
	LaunchTemplateName string
	VPCZoneIdentifier  string
	AvailabilityZones  []string
}

// ScalingFieldOrder fixes the display order of scaling config fields.
var ScalingFieldOrder = []string{
	"MinSize", "MaxSize", "DesiredCapacity",
	"LaunchTemplateName", "VPCZoneIdentifier", "AvailabilityZones",
}

var scalingFields = map[string]func(*ScalingGroupConfig, any) error{
	"MinSize": func(c *ScalingGroupConfig, v any) error {
		n, ok := asInt(v)
		if !ok {
			return typeErr("AutoScaling", "MinSize", "an integer", v)
		}
		c.MinSize = n
		return nil
	},
	"MaxSize": func(c *ScalingGroupConfig, v any) error {
		n, ok := asInt(v)
		if !ok {
			return typeErr("AutoScaling", "MaxSize", "an integer", v)
		}
		c.MaxSize = n
		return nil
	},
	"DesiredCapacity": func(c *ScalingGroupConfig, v any) error {
		n, ok := asInt(v)
		if !ok {
			return typeErr("AutoScaling", "DesiredCapacity", "an integer", v)
		}
		c.DesiredCapacity = n
		return nil
	},
	"LaunchTemplateName": func(c *ScalingGroupConfig, v any) error {
		s, ok := asString(v)
		if !ok {
			return typeErr("AutoScaling", "LaunchTemplateName", "a string", v)
		}
		c.LaunchTemplateName = s
		return nil
	},
	"VPCZoneIdentifier": func(c *ScalingGroupConfig, v any) error {
		s, ok := asString(v)
		if !ok {
			return typeErr("AutoScaling", "VPCZoneIdentifier", "a string", v)
		}
		c.VPCZoneIdentifier = s
		return nil
	},
	"AvailabilityZones": func(c *ScalingGroupConfig, v any) error {
		zones, ok := asStringList(v)
		if !ok {
			return typeErr("AutoScaling", "AvailabilityZones", "a list of strings", v)
		}
		c.AvailabilityZones = zones
		return nil
	},
}

// NewScalingGroupConfig returns the session-start defaults.
func NewScalingGroupConfig() *ScalingGroupConfig {
	c := &ScalingGroupConfig{
		MinSize:            1,
		MaxSize:            1,
		DesiredCapacity:    1,
		LaunchTemplateName: "test",
		VPCZoneIdentifier:  "subnet-test-1",
		AvailabilityZones:  []string{"us-east-1a"},
	}
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("invalid default scaling config: %v", err))
	}
	return c
}

// Validate checks field bounds and the min <= desired <= max invariants.
func (c *ScalingGroupConfig) Validate() error {
	if c.MinSize < 0 {
		return fmt.Errorf("MinSize (%d) must be non-negative", c.MinSize)
	}
	if c.MaxSize < 0 {
		return fmt.Errorf("MaxSize (%d) must be non-negative", c.MaxSize)
	}
	if c.MinSize > c.MaxSize {
		return fmt.Errorf("MinSize (%d) must be less than or equal to MaxSize (%d)", c.MinSize, c.MaxSize)
	}
	if c.DesiredCapacity < c.MinSize || c.DesiredCapacity > c.MaxSize {
		return fmt.Errorf("DesiredCapacity (%d) must be between MinSize (%d) and MaxSize (%d)", c.DesiredCapacity, c.MinSize, c.MaxSize)
	}
	return nil
}

// Fields returns the display mapping. All scaling fields have defaults, so
// nothing is ever omitted here.
func (c *ScalingGroupConfig) Fields() map[string]any {
	return map[string]any{
		"MinSize":            c.MinSize,
		"MaxSize":            c.MaxSize,
		"DesiredCapacity":    c.DesiredCapacity,
		"LaunchTemplateName": c.LaunchTemplateName,
		"VPCZoneIdentifier":  c.VPCZoneIdentifier,
		"AvailabilityZones":  c.AvailabilityZones,
	}
}

// Apply has the same contract as InstanceConfig.Apply: skip unset, reject
// unknown or mistyped keys individually, then validate the whole prospective
// config and commit all-or-nothing.
func (c *ScalingGroupConfig) Apply(updates map[string]any, reject func(string)) {
	draft := *c
	// The draft must not alias the committed slice.
	draft.AvailabilityZones = append([]string(nil), c.AvailabilityZones...)

	for key, val := range updates {
		if val == nil {
			continue
		}
		set, ok := scalingFields[key]
		if !ok {
			reject(unknownFieldErr("AutoScaling", key).Error())
			continue
		}
		if err := set(&draft, val); err != nil {
			reject(err.Error())
		}
	}
	if err := draft.Validate(); err != nil {
		reject(err.Error())
		return
	}
	*c = draft
}
