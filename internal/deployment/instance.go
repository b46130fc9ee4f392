package deployment

import "fmt"

// InstanceConfig describes the EC2 instances to launch. Without autoscaling it
// feeds RunInstances directly; with autoscaling it becomes the launch template.
type InstanceConfig struct {
	InstanceType string
	ImageId      string
	MinCount     int
	MaxCount     int
}

// InstanceFieldOrder fixes the display order of instance config fields.
var InstanceFieldOrder = []string{"InstanceType", "ImageId", "MinCount", "MaxCount"}

// instanceFields is the closed field table: every settable field with its
// coercing setter. Unknown update keys miss this table and are rejected.
var instanceFields = map[string]func(*InstanceConfig, any) error{
	"InstanceType": func(c *InstanceConfig, v any) error {
		s, ok := asString(v)
		if !ok {
			return typeErr("EC2", "InstanceType", "a string", v)
		}
		c.InstanceType = s
		return nil
	},
	"ImageId": func(c *InstanceConfig, v any) error {
		s, ok := asString(v)
		if !ok {
			return typeErr("EC2", "ImageId", "a string", v)
		}
		c.ImageId = s
		return nil
	},
	"MinCount": func(c *InstanceConfig, v any) error {
		n, ok := asInt(v)
		if !ok {
			return typeErr("EC2", "MinCount", "an integer", v)
		}
		c.MinCount = n
		return nil
	},
	"MaxCount": func(c *InstanceConfig, v any) error {
		n, ok := asInt(v)
		if !ok {
			return typeErr("EC2", "MaxCount", "an integer", v)
		}
		c.MaxCount = n
		return nil
	},
}

// NewInstanceConfig returns the session-start defaults. The defaults must
// satisfy Validate; an invalid default set is a programming error.
func NewInstanceConfig() *InstanceConfig {
	c := &InstanceConfig{
		ImageId:  "ami-0984f4b9e98be44bf",
		MinCount: 1,
		MaxCount: 1,
	}
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("invalid default instance config: %v", err))
	}
	return c
}

// Validate checks field bounds and the cross-field ordering invariant.
func (c *InstanceConfig) Validate() error {
	if c.MinCount < 1 {
		return fmt.Errorf("MinCount (%d) must be at least 1", c.MinCount)
	}
	if c.MaxCount < 1 {
		return fmt.Errorf("MaxCount (%d) must be at least 1", c.MaxCount)
	}
	if c.MinCount > c.MaxCount {
		return fmt.Errorf("MinCount (%d) must be less than or equal to MaxCount (%d)", c.MinCount, c.MaxCount)
	}
	return nil
}

// Fields returns the display mapping, excluding fields still unset.
func (c *InstanceConfig) Fields() map[string]any {
	fields := map[string]any{
		"ImageId":  c.ImageId,
		"MinCount": c.MinCount,
		"MaxCount": c.MaxCount,
	}
	if c.InstanceType != "" {
		fields["InstanceType"] = c.InstanceType
	}
	return fields
}

// Apply folds a partial update into the config. Keys with a nil value were not
// mentioned by the user and are skipped. Unknown or mistyped keys trigger
// reject per key and are skipped. The surviving updates are validated against
// the whole prospective config and committed all-or-nothing: a cross-field
// violation triggers reject once and leaves the config exactly as it was.
func (c *InstanceConfig) Apply(updates map[string]any, reject func(string)) {
	draft := *c
	for key, val := range updates {
		if val == nil {
			continue
		}
		set, ok := instanceFields[key]
		if !ok {
			reject(unknownFieldErr("EC2", key).Error())
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
