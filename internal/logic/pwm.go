package logic

// Channel is the software PWM state of a single LED.
type Channel struct {
	counter uint8
	target  uint8
	on      bool
}

// Tick advances the counter (wrapping at 256) and returns the new output
// level: on while counter < target.
func (c *Channel) Tick() bool {
	c.counter++
	c.on = c.counter < c.target
	return c.on
}

// SetTarget replaces the target duty. The output changes on the next Tick.
func (c *Channel) SetTarget(v uint8) {
	c.target = v
}

// Target returns the current target duty.
func (c *Channel) Target() uint8 { return c.target }

// Counter returns the running counter.
func (c *Channel) Counter() uint8 { return c.counter }

// On returns the level computed by the last Tick.
func (c *Channel) On() bool { return c.on }
