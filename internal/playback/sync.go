package playback

// endRule is one row of the end-of-media transition table. Rules are tried
// in order and the first that applies wins.
type endRule struct {
	name    string
	applies func(c *Controller) bool
	apply   func(c *Controller)
}

// endRules decides what happens after a natural end. Repeat is listed
// before advance, so a repeating item never moves on.
var endRules = []endRule{
	{
		name:    "manual-stop",
		applies: func(c *Controller) bool { return c.manualStopped },
		apply:   func(*Controller) {},
	},
	{
		name:    "repeat",
		applies: func(c *Controller) bool { return c.repeat },
		apply:   func(c *Controller) { c.play() },
	},
	{
		name:    "advance",
		applies: func(c *Controller) bool { return c.playlist.Active() },
		apply:   func(c *Controller) { c.NextMedia() },
	},
	{
		name:    "halt",
		applies: func(*Controller) bool { return true },
		apply:   func(*Controller) {},
	},
}

// Tick runs one synchronizer cycle: it copies elapsed time and position to
// the view and, once the engine stops playing, resolves the end of media.
// It reports whether the timer is still running and should fire again.
func (c *Controller) Tick() bool {
	if !c.polling {
		return false
	}

	if t, err := c.engine.Time(); err == nil {
		c.view.SetElapsed(FormatClock(t))
	}
	if pos, err := c.engine.Position(); err == nil {
		c.view.SetProgress(sliderValue(pos))
	}

	if c.engine.IsPlaying() {
		return true
	}

	c.polling = false
	if c.paused {
		return false
	}

	// Natural end or external stop: same side effects as a manual stop,
	// without setting the manual flag.
	c.stop()
	c.resolveEnd()
	return c.polling
}

func (c *Controller) resolveEnd() {
	for _, rule := range endRules {
		if rule.applies(c) {
			c.log.WithField("rule", rule.name).Debug("end of media")
			rule.apply(c)
			return
		}
	}
}
