package render

// Collapse tracks which stack traces and commands the user has opened or
// closed. State is keyed by block ID, which stays stable while a log grows,
// so a re-render after new lines arrive keeps the user's choices.
type Collapse struct {
	ExpandTraces   bool
	ExpandCommands bool

	toggled map[string]bool
}

// Expanded reports whether the block with id is shown in full. Blocks the
// user never touched follow the defaults.
func (c *Collapse) Expanded(id string, isCommand bool) bool {
	def := c.ExpandTraces
	if isCommand {
		def = c.ExpandCommands
	}
	if c.toggled[id] {
		return !def
	}
	return def
}

// Toggle flips the block with id.
func (c *Collapse) Toggle(id string) {
	if c.toggled == nil {
		c.toggled = make(map[string]bool)
	}
	if c.toggled[id] {
		delete(c.toggled, id)
		return
	}
	c.toggled[id] = true
}

// Clear forgets every toggle.
func (c *Collapse) Clear() {
	c.toggled = nil
}
