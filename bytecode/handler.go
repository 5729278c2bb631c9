package bytecode

// Handler describes one exception handler: a half-open program-counter
// range plus the state to restore when control enters the handler.
//
// When a throw happens at a pc inside [Start, End), execution resumes at
// End with the frame's operand stack truncated to StackCount and the
// frame's pushed scopes popped down to ScopeCount. Both counts are
// relative to frame entry, which keeps suspended generator frames
// self-contained.
type Handler struct {
	// Start is the first pc covered by the handler.
	Start int
	// End is the first pc past the covered range; it is also the address
	// of the handler code itself.
	End int
	// ScopeCount is the number of frame-pushed scopes live at Start.
	ScopeCount int
	// StackCount is the operand stack depth (relative to the frame's
	// base) live at Start.
	StackCount int
	// Finally marks a finally-block handler. Finally handlers observe
	// both throw and return completions; catch handlers observe throws
	// only.
	Finally bool
}

// Contains reports whether pc falls inside the handler's covered range.
func (h Handler) Contains(pc int) bool {
	return pc >= h.Start && pc < h.End
}
