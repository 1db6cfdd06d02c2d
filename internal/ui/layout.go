package ui

// DetermineLayoutMode puts editor and output side by side on wide terminals
// and stacks them otherwise.
func DetermineLayoutMode(cols, rows int) LayoutMode {
	if cols < 60 || rows < 20 {
		return LayoutTooSmall
	}
	if cols >= 110 {
		return LayoutWide
	}
	return LayoutStacked
}

// splitWidth returns the editor and side panel widths for a wide layout.
func splitWidth(cols int) (int, int) {
	left := cols * 3 / 5
	return left, cols - left
}
