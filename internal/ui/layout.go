package ui

import "time"

const (
	// LayoutCompactWidth is the threshold below which the header drops labels.
	LayoutCompactWidth = 100

	// treePaneMaxWidth caps the mandate tree so the log keeps most of the screen.
	treePaneMaxWidth = 44
	treePaneMinWidth = 20

	// chromeRows is the header plus the command bar.
	chromeRows = 2
	// boxChromeRows is a box's two borders plus its title line.
	boxChromeRows = 3

	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = time.Second
)

// layout splits the terminal between the tree and log panes.
type layout struct {
	treeWidth  int
	logWidth   int
	bodyHeight int
}

func computeLayout(width, height int) layout {
	tree := width / 3
	if tree > treePaneMaxWidth {
		tree = treePaneMaxWidth
	}
	if tree < treePaneMinWidth {
		tree = treePaneMinWidth
	}
	if tree > width {
		tree = width
	}
	body := height - chromeRows
	if body < boxChromeRows+1 {
		body = boxChromeRows + 1
	}
	return layout{treeWidth: tree, logWidth: width - tree, bodyHeight: body}
}

// innerWidth and innerHeight give the space inside a bordered, titled box.
func innerWidth(outer int) int {
	return max(outer-2, 1)
}

func innerHeight(outer int) int {
	return max(outer-boxChromeRows, 1)
}
