package bridge

// CursorType enumerates the pointer shapes the overlay can request.
type CursorType int

const (
	CursorDefault CursorType = iota
	CursorCrosshair
	CursorText
	CursorWait
	CursorHand
	CursorOpenHand
	CursorClosedHand
	CursorMove
	CursorResizeH
	CursorResizeV
	CursorResizeNE
	CursorResizeNW
	CursorDisappear
	CursorNone
)

var cursorNames = [...]string{
	"default", "crosshair", "text", "wait", "hand", "open-hand", "closed-hand",
	"move", "resize-h", "resize-v", "resize-ne", "resize-nw", "disappear", "none",
}

func (c CursorType) String() string {
	if c < 0 || int(c) >= len(cursorNames) {
		return "unknown"
	}
	return cursorNames[c]
}

// CursorTypes returns every cursor type.
func CursorTypes() []CursorType {
	out := make([]CursorType, len(cursorNames))
	for i := range out {
		out[i] = CursorType(i)
	}
	return out
}

// CursorProvider supplies cursor images to the host. Setup is called once
// per type before the overlay is shown so the first switch does not stall.
type CursorProvider interface {
	Setup(c CursorType)
	Show(c CursorType)
}
