package rtfilters

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gogpu/rtfilters/internal/attachment"
	"github.com/gogpu/rtfilters/internal/pass"
)

// AttachmentNames returns the display names of the attachments the
// composite of template t can show, in slot order. GuiBase.Display
// indexes this list.
func AttachmentNames(t Template) []string {
	keys := pass.GuiAttachments(t)
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = displayName(k)
	}
	return names
}

func displayName(k attachment.Key) string {
	title := cases.Title(language.English)
	words := strings.Split(k.String(), "_")
	for i, w := range words {
		switch w {
		case "rt", "id":
			words[i] = strings.ToUpper(w)
		default:
			words[i] = title.String(w)
		}
	}
	return strings.Join(words, " ")
}

// defaultDisplay pairs the albedo with the last slot, which is the most
// processed image the template produces.
func defaultDisplay(t Template) [2]uint32 {
	n := uint32(len(pass.GuiAttachments(t))) //nolint:gosec // G115: at most seven slots
	return [2]uint32{2, n - 1}
}

// SetDisplay selects the attachments shown left and right of the split.
func (r *Renderer) SetDisplay(left, right int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	n := len(pass.GuiAttachments(r.manager.Template()))
	if left < 0 || left >= n || right < 0 || right >= n {
		return fmt.Errorf("%w: display %d/%d of %d", ErrDisplayIndex, left, right, n)
	}
	g := r.gui.Value()
	g.Display = [2]uint32{uint32(left), uint32(right)} //nolint:gosec // G115: checked above
	return nil
}

// SetSplit moves the split between the two displayed attachments. The
// factor is clamped to [0, 1]; NaN and calls after Close are ignored.
func (r *Renderer) SetSplit(factor float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || math.IsNaN(float64(factor)) {
		return
	}
	r.gui.Value().SplitViewFactor = clampSplit(factor)
}

func clampSplit(f float32) float32 { return min(max(f, 0), 1) }

// Split returns the split factor. After Close it reports the last value.
func (r *Renderer) Split() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gui.Value().SplitViewFactor
}

// Display returns the attachment slots shown left and right of the split.
// After Close it reports the last selection.
func (r *Renderer) Display() (left, right int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.gui.Value().Display
	return int(d[0]), int(d[1])
}
