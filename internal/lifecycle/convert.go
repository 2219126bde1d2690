package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/chordbook/internal/apperr"
	"github.com/starford/chordbook/internal/chordsheet"
)

// Notification messages shown by ManualConvert.
const (
	MsgEmptyContent  = "No content to convert"
	MsgConverted     = "Content converted to ChordPro format"
	MsgNotApplicable = "Content does not appear to be in Ultimate Guitar format"
)

// ManualConvert converts the textarea with the given id in place when it
// holds a tablature sheet. The user is told the outcome through the
// notifier. A missing textarea is logged and returns apperr.ErrNotFound
// without a notification.
func (c *Controller) ManualConvert(ctx context.Context, doc *Document, textareaID string) (Notification, error) {
	ta, ok := doc.TextAreaByID(textareaID)
	if !ok {
		c.logger.Warn("lifecycle: manual convert target missing", slog.String("textarea_id", textareaID))
		return Notification{}, fmt.Errorf("lifecycle: textarea %q: %w", textareaID, apperr.ErrNotFound)
	}

	content := strings.TrimSpace(ta.Value())
	if content == "" {
		n := Notification{Level: LevelWarning, Message: MsgEmptyContent, Err: apperr.ErrEmptyContent}
		c.notifier.Notify(ctx, n)
		return n, apperr.ErrEmptyContent
	}

	if !chordsheet.IsTablature(content) {
		n := Notification{Level: LevelWarning, Message: MsgNotApplicable, Err: apperr.ErrNotApplicable}
		c.notifier.Notify(ctx, n)
		return n, apperr.ErrNotApplicable
	}

	ta.SetValue(c.pipe.ConvertToAnnotated(content))
	doc.Dispatch(ctx, &Event{Type: EventInput, Target: ta.Node()})

	n := Notification{Level: LevelSuccess, Message: MsgConverted}
	c.notifier.Notify(ctx, n)
	return n, nil
}
