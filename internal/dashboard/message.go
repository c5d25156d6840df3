package dashboard

import (
	"context"
	"strings"

	"github.com/v0xg/dashdriver/internal/element"
	"github.com/v0xg/dashdriver/internal/locator"
)

var (
	messageTitleLocator = locator.ByXPath(`./span`)
	messageLinesLocator = locator.ByXPath(`.//div[contains(@class, "msg-details")]//li`)
)

// Message is the result banner shown after a form submit.
type Message struct {
	*element.Element
}

// FindMessage waits for a banner to show and returns it.
func FindMessage(ctx context.Context, sess *element.Session) (*Message, error) {
	q := sess.Query(messageLocator)
	if err := q.WaitUntilVisible(ctx); err != nil {
		return nil, err
	}
	return viewAs[*Message](q.AsMessage().View(ctx, true))
}

func (m *Message) IsGood(ctx context.Context) (bool, error) { return m.HasClass(ctx, "msg-good") }
func (m *Message) IsBad(ctx context.Context) (bool, error)  { return m.HasClass(ctx, "msg-bad") }

func (m *Message) Title(ctx context.Context) (string, error) {
	el, err := m.Query(messageTitleLocator).One(ctx)
	if err != nil {
		return "", err
	}
	return el.Text(ctx)
}

// Lines returns the detail lines.
func (m *Message) Lines(ctx context.Context) ([]string, error) {
	return textsOf(ctx, m.Query(messageLinesLocator))
}

// HasLine reports whether any detail line contains text.
func (m *Message) HasLine(ctx context.Context, text string) (bool, error) {
	lines, err := m.Lines(ctx)
	if err != nil {
		return false, err
	}
	for _, l := range lines {
		if strings.Contains(l, text) {
			return true, nil
		}
	}
	return false, nil
}
