// Package action implements the browser action DSL: a small, closed set of
// steps (wait_for, click, hover, type, close_popup, scroll, sleep,
// mouse_drift) that a descriptor can script against a rendered page. One
// interpreter executes all eight kinds through a single switch rather than
// one type per action.
package action

import (
	"context"
	"fmt"
	"time"

	"github.com/valpere/scrapping/internal/config"
	"github.com/valpere/scrapping/internal/engine"
	"github.com/valpere/scrapping/internal/errkind"
)

// Kind is one of the eight action types the DSL supports.
type Kind string

const (
	WaitFor    Kind = "wait_for"
	Click      Kind = "click"
	Hover      Kind = "hover"
	Type       Kind = "type"
	ClosePopup Kind = "close_popup"
	Scroll     Kind = "scroll"
	Sleep      Kind = "sleep"
	MouseDrift Kind = "mouse_drift"
)

// Action is the typed, validated form of config.ActionConfig used at
// execution time. Field meaning depends on Kind; unused fields are simply
// left zero by FromConfig.
type Action struct {
	Kind     Kind
	Selector string
	Timeout  time.Duration
	Repeat   int
	Pause    time.Duration
	Text     string
	Clear    bool
	MinPx    int
	MaxPx    int
	Preset   string
	Sleep    time.Duration
	Strict   bool
}

// FromConfig converts one descriptor action entry into its typed form.
func FromConfig(c config.ActionConfig) (Action, error) {
	kind := Kind(c.Type)
	switch kind {
	case WaitFor, Click, Hover, Type, ClosePopup, Scroll, Sleep, MouseDrift:
	default:
		return Action{}, fmt.Errorf("action: unknown type %q", c.Type)
	}

	a := Action{
		Kind:     kind,
		Selector: c.Selector,
		Timeout:  time.Duration(c.TimeoutS * float64(time.Second)),
		Repeat:   c.Repeat,
		Pause:    time.Duration(c.PauseS * float64(time.Second)),
		Text:     c.Text,
		Clear:    c.Clear,
		MinPx:    c.MinPx,
		MaxPx:    c.MaxPx,
		Preset:   c.Preset,
		Sleep:    time.Duration(c.Seconds * float64(time.Second)),
		Strict:   c.Strict,
	}
	if a.Repeat <= 0 {
		a.Repeat = 1
	}
	return a, nil
}

// FromConfigAll converts a full descriptor action list.
func FromConfigAll(cs []config.ActionConfig) ([]Action, error) {
	out := make([]Action, 0, len(cs))
	for i, c := range cs {
		a, err := FromConfig(c)
		if err != nil {
			return nil, fmt.Errorf("actions[%d]: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// Run executes actions in order against rc. A non-strict action that fails
// (e.g. close_popup finding nothing to close) is skipped rather than
// aborting the whole sequence; its error is neither returned nor logged. A
// strict action's failure aborts immediately.
func Run(ctx context.Context, rc engine.RenderContext, actions []Action) error {
	for i, a := range actions {
		for rep := 0; rep < a.Repeat; rep++ {
			if err := runOne(ctx, rc, a); err != nil {
				if a.Strict {
					return errkind.New(errkind.ActionFailure, fmt.Sprintf("action[%d]:%s", i, a.Kind), err)
				}
			}
			if a.Pause > 0 {
				if err := rc.Sleep(ctx, a.Pause); err != nil {
					return errkind.New(errkind.ActionFailure, fmt.Sprintf("action[%d]:pause", i), err)
				}
			}
		}
	}
	return nil
}

func runOne(ctx context.Context, rc engine.RenderContext, a Action) error {
	switch a.Kind {
	case WaitFor:
		return rc.WaitVisible(ctx, a.Selector, a.Timeout)
	case Click:
		return rc.Click(ctx, a.Selector)
	case Hover:
		return rc.Hover(ctx, a.Selector)
	case Type:
		return rc.Type(ctx, a.Selector, a.Text, a.Clear)
	case ClosePopup:
		return rc.ClosePopup(ctx, a.Selector)
	case Scroll:
		return rc.Scroll(ctx, a.MinPx, a.MaxPx)
	case Sleep:
		return rc.Sleep(ctx, a.Sleep)
	case MouseDrift:
		return rc.MouseDrift(ctx, a.Preset)
	default:
		return fmt.Errorf("action: unhandled kind %q", a.Kind)
	}
}
