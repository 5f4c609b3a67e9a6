package tui

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/sweeney/flicker/internal/logic"
)

func newTestPort(t *testing.T) (*Port, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	p, err := New(screen, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	screen.SetSize(40, 12)
	t.Cleanup(func() { p.Close() })
	return p, screen
}

func waitEdge(t *testing.T, p *Port) bool {
	t.Helper()
	select {
	case e, ok := <-p.Edges():
		if !ok {
			t.Fatal("edge channel closed")
		}
		return e.Level
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for edge")
	}
	return false
}

func TestSpaceTogglesHold(t *testing.T) {
	p, screen := newTestPort(t)

	screen.InjectKey(tcell.KeyRune, ' ', tcell.ModNone)
	if !waitEdge(t, p) {
		t.Error("first space should assert hold")
	}
	if lvl, _ := p.Level(); !lvl {
		t.Error("expected level high")
	}

	screen.InjectKey(tcell.KeyRune, ' ', tcell.ModNone)
	if waitEdge(t, p) {
		t.Error("second space should release hold")
	}
}

func TestQuitKey(t *testing.T) {
	p, screen := newTestPort(t)
	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	select {
	case <-p.Quit():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for quit")
	}
}

func TestCommitRendersAveragedDuty(t *testing.T) {
	p, screen := newTestPort(t)

	// LED1 on for the whole period, LED2 never.
	for i := 0; i < Period; i++ {
		if err := p.Commit(logic.Levels{true, false}); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}
	if p.ticks != 0 {
		t.Errorf("expected accumulator reset after a period, got %d", p.ticks)
	}

	r, _, style, _ := screen.GetContent(originX, originY)
	if r != '█' {
		t.Fatalf("expected LED block, got %q", r)
	}
	fg, _, _ := style.Decompose()
	if fg != flameColor(255) {
		t.Errorf("LED1: expected full flame color, got %v", fg)
	}

	_, _, style, _ = screen.GetContent(originX+ledWidth+ledGap, originY)
	fg, _, _ = style.Decompose()
	if fg != flameColor(0) {
		t.Errorf("LED2: expected dark, got %v", fg)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	p, _ := newTestPort(t)
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, ok := <-p.Edges(); ok {
		t.Error("edge channel should be closed")
	}
}
