package production

import (
	"log/slog"
	"testing"

	"github.com/comalice/tickfsm"
)

type lampID string

type lamp struct{ on int }

type lampOff struct{}
type lampOn struct{}
type flip struct{}

func (lampOff) ID() lampID { return "off" }
func (lampOn) ID() lampID  { return "on" }

func newLamp(t *testing.T, opts ...tickfsm.Option) *tickfsm.Machine[lampID, lamp] {
	t.Helper()
	b := tickfsm.NewBuilder[lampID, lamp]("lamp", tickfsm.Mealy).States(lampOff{}, lampOn{})
	tickfsm.On(b, func(_ lampOff, _ flip, l *lamp) tickfsm.State[lampID] {
		l.on++
		return lampOn{}
	})
	tickfsm.On(b, func(lampOn, flip, *lamp) tickfsm.State[lampID] { return lampOff{} })

	opts = append([]tickfsm.Option{tickfsm.WithName("lamp-1"), tickfsm.WithLogger(slog.New(slog.DiscardHandler))}, opts...)
	m, err := tickfsm.NewMachine(b.MustBuild(), &lamp{}, lampOff{}, opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	return m
}
