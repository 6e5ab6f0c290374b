// Package output prints what the daemon is doing for a human watching the
// terminal. Logs go to the log file, this is the short version.
package output

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/forestnode-io/ssdpd/pkg/events"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
)

type Printer struct {
	te *termenv.Output

	accent termenv.Color
	added  termenv.Color
	gone   termenv.Color

	done chan struct{}
	once sync.Once
}

// New writes to w. Colors are used if w is a terminal that supports them and
// noColor is false.
func New(w io.Writer, noColor bool) *Printer {
	var opts []termenv.OutputOption
	if noColor {
		opts = append(opts, termenv.WithProfile(termenv.Ascii))
	}
	p := Printer{
		te:   termenv.NewOutput(w, opts...),
		done: make(chan struct{}),
	}
	if !p.te.EnvNoColor() {
		p.accent = p.te.Color("#00afff")
		p.added = p.te.Color("#00d75f")
		p.gone = p.te.Color("#ff5f5f")
	}
	return &p
}

func (p *Printer) style(s string, c termenv.Color) termenv.Style {
	st := p.te.String(s)
	if c != nil {
		st = st.Foreground(c)
	}
	return st
}

// Listen prints every event until the channel is closed. It returns right
// away, use Wait to block until the last event was printed.
func (p *Printer) Listen(ctx context.Context, ch <-chan events.Event) {
	go func() {
		defer p.once.Do(func() { close(p.done) })
		for e := range ch {
			p.printEvent(ctx, e)
		}
	}()
}

func (p *Printer) Wait() {
	<-p.done
}

func (p *Printer) printEvent(ctx context.Context, e events.Event) {
	switch e := e.(type) {
	case events.EndpointsChanged:
		for _, a := range e.Added {
			fmt.Fprintf(p.te, "%s %s\n", p.style("+", p.added), a)
		}
		for _, a := range e.Removed {
			fmt.Fprintf(p.te, "%s %s\n", p.style("-", p.gone), a)
		}
		fmt.Fprintf(p.te, "boot id is now %d\n", e.BootID)
	case events.DeviceTreeUpdated:
		fmt.Fprintf(p.te, "%s config id %d, %d root device(s)\n",
			p.style("device tree updated:", p.accent).Bold(), e.ConfigID, e.RootDevices)
	case events.Bound:
		fmt.Fprintf(p.te, "%s %s\n", p.style("announcing on", p.accent).Bold(), strings.Join(e.Endpoints, ", "))
	default:
		zerolog.Ctx(ctx).Debug().
			Type("event", e).
			Msg("no output for event")
	}
}

// Announcement is one NT/USN pair the server sends for a device tree.
type Announcement struct {
	RootDevice string
	NT         string
	USN        string
}

// PrintAnnouncements renders the announcements as a table grouped by root
// device.
func (p *Printer) PrintAnnouncements(as []Announcement) error {
	tw := tabwriter.NewWriter(p.te, 0, 4, 2, ' ', 0)
	last := ""
	for _, a := range as {
		if a.RootDevice != last {
			if last != "" {
				fmt.Fprintln(tw)
			}
			fmt.Fprintln(tw, p.style(a.RootDevice, p.accent).Bold())
			fmt.Fprintln(tw, "  NT\tUSN")
			last = a.RootDevice
		}
		fmt.Fprintf(tw, "  %s\t%s\n", a.NT, a.USN)
	}
	return tw.Flush()
}

// Device is one answer to a search.
type Device struct {
	USN      string
	Location string
	// From is the address the answer came from, with the interface it
	// arrived on.
	From     string
	BootID   int
	ConfigID int
}

// PrintDevices renders the search answers as a table. Missing boot and
// config ids are shown as a dash.
func (p *Printer) PrintDevices(ds []Device) error {
	if len(ds) == 0 {
		_, err := fmt.Fprintln(p.te, "no devices found")
		return err
	}

	tw := tabwriter.NewWriter(p.te, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USN\tLOCATION\tFROM\tBOOTID\tCONFIGID")
	for _, d := range ds {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.USN, d.Location, d.From, optionalID(d.BootID), optionalID(d.ConfigID))
	}
	return tw.Flush()
}

func optionalID(id int) string {
	if id < 0 {
		return "-"
	}
	return strconv.Itoa(id)
}
