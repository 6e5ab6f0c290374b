// Package discover is a minimal SSDP control point. It sends an M-SEARCH on
// every endpoint and collects the answers, which is enough to check what a
// running daemon announces.
package discover

import (
	"context"
	"errors"
	"net"
	"runtime"
	"sync"
	"time"

	network "github.com/forestnode-io/ssdpd/pkg/net"
	"github.com/forestnode-io/ssdpd/pkg/ssdp"
	"github.com/rs/zerolog"
)

// Device is a search response and where it came from.
type Device struct {
	ssdp.SearchResponse
	From      *net.UDPAddr `json:"from"`
	Interface string       `json:"interface,omitempty"`
}

type Options struct {
	ST string
	// MX is the maximum response delay in seconds asked of the devices.
	MX        int
	UserAgent string
	SiteLocal bool
	// Timeout defaults to MX plus one second.
	Timeout time.Duration
	// Listener defaults to a ssdp.NetListener.
	Listener ssdp.Listener
}

// Search sends an M-SEARCH from each address and streams back the unique
// responses. The channel is closed once every address timed out or ctx is
// done.
func Search(ctx context.Context, addrs []network.Address, opts Options) (<-chan Device, error) {
	if len(addrs) == 0 {
		return nil, errors.New("no addresses to search from")
	}
	if opts.ST == "" {
		opts.ST = ssdp.ST_All
	}
	if opts.MX <= 0 {
		opts.MX = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(opts.MX)*time.Second + time.Second
	}
	if opts.Listener == nil {
		opts.Listener = &ssdp.NetListener{}
	}

	var (
		log   = zerolog.Ctx(ctx)
		wg    sync.WaitGroup
		dc    = make(chan Device, runtime.NumCPU())
		outDC = make(chan Device, runtime.NumCPU())
	)

	go dedupe(ctx, dc, outDC)

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	s := searcher{opts: opts, c: dc}
	for _, addr := range addrs {
		wg.Add(1)
		go func(addr network.Address) {
			defer wg.Done()
			if err := s.search(ctx, addr); err != nil {
				log.Error().Err(err).
					Str("address", addr.String()).
					Msg("unable to search")
			}
		}(addr)
	}

	go func() {
		wg.Wait()
		cancel()
		close(dc)
	}()

	return outDC, nil
}

// dedupe forwards the first answer of every device from in to out and closes
// out once in is closed. Once ctx is done answers are dropped instead of
// waiting for a reader.
func dedupe(ctx context.Context, in <-chan Device, out chan<- Device) {
	defer close(out)

	seen := make(map[string]struct{})
	for d := range in {
		key := d.USN + "@" + d.From.IP.String()
		if _, already := seen[key]; already {
			continue
		}
		seen[key] = struct{}{}

		select {
		case out <- d:
		case <-ctx.Done():
		}
	}
}

type searcher struct {
	opts Options
	c    chan<- Device
}

func (s *searcher) search(ctx context.Context, addr network.Address) error {
	iface := addr.Interface
	ep := ssdp.NewEndpointConfiguration(addr.IP, &iface, network.SSDPMulticastAddress(addr.IP, s.opts.SiteLocal))

	conn, err := s.opts.Listener.ListenUnicast(ctx, ep, 0)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()

	req := ssdp.NewSearchRequest(ep, s.opts.ST, s.opts.MX, s.opts.UserAgent)
	group := &net.UDPAddr{IP: ep.SSDPMulticastAddress, Port: ssdp.SSDPMulticastPort, Zone: ep.Zone()}
	if _, err := conn.WriteTo(req.Encode(), group); err != nil {
		return err
	}

	log := zerolog.Ctx(ctx)
	buf := make([]byte, 65535)
	for {
		n, info, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		src := info.Src
		if n == 0 || src == nil {
			continue
		}

		r, err := ssdp.ParseSearchResponse(buf[:n])
		if err != nil {
			log.Debug().Err(err).
				Str("from", src.String()).
				Msg("ignoring datagram")
			continue
		}

		select {
		case s.c <- Device{SearchResponse: *r, From: src, Interface: iface.Name}:
		case <-ctx.Done():
			return nil
		}
	}
}
