// Package server owns the SSDP state of a running daemon. It maps the
// machine's network addresses to SSDP endpoints, keeps them in sync with the
// interfaces and swaps in new device trees.
package server

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/forestnode-io/ssdpd/pkg/devicetree"
	"github.com/forestnode-io/ssdpd/pkg/events"
	network "github.com/forestnode-io/ssdpd/pkg/net"
	"github.com/forestnode-io/ssdpd/pkg/ssdp"
	"github.com/forestnode-io/ssdpd/pkg/upnp"
	"github.com/rs/zerolog"
)

var (
	ErrAlreadyBound = errors.New("server already bound")
	ErrClosed       = errors.New("server closed")
)

type Config struct {
	// AdvertisementExpiration in seconds.
	AdvertisementExpiration int
	TTL                     int
	HopLimit                int
	// SiteLocal makes global IPv6 addresses use the site-local group.
	SiteLocal    bool
	ServerHeader string

	Addresses network.AddressOptions
	// PollInterval is how often interfaces are checked for changes, 0
	// disables the check.
	PollInterval time.Duration

	DescriptionPort       int
	DescriptionPathPrefix string
}

type AddressSource func(network.AddressOptions) ([]network.Address, error)

type Option func(*Server)

func WithAddressSource(f AddressSource) Option {
	return func(s *Server) {
		s.addresses = f
	}
}

func WithSSDPOptions(opts ...ssdp.Option) Option {
	return func(s *Server) {
		s.ssdpOpts = append(s.ssdpOpts, opts...)
	}
}

type Server struct {
	config     Config
	sd         *ssdp.ServerData
	controller *ssdp.Controller
	addresses  AddressSource
	ssdpOpts   []ssdp.Option

	mu     sync.Mutex
	bound  bool
	closed bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(ctx context.Context, tree *devicetree.Tree, config Config, opts ...Option) *Server {
	s := Server{
		config:    config,
		addresses: network.UPnPEnabledAddresses,
	}
	for _, opt := range opts {
		opt(&s)
	}

	s.sd = ssdp.NewServerData(tree)
	s.sd.ConfigID = tree.ConfigID()
	s.sd.BootID = newBootID()
	if config.AdvertisementExpiration > 0 {
		s.sd.AdvertisementExpirationTime = config.AdvertisementExpiration
	}
	s.sd.ServerHeader = config.ServerHeader
	if s.sd.ServerHeader == "" {
		s.sd.ServerHeader = ServerHeader("ssdpd", "0")
	}

	ssdpOpts := append([]ssdp.Option{
		ssdp.WithListener(&ssdp.NetListener{
			TTL:      config.TTL,
			HopLimit: config.HopLimit,
		}),
	}, s.ssdpOpts...)
	s.controller = ssdp.NewController(ctx, s.sd, ssdpOpts...)

	return &s
}

// newBootID follows the common practice of using the boot time in seconds,
// which keeps BOOTID.UPNP.ORG increasing across restarts. It stays within 31
// bits as UPnP 1.1 requires.
func newBootID() int {
	return int(time.Now().Unix() & 0x7FFFFFFF)
}

// Bind creates an endpoint for every usable network address, starts them
// and starts advertising.
func (s *Server) Bind(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrClosed
	case s.bound:
		s.mu.Unlock()
		return ErrAlreadyBound
	}
	s.bound = true
	s.mu.Unlock()

	log := zerolog.Ctx(ctx)

	addrs, err := s.addresses(s.config.Addresses)
	if err != nil {
		return fmt.Errorf("unable to list network addresses: %w", err)
	}
	if len(addrs) == 0 {
		log.Warn().Msg("no usable network addresses found, waiting for interfaces to come up")
	}

	started := s.startEndpoints(ctx, addrs)
	s.sd.Lock()
	s.sd.Endpoints = append(s.sd.Endpoints, started...)
	s.sd.Unlock()

	if err := s.controller.Start(); err != nil {
		return fmt.Errorf("unable to start ssdp controller: %w", err)
	}

	if s.config.PollInterval > 0 {
		pollCtx, cancel := context.WithCancel(ctx)
		s.mu.Lock()
		s.cancel = cancel
		s.mu.Unlock()

		s.wg.Add(1)
		go s.pollInterfaces(pollCtx)
	}

	bound := events.Bound{}
	for _, ep := range started {
		bound.Endpoints = append(bound.Endpoints, ep.String())
	}
	s.sd.Lock()
	bound.BootID, bound.ConfigID = s.sd.BootID, s.sd.ConfigID
	s.sd.Unlock()

	log.Info().
		Strs("endpoints", bound.Endpoints).
		Int("bootID", bound.BootID).
		Int("configID", bound.ConfigID).
		Msg("ssdp server bound")
	events.Raise(ctx, bound)

	return nil
}

func (s *Server) startEndpoints(ctx context.Context, addrs []network.Address) []*ssdp.EndpointConfiguration {
	log := zerolog.Ctx(ctx)

	var started []*ssdp.EndpointConfiguration
	for _, addr := range addrs {
		ep := s.newEndpoint(addr)
		if err := s.controller.StartSSDPEndpoint(ctx, ep); err != nil {
			log.Error().Err(err).
				Str("address", addr.String()).
				Msg("unable to start ssdp endpoint")
			continue
		}
		started = append(started, ep)
	}
	return started
}

func (s *Server) newEndpoint(addr network.Address) *ssdp.EndpointConfiguration {
	iface := addr.Interface
	ep := ssdp.NewEndpointConfiguration(addr.IP, &iface, network.SSDPMulticastAddress(addr.IP, s.config.SiteLocal))
	s.sd.Lock()
	s.setDescriptionURLs(ep, s.sd.Server)
	s.sd.Unlock()
	return ep
}

// setDescriptionURLs is called with the lock held.
func (s *Server) setDescriptionURLs(ep *ssdp.EndpointConfiguration, tree upnp.Server) {
	ep.DescriptionURLs = make(map[string]string)
	for _, root := range tree.RootDevices() {
		ep.DescriptionURLs[root.UDN()] = s.descriptionURL(ep, root.UDN())
	}
}

// descriptionURL builds http://host:port/prefix/<uuid>.xml
func (s *Server) descriptionURL(ep *ssdp.EndpointConfiguration, udn string) string {
	prefix := "/" + strings.Trim(s.config.DescriptionPathPrefix, "/")
	if prefix != "/" {
		prefix += "/"
	}
	return "http://" + network.URLHost(ep.IP, ep.Zone()) + ":" + strconv.Itoa(s.config.DescriptionPort) +
		prefix + strings.TrimPrefix(udn, upnp.UUIDPrefix) + ".xml"
}

func (s *Server) pollInterfaces(ctx context.Context) {
	defer s.wg.Done()

	log := zerolog.Ctx(ctx)
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.UpdateInterfaceConfiguration(ctx); err != nil {
				log.Error().Err(err).
					Msg("unable to update interface configuration")
			}
		}
	}
}

// UpdateInterfaceConfiguration starts endpoints for new addresses and closes
// the ones whose address went away. If anything changed, an ssdp:update is
// sent followed by a fresh advertisement.
func (s *Server) UpdateInterfaceConfiguration(ctx context.Context) error {
	addrs, err := s.addresses(s.config.Addresses)
	if err != nil {
		return fmt.Errorf("unable to list network addresses: %w", err)
	}

	want := make(map[string]network.Address, len(addrs))
	for _, a := range addrs {
		want[a.String()] = a
	}

	s.sd.Lock()
	have := make(map[string]*ssdp.EndpointConfiguration, len(s.sd.Endpoints))
	for _, ep := range s.sd.Endpoints {
		have[ep.String()] = ep
	}
	var (
		kept    []*ssdp.EndpointConfiguration
		removed []*ssdp.EndpointConfiguration
	)
	for _, ep := range s.sd.Endpoints {
		if _, ok := want[ep.String()]; ok {
			kept = append(kept, ep)
		} else {
			removed = append(removed, ep)
		}
	}
	s.sd.Endpoints = kept
	s.sd.Unlock()

	var newAddrs []network.Address
	for _, a := range addrs {
		if _, ok := have[a.String()]; !ok {
			newAddrs = append(newAddrs, a)
		}
	}

	for _, ep := range removed {
		s.controller.CloseSSDPEndpoint(ep, true)
	}
	added := s.startEndpoints(ctx, newAddrs)

	if len(added) == 0 && len(removed) == 0 {
		return nil
	}

	s.sd.Lock()
	s.sd.Endpoints = append(s.sd.Endpoints, added...)
	s.sd.Unlock()

	s.controller.Update()
	s.controller.Advertise()

	change := events.EndpointsChanged{}
	for _, ep := range added {
		change.Added = append(change.Added, ep.String())
	}
	for _, ep := range removed {
		change.Removed = append(change.Removed, ep.String())
	}
	s.sd.Lock()
	change.BootID = s.sd.BootID
	s.sd.Unlock()

	zerolog.Ctx(ctx).Info().
		Strs("added", change.Added).
		Strs("removed", change.Removed).
		Int("bootID", change.BootID).
		Msg("network endpoints changed")
	events.Raise(ctx, change)

	return nil
}

// UpdateConfiguration replaces the advertised device tree. If the tree
// changed, the old tree is revoked before the new one is advertised.
func (s *Server) UpdateConfiguration(ctx context.Context, tree *devicetree.Tree) {
	s.sd.Lock()
	changed := s.sd.ConfigID != tree.ConfigID()
	s.sd.Unlock()

	if changed {
		s.controller.RevokeAdvertisements()
	}

	s.sd.Lock()
	s.sd.Server = tree
	s.sd.ConfigID = tree.ConfigID()
	for _, ep := range s.sd.Endpoints {
		s.setDescriptionURLs(ep, tree)
	}
	s.sd.Unlock()

	s.controller.Advertise()

	zerolog.Ctx(ctx).Info().
		Int("configID", tree.ConfigID()).
		Bool("changed", changed).
		Msg("device tree updated")
	events.Raise(ctx, events.DeviceTreeUpdated{
		ConfigID:    tree.ConfigID(),
		RootDevices: len(tree.RootDevices()),
	})
}

// Close revokes the advertisements and closes every endpoint. It may be
// called more than once.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	return s.controller.Close()
}
