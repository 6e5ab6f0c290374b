package ssdp

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMulticastGroupsV6(t *testing.T) {
	for _, own := range []string{"ff02::c", "ff05::c", "ff0e::c"} {
		t.Run(own, func(t *testing.T) {
			groups := multicastGroupsV6(net.ParseIP(own))

			require.Len(t, groups, len(SSDPMulticastGroupsV6))
			require.True(t, groups[0].Equal(net.ParseIP(own)), "own group is joined first")

			seen := make(map[string]bool)
			for _, g := range groups {
				require.False(t, seen[g.String()], "%s joined twice", g)
				seen[g.String()] = true
			}
			for _, g := range SSDPMulticastGroupsV6 {
				require.True(t, seen[g.String()], "%s not joined", g)
			}
		})
	}
}
