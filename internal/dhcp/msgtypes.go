// Package dhcp defines the protocol families and message-type codes the
// monitor classifies exchanges with.
package dhcp

import "fmt"

// Family discriminates between the two DHCP protocol versions.
type Family uint16

const (
	FamilyV4 Family = 4
	FamilyV6 Family = 6
)

// Valid reports whether f is one of the two known families.
func (f Family) Valid() bool {
	return f == FamilyV4 || f == FamilyV6
}

func (f Family) String() string {
	switch f {
	case FamilyV4:
		return "v4"
	case FamilyV6:
		return "v6"
	default:
		return fmt.Sprintf("family(%d)", uint16(f))
	}
}

// MsgType is a DHCP message-type code. The zero value (NOTYPE) acts as a
// wildcard in monitored-duration keys.
type MsgType uint8

// DHCPv4 message types.
const (
	V4NoType   MsgType = 0
	V4Discover MsgType = 1
	V4Offer    MsgType = 2
	V4Request  MsgType = 3
	V4Decline  MsgType = 4
	V4Ack      MsgType = 5
	V4Nak      MsgType = 6
	V4Release  MsgType = 7
	V4Inform   MsgType = 8
)

// DHCPv6 message types.
const (
	V6NoType    MsgType = 0
	V6Solicit   MsgType = 1
	V6Advertise MsgType = 2
	V6Request   MsgType = 3
	V6Confirm   MsgType = 4
	V6Renew     MsgType = 5
	V6Rebind    MsgType = 6
	V6Reply     MsgType = 7
	V6Release   MsgType = 8
	V6Decline   MsgType = 9
)

var v4Names = map[MsgType]string{
	V4NoType:   "NOTYPE",
	V4Discover: "DHCPDISCOVER",
	V4Offer:    "DHCPOFFER",
	V4Request:  "DHCPREQUEST",
	V4Decline:  "DHCPDECLINE",
	V4Ack:      "DHCPACK",
	V4Nak:      "DHCPNAK",
	V4Release:  "DHCPRELEASE",
	V4Inform:   "DHCPINFORM",
}

var v6Names = map[MsgType]string{
	V6NoType:    "NOTYPE",
	V6Solicit:   "SOLICIT",
	V6Advertise: "ADVERTISE",
	V6Request:   "REQUEST",
	V6Confirm:   "CONFIRM",
	V6Renew:     "RENEW",
	V6Rebind:    "REBIND",
	V6Reply:     "REPLY",
	V6Release:   "RELEASE",
	V6Decline:   "DECLINE",
}

// MsgName returns the canonical name for a message type within a family,
// or "UNKNOWN(n)" for codes outside the table.
func MsgName(family Family, t MsgType) string {
	var name string
	var ok bool
	if family == FamilyV4 {
		name, ok = v4Names[t]
	} else {
		name, ok = v6Names[t]
	}
	if !ok {
		return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
	}
	return name
}

// ParseMsgType resolves a canonical message name back to its code.
func ParseMsgType(family Family, name string) (MsgType, error) {
	var table map[MsgType]string
	if family == FamilyV4 {
		table = v4Names
	} else {
		table = v6Names
	}
	for code, n := range table {
		if n == name {
			return code, nil
		}
	}
	return 0, fmt.Errorf("unknown %s message type %q", family, name)
}

// SubnetID identifies the network scope a sample pertains to. Subnet 0 is
// the global roll-up scope.
type SubnetID uint32

// GlobalSubnetID aggregates samples across all subnets.
const GlobalSubnetID SubnetID = 0
