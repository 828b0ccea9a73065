package perfmon

import (
	"fmt"
	"strings"

	"github.com/PeterWatsonDavies/kea/internal/dhcp"
)

// DurationKey identifies one monitored event pair: the query/response
// exchange it instruments, the two event labels between which time is
// measured, and the subnet scope. Keys are immutable after construction and
// totally ordered, which makes them usable as a store index.
type DurationKey struct {
	family       dhcp.Family
	queryType    dhcp.MsgType
	responseType dhcp.MsgType
	startEvent   string
	endEvent     string
	subnetID     dhcp.SubnetID
}

// NewDurationKey validates the family and the query/response pairing and
// returns the key. The pairing rules form a closed table: only exchanges
// that can occur on the wire are accepted.
func NewDurationKey(family dhcp.Family, queryType, responseType dhcp.MsgType,
	startEvent, endEvent string, subnetID dhcp.SubnetID) (*DurationKey, error) {
	if !family.Valid() {
		return nil, validationErrorf("DurationKey: family must be v4 or v6, got %s", family)
	}
	if err := validateMessagePair(family, queryType, responseType); err != nil {
		return nil, err
	}
	return &DurationKey{
		family:       family,
		queryType:    queryType,
		responseType: responseType,
		startEvent:   startEvent,
		endEvent:     endEvent,
		subnetID:     subnetID,
	}, nil
}

// validateMessagePair enforces the per-family allow-list of query/response
// combinations. NOTYPE acts as a wildcard on either side.
func validateMessagePair(family dhcp.Family, queryType, responseType dhcp.MsgType) error {
	if family == dhcp.FamilyV4 {
		switch queryType {
		case dhcp.V4NoType:
			switch responseType {
			case dhcp.V4NoType, dhcp.V4Offer, dhcp.V4Ack, dhcp.V4Nak:
				return nil
			}
		case dhcp.V4Discover:
			switch responseType {
			case dhcp.V4NoType, dhcp.V4Offer, dhcp.V4Nak:
				return nil
			}
		case dhcp.V4Request:
			switch responseType {
			case dhcp.V4NoType, dhcp.V4Ack, dhcp.V4Nak:
				return nil
			}
		case dhcp.V4Inform:
			switch responseType {
			case dhcp.V4NoType, dhcp.V4Ack:
				return nil
			}
		default:
			return validationErrorf("query type not supported by monitoring: %s",
				dhcp.MsgName(family, queryType))
		}
	} else {
		switch queryType {
		case dhcp.V6NoType, dhcp.V6Solicit:
			switch responseType {
			case dhcp.V6NoType, dhcp.V6Advertise, dhcp.V6Reply:
				return nil
			}
		case dhcp.V6Request, dhcp.V6Renew, dhcp.V6Rebind, dhcp.V6Confirm:
			switch responseType {
			case dhcp.V6NoType, dhcp.V6Reply:
				return nil
			}
		default:
			return validationErrorf("query type not supported by monitoring: %s",
				dhcp.MsgName(family, queryType))
		}
	}
	return validationErrorf("response type: %s not valid for query type: %s",
		dhcp.MsgName(family, responseType), dhcp.MsgName(family, queryType))
}

func (k *DurationKey) Family() dhcp.Family        { return k.family }
func (k *DurationKey) QueryType() dhcp.MsgType    { return k.queryType }
func (k *DurationKey) ResponseType() dhcp.MsgType { return k.responseType }
func (k *DurationKey) StartEventLabel() string    { return k.startEvent }
func (k *DurationKey) EndEventLabel() string      { return k.endEvent }
func (k *DurationKey) SubnetID() dhcp.SubnetID    { return k.subnetID }

// Label renders "QUERY-RESPONSE.start-end.subnet", substituting NONE for a
// NOTYPE query or response.
func (k *DurationKey) Label() string {
	query := "NONE"
	if k.queryType != 0 {
		query = dhcp.MsgName(k.family, k.queryType)
	}
	response := "NONE"
	if k.responseType != 0 {
		response = dhcp.MsgName(k.family, k.responseType)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s-%s.%s-%s.%d", query, response, k.startEvent, k.endEvent, k.subnetID)
	return sb.String()
}

// Equal reports whether both keys agree on all six identity fields.
func (k *DurationKey) Equal(other *DurationKey) bool {
	return k.Compare(other) == 0
}

// Compare orders keys lexicographically over (family, query type, response
// type, start label, end label, subnet id). Each field only breaks ties left
// by the fields before it, so the ordering is total and strict.
func (k *DurationKey) Compare(other *DurationKey) int {
	if c := compareUint(uint64(k.family), uint64(other.family)); c != 0 {
		return c
	}
	if c := compareUint(uint64(k.queryType), uint64(other.queryType)); c != 0 {
		return c
	}
	if c := compareUint(uint64(k.responseType), uint64(other.responseType)); c != 0 {
		return c
	}
	if c := strings.Compare(k.startEvent, other.startEvent); c != 0 {
		return c
	}
	if c := strings.Compare(k.endEvent, other.endEvent); c != 0 {
		return c
	}
	return compareUint(uint64(k.subnetID), uint64(other.subnetID))
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// WithSubnetID returns a copy of the key rescoped to another subnet. Used to
// derive the global (subnet 0) roll-up key from a subnet-level key.
func (k *DurationKey) WithSubnetID(subnetID dhcp.SubnetID) *DurationKey {
	rescoped := *k
	rescoped.subnetID = subnetID
	return &rescoped
}
