package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/PeterWatsonDavies/kea/internal/dhcp"
	"github.com/PeterWatsonDavies/kea/internal/perfmon"
)

// pairsDocument is the shape of a standalone monitored-pairs YAML file.
type pairsDocument struct {
	MonitoredPairs []DurationPair `yaml:"monitored_pairs"`
}

// LoadPairsFile reads a YAML document listing monitored event pairs.
// Unknown fields are rejected so typos surface immediately.
func LoadPairsFile(path string) ([]DurationPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pairs file: %w", err)
	}

	var doc pairsDocument
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding pairs file %s: %w", path, err)
	}
	return doc.MonitoredPairs, nil
}

// ParseFamily maps the config-level family string onto the protocol type.
func ParseFamily(name string) (dhcp.Family, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "v4":
		return dhcp.FamilyV4, nil
	case "v6":
		return dhcp.FamilyV6, nil
	default:
		return 0, fmt.Errorf("family must be v4 or v6, got %q", name)
	}
}

// Key resolves one configured pair into a validated duration key scoped to
// subnetID. Empty message-type names mean NOTYPE.
func (p DurationPair) Key(subnetID dhcp.SubnetID) (*perfmon.DurationKey, error) {
	family, err := ParseFamily(p.Family)
	if err != nil {
		return nil, err
	}

	queryType := dhcp.MsgType(0)
	if strings.TrimSpace(p.QueryType) != "" {
		queryType, err = dhcp.ParseMsgType(family, p.QueryType)
		if err != nil {
			return nil, err
		}
	}
	responseType := dhcp.MsgType(0)
	if strings.TrimSpace(p.ResponseType) != "" {
		responseType, err = dhcp.ParseMsgType(family, p.ResponseType)
		if err != nil {
			return nil, err
		}
	}

	return perfmon.NewDurationKey(family, queryType, responseType, p.StartEvent, p.EndEvent, subnetID)
}
