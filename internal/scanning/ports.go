package scanning

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/anstrom/skim/internal/errors"
)

const (
	minPort = 1
	maxPort = 65535
)

// PortSpec is an ordered list of unique ports to probe.
type PortSpec []uint16

// defaultPorts are the well-known service ports probed when no list is given.
var defaultPorts = PortSpec{
	21, 22, 23, 25, 53, 80, 110, 135, 139, 143,
	443, 445, 993, 995, 1723, 3306, 3389, 5900, 8080,
}

// DefaultPorts returns a copy of the default port list.
func DefaultPorts() PortSpec {
	out := make(PortSpec, len(defaultPorts))
	copy(out, defaultPorts)
	return out
}

// ParsePortSpec parses a comma-separated list of ports and ranges such as
// "22,80,8000-8100". Duplicates are dropped, keeping first-occurrence order.
// An empty spec yields DefaultPorts.
func ParsePortSpec(spec string) (PortSpec, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return DefaultPorts(), nil
	}

	var ports []int
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, portSpecError(spec, "empty port entry")
		}

		if lo, hi, isRange := strings.Cut(part, "-"); isRange {
			start, err := parsePort(lo)
			if err != nil {
				return nil, portSpecError(spec, err.Error())
			}
			end, err := parsePort(hi)
			if err != nil {
				return nil, portSpecError(spec, err.Error())
			}
			if start > end {
				return nil, portSpecError(spec, fmt.Sprintf("invalid range %s: start is greater than end", part))
			}
			for p := start; p <= end; p++ {
				ports = append(ports, p)
			}
			continue
		}

		p, err := parsePort(part)
		if err != nil {
			return nil, portSpecError(spec, err.Error())
		}
		ports = append(ports, p)
	}

	return NewPortSpec(ports...)
}

// NewPortSpec builds a PortSpec from integers, rejecting anything outside
// 1-65535 and dropping duplicates.
func NewPortSpec(ports ...int) (PortSpec, error) {
	if len(ports) == 0 {
		return nil, errors.NewConfigFieldError(errors.CodeValidation, "port list is empty", "ports", ports)
	}

	seen := make(map[int]struct{}, len(ports))
	out := make(PortSpec, 0, len(ports))
	for _, p := range ports {
		if p < minPort || p > maxPort {
			return nil, errors.NewConfigFieldError(errors.CodeValidation,
				fmt.Sprintf("port %d out of range %d-%d", p, minPort, maxPort), "ports", p)
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, uint16(p))
	}
	return out, nil
}

// String renders the spec as a comma-separated list.
func (s PortSpec) String() string {
	parts := make([]string, len(s))
	for i, p := range s {
		parts[i] = strconv.Itoa(int(p))
	}
	return strings.Join(parts, ",")
}

func parsePort(s string) (int, error) {
	s = strings.TrimSpace(s)
	p, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	if p < minPort || p > maxPort {
		return 0, fmt.Errorf("port %d out of range %d-%d", p, minPort, maxPort)
	}
	return p, nil
}

func portSpecError(spec, msg string) error {
	return errors.NewConfigFieldError(errors.CodeValidation, msg, "ports", spec)
}
