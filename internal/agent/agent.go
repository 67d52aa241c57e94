// Package agent attributes Zeek records to the agent (device) that produced
// them and appends the agent identity as two extra fields.
package agent

import (
	"net/netip"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/mimecast/zeekagent/internal/config"
	"github.com/mimecast/zeekagent/internal/errors"
	"github.com/mimecast/zeekagent/internal/zeek"
)

// Names of the appended fields and of the fields rules are matched against.
const (
	FieldHostname = "agent_hostname"
	FieldUUID     = "agent_uuid"

	fieldTime      = "ts"
	fieldOrigin    = "id.orig_h"
	fieldResponder = "id.resp_h"
)

type rule struct {
	agent    config.Agent
	prefixes []netip.Prefix
	before   float64
	after    float64
}

func (r rule) timeBounded() bool {
	return r.before != 0 || r.after != 0
}

func (r rule) holds(ts float64) bool {
	if r.before != 0 && ts >= r.before {
		return false
	}
	if r.after != 0 && ts < r.after {
		return false
	}
	return true
}

func (r rule) contains(addr netip.Addr) bool {
	for _, p := range r.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Assigner picks the agent of a record. Rules are tried in order, the first
// rule matching one of the record addresses and its timestamp wins.
type Assigner struct {
	rules    []rule
	fallback config.Agent
}

// NewAssigner compiles rules. Each IP entry is either an address or a CIDR
// prefix.
func NewAssigner(rules []config.AgentRule, fallback config.Agent) (*Assigner, error) {
	a := &Assigner{rules: make([]rule, 0, len(rules))}

	var err error
	if a.fallback, err = canonical(fallback); err != nil {
		return nil, err
	}
	for i, r := range rules {
		compiled := rule{before: r.Before, after: r.After}
		if compiled.agent, err = canonical(r.Agent); err != nil {
			return nil, errors.Wrapf(err, "agent rule %d", i)
		}
		for _, ip := range r.IPs {
			prefix, err := parsePrefix(ip)
			if err != nil {
				return nil, errors.Wrapf(err, "agent rule %d", i)
			}
			compiled.prefixes = append(compiled.prefixes, prefix)
		}
		a.rules = append(a.rules, compiled)
	}
	return a, nil
}

// FromConfig returns the assigner described by cfg.
func FromConfig(cfg *config.Config) (*Assigner, error) {
	return NewAssigner(cfg.Agents, cfg.DefaultAgent)
}

func canonical(a config.Agent) (config.Agent, error) {
	id, err := uuid.Parse(a.UUID)
	if err != nil {
		return a, errors.Wrapf(errors.ErrInvalidConfig, "invalid uuid %q for %s", a.UUID, a.Hostname)
	}
	return config.Agent{Hostname: a.Hostname, UUID: id.String()}, nil
}

func parsePrefix(s string) (netip.Prefix, error) {
	if strings.Contains(s, "/") {
		prefix, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, errors.Mark(errors.ErrInvalidConfig, err)
		}
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, errors.Mark(errors.ErrInvalidConfig, err)
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// Assign returns the agent for a record with timestamp ts (unix seconds as
// text) and the given addresses. Unparsable addresses never match, an
// unparsable timestamp never satisfies a time bounded rule.
func (a *Assigner) Assign(ts string, addrs ...string) config.Agent {
	parsed := make([]netip.Addr, 0, len(addrs))
	for _, s := range addrs {
		if addr, err := netip.ParseAddr(s); err == nil {
			parsed = append(parsed, addr.Unmap())
		}
	}
	t, tsErr := strconv.ParseFloat(ts, 64)

	for _, r := range a.rules {
		if r.timeBounded() && (tsErr != nil || !r.holds(t)) {
			continue
		}
		for _, addr := range parsed {
			if r.contains(addr) {
				return r.agent
			}
		}
	}
	return a.fallback
}

// AssignRow returns the agent for row, looking at its ts, id.orig_h and
// id.resp_h fields.
func (a *Assigner) AssignRow(row *zeek.Row) config.Agent {
	return a.Assign(row.Value(fieldTime), row.Value(fieldOrigin), row.Value(fieldResponder))
}
