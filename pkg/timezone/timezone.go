// Package timezone picks the zone a raid time is shown in and formats it for
// a fixed set of reference regions.
package timezone

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	InputLayout   = "2006-01-02 15:04"
	DisplayLayout = "Mon 02 Jan 15:04 MST"
)

type Region struct {
	Label    string
	Location *time.Location
}

var defaultRegions = []struct{ label, zone string }{
	{"Pacific", "America/Los_Angeles"},
	{"Eastern", "America/New_York"},
	{"UTC", "UTC"},
	{"Central Europe", "Europe/Berlin"},
	{"Korea", "Asia/Seoul"},
	{"Sydney", "Australia/Sydney"},
}

type Resolver struct {
	def     *time.Location
	regions []Region
}

// New builds a resolver with the given default zone name (UTC when empty).
func New(defaultZone string) (*Resolver, error) {
	def := time.UTC
	if defaultZone != "" {
		loc, err := time.LoadLocation(defaultZone)
		if err != nil {
			return nil, fmt.Errorf("invalid default zone %q: %w", defaultZone, err)
		}
		def = loc
	}

	r := &Resolver{def: def}
	for _, dr := range defaultRegions {
		loc, err := time.LoadLocation(dr.zone)
		if err != nil {
			return nil, fmt.Errorf("failed to load region %s: %w", dr.zone, err)
		}
		r.regions = append(r.regions, Region{Label: dr.label, Location: loc})
	}
	return r, nil
}

func (r *Resolver) Default() *time.Location {
	return r.def
}

// Valid reports whether name is a loadable IANA zone.
func Valid(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

// Resolve applies user zone > guild zone > default. Unloadable names fall through.
func (r *Resolver) Resolve(userZone, guildZone string) *time.Location {
	for _, z := range []string{userZone, guildZone} {
		if z == "" {
			continue
		}
		if loc, err := time.LoadLocation(z); err == nil {
			return loc
		}
	}
	return r.def
}

// ServerZone is the guild's own zone, or the default.
func (r *Resolver) ServerZone(guildZone string) *time.Location {
	return r.Resolve("", guildZone)
}

type RegionTime struct {
	Label string
	Text  string
}

type Times struct {
	Viewer  string
	Server  string
	Regions []RegionTime
}

// Format renders the epoch timestamp for the viewer, the guild and every region.
func (r *Resolver) Format(ts int64, userZone, guildZone string) Times {
	t := time.Unix(ts, 0)
	out := Times{
		Viewer: t.In(r.Resolve(userZone, guildZone)).Format(DisplayLayout),
		Server: t.In(r.ServerZone(guildZone)).Format(DisplayLayout),
	}
	for _, reg := range r.regions {
		out.Regions = append(out.Regions, RegionTime{Label: reg.Label, Text: t.In(reg.Location).Format(DisplayLayout)})
	}
	return out
}

// Parse reads a wall clock time in InputLayout within loc.
func Parse(input string, loc *time.Location) (int64, error) {
	t, err := time.ParseInLocation(InputLayout, strings.TrimSpace(input), loc)
	if err != nil {
		return 0, fmt.Errorf("expected %q: %w", InputLayout, err)
	}
	return t.Unix(), nil
}
