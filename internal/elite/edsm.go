// Package elite looks up Elite Dangerous data on EDSM and Inara and renders
// the results as Discord embeds.
package elite

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/keshon/orcabot/internal/webreq"
)

// DefaultEDSMURL is the root of the public EDSM API.
const DefaultEDSMURL = "https://www.edsm.net/"

// EDSM builds EDSM request URLs and performs the requests.
type EDSM struct {
	client *webreq.Client
	base   string
}

// NewEDSM returns an EDSM client rooted at base (DefaultEDSMURL when empty).
func NewEDSM(client *webreq.Client, base string) *EDSM {
	if base == "" {
		base = DefaultEDSMURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &EDSM{client: client, base: base}
}

func (e *EDSM) SystemURL(name string) string {
	return e.base + "api-v1/system?sysname=" + url.QueryEscape(name) +
		"&showId=1&showCoordinates=1&showPermit=1&showInformation=1&showPrimaryStar=1"
}

func (e *EDSM) SystemsURL(names ...string) string {
	var b strings.Builder
	b.WriteString(e.base + "api-v1/systems?")
	for i, n := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString("systemName[]=" + url.QueryEscape(n))
	}
	b.WriteString("&showId=1&showCoordinates=1")
	return b.String()
}

func (e *EDSM) StationsURL(system string) string {
	return e.base + "api-system-v1/stations?systemName=" + url.QueryEscape(system)
}

func (e *EDSM) TrafficURL(system string) string {
	return e.base + "api-system-v1/traffic?systemName=" + url.QueryEscape(system)
}

func (e *EDSM) DeathsURL(system string) string {
	return e.base + "api-system-v1/deaths?systemName=" + url.QueryEscape(system)
}

func (e *EDSM) CommanderPositionURL(cmdr string) string {
	return e.base + "api-logs-v1/get-position?commanderName=" + url.QueryEscape(cmdr) + "&showId=1"
}

// Coords is a position in light years.
type Coords struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PrimaryStar describes the main star of a system.
type PrimaryStar struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	IsScoopable *bool  `json:"isScoopable"`
}

// Information holds the population data of a system.
type Information struct {
	Allegiance string `json:"allegiance"`
	Government string `json:"government"`
	Faction    string `json:"faction"`
	Population int64  `json:"population"`
	Security   string `json:"security"`
	Economy    string `json:"economy"`
}

// System is an EDSM system record. EDSM sends an empty array instead of an
// object for unpopulated systems, so Information and PrimaryStar are nil both
// when the key is missing and when it is empty; HasInformation tells apart
// the two cases for the information block.
type System struct {
	ID             int64        `json:"id"`
	Name           string       `json:"name"`
	Coords         *Coords      `json:"coords"`
	RequirePermit  bool         `json:"requirePermit"`
	PermitName     string       `json:"permitName"`
	Information    *Information `json:"-"`
	HasInformation bool         `json:"-"`
	PrimaryStar    *PrimaryStar `json:"-"`
}

func (s *System) UnmarshalJSON(data []byte) error {
	type plain System
	var raw struct {
		plain
		Information json.RawMessage `json:"information"`
		PrimaryStar json.RawMessage `json:"primaryStar"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = System(raw.plain)
	if len(raw.Information) > 0 && string(raw.Information) != "null" {
		s.HasInformation = true
		if isObject(raw.Information) {
			s.Information = new(Information)
			if err := json.Unmarshal(raw.Information, s.Information); err != nil {
				return err
			}
		}
	}
	if isObject(raw.PrimaryStar) {
		s.PrimaryStar = new(PrimaryStar)
		if err := json.Unmarshal(raw.PrimaryStar, s.PrimaryStar); err != nil {
			return err
		}
	}
	return nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "{")
}

// URL links to the system page on EDSM.
func (s *System) URL() string {
	return SystemPageURL(s.ID, s.Name)
}

// SystemPageURL links to a system page on EDSM.
func SystemPageURL(id int64, name string) string {
	return "https://www.edsm.net/en/system/id/" + strconv.FormatInt(id, 10) + "/name/" + plusName(name)
}

func plusName(name string) string {
	return strings.ReplaceAll(name, " ", "+")
}

// Activity counts events over the total, last week and last day.
type Activity struct {
	Total int64 `json:"total"`
	Week  int64 `json:"week"`
	Day   int64 `json:"day"`
}

// StationList is the stations response for one system.
type StationList struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Stations []Station `json:"stations"`
}

type trafficReport struct {
	Traffic *Activity `json:"traffic"`
}

type deathsReport struct {
	Deaths *Activity `json:"deaths"`
}

// Position is the last known location of a commander.
type Position struct {
	Msg       string `json:"msg"`
	MsgNum    int    `json:"msgnum"`
	System    string `json:"system"`
	SystemID  int64  `json:"systemId"`
	IsDocked  bool   `json:"isDocked"`
	Station   string `json:"station"`
	StationID int64  `json:"stationId"`
	ShipType  string `json:"shipType"`
	URL       string `json:"url"`
}

// System returns the system called name, or nil when EDSM does not know it.
// EDSM answers an unknown name with an empty array.
func (e *EDSM) System(ctx context.Context, name string) (*System, *webreq.Response, error) {
	var raw json.RawMessage
	resp, err := e.client.GetJSON(ctx, e.SystemURL(name), &raw)
	if err != nil {
		return nil, resp, err
	}
	if !isObject(raw) {
		return nil, resp, nil
	}
	var sys System
	if err := json.Unmarshal(raw, &sys); err != nil {
		return nil, resp, &webreq.DecodeError{URL: resp.URL, Err: err}
	}
	return &sys, resp, nil
}

// Systems returns the known systems among names, in EDSM's order.
func (e *EDSM) Systems(ctx context.Context, names ...string) ([]System, *webreq.Response, error) {
	var raw json.RawMessage
	resp, err := e.client.GetJSON(ctx, e.SystemsURL(names...), &raw)
	if err != nil {
		return nil, resp, err
	}
	if isObject(raw) {
		return nil, resp, nil
	}
	var systems []System
	if err := json.Unmarshal(raw, &systems); err != nil {
		return nil, resp, &webreq.DecodeError{URL: resp.URL, Err: err}
	}
	return systems, resp, nil
}

// Stations lists the stations of system.
func (e *EDSM) Stations(ctx context.Context, system string) (*StationList, *webreq.Response, error) {
	var list StationList
	resp, err := e.client.GetJSON(ctx, e.StationsURL(system), &list)
	if err != nil {
		return nil, resp, err
	}
	return &list, resp, nil
}

// Traffic returns the traffic report of system, nil when none is available.
func (e *EDSM) Traffic(ctx context.Context, system string) (*Activity, *webreq.Response, error) {
	var r trafficReport
	resp, err := e.client.GetJSON(ctx, e.TrafficURL(system), &r)
	if err != nil {
		return nil, resp, err
	}
	return r.Traffic, resp, nil
}

// Deaths returns the commander deaths report of system, nil when none is
// available.
func (e *EDSM) Deaths(ctx context.Context, system string) (*Activity, *webreq.Response, error) {
	var r deathsReport
	resp, err := e.client.GetJSON(ctx, e.DeathsURL(system), &r)
	if err != nil {
		return nil, resp, err
	}
	return r.Deaths, resp, nil
}

// CommanderPosition returns the last position a commander shared.
func (e *EDSM) CommanderPosition(ctx context.Context, cmdr string) (*Position, *webreq.Response, error) {
	var p Position
	resp, err := e.client.GetJSON(ctx, e.CommanderPositionURL(cmdr), &p)
	if err != nil {
		return nil, resp, err
	}
	return &p, resp, nil
}
