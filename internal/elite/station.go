package elite

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// StationType classifies a station by its landing facilities.
type StationType int

const (
	StationUndefined StationType = iota
	StationOrbis
	StationCoriolis
	StationOcellus
	StationAsteroidBase
	StationOutpost
	StationPlanetary
	StationMegaship
	StationUnlandable
	StationEngineerBase
	StationOther
)

var stationTypeNames = [...]string{
	StationUndefined:    "Undefined",
	StationOrbis:        "Orbis Starport",
	StationCoriolis:     "Coriolis Starport",
	StationOcellus:      "Ocellus Starport",
	StationAsteroidBase: "Asteroid Base",
	StationOutpost:      "Outpost",
	StationPlanetary:    "Planetary",
	StationMegaship:     "Megaship",
	StationUnlandable:   "Unlandable",
	StationEngineerBase: "Engineer Base",
	StationOther:        "Other",
}

func (t StationType) String() string {
	if t < 0 || int(t) >= len(stationTypeNames) {
		return "Other"
	}
	return stationTypeNames[t]
}

// ErrUnknownStationType is wrapped by ParseStationType for names it does not
// map.
var ErrUnknownStationType = errors.New("unknown station type")

// edsmStationTypes maps the EDSM type names.
var edsmStationTypes = map[string]StationType{
	"Orbis Starport":          StationOrbis,
	"Coriolis Starport":       StationCoriolis,
	"Ocellus Starport":        StationOcellus,
	"Asteroid base":           StationAsteroidBase,
	"Outpost":                 StationOutpost,
	"Planetary Port":          StationPlanetary,
	"Planetary Outpost":       StationPlanetary,
	"Planetary Settlement":    StationPlanetary,
	"Mega ship":               StationMegaship,
	"Planetary Engineer Base": StationUnlandable,
}

// ParseStationType maps an EDSM station type name.
func ParseStationType(name string) (StationType, error) {
	if t, ok := edsmStationTypes[name]; ok {
		return t, nil
	}
	return StationOther, fmt.Errorf("%w: %q", ErrUnknownStationType, name)
}

const engineerGovernment = "Workshop (Engineer)"

// Station is an EDSM station record. RawType keeps the EDSM type name so
// stations of an unmapped type are still listed under their own name.
type Station struct {
	ID                 int64
	Name               string
	Type               StationType
	RawType            string
	Distance           float64
	Government         string
	ControllingFaction string
	HasShipyard        bool
	HasOutfitting      bool
	HasRestock         bool
	HasRepair          bool
	HasRefuel          bool
	HasCartographics   bool

	// TypeErr is the ParseStationType error for RawType, if any.
	TypeErr error
}

func (s *Station) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID                 int64    `json:"id"`
		Name               string   `json:"name"`
		Type               *string  `json:"type"`
		Distance           float64  `json:"distanceToArrival"`
		Government         string   `json:"government"`
		HaveShipyard       bool     `json:"haveShipyard"`
		HaveOutfitting     bool     `json:"haveOutfitting"`
		OtherServices      []string `json:"otherServices"`
		ControllingFaction *struct {
			Name string `json:"name"`
		} `json:"controllingFaction"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Station{
		ID:            raw.ID,
		Name:          raw.Name,
		Distance:      raw.Distance,
		Government:    raw.Government,
		HasShipyard:   raw.HaveShipyard,
		HasOutfitting: raw.HaveOutfitting,
	}
	if raw.ControllingFaction != nil {
		s.ControllingFaction = raw.ControllingFaction.Name
	}
	switch {
	case raw.Government == engineerGovernment:
		s.Type = StationEngineerBase
	case raw.Type == nil:
		s.Type = StationUndefined
	default:
		s.RawType = *raw.Type
		s.Type, s.TypeErr = ParseStationType(*raw.Type)
	}
	for _, svc := range raw.OtherServices {
		switch svc {
		case "Restock":
			s.HasRestock = true
		case "Repair":
			s.HasRepair = true
		case "Refuel":
			s.HasRefuel = true
		case "Universal Cartographics":
			s.HasCartographics = true
		}
	}
	return nil
}

// HasLargePad reports whether large ships can dock at an orbital station.
func (s *Station) HasLargePad() bool {
	switch s.Type {
	case StationAsteroidBase, StationCoriolis, StationOcellus, StationOrbis, StationMegaship:
		return true
	}
	return false
}

// HasMediumPad reports whether medium ships can dock at an orbital station.
func (s *Station) HasMediumPad() bool {
	return s.Type == StationOutpost || s.HasLargePad()
}

// IsPlanetary reports whether the station is a landable surface port.
func (s *Station) IsPlanetary() bool {
	return s.Type == StationPlanetary
}

// TypeName is the display name of the station type.
func (s *Station) TypeName() string {
	if s.Type == StationOther && s.RawType != "" {
		return s.RawType
	}
	return s.Type.String()
}

var stationEmojis = map[StationType]string{
	StationOrbis:        "<:orbis:553690990964244520>",
	StationCoriolis:     "<:coriolis:553690991022964749>",
	StationOcellus:      "<:ocellus:553690990901460992>",
	StationAsteroidBase: "<:asteroid:553690991245262868>",
	StationOutpost:      "<:outpost:553690991060844567>",
	StationPlanetary:    "<:planetary:553690991123496963>",
	StationMegaship:     "<:megaship:553690991144599573>",
	StationEngineerBase: "<:Engineer:554018579050397698>",
}

const unknownStationEmoji = "<:unknown:553690991136342026>"

// Emoji is the custom emoji shown next to the station.
func (s *Station) Emoji() string {
	if e, ok := stationEmojis[s.Type]; ok {
		return e
	}
	return unknownStationEmoji
}

// URL links to the station page of system on EDSM.
func (s *Station) URL(systemID int64, systemName string) string {
	return "https://www.edsm.net/en/system/stations/id/" + strconv.FormatInt(systemID, 10) +
		"/name/" + plusName(systemName) +
		"/details/idS/" + strconv.FormatInt(s.ID, 10) +
		"/nameS/" + plusName(s.Name)
}

// Title renders the station headline, linked when systemID is known.
func (s *Station) Title(systemID int64, systemName string) string {
	name := s.Name
	if systemID != 0 {
		name = "[" + s.Name + "](" + s.URL(systemID, systemName) + ")"
	}
	return fmt.Sprintf("**%s %s**: %s, %s ls", s.Emoji(), name, s.TypeName(), FormatDistance(s.Distance))
}

// Services lists the station's services.
func (s *Station) Services() string {
	var out []string
	add := func(ok bool, name string) {
		if ok {
			out = append(out, name)
		}
	}
	add(s.HasRestock, "Restock")
	add(s.HasRefuel, "Refuel")
	add(s.HasRepair, "Repair")
	add(s.HasShipyard, "Shipyard")
	add(s.HasOutfitting, "Outfitting")
	add(s.HasCartographics, "Universal Cartographics")
	return strings.Join(out, ", ")
}
