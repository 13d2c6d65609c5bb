package models

// StationRecord is an entry of the station document. Records may carry
// nested objects that inherit every field they do not set themselves.
type StationRecord struct {
	Ril100         *string         `json:"ril100,omitempty"`
	Name           *string         `json:"name,omitempty"`
	Group          *int            `json:"group,omitempty"`
	X              *float64        `json:"x,omitempty"`
	Y              *float64        `json:"y,omitempty"`
	Platforms      *int            `json:"platforms,omitempty"`
	PlatformLength *float64        `json:"platformLength,omitempty"`
	Objects        []StationRecord `json:"objects,omitempty"`
}

// Code returns the station code or "" when unset
func (r StationRecord) Code() string {
	if r.Ril100 == nil {
		return ""
	}
	return *r.Ril100
}

// StationGroup returns the group of the record, GroupHidden when unset
func (r StationRecord) StationGroup() StationGroup {
	if r.Group == nil {
		return GroupHidden
	}
	return StationGroup(*r.Group)
}

func (r StationRecord) override(child StationRecord) StationRecord {
	out := r
	out.Objects = nil
	if child.Ril100 != nil {
		out.Ril100 = child.Ril100
	}
	if child.Name != nil {
		out.Name = child.Name
	}
	if child.Group != nil {
		out.Group = child.Group
	}
	if child.X != nil {
		out.X = child.X
	}
	if child.Y != nil {
		out.Y = child.Y
	}
	if child.Platforms != nil {
		out.Platforms = child.Platforms
	}
	if child.PlatformLength != nil {
		out.PlatformLength = child.PlatformLength
	}
	return out
}

// FlattenStations expands nested objects into plain records. A record with
// objects is replaced by its children, each inheriting the parent fields.
func FlattenStations(records []StationRecord) []StationRecord {
	out := make([]StationRecord, 0, len(records))
	for _, r := range records {
		if len(r.Objects) == 0 {
			out = append(out, r)
			continue
		}
		for _, child := range FlattenStations(r.Objects) {
			out = append(out, r.override(child))
		}
	}
	return out
}

// PathRecord is an entry of the path document, an undirected segment
// between two station codes
type PathRecord struct {
	Start            *string      `json:"start,omitempty"`
	End              *string      `json:"end,omitempty"`
	Name             *string      `json:"name,omitempty"`
	Length           *float64     `json:"length,omitempty"`
	MaxSpeed         *int         `json:"maxSpeed,omitempty"`
	Electrified      *bool        `json:"electrified,omitempty"`
	Group            *int         `json:"group,omitempty"`
	TwistingFactor   *float64     `json:"twistingFactor,omitempty"`
	NeededEquipments []string     `json:"neededEquipments,omitempty"`
	Objects          []PathRecord `json:"objects,omitempty"`
}

// Endpoints returns start and end, "" when unset
func (p PathRecord) Endpoints() (string, string) {
	var start, end string
	if p.Start != nil {
		start = *p.Start
	}
	if p.End != nil {
		end = *p.End
	}
	return start, end
}

// IsElectrified defaults to true
func (p PathRecord) IsElectrified() bool {
	return p.Electrified == nil || *p.Electrified
}

// Category returns the segment category, main line when unset
func (p PathRecord) Category() TrackCategory {
	if p.Group == nil {
		return CategoryMainLine
	}
	return CategoryFromGroup(*p.Group)
}

// LengthKm returns the length or 0 when unset
func (p PathRecord) LengthKm() float64 {
	if p.Length == nil {
		return 0
	}
	return *p.Length
}

// Speed returns the maximum speed or 0 when unset
func (p PathRecord) Speed() int {
	if p.MaxSpeed == nil {
		return 0
	}
	return *p.MaxSpeed
}

func (p PathRecord) override(child PathRecord) PathRecord {
	out := p
	out.Objects = nil
	if child.Start != nil {
		out.Start = child.Start
	}
	if child.End != nil {
		out.End = child.End
	}
	if child.Name != nil {
		out.Name = child.Name
	}
	if child.Length != nil {
		out.Length = child.Length
	}
	if child.MaxSpeed != nil {
		out.MaxSpeed = child.MaxSpeed
	}
	if child.Electrified != nil {
		out.Electrified = child.Electrified
	}
	if child.Group != nil {
		out.Group = child.Group
	}
	if child.TwistingFactor != nil {
		out.TwistingFactor = child.TwistingFactor
	}
	if child.NeededEquipments != nil {
		out.NeededEquipments = child.NeededEquipments
	}
	return out
}

// FlattenPaths expands nested objects the same way FlattenStations does
func FlattenPaths(records []PathRecord) []PathRecord {
	out := make([]PathRecord, 0, len(records))
	for _, r := range records {
		if len(r.Objects) == 0 {
			out = append(out, r)
			continue
		}
		for _, child := range FlattenPaths(r.Objects) {
			out = append(out, r.override(child))
		}
	}
	return out
}
