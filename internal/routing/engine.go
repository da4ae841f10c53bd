package routing

import (
	"github.com/google/uuid"

	"github.com/tapline/tapline-backend/pkg/db/models"
	"github.com/tapline/tapline-backend/pkg/enums"
)

// Generic tags applied by the class heuristic when an item carries no
// explicit or category tags.
const (
	TagKitchen = "kitchen"
	TagBar     = "bar"
)

// StationTicket is one station's slice of a manifest.
type StationTicket struct {
	Station        models.Station
	Items          []models.OrderItem
	ReferenceItems []models.OrderItem
}

// Manifest maps stations to the items they should prepare for one send.
// It is regenerated on every send and never persisted.
type Manifest struct {
	Tickets  []StationTicket
	Unrouted []models.OrderItem
}

// IsEmpty reports whether the manifest carries no work at all.
func (m Manifest) IsEmpty() bool {
	return len(m.Tickets) == 0 && len(m.Unrouted) == 0
}

// Resolve routes each item against the venue's stations. Tag precedence per
// item: explicit tags, then category tags, then the class heuristic. Any
// overlap with a station's tag set routes the item there; expo stations
// receive every item unconditionally. Items matching nothing land in
// Unrouted so callers can surface a configuration warning. Stations with
// ShowReferenceItems also get read-only entries for items routed elsewhere.
// Backup stations are not consulted here; failover is a delivery concern.
func Resolve(items []models.OrderItem, stationList []models.Station) Manifest {
	manifest := Manifest{}
	if len(items) == 0 {
		return manifest
	}

	routed := make(map[uuid.UUID][]models.OrderItem, len(stationList))
	referenced := make(map[uuid.UUID][]models.OrderItem, len(stationList))

	for _, item := range items {
		tags := resolvedTags(item)
		matched := false

		for _, station := range stationList {
			if station.IsExpo || overlaps(tags, station.Tags) {
				routed[station.ID] = append(routed[station.ID], item)
				matched = true
			}
		}

		if !matched {
			manifest.Unrouted = append(manifest.Unrouted, item)
			continue
		}

		for _, station := range stationList {
			if !station.ShowReferenceItems {
				continue
			}
			if containsItem(routed[station.ID], item.ID) {
				continue
			}
			referenced[station.ID] = append(referenced[station.ID], item)
		}
	}

	for _, station := range stationList {
		direct := routed[station.ID]
		refs := referenced[station.ID]
		if len(direct) == 0 && len(refs) == 0 {
			continue
		}
		manifest.Tickets = append(manifest.Tickets, StationTicket{
			Station:        station,
			Items:          direct,
			ReferenceItems: refs,
		})
	}

	return manifest
}

// resolvedTags applies the precedence chain for a single item.
func resolvedTags(item models.OrderItem) []string {
	if len(item.Tags) > 0 {
		return item.Tags
	}
	if len(item.CategoryTags) > 0 {
		return item.CategoryTags
	}
	switch item.CategoryClass {
	case enums.CategoryClassFood:
		return []string{TagKitchen}
	case enums.CategoryClassDrink:
		return []string{TagBar}
	default:
		return nil
	}
}

func overlaps(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func containsItem(items []models.OrderItem, id uuid.UUID) bool {
	for _, item := range items {
		if item.ID == id {
			return true
		}
	}
	return false
}
