package maps

import "strings"

// Component types recognized by the landmark address.
const (
	ComponentStreetNumber = "street_number"
	ComponentRoute        = "route"
	ComponentNeighborhood = "neighborhood"
	ComponentSublocality  = "sublocality"
	ComponentLocality     = "locality"
	ComponentState        = "administrative_area_level_1"
	ComponentDistrict     = "administrative_area_level_2"
	ComponentCountry      = "country"
	ComponentPostalCode   = "postal_code"
)

// Address holds the extracted components. Any field may be nil since the
// geocoder omits components it does not know.
type Address struct {
	StreetNumber *string
	Route        *string
	Neighborhood *string
	Sublocality  *string
	Locality     *string
	State        *string
	District     *string
	Country      *string
	PostalCode   *string
}

// ExtractComponent returns the long name of the first component tagged with
// componentType, falling back to the short name when the long one is blank.
func ExtractComponent(components []AddressComponent, componentType string) (string, bool) {
	for _, comp := range components {
		if !hasType(comp.Types, componentType) {
			continue
		}
		if v := strings.TrimSpace(comp.LongName); v != "" {
			return v, true
		}
		if v := strings.TrimSpace(comp.ShortName); v != "" {
			return v, true
		}
		return "", false
	}
	return "", false
}

// ExtractAddress runs ExtractComponent once per recognized type.
func ExtractAddress(components []AddressComponent) Address {
	return Address{
		StreetNumber: lookup(components, ComponentStreetNumber),
		Route:        lookup(components, ComponentRoute),
		Neighborhood: lookup(components, ComponentNeighborhood),
		Sublocality:  lookup(components, ComponentSublocality),
		Locality:     lookup(components, ComponentLocality),
		State:        lookup(components, ComponentState),
		District:     lookup(components, ComponentDistrict),
		Country:      lookup(components, ComponentCountry),
		PostalCode:   lookup(components, ComponentPostalCode),
	}
}

func lookup(components []AddressComponent, componentType string) *string {
	v, ok := ExtractComponent(components, componentType)
	if !ok {
		return nil
	}
	return &v
}

func hasType(types []string, want string) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}
