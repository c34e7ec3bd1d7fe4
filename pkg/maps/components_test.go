package maps

import "testing"

func TestExtractComponent(t *testing.T) {
	components := []AddressComponent{{Types: []string{"route"}, LongName: "Main St"}}

	got, ok := ExtractComponent(components, ComponentRoute)
	if !ok || got != "Main St" {
		t.Fatalf("expected Main St, got %q (ok=%v)", got, ok)
	}

	if got, ok := ExtractComponent(components, ComponentPostalCode); ok {
		t.Fatalf("expected no postal code, got %q", got)
	}
}

func TestExtractComponentFirstMatchWins(t *testing.T) {
	components := []AddressComponent{
		{Types: []string{"locality", "political"}, LongName: "Paris"},
		{Types: []string{"locality"}, LongName: "Lutetia"},
	}
	got, ok := ExtractComponent(components, ComponentLocality)
	if !ok || got != "Paris" {
		t.Fatalf("expected first match Paris, got %q", got)
	}
}

func TestExtractComponentFallsBackToShortName(t *testing.T) {
	components := []AddressComponent{{Types: []string{"country"}, ShortName: "FR"}}
	got, ok := ExtractComponent(components, ComponentCountry)
	if !ok || got != "FR" {
		t.Fatalf("expected short name fallback FR, got %q", got)
	}
}

func TestExtractComponentEmptyNames(t *testing.T) {
	components := []AddressComponent{{Types: []string{"country"}}}
	if _, ok := ExtractComponent(components, ComponentCountry); ok {
		t.Fatal("expected no value when both names are blank")
	}
	if _, ok := ExtractComponent(nil, ComponentCountry); ok {
		t.Fatal("expected no value for nil components")
	}
}

func TestExtractAddressPartial(t *testing.T) {
	components := []AddressComponent{
		{Types: []string{"street_number"}, LongName: "5"},
		{Types: []string{"route"}, LongName: "Avenue Anatole France"},
		{Types: []string{"sublocality_level_1", "sublocality", "political"}, LongName: "7th arrondissement"},
		{Types: []string{"administrative_area_level_2", "political"}, LongName: "Département de Paris"},
		{Types: []string{"administrative_area_level_1", "political"}, LongName: "Île-de-France", ShortName: "IDF"},
		{Types: []string{"country", "political"}, LongName: "France", ShortName: "FR"},
		{Types: []string{"postal_code"}, LongName: "75007"},
	}

	addr := ExtractAddress(components)

	expect := map[string]*string{
		"street_number": addr.StreetNumber,
		"route":         addr.Route,
		"sublocality":   addr.Sublocality,
		"district":      addr.District,
		"state":         addr.State,
		"country":       addr.Country,
		"postal_code":   addr.PostalCode,
	}
	want := map[string]string{
		"street_number": "5",
		"route":         "Avenue Anatole France",
		"sublocality":   "7th arrondissement",
		"district":      "Département de Paris",
		"state":         "Île-de-France",
		"country":       "France",
		"postal_code":   "75007",
	}
	for field, got := range expect {
		if got == nil || *got != want[field] {
			t.Errorf("%s: expected %q, got %v", field, want[field], got)
		}
	}
	if addr.Neighborhood != nil || addr.Locality != nil {
		t.Fatalf("expected missing components to stay nil, got neighborhood=%v locality=%v", addr.Neighborhood, addr.Locality)
	}
}
