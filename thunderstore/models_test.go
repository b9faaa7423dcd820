package thunderstore

import (
	"testing"
	"time"

	"thunder-mod-manager/semver"
)

func TestParseDependencyString(t *testing.T) {
	tests := []struct {
		dep     string
		owner   string
		name    string
		version semver.Triple
		wantErr bool
	}{
		{dep: "BepInEx-BepInExPack-5.4.2100", owner: "BepInEx", name: "BepInExPack", version: semver.Triple{Major: 5, Minor: 4, Patch: 2100}},
		{dep: "notnotnotswipez-MoreCompany-1.7.2", owner: "notnotnotswipez", name: "MoreCompany", version: semver.Triple{Major: 1, Minor: 7, Patch: 2}},
		// Hyphenated owners fold everything before name into the owner.
		{dep: "x753-Mods-MoreSuits-1.4.1", owner: "x753-Mods", name: "MoreSuits", version: semver.Triple{Major: 1, Minor: 4, Patch: 1}},
		{dep: "NoVersion-Here", wantErr: true},
		{dep: "Owner-Name-notaversion", wantErr: true},
		{dep: "Owner-Name-1.2", wantErr: true},
		{dep: "-Name-1.0.0", wantErr: true},
		{dep: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.dep, func(t *testing.T) {
			owner, name, version, err := ParseDependencyString(tt.dep)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDependencyString(%q) succeeded, want error", tt.dep)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDependencyString(%q) error: %v", tt.dep, err)
			}
			if owner != tt.owner || name != tt.name || version != tt.version {
				t.Errorf("got %s / %s / %v, want %s / %s / %v", owner, name, version, tt.owner, tt.name, tt.version)
			}
		})
	}
}

func TestToCatalogInput(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	listing := PackageListing{
		Name:           "MoreSuits",
		FullName:       "x753-MoreSuits",
		Owner:          "x753",
		DateCreated:    created,
		RatingScore:    42,
		HasNSFWContent: false,
		Categories:     []string{"Suits", "Client Side"},
		Versions: []VersionListing{
			{
				VersionNumber: "1.4.1",
				Description:   "Adds more suits",
				Downloads:     600,
				IsActive:      true,
				Dependencies:  []string{"BepInEx-BepInExPack-5.4.2100"},
			},
			{
				VersionNumber: "1.4.0",
				Description:   "older text",
				Downloads:     400,
				IsActive:      true,
			},
		},
	}

	pkg, versions, err := ToCatalogInput(listing)
	if err != nil {
		t.Fatalf("ToCatalogInput() error: %v", err)
	}

	if pkg.Owner != "x753" || pkg.Name != "MoreSuits" {
		t.Errorf("package identity = %s-%s, want x753-MoreSuits", pkg.Owner, pkg.Name)
	}
	if pkg.Description != "Adds more suits" {
		t.Errorf("description = %q, want the newest version's text", pkg.Description)
	}
	if pkg.Downloads != 1000 {
		t.Errorf("downloads = %d, want 1000 (summed over versions)", pkg.Downloads)
	}
	if len(pkg.Categories) != 2 || pkg.Categories[1].Slug != "client-side" {
		t.Errorf("categories = %+v, want slugs [suits client-side]", pkg.Categories)
	}

	if len(versions) != 2 {
		t.Fatalf("got %d versions, want 2", len(versions))
	}
	if versions[0].Version != semver.MustParse("1.4.1") {
		t.Errorf("first version = %v, want 1.4.1", versions[0].Version)
	}
	if len(versions[0].Dependencies) != 1 || versions[0].Dependencies[0].Owner != "BepInEx" {
		t.Errorf("dependencies = %+v, want one edge to BepInEx-BepInExPack", versions[0].Dependencies)
	}
}

func TestToCatalogInputRejectsMalformedVersions(t *testing.T) {
	listing := PackageListing{
		Name: "Bad", Owner: "bad",
		Versions: []VersionListing{{VersionNumber: "1.0"}},
	}
	if _, _, err := ToCatalogInput(listing); err == nil {
		t.Error("expected error for malformed version number")
	}

	listing = PackageListing{
		Name: "Bad", Owner: "bad",
		Versions: []VersionListing{{VersionNumber: "1.0.0", Dependencies: []string{"garbage"}}},
	}
	if _, _, err := ToCatalogInput(listing); err == nil {
		t.Error("expected error for malformed dependency string")
	}
}
