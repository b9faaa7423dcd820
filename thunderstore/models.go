package thunderstore

import (
	"fmt"
	"strings"
	"time"

	"thunder-mod-manager/catalog"
	"thunder-mod-manager/db"
	"thunder-mod-manager/semver"
)

// PackageListing is one package in a community's /api/v1/package/ response.
type PackageListing struct {
	Name           string           `json:"name"`
	FullName       string           `json:"full_name"`
	Owner          string           `json:"owner"`
	PackageURL     string           `json:"package_url"`
	DonationLink   string           `json:"donation_link"`
	DateCreated    time.Time        `json:"date_created"`
	DateUpdated    time.Time        `json:"date_updated"`
	RatingScore    int64            `json:"rating_score"`
	IsPinned       bool             `json:"is_pinned"`
	IsDeprecated   bool             `json:"is_deprecated"`
	HasNSFWContent bool             `json:"has_nsfw_content"`
	Categories     []string         `json:"categories"`
	Versions       []VersionListing `json:"versions"`
}

// VersionListing is one published release inside a package listing.
type VersionListing struct {
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Description   string    `json:"description"`
	VersionNumber string    `json:"version_number"`
	Dependencies  []string  `json:"dependencies"`
	DownloadURL   string    `json:"download_url"`
	Downloads     int64     `json:"downloads"`
	DateCreated   time.Time `json:"date_created"`
	WebsiteURL    string    `json:"website_url"`
	IsActive      bool      `json:"is_active"`
	FileSize      int64     `json:"file_size"`
}

// ParseDependencyString splits a Thunderstore dependency string of the
// form "Owner-Name-1.2.3" into its parts. Owners may contain hyphens;
// the name and version never do.
func ParseDependencyString(dep string) (owner, name string, version semver.Triple, err error) {
	parts := strings.Split(dep, "-")
	if len(parts) < 3 {
		return "", "", semver.Triple{}, fmt.Errorf("invalid dependency string %q", dep)
	}

	version, err = semver.Parse(parts[len(parts)-1])
	if err != nil {
		return "", "", semver.Triple{}, fmt.Errorf("invalid dependency string %q: %w", dep, err)
	}

	name = parts[len(parts)-2]
	owner = strings.Join(parts[:len(parts)-2], "-")
	if owner == "" || name == "" {
		return "", "", semver.Triple{}, fmt.Errorf("invalid dependency string %q", dep)
	}
	return owner, name, version, nil
}

// ToCatalogInput converts a registry listing into a catalog upsert
// payload. Versions with malformed numbers or dependency strings are
// rejected rather than silently dropped.
func ToCatalogInput(listing PackageListing) (catalog.PackageInput, []catalog.VersionInput, error) {
	description := ""
	totalDownloads := int64(0)
	if len(listing.Versions) > 0 {
		// The registry carries the description per version; the newest
		// one describes the package.
		description = listing.Versions[0].Description
	}

	versions := make([]catalog.VersionInput, 0, len(listing.Versions))
	for _, v := range listing.Versions {
		triple, err := semver.Parse(v.VersionNumber)
		if err != nil {
			return catalog.PackageInput{}, nil, fmt.Errorf("package %s version %q: %w", listing.FullName, v.VersionNumber, err)
		}

		edges := make([]catalog.EdgeInput, 0, len(v.Dependencies))
		for _, dep := range v.Dependencies {
			owner, name, floor, err := ParseDependencyString(dep)
			if err != nil {
				return catalog.PackageInput{}, nil, fmt.Errorf("package %s: %w", listing.FullName, err)
			}
			edges = append(edges, catalog.EdgeInput{Owner: owner, Name: name, Floor: floor})
		}

		totalDownloads += v.Downloads
		versions = append(versions, catalog.VersionInput{
			Version:      triple,
			CreatedAt:    v.DateCreated,
			Downloads:    v.Downloads,
			FileSize:     v.FileSize,
			IsActive:     v.IsActive,
			WebsiteURL:   v.WebsiteURL,
			Dependencies: edges,
		})
	}

	categories := make([]catalog.CategoryInput, len(listing.Categories))
	for i, name := range listing.Categories {
		categories[i] = catalog.CategoryInput{Slug: db.Slug(name), Name: name}
	}

	pkg := catalog.PackageInput{
		Owner:        listing.Owner,
		Name:         listing.Name,
		Description:  description,
		CreatedAt:    listing.DateCreated,
		IsNSFW:       listing.HasNSFWContent,
		IsDeprecated: listing.IsDeprecated,
		IsPinned:     listing.IsPinned,
		Rating:       listing.RatingScore,
		Downloads:    totalDownloads,
		DonationLink: listing.DonationLink,
		Categories:   categories,
	}
	return pkg, versions, nil
}
