package catalog

import (
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"thunder-mod-manager/db"
)

// searchIndex maintains the full-text shadow rows. Implementations run
// inside the same transaction as the primary-row mutation, so the index
// never lags primary data.
type searchIndex interface {
	update(tx *gorm.DB, pkg db.Package) error
	remove(tx *gorm.DB, packageID uint) error
}

// shadowIndex keeps tokenized copies of name, owner and description in
// the package_search table.
type shadowIndex struct{}

func (shadowIndex) update(tx *gorm.DB, pkg db.Package) error {
	row := db.SearchRowFor(pkg)
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (shadowIndex) remove(tx *gorm.DB, packageID uint) error {
	return tx.Where("package_id = ?", packageID).Delete(&db.PackageSearch{}).Error
}

// Filters narrows a search. A zero GameID means all games; Categories is
// an intersection (packages must carry every listed slug).
type Filters struct {
	GameID            uint
	Categories        []string
	IncludeNSFW       bool
	IncludeDeprecated bool
}

// Relevance weights. A name hit outranks an owner hit outranks a
// description hit.
const (
	nameWeight  = 4
	ownerWeight = 2
	descWeight  = 1
)

// Search returns packages ranked by full-text relevance, then download
// count descending, then package id ascending for determinism. An empty
// query matches everything.
func (s *Store) Search(query string, f Filters) ([]db.Package, error) {
	q := s.db.Model(&db.PackageSearch{})
	if f.GameID != 0 {
		q = q.Where("game_id = ?", f.GameID)
	}
	if !f.IncludeNSFW {
		q = q.Where("is_nsfw = ?", false)
	}
	if !f.IncludeDeprecated {
		q = q.Where("is_deprecated = ?", false)
	}

	var rows []db.PackageSearch
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	tokens := strings.Fields(db.Tokens(query))

	type scored struct {
		packageID uint
		score     int
		downloads int64
	}
	matches := make([]scored, 0, len(rows))
	for _, row := range rows {
		score, ok := scoreRow(row, tokens)
		if !ok {
			continue
		}
		matches = append(matches, scored{packageID: row.PackageID, score: score, downloads: row.Downloads})
	}

	if len(f.Categories) > 0 {
		allowed, err := s.packagesWithAllCategories(f.Categories)
		if err != nil {
			return nil, err
		}
		kept := matches[:0]
		for _, m := range matches {
			if allowed[m.packageID] {
				kept = append(kept, m)
			}
		}
		matches = kept
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		if matches[i].downloads != matches[j].downloads {
			return matches[i].downloads > matches[j].downloads
		}
		return matches[i].packageID < matches[j].packageID
	})

	ids := make([]uint, len(matches))
	for i, m := range matches {
		ids[i] = m.packageID
	}
	return s.packagesInOrder(ids)
}

// scoreRow requires every query token to match at least one field
// (prefix match against the field's tokens) and sums field weights.
func scoreRow(row db.PackageSearch, tokens []string) (int, bool) {
	total := 0
	for _, token := range tokens {
		score := 0
		if tokensHavePrefix(row.NameTokens, token) {
			score += nameWeight
		}
		if tokensHavePrefix(row.OwnerTokens, token) {
			score += ownerWeight
		}
		if tokensHavePrefix(row.DescTokens, token) {
			score += descWeight
		}
		if score == 0 {
			return 0, false
		}
		total += score
	}
	return total, true
}

func tokensHavePrefix(fieldTokens, prefix string) bool {
	for _, t := range strings.Fields(fieldTokens) {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}

// packagesWithAllCategories returns the ids of packages carrying every
// one of the given category slugs.
func (s *Store) packagesWithAllCategories(slugs []string) (map[uint]bool, error) {
	type idRow struct{ PackageID uint }
	var ids []idRow
	err := s.db.
		Table("package_categories").
		Select("package_categories.package_id").
		Joins("JOIN categories ON categories.id = package_categories.category_id").
		Where("categories.slug IN ?", slugs).
		Group("package_categories.package_id").
		Having("COUNT(DISTINCT categories.slug) = ?", len(slugs)).
		Scan(&ids).Error
	if err != nil {
		return nil, err
	}

	allowed := make(map[uint]bool, len(ids))
	for _, row := range ids {
		allowed[row.PackageID] = true
	}
	return allowed, nil
}

// packagesInOrder fetches packages by id preserving the ranked order.
func (s *Store) packagesInOrder(ids []uint) ([]db.Package, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var pkgs []db.Package
	if err := s.db.Where("id IN ?", ids).Find(&pkgs).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]db.Package, len(pkgs))
	for _, p := range pkgs {
		byID[p.ID] = p
	}

	ordered := make([]db.Package, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}
