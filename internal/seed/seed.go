package seed

import (
	"context"
	"embed"
	"encoding/csv"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	scheduledomain "github.com/boxlane/boxlane/internal/schedule/domain"
	"gorm.io/gorm"
)

//go:embed data/unlocodes.csv
var embeddedData embed.FS

// EnsureReferenceLocations loads the bundled UN/LOCODE snapshot into the
// locations table. Ingestion never creates locations, so a fresh database
// needs this bootstrap before any schedule can resolve its port calls.
// Idempotent: existing codes are left untouched.
func EnsureReferenceLocations(db *gorm.DB, node *snowflake.Node, repo scheduledomain.Repository) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if node == nil {
		return errors.New("seed id generator is required")
	}
	if repo == nil {
		return errors.New("seed repository is required")
	}

	records, err := loadEmbeddedLocations()
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, location := range records {
			existing, err := repo.FindLocationByUNLocode(ctx, tx, location.UNLocode)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}

			location.ID = node.Generate()
			location.CreatedAt = time.Now().UTC()
			if err := repo.InsertLocation(ctx, tx, &location); err != nil {
				return err
			}
		}
		return nil
	})
}

func loadEmbeddedLocations() ([]scheduledomain.Location, error) {
	f, err := embeddedData.Open("data/unlocodes.csv")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 3

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	locations := make([]scheduledomain.Location, 0, len(rows))
	for i, row := range rows {
		if i == 0 && strings.EqualFold(row[0], "unlocode") {
			continue
		}
		code := scheduledomain.NormalizeUNLocode(row[0])
		if code == "" {
			continue
		}
		locations = append(locations, scheduledomain.Location{
			UNLocode:    code,
			Name:        strings.TrimSpace(row[1]),
			CountryCode: strings.ToUpper(strings.TrimSpace(row[2])),
		})
	}
	return locations, nil
}
