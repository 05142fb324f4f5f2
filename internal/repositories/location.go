package repositories

import (
	"context"
	"github.com/google/uuid"
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/myrjola/chronicler/internal/models"
	"github.com/myrjola/chronicler/internal/sqlite"
	"log/slog"
)

type LocationRepository struct {
	database *sqlite.Database
	logger   *slog.Logger
}

func NewLocationRepository(database *sqlite.Database, logger *slog.Logger) *LocationRepository {
	return &LocationRepository{
		database: database,
		logger:   logger.With("source", "LocationRepository"),
	}
}

const locationColumns = `id, campaign_id, name, type, description`

type locationRow struct {
	ID          string `db:"id"`
	CampaignID  string `db:"campaign_id"`
	Name        string `db:"name"`
	Type        string `db:"type"`
	Description string `db:"description"`
}

func (row locationRow) toModel() models.Location {
	return models.Location(row)
}

func (r *LocationRepository) List(ctx context.Context, campaignID string) ([]models.Location, error) {
	var rows []locationRow
	stmt := `SELECT ` + locationColumns + ` FROM locations WHERE campaign_id = ? ORDER BY name COLLATE NOCASE`
	if err := r.database.ReadOnly.SelectContext(ctx, &rows, stmt, campaignID); err != nil {
		return nil, errors.Wrap(err, "list locations", slog.String("campaign_id", campaignID))
	}
	locations := make([]models.Location, 0, len(rows))
	for _, row := range rows {
		locations = append(locations, row.toModel())
	}
	return locations, nil
}

// FindByName looks up a location by case-insensitive name.
func (r *LocationRepository) FindByName(ctx context.Context, campaignID, name string) (models.Location, error) {
	var row locationRow
	stmt := `SELECT ` + locationColumns + ` FROM locations WHERE campaign_id = ? AND name = ? COLLATE NOCASE`
	if err := r.database.ReadWrite.GetContext(ctx, &row, stmt, campaignID, name); err != nil {
		return models.Location{}, notFound(err, "find location", slog.String("name", name))
	}
	return row.toModel(), nil
}

// Create inserts the location unless one with the same name exists in the campaign. The stored location is
// returned together with whether it was created.
func (r *LocationRepository) Create(ctx context.Context, location models.Location) (models.Location, bool, error) {
	if location.ID == "" {
		location.ID = uuid.NewString()
	}
	stmt := `INSERT OR IGNORE INTO locations (` + locationColumns + `) VALUES (?, ?, ?, ?, ?)`
	result, err := r.database.ReadWrite.ExecContext(ctx, stmt,
		location.ID, location.CampaignID, location.Name, location.Type, location.Description)
	if err != nil {
		return models.Location{}, false, errors.Wrap(err, "insert location", slog.String("name", location.Name))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return models.Location{}, false, errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		existing, findErr := r.FindByName(ctx, location.CampaignID, location.Name)
		return existing, false, findErr
	}
	return location, true, nil
}
