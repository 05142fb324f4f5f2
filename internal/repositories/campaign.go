package repositories

import (
	"context"
	"database/sql"
	"github.com/google/uuid"
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/myrjola/chronicler/internal/models"
	"github.com/myrjola/chronicler/internal/sqlite"
	"log/slog"
	"time"
)

type CampaignRepository struct {
	database *sqlite.Database
	logger   *slog.Logger
}

func NewCampaignRepository(database *sqlite.Database, logger *slog.Logger) *CampaignRepository {
	return &CampaignRepository{
		database: database,
		logger:   logger.With("source", "CampaignRepository"),
	}
}

type campaignRow struct {
	ID                  string        `db:"id"`
	Name                string        `db:"name"`
	LastIntelligenceRun sql.NullInt64 `db:"last_intelligence_run"`
	CreatedAt           int64         `db:"created_at"`
}

func (row campaignRow) toModel() models.Campaign {
	return models.Campaign{
		ID:                  row.ID,
		Name:                row.Name,
		LastIntelligenceRun: fromNullableMillis(row.LastIntelligenceRun),
		CreatedAt:           fromMillis(row.CreatedAt),
	}
}

func (r *CampaignRepository) Get(ctx context.Context, id string) (models.Campaign, error) {
	var row campaignRow
	stmt := `SELECT id, name, last_intelligence_run, created_at FROM campaigns WHERE id = ?`
	if err := r.database.ReadOnly.GetContext(ctx, &row, stmt, id); err != nil {
		return models.Campaign{}, notFound(err, "get campaign", slog.String("campaign_id", id))
	}
	return row.toModel(), nil
}

func (r *CampaignRepository) Create(ctx context.Context, name string) (models.Campaign, error) {
	campaign := models.Campaign{
		ID:                  uuid.NewString(),
		Name:                name,
		LastIntelligenceRun: nil,
		CreatedAt:           time.Now().UTC().Truncate(time.Millisecond),
	}
	stmt := `INSERT INTO campaigns (id, name, last_intelligence_run, created_at) VALUES (?, ?, NULL, ?)`
	if _, err := r.database.ReadWrite.ExecContext(ctx, stmt, campaign.ID, campaign.Name,
		toMillis(campaign.CreatedAt)); err != nil {
		return models.Campaign{}, errors.Wrap(err, "insert campaign")
	}
	return campaign, nil
}

// Watermark returns the last intelligence run of the campaign or nil if it has never been analyzed.
func (r *CampaignRepository) Watermark(ctx context.Context, id string) (*time.Time, error) {
	campaign, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return campaign.LastIntelligenceRun, nil
}

// AdvanceWatermark moves the watermark forward to t. The watermark never moves backward so an older t is a no-op.
func (r *CampaignRepository) AdvanceWatermark(ctx context.Context, id string, t time.Time) error {
	stmt := `UPDATE campaigns
SET last_intelligence_run = @run
WHERE id = @id
  AND (last_intelligence_run IS NULL OR last_intelligence_run < @run)`
	result, err := r.database.ReadWrite.ExecContext(ctx, stmt, sql.Named("id", id), sql.Named("run", toMillis(t)))
	if err != nil {
		return errors.Wrap(err, "advance watermark", slog.String("campaign_id", id))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		// Either the campaign is missing or the stored watermark is already newer.
		if _, err = r.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// ResetWatermark clears the watermark so that the next analysis covers every session.
func (r *CampaignRepository) ResetWatermark(ctx context.Context, id string) error {
	stmt := `UPDATE campaigns SET last_intelligence_run = NULL WHERE id = ?`
	result, err := r.database.ReadWrite.ExecContext(ctx, stmt, id)
	if err != nil {
		return errors.Wrap(err, "reset watermark", slog.String("campaign_id", id))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		return errors.Wrap(ErrNotFound, "reset watermark", slog.String("campaign_id", id))
	}
	return nil
}
