package repositories

import (
	"context"
	"github.com/google/uuid"
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/myrjola/chronicler/internal/models"
	"github.com/myrjola/chronicler/internal/sqlite"
	"log/slog"
)

type QuestRepository struct {
	database *sqlite.Database
	logger   *slog.Logger
}

func NewQuestRepository(database *sqlite.Database, logger *slog.Logger) *QuestRepository {
	return &QuestRepository{
		database: database,
		logger:   logger.With("source", "QuestRepository"),
	}
}

const questColumns = `id, campaign_id, name, description, status`

type questRow struct {
	ID          string `db:"id"`
	CampaignID  string `db:"campaign_id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Status      string `db:"status"`
}

func (r *QuestRepository) List(ctx context.Context, campaignID string) ([]models.Quest, error) {
	var rows []questRow
	stmt := `SELECT ` + questColumns + ` FROM quests WHERE campaign_id = ? ORDER BY name COLLATE NOCASE`
	if err := r.database.ReadOnly.SelectContext(ctx, &rows, stmt, campaignID); err != nil {
		return nil, errors.Wrap(err, "list quests", slog.String("campaign_id", campaignID))
	}
	quests := make([]models.Quest, 0, len(rows))
	for _, row := range rows {
		quests = append(quests, models.Quest(row))
	}
	return quests, nil
}

func (r *QuestRepository) FindByName(ctx context.Context, campaignID, name string) (models.Quest, error) {
	var row questRow
	stmt := `SELECT ` + questColumns + ` FROM quests WHERE campaign_id = ? AND name = ? COLLATE NOCASE`
	if err := r.database.ReadWrite.GetContext(ctx, &row, stmt, campaignID, name); err != nil {
		return models.Quest{}, notFound(err, "find quest", slog.String("name", name))
	}
	return models.Quest(row), nil
}

// Create inserts the quest unless one with the same name exists. An empty status defaults to "active".
func (r *QuestRepository) Create(ctx context.Context, quest models.Quest) (models.Quest, bool, error) {
	if quest.ID == "" {
		quest.ID = uuid.NewString()
	}
	if quest.Status == "" {
		quest.Status = "active"
	}
	stmt := `INSERT OR IGNORE INTO quests (` + questColumns + `) VALUES (?, ?, ?, ?, ?)`
	result, err := r.database.ReadWrite.ExecContext(ctx, stmt,
		quest.ID, quest.CampaignID, quest.Name, quest.Description, quest.Status)
	if err != nil {
		return models.Quest{}, false, errors.Wrap(err, "insert quest", slog.String("name", quest.Name))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return models.Quest{}, false, errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		existing, findErr := r.FindByName(ctx, quest.CampaignID, quest.Name)
		return existing, false, findErr
	}
	return quest, true, nil
}
