package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/Daffaariff/nawatech-chatbot/internal/storage/models"
	"github.com/Daffaariff/nawatech-chatbot/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS query_history (
		id TEXT PRIMARY KEY,
		query_text TEXT NOT NULL,
		answer TEXT,
		evaluation_method TEXT,
		overall_score REAL,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_created ON query_history(created_at);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertQueryRecord(record *models.QueryRecord) error {
	query := `
		INSERT INTO query_history (id, query_text, answer, evaluation_method, overall_score, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		record.ID,
		record.QueryText,
		record.Answer,
		record.EvaluationMethod,
		record.OverallScore,
		record.LatencyMS,
		record.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert query record: %w", err)
	}

	return nil
}

func (c *Client) GetRecentQueries(limit int) ([]models.QueryRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := c.db.Query(`
		SELECT id, query_text, answer, evaluation_method, overall_score, latency_ms
		FROM query_history
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	records := []models.QueryRecord{}
	for rows.Next() {
		var record models.QueryRecord
		err := rows.Scan(
			&record.ID,
			&record.QueryText,
			&record.Answer,
			&record.EvaluationMethod,
			&record.OverallScore,
			&record.LatencyMS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan query record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}
