// Package store persists the material catalog and saved quote records in
// SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/precisionworks/quote-engine/internal/model"
	"github.com/precisionworks/quote-engine/pkg/geometry"
)

// SQLiteStore implements the material catalog and quote history using
// modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS materials (
	name                 TEXT PRIMARY KEY,
	cost_per_cubic_inch  REAL NOT NULL,
	machinability_score  REAL NOT NULL DEFAULT 1.0
);

CREATE TABLE IF NOT EXISTS quotes (
	id                    TEXT PRIMARY KEY,
	quote_id              TEXT NOT NULL,
	material              TEXT NOT NULL,
	stock_x               REAL NOT NULL,
	stock_y               REAL NOT NULL,
	stock_z               REAL NOT NULL,
	part_volume           REAL NOT NULL,
	shape_config          TEXT,
	system_price_anchor   REAL NOT NULL,
	final_quoted_price    REAL NOT NULL,
	variance_attribution  TEXT,
	created_at            DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_quotes_quote_id ON quotes(quote_id);
CREATE INDEX IF NOT EXISTS idx_quotes_material ON quotes(material);
`

// Migrate creates the schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// SeedDefaults inserts the default material catalog; existing rows are
// left alone.
func (s *SQLiteStore) SeedDefaults(ctx context.Context) error {
	defaults := []model.Material{
		{Name: "Aluminum 6061", CostPerIn3: 0.30, Machinability: 1.0},
		{Name: "Steel 1018", CostPerIn3: 0.25, Machinability: 1.8},
		{Name: "Stainless 304", CostPerIn3: 0.65, Machinability: 2.5},
		{Name: "Customer Supplied", CostPerIn3: 0.00, Machinability: 1.0},
	}
	for _, m := range defaults {
		_, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO materials (name, cost_per_cubic_inch, machinability_score) VALUES (?, ?, ?)`,
			m.Name, m.CostPerIn3, m.Machinability,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: seed material %s", m.Name)
		}
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Material looks a material up by name. The second return is false when
// the material is not in the catalog.
func (s *SQLiteStore) Material(ctx context.Context, name string) (model.Material, bool, error) {
	var m model.Material
	err := s.db.QueryRowContext(ctx,
		`SELECT name, cost_per_cubic_inch, machinability_score FROM materials WHERE name = ?`,
		name,
	).Scan(&m.Name, &m.CostPerIn3, &m.Machinability)
	if err == sql.ErrNoRows {
		return model.Material{}, false, nil
	}
	if err != nil {
		return model.Material{}, false, eris.Wrapf(err, "sqlite: select material %s", name)
	}
	return m, true, nil
}

// ListMaterials returns the catalog ordered by name.
func (s *SQLiteStore) ListMaterials(ctx context.Context) ([]model.Material, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, cost_per_cubic_inch, machinability_score FROM materials ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list materials")
	}
	defer rows.Close()

	var out []model.Material
	for rows.Next() {
		var m model.Material
		if err := rows.Scan(&m.Name, &m.CostPerIn3, &m.Machinability); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan material")
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate materials")
}

// SaveQuote inserts a quote record and returns it with its generated row ID.
func (s *SQLiteStore) SaveQuote(ctx context.Context, rec model.QuoteRecord) (*model.QuoteRecord, error) {
	rec.ID = uuid.New().String()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var shapeJSON any
	if rec.Shape != nil {
		b, err := json.Marshal(rec.Shape)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal shape config")
		}
		shapeJSON = string(b)
	}

	var attrJSON any
	if rec.GlassBox.Attribution != nil {
		b, err := json.Marshal(rec.GlassBox.Attribution)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal attribution")
		}
		attrJSON = string(b)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quotes (
			id, quote_id, material, stock_x, stock_y, stock_z, part_volume,
			shape_config, system_price_anchor, final_quoted_price,
			variance_attribution, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.QuoteID, rec.Material,
		rec.Stock.X, rec.Stock.Y, rec.Stock.Z, rec.PartVolume,
		shapeJSON, rec.GlassBox.SystemPriceAnchor, rec.GlassBox.FinalQuotedPrice,
		attrJSON, rec.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert quote")
	}
	return &rec, nil
}

// ListQuotes returns saved quotes, newest first.
func (s *SQLiteStore) ListQuotes(ctx context.Context, limit int) ([]model.QuoteRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, quote_id, material, stock_x, stock_y, stock_z, part_volume,
			shape_config, system_price_anchor, final_quoted_price,
			variance_attribution, created_at
		FROM quotes ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list quotes")
	}
	defer rows.Close()

	var out []model.QuoteRecord
	for rows.Next() {
		rec, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate quotes")
}

// GetQuote fetches one saved quote by row ID. The second return is false
// when no such quote exists.
func (s *SQLiteStore) GetQuote(ctx context.Context, id string) (model.QuoteRecord, bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, quote_id, material, stock_x, stock_y, stock_z, part_volume,
			shape_config, system_price_anchor, final_quoted_price,
			variance_attribution, created_at
		FROM quotes WHERE id = ?`, id)
	if err != nil {
		return model.QuoteRecord{}, false, eris.Wrapf(err, "sqlite: get quote %s", id)
	}
	defer rows.Close()

	if !rows.Next() {
		return model.QuoteRecord{}, false, eris.Wrap(rows.Err(), "sqlite: get quote")
	}
	rec, err := scanQuote(rows)
	if err != nil {
		return model.QuoteRecord{}, false, err
	}
	return rec, true, nil
}

func scanQuote(rows *sql.Rows) (model.QuoteRecord, error) {
	var rec model.QuoteRecord
	var shapeJSON, attrJSON sql.NullString
	if err := rows.Scan(
		&rec.ID, &rec.QuoteID, &rec.Material,
		&rec.Stock.X, &rec.Stock.Y, &rec.Stock.Z, &rec.PartVolume,
		&shapeJSON, &rec.GlassBox.SystemPriceAnchor, &rec.GlassBox.FinalQuotedPrice,
		&attrJSON, &rec.CreatedAt,
	); err != nil {
		return model.QuoteRecord{}, eris.Wrap(err, "sqlite: scan quote")
	}
	if shapeJSON.Valid && shapeJSON.String != "" {
		var shape geometry.ShapeConfig
		if err := json.Unmarshal([]byte(shapeJSON.String), &shape); err != nil {
			return model.QuoteRecord{}, eris.Wrap(err, "sqlite: unmarshal shape config")
		}
		rec.Shape = &shape
	}
	if attrJSON.Valid && attrJSON.String != "" {
		var attr model.Attribution
		if err := json.Unmarshal([]byte(attrJSON.String), &attr); err != nil {
			return model.QuoteRecord{}, eris.Wrap(err, "sqlite: unmarshal attribution")
		}
		rec.GlassBox.Attribution = &attr
	}
	return rec, nil
}
