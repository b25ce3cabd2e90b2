// Package store persists organism models and reaction likelihood
// tables in a local sqlite database so repeated runs can reuse earlier
// results.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/mmundy42/mackinac/pkg/likelihood"
	"github.com/mmundy42/mackinac/pkg/model"
)

// ErrModelNotFound is returned when a model ID is not in the store.
var ErrModelNotFound = errors.New("model does not exist in store")

// ModelSEED reaction IDs carry a community index suffix when persisted.
// A single organism model always uses community index 0.
const communityIndexSuffix = "0"

const schema = `
CREATE TABLE IF NOT EXISTS models (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	genome_id TEXT NOT NULL,
	data BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS reaction_likelihoods (
	model_id TEXT NOT NULL,
	reaction_id TEXT NOT NULL,
	likelihood REAL NOT NULL,
	type TEXT NOT NULL,
	complex_detail TEXT NOT NULL,
	gpr TEXT NOT NULL,
	PRIMARY KEY (model_id, reaction_id)
);
`

// Store is a workspace for models and likelihood tables backed by a
// sqlite database file.
type Store struct {
	db *sql.DB
}

// Open opens the store at path, creating the database and schema when
// they do not exist yet.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create store schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ModelInfo describes a stored model.
type ModelInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	GenomeID string `json:"genome_id"`
}

// SaveModel stores the model as a JSON blob, replacing any earlier
// model with the same ID.
func (s *Store) SaveModel(ctx context.Context, m *model.Model, genomeID string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to serialize model %s: %w", m.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO models (id, name, genome_id, data) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name, genome_id=excluded.genome_id, data=excluded.data`,
		m.ID, m.Name, genomeID, data)
	if err != nil {
		return fmt.Errorf("failed to save model %s: %w", m.ID, err)
	}
	return nil
}

// GetModel loads a model by ID.
func (s *Store) GetModel(ctx context.Context, id string) (*model.Model, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM models WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("model %s: %w", id, ErrModelNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get model %s: %w", id, err)
	}
	var m model.Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to deserialize model %s: %w", id, err)
	}
	return &m, nil
}

// ListModels returns the stored models ordered by ID.
func (s *Store) ListModels(ctx context.Context) ([]ModelInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, genome_id FROM models ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer rows.Close()

	var infos []ModelInfo
	for rows.Next() {
		var info ModelInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.GenomeID); err != nil {
			return nil, fmt.Errorf("failed to scan model row: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// DeleteModel removes a model and its likelihood table.
func (s *Store) DeleteModel(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM reaction_likelihoods WHERE model_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete likelihoods for model %s: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM models WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete model %s: %w", id, err)
	}
	return tx.Commit()
}

// SaveLikelihoods stores the reaction likelihood table for a model,
// replacing any earlier table. Reaction IDs have the community index
// suffix appended the way ModelSEED stores them.
func (s *Store) SaveLikelihoods(ctx context.Context, modelID string,
	values map[string]likelihood.ReactionValue) error {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM reaction_likelihoods WHERE model_id = ?`, modelID); err != nil {
		return fmt.Errorf("failed to clear likelihoods for model %s: %w", modelID, err)
	}

	reactionIDs := make([]string, 0, len(values))
	for id := range values {
		reactionIDs = append(reactionIDs, id)
	}
	sort.Strings(reactionIDs)

	stmt, err := tx.Prepare(
		`INSERT INTO reaction_likelihoods (model_id, reaction_id, likelihood, type, complex_detail, gpr)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare likelihood insert: %w", err)
	}
	defer stmt.Close()

	for _, id := range reactionIDs {
		value := values[id]
		if _, err := stmt.Exec(modelID, id+communityIndexSuffix, value.Likelihood,
			value.Type, value.ComplexString, value.GPR); err != nil {
			return fmt.Errorf("failed to save likelihood for reaction %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// GetLikelihoods loads the reaction likelihood table for a model. The
// community index suffix added on save is stripped so the returned map
// is keyed by the same reaction IDs the likelihood engine produced. A
// model with no stored table returns an empty map, not an error, so
// callers can treat likelihoods as optional.
func (s *Store) GetLikelihoods(ctx context.Context, modelID string) (map[string]likelihood.ReactionValue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT reaction_id, likelihood, type, complex_detail, gpr
		 FROM reaction_likelihoods WHERE model_id = ?`, modelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get likelihoods for model %s: %w", modelID, err)
	}
	defer rows.Close()

	values := make(map[string]likelihood.ReactionValue)
	for rows.Next() {
		var reactionID string
		var value likelihood.ReactionValue
		if err := rows.Scan(&reactionID, &value.Likelihood, &value.Type,
			&value.ComplexString, &value.GPR); err != nil {
			return nil, fmt.Errorf("failed to scan likelihood row: %w", err)
		}
		values[strings.TrimSuffix(reactionID, communityIndexSuffix)] = value
	}
	return values, rows.Err()
}
