package scene

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/lumen-station/internal/lighting"
)

// Repository defines the interface for scene catalog persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a scene by its unique identifier.
	// Returns ErrSceneNotFound if the scene does not exist.
	GetByID(ctx context.Context, id string) (*Scene, error)

	// GetByIndex retrieves the scene at the given catalog index
	// (zero-based, position order). Returns ErrSceneNotFound when the
	// index is negative or past the end of the catalog.
	GetByIndex(ctx context.Context, index int) (*Scene, error)

	// First retrieves the scene at the front of the catalog.
	// Returns ErrSceneNotFound when the catalog is empty.
	First(ctx context.Context) (*Scene, error)

	// List retrieves all scenes in catalog order.
	List(ctx context.Context) ([]Scene, error)

	// Count returns the number of scenes in the catalog.
	Count(ctx context.Context) (int, error)

	// Create inserts a new scene at the end of the catalog.
	// An empty ID is filled with a generated UUID. Returns ErrSceneExists
	// when the name is already taken.
	Create(ctx context.Context, scene *Scene) error

	// Update modifies a scene's name and channels. Position is not
	// touched; use Reorder to move a scene. Returns ErrSceneNotFound if
	// the scene does not exist and ErrSceneExists on a name collision.
	Update(ctx context.Context, scene *Scene) error

	// Delete removes a scene by ID.
	// Returns ErrSceneNotFound if the scene does not exist.
	Delete(ctx context.Context, id string) error

	// Reorder moves a scene to the given catalog index (clamped to the
	// catalog bounds) and renumbers all positions densely.
	Reorder(ctx context.Context, id string, index int) error

	// EnsureDefault seeds the default scene into an empty catalog.
	// A non-empty catalog is left untouched.
	EnsureDefault(ctx context.Context) error
}

// sceneColumns is the SELECT column list for scene queries.
const sceneColumns = `id, name, red, green, blue, white, brightness, position, created_at, updated_at`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a scene by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Scene, error) {
	query := `SELECT ` + sceneColumns + ` FROM scenes WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	scene, err := scanScene(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSceneNotFound
		}
		return nil, fmt.Errorf("querying scene by id: %w", err)
	}
	return scene, nil
}

// GetByIndex retrieves the scene at the given catalog index.
func (r *SQLiteRepository) GetByIndex(ctx context.Context, index int) (*Scene, error) {
	if index < 0 {
		return nil, ErrSceneNotFound
	}

	query := `SELECT ` + sceneColumns + ` FROM scenes ORDER BY position, name LIMIT 1 OFFSET ?`

	row := r.db.QueryRowContext(ctx, query, index)
	scene, err := scanScene(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSceneNotFound
		}
		return nil, fmt.Errorf("querying scene by index: %w", err)
	}
	return scene, nil
}

// First retrieves the scene at the front of the catalog.
func (r *SQLiteRepository) First(ctx context.Context) (*Scene, error) {
	return r.GetByIndex(ctx, 0)
}

// List retrieves all scenes in catalog order.
func (r *SQLiteRepository) List(ctx context.Context) ([]Scene, error) {
	query := `SELECT ` + sceneColumns + ` FROM scenes ORDER BY position, name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying scenes: %w", err)
	}
	defer rows.Close()

	var scenes []Scene
	for rows.Next() {
		scene, scanErr := scanSceneFromRows(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning scene: %w", scanErr)
		}
		scenes = append(scenes, *scene)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scenes: %w", err)
	}
	return scenes, nil
}

// Count returns the number of scenes in the catalog.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM scenes").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting scenes: %w", err)
	}
	return count, nil
}

// Create inserts a new scene at the end of the catalog.
func (r *SQLiteRepository) Create(ctx context.Context, scene *Scene) error {
	if err := ValidateName(scene.Name); err != nil {
		return err
	}

	if scene.ID == "" {
		scene.ID = GenerateID()
	}

	now := time.Now().UTC()
	if scene.CreatedAt.IsZero() {
		scene.CreatedAt = now
	}
	scene.UpdatedAt = now

	// Append to the end of the catalog.
	var next int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(position) + 1, 0) FROM scenes",
	).Scan(&next); err != nil {
		return fmt.Errorf("querying next position: %w", err)
	}
	scene.Position = next

	query := `
		INSERT INTO scenes (
			id, name, red, green, blue, white, brightness, position, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		scene.ID,
		scene.Name,
		int(scene.Channels.Red),
		int(scene.Channels.Green),
		int(scene.Channels.Blue),
		int(scene.Channels.White),
		int(scene.Channels.Brightness),
		scene.Position,
		scene.CreatedAt.Format(time.RFC3339),
		scene.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrSceneExists
		}
		return fmt.Errorf("inserting scene: %w", err)
	}
	return nil
}

// Update modifies a scene's name and channels.
func (r *SQLiteRepository) Update(ctx context.Context, scene *Scene) error {
	if err := ValidateName(scene.Name); err != nil {
		return err
	}

	scene.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE scenes SET
			name = ?, red = ?, green = ?, blue = ?, white = ?, brightness = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		scene.Name,
		int(scene.Channels.Red),
		int(scene.Channels.Green),
		int(scene.Channels.Blue),
		int(scene.Channels.White),
		int(scene.Channels.Brightness),
		scene.UpdatedAt.Format(time.RFC3339),
		scene.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrSceneExists
		}
		return fmt.Errorf("updating scene: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSceneNotFound
	}
	return nil
}

// Delete removes a scene by ID. Remaining positions keep their values;
// index-based reads skip the gap because they follow position order.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM scenes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting scene: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSceneNotFound
	}
	return nil
}

// Reorder moves a scene to the given catalog index and renumbers all
// positions densely (0..n-1).
func (r *SQLiteRepository) Reorder(ctx context.Context, id string, index int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning reorder transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	ids, err := orderedIDs(ctx, tx)
	if err != nil {
		return err
	}

	from := -1
	for i, sid := range ids {
		if sid == id {
			from = i
			break
		}
	}
	if from == -1 {
		return ErrSceneNotFound
	}

	if index < 0 {
		index = 0
	}
	if index > len(ids)-1 {
		index = len(ids) - 1
	}
	if index == from {
		return nil
	}

	// Splice the scene into its new slot.
	ids = append(ids[:from], ids[from+1:]...)
	ids = append(ids[:index], append([]string{id}, ids[index:]...)...)

	for pos, sid := range ids {
		if _, err := tx.ExecContext(ctx,
			"UPDATE scenes SET position = ? WHERE id = ?", pos, sid,
		); err != nil {
			return fmt.Errorf("renumbering scene positions: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reorder: %w", err)
	}
	return nil
}

// EnsureDefault seeds the default scene into an empty catalog.
func (r *SQLiteRepository) EnsureDefault(ctx context.Context) error {
	count, err := r.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	def := DefaultScene()
	return r.Create(ctx, &def)
}

// orderedIDs returns all scene IDs in catalog order within a transaction.
func orderedIDs(ctx context.Context, tx *sql.Tx) ([]string, error) {
	rows, err := tx.QueryContext(ctx, "SELECT id FROM scenes ORDER BY position, name")
	if err != nil {
		return nil, fmt.Errorf("querying scene order: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning scene id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scene order: %w", err)
	}
	return ids, nil
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanScene scans a single sql.Row into a Scene.
func scanScene(row *sql.Row) (*Scene, error) {
	return scanSceneRow(row)
}

// scanSceneFromRows scans a sql.Rows result into a Scene.
func scanSceneFromRows(rows *sql.Rows) (*Scene, error) {
	return scanSceneRow(rows)
}

func scanSceneRow(scanner rowScanner) (*Scene, error) {
	var s Scene
	var red, green, blue, white, brightness int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&s.ID,
		&s.Name,
		&red,
		&green,
		&blue,
		&white,
		&brightness,
		&s.Position,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	// Out-of-range stored values clamp rather than fail the read.
	s.Channels = lighting.LightingState{
		Red:        clampChannel(red),
		Green:      clampChannel(green),
		Blue:       clampChannel(blue),
		White:      clampChannel(white),
		Brightness: clampChannel(brightness),
	}

	// Parse timestamps (stored as RFC3339 by SQLite default expressions)
	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		s.CreatedAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339, updatedAt); parseErr == nil {
		s.UpdatedAt = t
	}

	return &s, nil
}

// clampChannel bounds a stored channel value to the uint8 range.
func clampChannel(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
