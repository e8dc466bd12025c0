package waypoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDirectory reads waypoints from the locations table.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

var _ Directory = (*PostgresDirectory)(nil)

// NewPostgresDirectory creates a new PostgreSQL waypoint directory.
func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{pool: pool}
}

const locationColumns = `id, sigla, descricao, cidade, uf, tipo, lat, lng`

// Search matches code, description and city with ILIKE.
func (d *PostgresDirectory) Search(ctx context.Context, query string, limit int) ([]Waypoint, error) {
	q, ok := normalizeQuery(query)
	if !ok {
		return []Waypoint{}, nil
	}

	rows, err := d.pool.Query(ctx, `
		SELECT `+locationColumns+`
		FROM locations
		WHERE sigla ILIKE $1 OR descricao ILIKE $1 OR cidade ILIKE $1
		ORDER BY descricao
		LIMIT $2
	`, "%"+q+"%", normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("search locations: %w", err)
	}
	defer rows.Close()

	out := make([]Waypoint, 0)
	for rows.Next() {
		w, err := scanWaypoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locations: %w", err)
	}
	return out, nil
}

// Get returns a waypoint by id.
func (d *PostgresDirectory) Get(ctx context.Context, id string) (*Waypoint, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+locationColumns+` FROM locations WHERE id = $1`, id)
	w, err := scanWaypoint(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get location: %w", err)
	}
	return &w, nil
}

func scanWaypoint(row pgx.Row) (Waypoint, error) {
	var (
		w          Waypoint
		code, kind *string
	)
	if err := row.Scan(&w.ID, &code, &w.Name, &w.City, &w.State, &kind, &w.Lat, &w.Lng); err != nil {
		return Waypoint{}, err
	}
	if code != nil {
		w.Code = *code
	}
	if kind != nil {
		w.Kind = *kind
	}
	return w, nil
}
