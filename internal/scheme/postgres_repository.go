package scheme

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/luc118i/operacional-app/internal/waypoint"
)

// PostgresRepository is a PostgreSQL implementation of Repository backed by
// the schemes, scheme_points and locations tables.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL scheme repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves a scheme by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Scheme, error) {
	query := `
		SELECT id, codigo, nome, direcao, trip_time, created_at, updated_at
		FROM schemes
		WHERE id = $1
	`

	var s Scheme
	var direction string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.LineCode,
		&s.LineName,
		&direction,
		&s.TripTime,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSchemeNotFound
		}
		return nil, fmt.Errorf("get scheme: %w", err)
	}
	s.Direction = Direction(direction)

	records, waypoints, err := r.loadPoints(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Points = DecodeRecords(records, waypoints)

	return &s, nil
}

func (r *PostgresRepository) loadPoints(ctx context.Context, schemeID string) ([]PointRecord, map[string]waypoint.Waypoint, error) {
	query := `
		SELECT
			sp.id, sp.ordem, sp.location_id, sp.tipo, sp.funcoes,
			sp.distancia_km, sp.distancia_acumulada_km,
			sp.tempo_deslocamento_min, sp.tempo_no_local_min,
			sp.velocidade_personalizada_kmh,
			sp.chegada, sp.saida, sp.is_initial, sp.justificativa,
			l.sigla, l.descricao, l.cidade, l.uf, l.tipo, l.lat, l.lng
		FROM scheme_points sp
		JOIN locations l ON l.id = sp.location_id
		WHERE sp.scheme_id = $1
		ORDER BY sp.ordem
	`

	rows, err := r.pool.Query(ctx, query, schemeID)
	if err != nil {
		return nil, nil, fmt.Errorf("query scheme points: %w", err)
	}
	defer rows.Close()

	var records []PointRecord
	waypoints := make(map[string]waypoint.Waypoint)
	for rows.Next() {
		var (
			rec                      PointRecord
			wp                       waypoint.Waypoint
			customSpeed              *float64
			arrival, departure, just *string
			code, locationKind       *string
		)
		err := rows.Scan(
			&rec.ID,
			&rec.Position,
			&rec.WaypointID,
			&rec.Kind,
			&rec.Functions,
			&rec.LegKm,
			&rec.CumulativeKm,
			&rec.DriveMin,
			&rec.DwellMin,
			&customSpeed,
			&arrival,
			&departure,
			&rec.IsInitial,
			&just,
			&code,
			&wp.Name,
			&wp.City,
			&wp.State,
			&locationKind,
			&wp.Lat,
			&wp.Lng,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("scan scheme point: %w", err)
		}

		rec.SchemeID = schemeID
		rec.CustomSpeed = deref(customSpeed)
		rec.Arrival = derefString(arrival)
		rec.Departure = derefString(departure)
		rec.Justification = derefString(just)

		wp.ID = rec.WaypointID
		wp.Code = derefString(code)
		wp.Kind = derefString(locationKind)
		waypoints[wp.ID] = wp

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate scheme points: %w", err)
	}

	return records, waypoints, nil
}

// List retrieves scheme headers ordered by most recently updated.
func (r *PostgresRepository) List(ctx context.Context, opts ListOptions) ([]*Scheme, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, codigo, nome, direcao, trip_time, created_at, updated_at
		FROM schemes
		WHERE ($1 = '' OR codigo = $1)
		ORDER BY updated_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, opts.LineCode, limit)
	if err != nil {
		return nil, fmt.Errorf("list schemes: %w", err)
	}
	defer rows.Close()

	var schemes []*Scheme
	for rows.Next() {
		var s Scheme
		var direction string
		if err := rows.Scan(&s.ID, &s.LineCode, &s.LineName, &direction, &s.TripTime, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan scheme: %w", err)
		}
		s.Direction = Direction(direction)
		schemes = append(schemes, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schemes: %w", err)
	}

	return schemes, nil
}

// Save upserts the scheme header and replaces its points in one transaction.
func (r *PostgresRepository) Save(ctx context.Context, s *Scheme) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save scheme: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	err = tx.QueryRow(ctx, `
		INSERT INTO schemes (id, codigo, nome, direcao, trip_time, distancia_total_km, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (id) DO UPDATE SET
			codigo = EXCLUDED.codigo,
			nome = EXCLUDED.nome,
			direcao = EXCLUDED.direcao,
			trip_time = EXCLUDED.trip_time,
			distancia_total_km = EXCLUDED.distancia_total_km,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`,
		s.ID,
		s.LineCode,
		s.LineName,
		string(s.Direction),
		s.TripTime,
		s.Sequence().TotalKm(),
		now,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert scheme: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM scheme_points WHERE scheme_id = $1`, s.ID); err != nil {
		return fmt.Errorf("clear scheme points: %w", err)
	}

	batch := &pgx.Batch{}
	for _, rec := range EncodeRecords(s.ID, s.Points) {
		batch.Queue(`
			INSERT INTO scheme_points (
				id, scheme_id, ordem, location_id, tipo, funcoes,
				distancia_km, distancia_acumulada_km,
				tempo_deslocamento_min, tempo_no_local_min,
				velocidade_media_kmh, velocidade_personalizada_kmh,
				chegada, saida, is_initial, is_final, ponto_operacional,
				is_rest_stop, is_support_point, troca_motorista,
				is_boarding_point, is_dropoff_point, is_free_stop,
				justificativa
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		`,
			rec.ID, rec.SchemeID, rec.Position, rec.WaypointID, rec.Kind, rec.Functions,
			rec.LegKm, rec.CumulativeKm,
			rec.DriveMin, rec.DwellMin,
			rec.AvgSpeedKmh, nullableFloat(rec.CustomSpeed),
			nullableString(rec.Arrival), nullableString(rec.Departure),
			rec.IsInitial, rec.IsFinal, rec.Operational,
			rec.RestStop, rec.SupportPoint, rec.DriverChange,
			rec.Boarding, rec.Dropoff, rec.FreeStop,
			nullableString(rec.Justification),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert scheme points: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save scheme: %w", err)
	}
	return nil
}

// Delete deletes a scheme and its points.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM scheme_points WHERE scheme_id = $1`, id); err != nil {
		return fmt.Errorf("delete scheme points: %w", err)
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM schemes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete scheme: %w", err)
	}
	return nil
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullableFloat(f float64) *float64 {
	if f <= 0 {
		return nil
	}
	return &f
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
