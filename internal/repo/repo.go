// Package repo persists users, projects and saved calculations in Postgres.
package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"Civcalc/internal/calcerr"
)

// Calculation kinds.
const (
	KindDesign  = "design"
	KindTakeoff = "takeoff"
)

type Users interface {
	CreateUser(ctx context.Context, login, email, password string) (int, error)
	// GetByLogin returns the user id and password hash. An unknown login
	// yields a zero id and an empty hash.
	GetByLogin(ctx context.Context, login string) (int, string, error)
}

type Projects interface {
	CreateProject(ctx context.Context, userID int, name string, tags []string) (Project, error)
	ListProjects(ctx context.Context, userID int) ([]Project, error)
	GetProject(ctx context.Context, userID int, id uuid.UUID) (Project, error)
	SaveCalculation(ctx context.Context, userID int, c Calculation) (Calculation, error)
	ListCalculations(ctx context.Context, userID int, projectID uuid.UUID) ([]Calculation, error)
	GetCalculation(ctx context.Context, userID int, id uuid.UUID) (Calculation, error)
}

type Project struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// Calculation is a stored engine request and its result.
type Calculation struct {
	ID        uuid.UUID       `json:"id"`
	ProjectID uuid.UUID       `json:"project_id"`
	Kind      string          `json:"kind"`
	Input     json.RawMessage `json:"input"`
	Result    json.RawMessage `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id       SERIAL PRIMARY KEY,
	login    TEXT NOT NULL UNIQUE,
	email    TEXT NOT NULL,
	password TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS projects (
	id         UUID PRIMARY KEY,
	user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	tags       TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS calculations (
	id         UUID PRIMARY KEY,
	project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	kind       TEXT NOT NULL,
	input      JSONB NOT NULL,
	result     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS calculations_project_idx ON calculations (project_id, created_at);
`

const defaultDSN = "user=postgres dbname=postgres password=password sslmode=disable"

// Open connects to Postgres and checks the connection. An empty dsn uses a
// local development database; a dsn without sslmode requires TLS.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", withSSLMode(dsn))
	if err != nil {
		return nil, calcerr.Wrap(calcerr.CodeInternal, err, "database configuration")
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, calcerr.Wrap(calcerr.CodeInternal, err, "database is not responding")
	}
	return db, nil
}

func withSSLMode(dsn string) string {
	if dsn == "" {
		return defaultDSN
	}
	if strings.Contains(dsn, "sslmode=") {
		return dsn
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		if strings.Contains(dsn, "?") {
			return dsn + "&sslmode=require"
		}
		return dsn + "?sslmode=require"
	}
	return dsn + " sslmode=require"
}

// Migrate creates the tables when they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return calcerr.Wrap(calcerr.CodeInternal, err, "migrating schema")
	}
	return nil
}

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (r *Postgres) CreateUser(ctx context.Context, login, email, password string) (int, error) {
	var id int
	query := "INSERT INTO users (login, email, password) VALUES ($1, $2, $3) RETURNING id"
	err := r.db.QueryRowContext(ctx, query, login, email, password).Scan(&id)
	if isUniqueViolation(err) {
		return 0, &calcerr.Error{Code: calcerr.CodeConflict, Field: "login", Value: login, Message: "login is already taken"}
	}
	return id, err
}

func (r *Postgres) GetByLogin(ctx context.Context, login string) (int, string, error) {
	var id int
	var hash string
	query := "SELECT id, password FROM users WHERE login=$1"
	err := r.db.QueryRowContext(ctx, query, login).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", nil
	}
	return id, hash, err
}

func (r *Postgres) CreateProject(ctx context.Context, userID int, name string, tags []string) (Project, error) {
	if tags == nil {
		tags = []string{}
	}
	p := Project{ID: uuid.New(), Name: name, Tags: tags}
	query := "INSERT INTO projects (id, user_id, name, tags) VALUES ($1, $2, $3, $4) RETURNING created_at"
	err := r.db.QueryRowContext(ctx, query, p.ID, userID, name, pq.Array(tags)).Scan(&p.CreatedAt)
	return p, err
}

func (r *Postgres) ListProjects(ctx context.Context, userID int) ([]Project, error) {
	query := "SELECT id, name, tags, created_at FROM projects WHERE user_id=$1 ORDER BY created_at DESC"
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Project{}
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, pq.Array(&p.Tags), &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Postgres) GetProject(ctx context.Context, userID int, id uuid.UUID) (Project, error) {
	p := Project{ID: id}
	query := "SELECT name, tags, created_at FROM projects WHERE id=$1 AND user_id=$2"
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(&p.Name, pq.Array(&p.Tags), &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, notFound("project", id)
	}
	return p, err
}

// SaveCalculation stores c under one of the user's projects and returns it
// with its id and timestamp set.
func (r *Postgres) SaveCalculation(ctx context.Context, userID int, c Calculation) (Calculation, error) {
	if _, err := r.GetProject(ctx, userID, c.ProjectID); err != nil {
		return Calculation{}, err
	}
	c.ID = uuid.New()
	query := `INSERT INTO calculations (id, project_id, kind, input, result)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, c.ID, c.ProjectID, c.Kind, string(c.Input), string(c.Result)).Scan(&c.CreatedAt)
	return c, err
}

func (r *Postgres) ListCalculations(ctx context.Context, userID int, projectID uuid.UUID) ([]Calculation, error) {
	if _, err := r.GetProject(ctx, userID, projectID); err != nil {
		return nil, err
	}
	query := `SELECT id, kind, input, result, created_at FROM calculations
		WHERE project_id=$1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Calculation{}
	for rows.Next() {
		c := Calculation{ProjectID: projectID}
		if err := rows.Scan(&c.ID, &c.Kind, &c.Input, &c.Result, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Postgres) GetCalculation(ctx context.Context, userID int, id uuid.UUID) (Calculation, error) {
	c := Calculation{ID: id}
	query := `SELECT c.project_id, c.kind, c.input, c.result, c.created_at
		FROM calculations c JOIN projects p ON p.id = c.project_id
		WHERE c.id=$1 AND p.user_id=$2`
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(&c.ProjectID, &c.Kind, &c.Input, &c.Result, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Calculation{}, notFound("calculation", id)
	}
	return c, err
}

func notFound(what string, id uuid.UUID) *calcerr.Error {
	return &calcerr.Error{Code: calcerr.CodeNotFound, Field: "id", Value: id.String(), Message: what + " not found"}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
