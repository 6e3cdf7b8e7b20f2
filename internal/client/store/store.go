package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/ledgerly/internal/client"
	"github.com/MrJamesThe3rd/ledgerly/internal/ledger"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const selectClientColumns = `
	id, name, email, active, deactivated_at, reactivated_at,
	subscription, document_tree, version, created_at, updated_at
`

// scanClient expects the columns of selectClientColumns in order. The tree
// decoder quarantines malformed months instead of failing the row.
func scanClient(s scanner) (*client.Client, error) {
	var (
		c        client.Client
		subJSON  []byte
		treeJSON []byte
	)

	if err := s.Scan(
		&c.ID, &c.Name, &c.Email, &c.Active, &c.DeactivatedAt, &c.ReactivatedAt,
		&subJSON, &treeJSON, &c.Version, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(subJSON, &c.Subscription); err != nil {
		return nil, fmt.Errorf("decoding subscription of client %s: %w", c.ID, err)
	}

	c.Tree = ledger.NewTree()
	if err := json.Unmarshal(treeJSON, c.Tree); err != nil {
		return nil, fmt.Errorf("decoding document tree of client %s: %w", c.ID, err)
	}

	return &c, nil
}

func encode(c *client.Client) (sub, tree []byte, err error) {
	sub, err = json.Marshal(c.Subscription)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding subscription: %w", err)
	}

	t := c.Tree
	if t == nil {
		t = ledger.NewTree()
	}

	tree, err = json.Marshal(t)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding document tree: %w", err)
	}

	return sub, tree, nil
}

func (s *Store) CreateClient(ctx context.Context, c *client.Client) error {
	sub, tree, err := encode(c)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO clients (name, email, active, subscription, document_tree, version, created_at)
		VALUES ($1, $2, $3, $4, $5, 1, NOW())
		RETURNING id, version, created_at
	`

	err = s.db.QueryRowContext(ctx, query,
		c.Name,
		c.Email,
		c.Active,
		sub,
		tree,
	).Scan(&c.ID, &c.Version, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	return nil
}

func (s *Store) GetClient(ctx context.Context, id uuid.UUID) (*client.Client, error) {
	query := `SELECT ` + selectClientColumns + ` FROM clients WHERE id = $1`

	c, err := scanClient(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &ledger.NotFoundError{Kind: "client", Key: id.String()}
		}

		return nil, fmt.Errorf("getting client: %w", err)
	}

	return c, nil
}

func (s *Store) ListClients(ctx context.Context, filter client.ListFilter) ([]*client.Client, error) {
	query := `SELECT ` + selectClientColumns + ` FROM clients`

	var args []any

	if filter.Active != nil {
		query += " WHERE active = $1"

		args = append(args, *filter.Active)
	}

	query += " ORDER BY name ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing clients: %w", err)
	}
	defer rows.Close()

	var clients []*client.Client

	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning client: %w", err)
		}

		clients = append(clients, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating clients: %w", err)
	}

	return clients, nil
}

// ListClientIDs returns every tenant id in a stable order. Batch jobs load
// each tenant separately so one bad row cannot abort the whole run.
func (s *Store) ListClientIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM clients ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing client ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning client id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating client ids: %w", err)
	}

	return ids, nil
}

func (s *Store) SaveClient(ctx context.Context, c *client.Client) error {
	sub, tree, err := encode(c)
	if err != nil {
		return err
	}

	query := `
		UPDATE clients
		SET name = $1, email = $2, active = $3, deactivated_at = $4, reactivated_at = $5,
			subscription = $6, document_tree = $7, version = version + 1, updated_at = NOW()
		WHERE id = $8 AND version = $9
		RETURNING version, updated_at
	`

	err = s.db.QueryRowContext(ctx, query,
		c.Name,
		c.Email,
		c.Active,
		c.DeactivatedAt,
		c.ReactivatedAt,
		sub,
		tree,
		c.ID,
		c.Version,
	).Scan(&c.Version, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("saving client %s at version %d: %w", c.ID, c.Version, ledger.ErrConflict)
		}

		return fmt.Errorf("saving client: %w", err)
	}

	return nil
}
