package media

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// CatalogFile is a tenant-owned document (price list, brochure, menu) that
// the bot can resend when a customer asks for it by name.
type CatalogFile struct {
	ID        string
	TenantID  string
	Label     string
	Location  string
	MimeType  string
	CreatedAt time.Time
}

// Library is the catalog store backed by the file_library table.
type Library struct {
	db *sql.DB
}

func NewLibrary(db *sql.DB) *Library {
	return &Library{db: db}
}

func (l *Library) Add(ctx context.Context, f *CatalogFile) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO file_library (id, tenant_id, label, location, mime_type, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())`,
		f.ID, f.TenantID, f.Label, f.Location, f.MimeType)
	if err != nil {
		return fmt.Errorf("media: add catalog file: %w", err)
	}
	return nil
}

func (l *Library) ListByTenant(ctx context.Context, tenantID string) ([]CatalogFile, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, tenant_id, label, location, mime_type, created_at
		FROM file_library WHERE tenant_id = $1 ORDER BY label`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("media: list catalog: %w", err)
	}
	defer rows.Close()

	var out []CatalogFile
	for rows.Next() {
		var f CatalogFile
		if err := rows.Scan(&f.ID, &f.TenantID, &f.Label, &f.Location, &f.MimeType, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("media: scan catalog file: %w", err)
		}
		out = append(out, f)
	}
	if out == nil {
		out = []CatalogFile{}
	}
	return out, rows.Err()
}

func (l *Library) Delete(ctx context.Context, tenantID, id string) error {
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM file_library WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("media: delete catalog file: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Match returns the tenant catalog file whose label best matches the
// customer message, or nil when nothing matches. A file matches when every
// word of its label appears in the message; ties go to the longest label.
func (l *Library) Match(ctx context.Context, tenantID, message string) (*CatalogFile, error) {
	files, err := l.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	msg := " " + normalizeLabel(message) + " "
	var best *CatalogFile
	bestLen := 0
	for i := range files {
		label := normalizeLabel(files[i].Label)
		if label == "" {
			continue
		}
		allFound := true
		for _, w := range strings.Fields(label) {
			if !strings.Contains(msg, " "+w+" ") {
				allFound = false
				break
			}
		}
		if allFound && len(label) > bestLen {
			best = &files[i]
			bestLen = len(label)
		}
	}
	return best, nil
}

func normalizeLabel(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r >= 'à' && r <= 'ÿ':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
