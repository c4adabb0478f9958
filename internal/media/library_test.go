package media

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func catalogRows(files ...CatalogFile) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "tenant_id", "label", "location", "mime_type", "created_at"})
	for _, f := range files {
		rows.AddRow(f.ID, f.TenantID, f.Label, f.Location, f.MimeType, time.Now())
	}
	return rows
}

func TestLibraryMatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	lib := NewLibrary(db)
	files := []CatalogFile{
		{ID: "f1", TenantID: "t1", Label: "catalogue", Location: "/m/t1/cat.pdf", MimeType: "application/pdf"},
		{ID: "f2", TenantID: "t1", Label: "catalogue été", Location: "/m/t1/ete.pdf", MimeType: "application/pdf"},
		{ID: "f3", TenantID: "t1", Label: "tarifs livraison", Location: "/m/t1/tarifs.pdf", MimeType: "application/pdf"},
	}

	tests := []struct {
		name    string
		message string
		wantID  string
	}{
		{"single word label", "envoyez-moi le catalogue svp", "f1"},
		{"longest label wins", "je veux le catalogue été", "f2"},
		{"accents and case", "vos TARIFS de LIVRAISON ?", "f3"},
		{"partial label does not match", "parlons livraison", ""},
		{"no match", "bonjour", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock.ExpectQuery("SELECT id, tenant_id, label, location, mime_type, created_at").
				WithArgs("t1").
				WillReturnRows(catalogRows(files...))

			got, err := lib.Match(context.Background(), "t1", tt.message)
			require.NoError(t, err)
			if tt.wantID == "" {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.Equal(t, tt.wantID, got.ID)
		})
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLibraryAddAndDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	lib := NewLibrary(db)

	mock.ExpectExec("INSERT INTO file_library").
		WithArgs("f1", "t1", "catalogue", "/m/t1/cat.pdf", "application/pdf").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, lib.Add(context.Background(), &CatalogFile{
		ID: "f1", TenantID: "t1", Label: "catalogue",
		Location: "/m/t1/cat.pdf", MimeType: "application/pdf",
	}))

	mock.ExpectExec("DELETE FROM file_library").
		WithArgs("t1", "f1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, lib.Delete(context.Background(), "t1", "f1"))

	mock.ExpectExec("DELETE FROM file_library").
		WithArgs("t1", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.Error(t, lib.Delete(context.Background(), "t1", "missing"))

	require.NoError(t, mock.ExpectationsWereMet())
}
