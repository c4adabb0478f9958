package transport

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestDeviceDirectoryGetReturnsStoredJID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dir := &deviceDirectory{db: db}
	mock.ExpectQuery("SELECT device_jid FROM transport_devices").
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"device_jid"}).AddRow("33612345678.0:1@s.whatsapp.net"))

	jid, err := dir.get(context.Background(), "t1")
	require.NoError(t, err)
	require.Equal(t, "33612345678.0:1@s.whatsapp.net", jid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeviceDirectoryGetUnknownSessionIsEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dir := &deviceDirectory{db: db}
	mock.ExpectQuery("SELECT device_jid FROM transport_devices").
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"device_jid"}))

	jid, err := dir.get(context.Background(), "t1")
	require.NoError(t, err)
	require.Empty(t, jid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeviceDirectoryPutUpsertsMapping(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dir := &deviceDirectory{db: db}
	mock.ExpectExec("INSERT INTO transport_devices").
		WithArgs("t1", "33612345678.0:1@s.whatsapp.net").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, dir.put(context.Background(), "t1", "33612345678.0:1@s.whatsapp.net"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeviceDirectoryDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dir := &deviceDirectory{db: db}
	mock.ExpectExec("DELETE FROM transport_devices").
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, dir.delete(context.Background(), "t1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
