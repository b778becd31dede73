package whatsapp

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types/events"
)

func newTestService(t *testing.T) *Service {
	dsn := fmt.Sprintf("file:watest%d?mode=memory&cache=shared&_foreign_keys=on", time.Now().UnixNano())
	db, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	svc, err := newService(context.Background(), db, "sqlite3", false)
	require.NoError(t, err)
	return svc
}

func TestNewServiceStartsDisconnected(t *testing.T) {
	svc := newTestService(t)
	assert.Equal(t, StateDisconnected, svc.State())
	assert.False(t, svc.Paired(context.Background()))
	assert.Empty(t, svc.QRCode())

	st := svc.Status()
	assert.Equal(t, StateDisconnected, st.State)
	assert.False(t, st.HasQR)
}

func TestEventsDriveState(t *testing.T) {
	svc := newTestService(t)

	svc.handleEvent(&events.Connected{})
	assert.Equal(t, StateConnected, svc.State())

	svc.handleEvent(&events.Disconnected{})
	assert.Equal(t, StateDisconnected, svc.State())
	assert.Equal(t, "connection lost", svc.Status().LastError)

	svc.handleEvent(&events.Connected{})
	assert.Empty(t, svc.Status().LastError)

	svc.handleEvent(&events.LoggedOut{})
	assert.Equal(t, StateDisconnected, svc.State())
	assert.Contains(t, svc.Status().LastError, "logged out")
}

func TestConsumeQR(t *testing.T) {
	svc := newTestService(t)
	svc.setState(StatePairing, "")

	ch := make(chan qrItem, 3)
	ch <- qrItem{Event: "code", Code: "2@abc", Timeout: time.Minute}
	close(ch)
	svc.consumeQR(ch)
	assert.Equal(t, "2@abc", svc.QRCode())
	assert.True(t, svc.Status().HasQR)

	ch = make(chan qrItem, 1)
	ch <- qrItem{Event: "timeout"}
	close(ch)
	svc.consumeQR(ch)
	assert.Empty(t, svc.QRCode())
	assert.Equal(t, StateDisconnected, svc.State())
}

func TestPhoneJID(t *testing.T) {
	jid, err := PhoneJID("919876543210")
	require.NoError(t, err)
	assert.Equal(t, "919876543210@s.whatsapp.net", jid.String())

	_, err = PhoneJID("12345")
	assert.ErrorIs(t, err, ErrInvalidPhone)
}

func TestSendTextRequiresConnection(t *testing.T) {
	svc := newTestService(t)
	err := svc.SendText(context.Background(), "919876543210", "hi")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, svc.Logout(context.Background()), ErrNotConnected)
}

func TestNilServiceIsDisabled(t *testing.T) {
	var svc *Service
	assert.Equal(t, StateDisabled, svc.State())
	assert.Equal(t, StateDisabled, svc.Status().State)
	assert.Empty(t, svc.QRCode())
	assert.ErrorIs(t, svc.Connect(context.Background()), ErrNotConnected)
	svc.Close()
}

func TestInstallClientReplacesIdleSession(t *testing.T) {
	svc := newTestService(t)

	first := whatsmeow.NewClient(svc.store.NewDevice(), nil)
	require.Same(t, first, svc.installClient(first))
	firstHandler := svc.handlerID

	second := whatsmeow.NewClient(svc.store.NewDevice(), nil)
	require.Same(t, second, svc.installClient(second))
	assert.Same(t, second, svc.client)
	assert.False(t, first.RemoveEventHandler(firstHandler), "old client keeps no handler")

	svc.Close()
	assert.Nil(t, svc.client)
	assert.Equal(t, StateDisconnected, svc.State())
}
