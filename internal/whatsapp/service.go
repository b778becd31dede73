package whatsapp

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mdp/qrterminal/v3"
	"github.com/pkg/errors"
	"github.com/urbangulal/urbangulal/internal/app"
	"github.com/urbangulal/urbangulal/pkg/common"
	"go.mau.fi/whatsmeow"
	waE2E "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waTypes "go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
)

type State string

const (
	StateDisabled     State = "disabled"
	StateDisconnected State = "disconnected"
	StatePairing      State = "pairing"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

var (
	ErrNotConnected = errors.New("whatsapp is not connected")
	ErrInvalidPhone = errors.New("invalid phone number")
)

// Status is the externally visible session state.
type Status struct {
	State     State     `json:"state"`
	JID       string    `json:"jid,omitempty"`
	HasQR     bool      `json:"hasQr"`
	LastError string    `json:"lastError,omitempty"`
	Since     time.Time `json:"since"`
}

// Service owns one whatsmeow session used to send order notifications.
type Service struct {
	store   *sqlstore.Container
	ownDB   *sql.DB
	printQR bool

	mu        sync.RWMutex
	client    *whatsmeow.Client
	handlerID uint32
	state   State
	since   time.Time
	qr      string
	lastErr string
}

// New opens the session store. Postgres deployments share the application
// database; sqlite gets its own file next to it since the app connection is
// limited to a single writer.
func New(ctx context.Context, a app.AppContext) (*Service, error) {
	cfg := a.Config()
	var (
		sqlDB   *sql.DB
		ownDB   *sql.DB
		dialect string
		err     error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Database.Type)) {
	case "postgres", "postgresql":
		dialect = "postgres"
		sqlDB, err = a.DB().DB()
		if err != nil {
			return nil, errors.Wrap(err, "whatsapp: obtain sql.DB")
		}
	default:
		dialect = "sqlite3"
		dir := cfg.GetDataDir()
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "whatsapp: create data dir")
		}
		dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", filepath.Join(dir, "whatsapp.db"))
		ownDB, err = sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, errors.Wrap(err, "whatsapp: open session store")
		}
		sqlDB = ownDB
	}
	svc, err := newService(ctx, sqlDB, dialect, cfg.WhatsApp.PrintQR)
	if err != nil {
		if ownDB != nil {
			_ = ownDB.Close()
		}
		return nil, err
	}
	svc.ownDB = ownDB
	return svc, nil
}

func newService(ctx context.Context, db *sql.DB, dialect string, printQR bool) (*Service, error) {
	container := sqlstore.NewWithDB(db, dialect, nil)
	if err := container.Upgrade(ctx); err != nil {
		return nil, errors.Wrap(err, "whatsapp: sqlstore upgrade")
	}
	svc := &Service{store: container, printQR: printQR, state: StateDisconnected, since: time.Now()}
	zap.L().Info("whatsapp: session store ready", zap.String("dialect", dialect))
	return svc, nil
}

func (s *Service) setState(st State, reason string) {
	s.mu.Lock()
	changed := s.state != st
	s.state = st
	if changed {
		s.since = time.Now()
	}
	if st == StateConnected {
		s.qr = ""
		s.lastErr = ""
	}
	if reason != "" {
		s.lastErr = reason
	}
	s.mu.Unlock()
	if changed {
		zap.L().Info("whatsapp: state changed", zap.String("state", string(st)), zap.String("reason", reason))
	}
}

func (s *Service) State() State {
	if s == nil {
		return StateDisabled
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Service) Status() Status {
	if s == nil {
		return Status{State: StateDisabled}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{State: s.state, HasQR: s.qr != "", LastError: s.lastErr, Since: s.since}
	if s.client != nil && s.client.Store != nil && s.client.Store.ID != nil {
		st.JID = s.client.Store.ID.String()
	}
	return st
}

// QRCode returns the pending pairing code, empty when not pairing.
func (s *Service) QRCode() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.qr
}

// Connect starts connecting in the background. A device without a stored
// session enters the pairing state and publishes QR codes until scanned.
func (s *Service) Connect(ctx context.Context) error {
	if s == nil {
		return ErrNotConnected
	}
	switch s.State() {
	case StateConnected, StateConnecting, StatePairing:
		return nil
	}
	s.mu.RLock()
	live := s.client != nil && s.client.IsConnected()
	s.mu.RUnlock()
	if live {
		return nil
	}
	device, err := s.store.GetFirstDevice(ctx)
	if err != nil {
		return errors.Wrap(err, "whatsapp: load device")
	}
	client := whatsmeow.NewClient(device, nil)
	if s.installClient(client) != client {
		return nil
	}

	if client.Store.ID == nil {
		qrChan, err := client.GetQRChannel(context.Background())
		if err != nil {
			return errors.Wrap(err, "whatsapp: qr channel")
		}
		s.setState(StatePairing, "")
		go s.consumeQR(qrChan)
	} else {
		s.setState(StateConnecting, "")
	}
	if err := client.Connect(); err != nil {
		s.setState(StateDisconnected, err.Error())
		return errors.Wrap(err, "whatsapp: connect")
	}
	return nil
}

// installClient makes client the active session and detaches the previous
// one. A previous client whose socket is still up (whatsmeow reconnects by
// itself after a drop) stays active and the returned client is that one.
func (s *Service) installClient(client *whatsmeow.Client) *whatsmeow.Client {
	s.mu.Lock()
	old, oldHandler := s.client, s.handlerID
	if old != nil && old.IsConnected() {
		s.mu.Unlock()
		return old
	}
	s.client = client
	s.handlerID = client.AddEventHandler(s.handleEvent)
	s.mu.Unlock()

	if old != nil {
		old.RemoveEventHandler(oldHandler)
		old.Disconnect()
	}
	return client
}

func (s *Service) consumeQR(ch <-chan whatsmeow.QRChannelItem) {
	for item := range ch {
		switch item.Event {
		case whatsmeow.QRChannelEventCode:
			s.mu.Lock()
			s.qr = item.Code
			s.mu.Unlock()
			zap.L().Info("whatsapp: new pairing code", zap.Duration("valid_for", item.Timeout))
			if s.printQR {
				qrterminal.GenerateHalfBlock(item.Code, qrterminal.L, os.Stdout)
			}
		case whatsmeow.QRChannelSuccess.Event:
			s.setState(StateConnecting, "")
		case whatsmeow.QRChannelTimeout.Event:
			s.clearQR()
			s.setState(StateDisconnected, "pairing timed out")
		default:
			reason := item.Event
			if item.Error != nil {
				reason = item.Error.Error()
			}
			s.clearQR()
			s.setState(StateDisconnected, reason)
		}
	}
}

func (s *Service) clearQR() {
	s.mu.Lock()
	s.qr = ""
	s.mu.Unlock()
}

func (s *Service) handleEvent(evt interface{}) {
	switch e := evt.(type) {
	case *events.Connected:
		s.setState(StateConnected, "")
	case *events.PairSuccess:
		zap.L().Info("whatsapp: paired", zap.String("jid", e.ID.String()))
		s.setState(StateConnecting, "")
	case *events.Disconnected:
		s.setState(StateDisconnected, "connection lost")
	case *events.LoggedOut:
		s.clearQR()
		s.setState(StateDisconnected, "logged out: "+e.Reason.String())
	case *events.StreamReplaced:
		s.setState(StateDisconnected, "session opened elsewhere")
	}
}

// PhoneJID builds the user JID for international phone digits.
func PhoneJID(phone string) (waTypes.JID, error) {
	digits := common.Digits(phone)
	if len(digits) < 8 || len(digits) > 15 {
		return waTypes.JID{}, ErrInvalidPhone
	}
	return waTypes.ParseJID(digits + "@" + waTypes.DefaultUserServer)
}

// SendText sends a plain text message to phone (international digits).
func (s *Service) SendText(ctx context.Context, phone, text string) error {
	if s.State() != StateConnected {
		return ErrNotConnected
	}
	jid, err := PhoneJID(phone)
	if err != nil {
		return err
	}
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil {
		return ErrNotConnected
	}
	msg := &waE2E.Message{Conversation: proto.String(text)}
	if _, err := client.SendMessage(ctx, jid, msg); err != nil {
		zap.L().Warn("whatsapp: send message failed", zap.Error(err))
		return errors.Wrap(err, "whatsapp: send")
	}
	zap.L().Info("whatsapp: message sent", zap.String("to", common.LastDigits(phone, 4)))
	return nil
}

// Logout unlinks the device and removes the stored session.
func (s *Service) Logout(ctx context.Context) error {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil || client.Store == nil || client.Store.ID == nil {
		return ErrNotConnected
	}
	if err := client.Logout(ctx); err != nil {
		return errors.Wrap(err, "whatsapp: logout")
	}
	s.clearQR()
	s.setState(StateDisconnected, "")
	return nil
}

// Paired reports whether a linked session is stored.
func (s *Service) Paired(ctx context.Context) bool {
	device, err := s.store.GetFirstDevice(ctx)
	return err == nil && device != nil && device.ID != nil
}

// Start connects when a session is stored, or starts terminal pairing when
// QR printing is on, then disconnects when ctx ends.
func (s *Service) Start(ctx context.Context) error {
	if s.Paired(ctx) || s.printQR {
		if err := s.Connect(ctx); err != nil {
			zap.L().Warn("whatsapp: initial connect failed", zap.Error(err))
		}
	} else {
		zap.L().Info("whatsapp: no linked device, pair via POST /api/whatsapp/connect")
	}
	<-ctx.Done()
	s.Close()
	return nil
}

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	client, handler := s.client, s.handlerID
	s.client = nil
	s.mu.Unlock()
	if client != nil {
		client.RemoveEventHandler(handler)
		client.Disconnect()
	}
	if s.State() != StateDisconnected {
		s.setState(StateDisconnected, "")
	}
	if s.ownDB != nil {
		_ = s.ownDB.Close()
		s.ownDB = nil
	}
}

type qrItem = whatsmeow.QRChannelItem
